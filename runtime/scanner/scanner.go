// Package scanner implements an incremental, character-driven scanner for a
// hybrid markup template language. Documents mix HTML-style tags, an
// indentation-sensitive concise tag notation and embedded JavaScript
// expressions in tag names, attributes and placeholders.
//
// The scanner is a push-down automaton: a stack of frames, each running one
// lexical state, is fed one character (or end of line, or end of input) at a
// time. States describe themselves through a table of callbacks (see
// states.go). Output is a flat stream of events delivered to a Handler as they
// become final. The first authoring error is latched: it is reported once, as
// the last event, and everything after it is discarded.
//
// Basic usage:
//
//	res := scanner.Parse(src)
//	if err := res.Err(); err != nil {
//	    return err
//	}
//	for _, ev := range res.Events {
//	    ...
//	}
//
// Hosts that need to react while scanning (choosing body modes for their own
// tags, for example) create a Parser and pass a Handler:
//
//	p := scanner.New(opts...)
//	err := p.Parse(src, scanner.HandlerFunc(func(ev *scanner.Event) {
//	    if ev.Kind == scanner.EventOpenTag && ev.Tag.Name == "markdown" {
//	        p.EnterStaticTextContent()
//	    }
//	}))
package scanner

import (
	"log/slog"
	"strings"
	"time"

	"github.com/opal-lang/tagscan/core/invariant"
	"github.com/opal-lang/tagscan/core/source"
)

// Cursor tells the main loop how far to move after a char or eol callback.
// Positive values consume that many bytes, zero reprocesses the same byte in
// whatever state is now on top of the stack.
type Cursor int

const (
	Reprocess Cursor = 0
	Advance   Cursor = 1
)

// Consume moves the cursor n bytes forward.
func Consume(n int) Cursor {
	invariant.Precondition(n > 0, "consume count must be positive, got %d", n)
	return Cursor(n)
}

const bom = "\uFEFF"

// maxReprocess bounds how often one byte may be handed back without progress.
// Legitimate chains (a value ending, then its attribute, then the open tag)
// are a handful deep.
const maxReprocess = 64

// Frame is one entry of the state stack. Start is the cursor when the state
// was entered; End is set when it exits. meta belongs to the state and is only
// visible to the parent inside its return callback.
type Frame struct {
	State StateID
	source.Range
	meta any
}

// Parser scans one document at a time. It is reusable: Parse resets all
// per-document state. It is not safe for concurrent use.
type Parser struct {
	cfg    Config
	logger *slog.Logger

	src    *source.Source
	text   string
	pos    int
	maxPos int

	frames []*Frame
	blocks []*block
	root   block

	textStart int    // Start of pending text, -1 when none
	lineStart int    // Offset of the current line
	indent    string // Indentation of the current concise line
	tagOnly   *block // Last concise open-tag-only element, for nested content checks

	handler  Handler
	err      *ScanError
	warnings []Warning

	inOpenTag   bool // Inside the handler of an openTag event
	pendingBody BodyMode

	transitions int
	stalls      int
	telemetry   *Telemetry
	debugEvents []DebugEvent
}

// New creates a parser.
func New(opts ...Option) *Parser {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = defaultLogger()
	}
	return &Parser{cfg: cfg, logger: logger}
}

// Result is everything one Parse produced.
type Result struct {
	Source      *source.Source
	Events      []Event
	Errors      []*ScanError // At most one: errors latch
	Warnings    []Warning
	Telemetry   *Telemetry   // nil unless telemetry is enabled
	DebugEvents []DebugEvent // nil unless debug tracing is enabled
}

// Err returns the latched error, if any.
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// Parse scans text with a fresh parser and collects every event.
func Parse(text string, opts ...Option) *Result {
	p := New(opts...)
	res := &Result{}
	_ = p.Parse(text, HandlerFunc(func(ev *Event) {
		res.Events = append(res.Events, *ev)
	}))
	res.Source = p.src
	if p.err != nil {
		res.Errors = []*ScanError{p.err}
	}
	res.Warnings = p.warnings
	res.Telemetry = p.telemetry
	res.DebugEvents = p.debugEvents
	return res
}

// Parse scans text, delivering events to h, and returns the latched error.
func (p *Parser) Parse(text string, h Handler) error {
	invariant.NotNil(h, "handler")
	p.reset(text, h)

	var start time.Time
	if p.cfg.telemetry >= TelemetryTiming {
		start = time.Now()
	}

	p.enterState(StateConciseContent, &conciseMeta{})
	p.run()
	p.drain()

	if p.telemetry != nil {
		if p.cfg.telemetry >= TelemetryTiming {
			p.telemetry.ScanTime = time.Since(start)
		}
		p.telemetry.WarningCount = len(p.warnings)
		if p.err != nil {
			p.telemetry.ErrorCount = 1
		}
	}
	invariant.Postcondition(len(p.frames) == 0, "state stack must be empty after drain, %d frames left", len(p.frames))

	if p.err != nil {
		return p.err
	}
	return nil
}

func (p *Parser) reset(text string, h Handler) {
	p.src = source.New(p.cfg.filename, text)
	p.text = text
	p.maxPos = len(text)
	p.pos = 0
	if strings.HasPrefix(text, bom) {
		p.pos = len(bom)
	}
	p.frames = p.frames[:0]
	p.blocks = p.blocks[:0]
	p.root = block{}
	p.textStart = -1
	p.lineStart = p.pos
	p.indent = ""
	p.tagOnly = nil
	p.handler = h
	p.err = nil
	p.warnings = nil
	p.inOpenTag = false
	p.transitions = 0
	p.stalls = 0
	p.telemetry = nil
	if p.cfg.telemetry > TelemetryOff {
		p.telemetry = &Telemetry{}
	}
	p.debugEvents = nil
}

// run is the main loop: one callback per byte, with "\n" and "\r\n"
// dispatched as end of line.
func (p *Parser) run() {
	for p.pos < p.maxPos {
		f := p.top()
		invariant.NotNil(f, "active frame")
		st := &states[f.State]

		var move Cursor
		c := p.text[p.pos]
		switch {
		case c == '\n':
			move = st.eol(p, f, 1)
		case c == '\r' && p.pos+1 < p.maxPos && p.text[p.pos+1] == '\n':
			move = st.eol(p, f, 2)
		default:
			move = st.char(p, f, c)
		}

		if move == Reprocess {
			p.stalls++
			invariant.Invariant(p.stalls < maxReprocess,
				"byte %q at %d reprocessed %d times, top state %s", c, p.pos, p.stalls, f.State)
		} else {
			p.stalls = 0
		}

		p.pos += int(move)
		if p.err != nil || p.pos > p.maxPos {
			p.pos = p.maxPos
		}
		invariant.InRange(p.pos, 0, p.maxPos, "cursor")
	}
}

// drain unwinds the state stack at end of input, one level at a time.
func (p *Parser) drain() {
	for len(p.frames) > 0 {
		depth := len(p.frames)
		f := p.top()
		if eof := states[f.State].eof; eof != nil {
			eof(p, f)
		}
		if len(p.frames) == depth && p.top() == f {
			p.exitState()
		}
		invariant.Invariant(len(p.frames) < depth, "eof of %s must not push states", f.State)
	}
}

func (p *Parser) top() *Frame {
	if len(p.frames) == 0 {
		return nil
	}
	return p.frames[len(p.frames)-1]
}

// parent returns the frame below f's top, or nil.
func (p *Parser) parent() *Frame {
	if len(p.frames) < 2 {
		return nil
	}
	return p.frames[len(p.frames)-2]
}

// enterState pushes a frame starting at the cursor.
func (p *Parser) enterState(id StateID, meta any) *Frame {
	f := &Frame{State: id, Range: source.Range{Start: p.pos, End: p.pos}, meta: meta}
	p.frames = append(p.frames, f)
	p.transitions++
	if p.telemetry != nil {
		p.telemetry.StateTransitions++
		if len(p.frames) > p.telemetry.MaxStateDepth {
			p.telemetry.MaxStateDepth = len(p.frames)
		}
	}
	p.trace("enter", id)
	if enter := states[id].enter; enter != nil {
		enter(p, f)
	}
	return f
}

// exitState pops the top frame, ending it at the cursor.
func (p *Parser) exitState() {
	p.exitStateAt(p.pos)
}

// exitStateAt pops the top frame, ending it at end, then runs its exit
// callback and the new top's return callback.
func (p *Parser) exitStateAt(end int) {
	n := len(p.frames)
	invariant.Precondition(n > 0, "exit with empty state stack")
	f := p.frames[n-1]
	p.frames = p.frames[:n-1]

	if end > p.maxPos {
		end = p.maxPos
	}
	invariant.InRange(end, f.Start, p.maxPos, "frame end")
	f.End = end

	p.transitions++
	if p.telemetry != nil {
		p.telemetry.StateTransitions++
	}
	p.trace("exit", f.State)

	if exit := states[f.State].exit; exit != nil {
		exit(p, f)
	}
	if parent := p.top(); parent != nil {
		if ret := states[parent.State].ret; ret != nil {
			ret(p, parent, f)
		}
	}
}

// exitStateWith verifies that lit starts at the cursor, exits the top state
// after it and returns the cursor move that consumes it. Input shorter than
// lit, or anything else at the cursor, is reported with code.
func (p *Parser) exitStateWith(lit string, code ErrorCode) Cursor {
	if p.maxPos-p.pos < len(lit) {
		p.notifyError(source.Range{Start: p.top().Start, End: p.maxPos}, code,
			"unexpected end of input, expected %q", lit)
		return Advance
	}
	if !p.lookingAt(lit) {
		p.notifyError(source.Range{Start: p.pos, End: p.pos + len(lit)}, code,
			"expected %q but found %q", lit, p.text[p.pos:p.pos+len(lit)])
		return Advance
	}
	p.exitStateAt(p.pos + len(lit))
	return Consume(len(lit))
}

// Read returns the text of r.
func (p *Parser) Read(r source.Range) string {
	return p.src.Read(r)
}

// Source returns the document being (or last) scanned.
func (p *Parser) Source() *source.Source {
	return p.src
}

// Warnings returns the legacy compatibility warnings of the last parse.
func (p *Parser) Warnings() []Warning {
	return p.warnings
}

// PositionAt resolves an offset in the current document.
func (p *Parser) PositionAt(offset int) source.Location {
	return p.src.PositionAt(offset)
}

// peek returns the byte at cursor+offset, or 0 past either end.
func (p *Parser) peek(offset int) byte {
	i := p.pos + offset
	if i < 0 || i >= p.maxPos {
		return 0
	}
	return p.text[i]
}

// lookingAt reports whether s starts at the cursor.
func (p *Parser) lookingAt(s string) bool {
	return strings.HasPrefix(p.text[p.pos:], s)
}

func (p *Parser) lookingAtFrom(i int, s string) bool {
	return i <= p.maxPos && strings.HasPrefix(p.text[i:], s)
}

// skipSpace returns the first offset at or after i that is not a space or tab.
func (p *Parser) skipSpace(i int) int {
	for spaceAt(p.text, i) {
		i++
	}
	return i
}

// skipBlank is skipSpace that also crosses line breaks.
func (p *Parser) skipBlank(i int) int {
	for i < p.maxPos && (spaceAt(p.text, i) || p.text[i] == '\n' || p.text[i] == '\r') {
		i++
	}
	return i
}

// restOfLineBlank reports whether only spaces and tabs remain between i and
// the end of its line.
func (p *Parser) restOfLineBlank(i int) bool {
	i = p.skipSpace(i)
	return i >= p.maxPos || eolAt(p.text, i)
}

// onlySpaceBeforeOnLine reports whether the cursor is preceded on its line by
// nothing but spaces and tabs.
func (p *Parser) onlySpaceBeforeOnLine() bool {
	for i := p.pos - 1; i >= 0; i-- {
		switch p.text[i] {
		case ' ', '\t':
			continue
		case '\n':
			return true
		default:
			return false
		}
	}
	return true
}

func (p *Parser) trace(what string, id StateID) {
	if p.cfg.debug == DebugOff {
		return
	}
	p.debugEvents = append(p.debugEvents, DebugEvent{
		Timestamp: time.Now(),
		Event:     what + "_" + id.String(),
		Pos:       p.pos,
		Context:   strings.Repeat(" ", len(p.frames)),
	})
	p.logger.Debug(what, "state", id.String(), "pos", p.pos, "depth", len(p.frames))
}
