package scanner

import (
	"fmt"
	"time"

	"github.com/opal-lang/tagscan/core/source"
)

// emit delivers ev unless an error has been latched.
func (p *Parser) emit(ev *Event) {
	if p.err != nil && ev.Kind != EventError {
		return
	}
	if p.telemetry != nil {
		p.telemetry.EventCount++
	}
	if p.cfg.debug >= DebugDetailed {
		p.debugEvents = append(p.debugEvents, DebugEvent{
			Timestamp: time.Now(),
			Event:     "emit_" + ev.Kind.String(),
			Pos:       p.pos,
			Context:   ev.Range.String(),
		})
	}
	p.handler.HandleEvent(ev)
}

// emitRange emits a simple event whose value is the text of valueRange.
func (p *Parser) emitRange(kind EventKind, r, valueRange source.Range) *Event {
	ev := &Event{
		Kind:       kind,
		Range:      r,
		Value:      p.Read(valueRange),
		ValueRange: valueRange,
	}
	p.emit(ev)
	return ev
}

// notifyError latches the first error, emits it and forces the cursor to end
// of input. Later calls are no-ops.
func (p *Parser) notifyError(r source.Range, code ErrorCode, format string, args ...any) {
	if p.err != nil {
		return
	}
	p.err = &ScanError{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Range:    r,
		Filename: p.cfg.filename,
		Location: p.src.PositionAt(r.Start),
	}
	p.textStart = -1
	p.pos = p.maxPos
	p.emit(&Event{Kind: EventError, Range: r, Value: p.err.Message, Err: p.err})
}

// errorHere reports an error spanning from the top frame's start to the cursor.
func (p *Parser) errorHere(code ErrorCode, format string, args ...any) {
	start := p.pos
	if f := p.top(); f != nil {
		start = f.Start
	}
	p.notifyError(source.Range{Start: start, End: p.pos}, code, format, args...)
}

// warn records a non-fatal diagnostic.
func (p *Parser) warn(r source.Range, code ErrorCode, format string, args ...any) {
	if p.err != nil {
		return
	}
	p.warnings = append(p.warnings, Warning{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Range:    r,
		Location: p.src.PositionAt(r.Start),
	})
}

// legacyViolation is an error, or a warning under legacy compatibility.
// It reports whether scanning continues normally.
func (p *Parser) legacyViolation(r source.Range, code ErrorCode, format string, args ...any) bool {
	if p.cfg.legacy {
		p.warn(r, code, format, args...)
		return true
	}
	p.notifyError(r, code, format, args...)
	return false
}

// beginText starts pending text at the cursor unless text is already pending.
func (p *Parser) beginText() {
	if p.textStart < 0 {
		p.textStart = p.pos
	}
}

// textChar makes the current byte part of the pending text.
func (p *Parser) textChar() Cursor {
	p.beginText()
	return Advance
}

// textEOL makes the line break part of the pending text.
func textEOL(p *Parser, f *Frame, n int) Cursor {
	p.beginText()
	return Consume(n)
}

// flushText emits pending text that ends at the cursor.
func (p *Parser) flushText() {
	p.flushTextAt(p.pos)
}

func (p *Parser) flushTextAt(end int) {
	start := p.textStart
	p.textStart = -1
	if start < 0 || end <= start {
		return
	}
	r := source.Range{Start: start, End: end}
	p.emitRange(EventText, r, r)
}
