// Package eventfmt encodes scan event streams in a deterministic binary form.
//
// The body is canonical CBOR, so two scans that produced the same events
// encode to the same bytes and share a digest. Tags are stored once in a
// table and referenced by index, which keeps the openTagName, openTag and
// closeTag events of one element pointing at the same *scanner.Tag after a
// round trip.
package eventfmt

import (
	"fmt"

	"github.com/opal-lang/tagscan/core/source"
	"github.com/opal-lang/tagscan/runtime/scanner"
)

// FormatVersion is the version of the canonical form.
const FormatVersion uint8 = 1

// Stream is the canonical form of one scan.
type Stream struct {
	Version uint8   `cbor:"1,keyasint" json:"version"`
	Events  []Event `cbor:"2,keyasint,omitempty" json:"events"`
	Tags    []Tag   `cbor:"3,keyasint,omitempty" json:"tags,omitempty"`
}

// Event is one scanner event in canonical form.
type Event struct {
	Kind       string `cbor:"1,keyasint" json:"kind"`
	Start      int    `cbor:"2,keyasint" json:"start"`
	End        int    `cbor:"3,keyasint" json:"end"`
	Value      string `cbor:"4,keyasint,omitempty" json:"value,omitempty"`
	ValueStart int    `cbor:"5,keyasint,omitempty" json:"valueStart,omitempty"`
	ValueEnd   int    `cbor:"6,keyasint,omitempty" json:"valueEnd,omitempty"`
	Tag        int    `cbor:"7,keyasint,omitempty" json:"tag,omitempty"` // 1-based index into Stream.Tags
	Escape     bool   `cbor:"8,keyasint,omitempty" json:"escape,omitempty"`
	Line       bool   `cbor:"9,keyasint,omitempty" json:"line,omitempty"`
	Block      bool   `cbor:"10,keyasint,omitempty" json:"block,omitempty"`
	Explicit   bool   `cbor:"11,keyasint,omitempty" json:"explicit,omitempty"`
	Error      *Error `cbor:"12,keyasint,omitempty" json:"error,omitempty"`
}

// Error is a latched scan error in canonical form.
type Error struct {
	Code     string `cbor:"1,keyasint" json:"code"`
	Message  string `cbor:"2,keyasint" json:"message"`
	Start    int    `cbor:"3,keyasint" json:"start"`
	End      int    `cbor:"4,keyasint" json:"end"`
	Filename string `cbor:"5,keyasint,omitempty" json:"filename,omitempty"`
	Line     int    `cbor:"6,keyasint" json:"line"`
	Column   int    `cbor:"7,keyasint" json:"column"`
}

// Part is a piece of source in canonical form.
type Part struct {
	Value string `cbor:"1,keyasint" json:"value"`
	Start int    `cbor:"2,keyasint" json:"start"`
	End   int    `cbor:"3,keyasint" json:"end"`
}

// Tag is an element in canonical form.
type Tag struct {
	Name           string      `cbor:"1,keyasint" json:"name"`
	NameStart      int         `cbor:"2,keyasint" json:"nameStart"`
	NameEnd        int         `cbor:"3,keyasint" json:"nameEnd"`
	NameExpression string      `cbor:"4,keyasint,omitempty" json:"nameExpression,omitempty"`
	ShorthandID    *Part       `cbor:"5,keyasint,omitempty" json:"shorthandId,omitempty"`
	Classes        []Part      `cbor:"6,keyasint,omitempty" json:"classes,omitempty"`
	Var            *Part       `cbor:"7,keyasint,omitempty" json:"var,omitempty"`
	Args           *Part       `cbor:"8,keyasint,omitempty" json:"args,omitempty"`
	Params         *Part       `cbor:"9,keyasint,omitempty" json:"params,omitempty"`
	Attributes     []Attribute `cbor:"10,keyasint,omitempty" json:"attributes,omitempty"`
	Flags          uint8       `cbor:"11,keyasint,omitempty" json:"flags,omitempty"`
	BodyMode       string      `cbor:"12,keyasint" json:"bodyMode"`
	Start          int         `cbor:"13,keyasint" json:"start"`
	End            int         `cbor:"14,keyasint" json:"end"`
}

// Tag flags
const (
	TagConcise uint8 = 1 << iota
	TagSelfClosed
	TagOpenTagOnly
	TagWithinAttrGroup
)

// Attribute is an attribute in canonical form.
type Attribute struct {
	Name         string `cbor:"1,keyasint,omitempty" json:"name,omitempty"`
	NameStart    int    `cbor:"2,keyasint" json:"nameStart"`
	NameEnd      int    `cbor:"3,keyasint" json:"nameEnd"`
	Value        *Part  `cbor:"4,keyasint,omitempty" json:"value,omitempty"`
	Argument     *Part  `cbor:"5,keyasint,omitempty" json:"argument,omitempty"`
	Flags        uint8  `cbor:"6,keyasint,omitempty" json:"flags,omitempty"`
	LiteralValue string `cbor:"7,keyasint,omitempty" json:"literalValue,omitempty"`
	Start        int    `cbor:"8,keyasint" json:"start"`
	End          int    `cbor:"9,keyasint" json:"end"`
}

// Attribute flags
const (
	AttrDefault uint8 = 1 << iota
	AttrSpread
	AttrMethod
	AttrBound
	AttrLiteral
)

// Canonicalize converts scanner events to canonical form.
func Canonicalize(events []scanner.Event) *Stream {
	s := &Stream{Version: FormatVersion, Events: make([]Event, 0, len(events))}
	tagIndex := map[*scanner.Tag]int{}

	for i := range events {
		ev := &events[i]
		ce := Event{
			Kind:       ev.Kind.String(),
			Start:      ev.Range.Start,
			End:        ev.Range.End,
			Value:      ev.Value,
			ValueStart: ev.ValueRange.Start,
			ValueEnd:   ev.ValueRange.End,
			Escape:     ev.Escape,
			Line:       ev.Line,
			Block:      ev.Block,
			Explicit:   ev.Explicit,
		}
		if ev.Tag != nil {
			idx, ok := tagIndex[ev.Tag]
			if !ok {
				s.Tags = append(s.Tags, canonicalTag(ev.Tag))
				idx = len(s.Tags)
				tagIndex[ev.Tag] = idx
			}
			ce.Tag = idx
		}
		if e := ev.Err; e != nil {
			ce.Error = &Error{
				Code:     string(e.Code),
				Message:  e.Message,
				Start:    e.Range.Start,
				End:      e.Range.End,
				Filename: e.Filename,
				Line:     e.Location.Line,
				Column:   e.Location.Column,
			}
		}
		s.Events = append(s.Events, ce)
	}
	return s
}

func canonicalPart(p *scanner.Part) *Part {
	if p == nil {
		return nil
	}
	return &Part{Value: p.Value, Start: p.Range.Start, End: p.Range.End}
}

func canonicalTag(t *scanner.Tag) Tag {
	ct := Tag{
		Name:           t.Name,
		NameStart:      t.NameRange.Start,
		NameEnd:        t.NameRange.End,
		NameExpression: t.NameExpression,
		ShorthandID:    canonicalPart(t.ShorthandID),
		Var:            canonicalPart(t.Var),
		Args:           canonicalPart(t.Args),
		Params:         canonicalPart(t.Params),
		BodyMode:       t.BodyMode.String(),
		Start:          t.Range.Start,
		End:            t.Range.End,
	}
	for i := range t.ShorthandClasses {
		ct.Classes = append(ct.Classes, *canonicalPart(&t.ShorthandClasses[i]))
	}
	for _, f := range []struct {
		on  bool
		bit uint8
	}{
		{t.Concise, TagConcise},
		{t.SelfClosed, TagSelfClosed},
		{t.OpenTagOnly, TagOpenTagOnly},
		{t.WithinAttrGroup, TagWithinAttrGroup},
	} {
		if f.on {
			ct.Flags |= f.bit
		}
	}
	for _, a := range t.Attributes {
		ca := Attribute{
			Name:         a.Name,
			NameStart:    a.NameRange.Start,
			NameEnd:      a.NameRange.End,
			Value:        canonicalPart(a.Value),
			Argument:     canonicalPart(a.Argument),
			LiteralValue: a.LiteralValue,
			Start:        a.Range.Start,
			End:          a.Range.End,
		}
		for _, f := range []struct {
			on  bool
			bit uint8
		}{
			{a.Default, AttrDefault},
			{a.Spread, AttrSpread},
			{a.Method, AttrMethod},
			{a.Bound, AttrBound},
			{a.Literal, AttrLiteral},
		} {
			if f.on {
				ca.Flags |= f.bit
			}
		}
		ct.Attributes = append(ct.Attributes, ca)
	}
	return ct
}

var eventKinds = func() map[string]scanner.EventKind {
	m := map[string]scanner.EventKind{}
	for k := scanner.EventText; k <= scanner.EventError; k++ {
		m[k.String()] = k
	}
	return m
}()

// ScannerEvents converts the stream back to scanner events. Events that
// referenced the same tag share one *scanner.Tag.
func (s *Stream) ScannerEvents() ([]scanner.Event, error) {
	if s.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported stream version %d", s.Version)
	}

	tags := make([]*scanner.Tag, len(s.Tags))
	for i := range s.Tags {
		t, err := s.Tags[i].scannerTag()
		if err != nil {
			return nil, fmt.Errorf("tag %d: %w", i+1, err)
		}
		tags[i] = t
	}

	events := make([]scanner.Event, 0, len(s.Events))
	for i, ce := range s.Events {
		kind, ok := eventKinds[ce.Kind]
		if !ok {
			return nil, fmt.Errorf("event %d: unknown kind %q", i, ce.Kind)
		}
		ev := scanner.Event{
			Kind:       kind,
			Range:      source.Range{Start: ce.Start, End: ce.End},
			Value:      ce.Value,
			ValueRange: source.Range{Start: ce.ValueStart, End: ce.ValueEnd},
			Escape:     ce.Escape,
			Line:       ce.Line,
			Block:      ce.Block,
			Explicit:   ce.Explicit,
		}
		if ce.Tag != 0 {
			if ce.Tag < 0 || ce.Tag > len(tags) {
				return nil, fmt.Errorf("event %d: tag index %d out of range", i, ce.Tag)
			}
			ev.Tag = tags[ce.Tag-1]
		}
		if e := ce.Error; e != nil {
			ev.Err = &scanner.ScanError{
				Code:     scanner.ErrorCode(e.Code),
				Message:  e.Message,
				Range:    source.Range{Start: e.Start, End: e.End},
				Filename: e.Filename,
				Location: source.Location{Line: e.Line, Column: e.Column},
			}
		}
		events = append(events, ev)
	}
	return events, nil
}

func scannerPart(p *Part) *scanner.Part {
	if p == nil {
		return nil
	}
	return &scanner.Part{Value: p.Value, Range: source.Range{Start: p.Start, End: p.End}}
}

func (ct *Tag) scannerTag() (*scanner.Tag, error) {
	mode, ok := scanner.ParseBodyMode(ct.BodyMode)
	if !ok {
		return nil, fmt.Errorf("unknown body mode %q", ct.BodyMode)
	}
	t := &scanner.Tag{
		Name:            ct.Name,
		NameRange:       source.Range{Start: ct.NameStart, End: ct.NameEnd},
		NameExpression:  ct.NameExpression,
		ShorthandID:     scannerPart(ct.ShorthandID),
		Var:             scannerPart(ct.Var),
		Args:            scannerPart(ct.Args),
		Params:          scannerPart(ct.Params),
		Concise:         ct.Flags&TagConcise != 0,
		SelfClosed:      ct.Flags&TagSelfClosed != 0,
		OpenTagOnly:     ct.Flags&TagOpenTagOnly != 0,
		WithinAttrGroup: ct.Flags&TagWithinAttrGroup != 0,
		BodyMode:        mode,
		Range:           source.Range{Start: ct.Start, End: ct.End},
	}
	for i := range ct.Classes {
		t.ShorthandClasses = append(t.ShorthandClasses, *scannerPart(&ct.Classes[i]))
	}
	for _, ca := range ct.Attributes {
		t.Attributes = append(t.Attributes, scanner.Attribute{
			Name:         ca.Name,
			NameRange:    source.Range{Start: ca.NameStart, End: ca.NameEnd},
			Value:        scannerPart(ca.Value),
			Argument:     scannerPart(ca.Argument),
			Default:      ca.Flags&AttrDefault != 0,
			Spread:       ca.Flags&AttrSpread != 0,
			Method:       ca.Flags&AttrMethod != 0,
			Bound:        ca.Flags&AttrBound != 0,
			Literal:      ca.Flags&AttrLiteral != 0,
			LiteralValue: ca.LiteralValue,
			Range:        source.Range{Start: ca.Start, End: ca.End},
		})
	}
	return t, nil
}
