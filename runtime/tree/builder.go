// Package tree builds an element tree from the scanner's event stream.
//
// The scanner already pairs every open tag with a close tag. The builder
// still reconciles closes by itself, so it can consume event streams that
// did not come straight from a scanner (decoded with eventfmt, filtered, or
// written by hand), and it checks that elements closed implicitly were
// allowed to be.
package tree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/opal-lang/tagscan/core/invariant"
	"github.com/opal-lang/tagscan/core/source"
	"github.com/opal-lang/tagscan/runtime/scanner"
)

// TreeError is a problem found while nesting events.
type TreeError struct {
	Code       scanner.ErrorCode
	Message    string
	Range      source.Range
	Name       string // Element the error is about
	Suggestion string // "did you mean" candidate, if any
}

func (e *TreeError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Range, e.Code, e.Message)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean <%s>?)", e.Suggestion)
	}
	return msg
}

// Document is a built tree.
type Document struct {
	Root     *Node
	Source   *source.Source // nil when built from bare events
	ScanErr  *scanner.ScanError
	Errors   []*TreeError
	Warnings []scanner.Warning
}

// Err joins the scan error and the tree errors.
func (d *Document) Err() error {
	var errs []error
	if d.ScanErr != nil {
		errs = append(errs, d.ScanErr)
	}
	for _, e := range d.Errors {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

// Find returns the first element named name. When there is none the error
// suggests the closest element name present in the document.
func (d *Document) Find(name string) (*Node, error) {
	if found := d.Root.Elements(name); len(found) > 0 {
		return found[0], nil
	}
	if suggestion := scanner.ClosestMatch(name, d.Root.ElementNames()); suggestion != "" {
		return nil, fmt.Errorf("no element <%s> (did you mean <%s>?)", name, suggestion)
	}
	return nil, fmt.Errorf("no element <%s>", name)
}

// Builder assembles a Document from events. It implements scanner.Handler.
type Builder struct {
	cfg   config
	root  *Node
	stack []*Node // Open elements, root first
	doc   *Document
	end   int // Furthest offset seen
	done  bool
}

// NewBuilder creates a builder.
func NewBuilder(opts ...Option) *Builder {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	root := &Node{Kind: NodeDocument}
	return &Builder{
		cfg:   cfg,
		root:  root,
		stack: []*Node{root},
		doc:   &Document{Root: root},
	}
}

// Parse scans text and builds its tree.
func Parse(text string, opts ...Option) *Document {
	b := NewBuilder(opts...)
	p := scanner.New(b.cfg.scannerOpts...)
	_ = p.Parse(text, b)
	doc := b.Finish()
	doc.Source = p.Source()
	doc.Warnings = p.Warnings()
	return doc
}

// Build nests a recorded event stream.
func Build(events []scanner.Event, opts ...Option) *Document {
	b := NewBuilder(opts...)
	for i := range events {
		b.HandleEvent(&events[i])
	}
	return b.Finish()
}

func (b *Builder) container() *Node {
	return b.stack[len(b.stack)-1]
}

// HandleEvent adds one event to the tree.
func (b *Builder) HandleEvent(ev *scanner.Event) {
	invariant.Precondition(!b.done, "HandleEvent called after Finish")
	if ev.Range.End > b.end {
		b.end = ev.Range.End
	}

	switch ev.Kind {
	case scanner.EventOpenTagName:
		// The open tag event carries the same tag, complete.
	case scanner.EventOpenTag:
		invariant.NotNil(ev.Tag, "open tag")
		n := &Node{Kind: NodeElement, Tag: ev.Tag, Range: ev.Tag.Range}
		b.container().appendChild(n)
		b.stack = append(b.stack, n)
	case scanner.EventCloseTag:
		invariant.NotNil(ev.Tag, "close tag")
		b.popContainer(ev)
	case scanner.EventText:
		b.addText(ev)
	case scanner.EventComment:
		if b.cfg.dropComments {
			return
		}
		b.addLeaf(NodeComment, ev)
	case scanner.EventCDATA:
		b.addLeaf(NodeCDATA, ev)
	case scanner.EventDocumentType:
		b.addLeaf(NodeDocumentType, ev)
	case scanner.EventDeclaration:
		b.addLeaf(NodeDeclaration, ev)
	case scanner.EventScriptlet:
		b.addLeaf(NodeScriptlet, ev)
	case scanner.EventPlaceholder:
		b.addLeaf(NodePlaceholder, ev)
	case scanner.EventError:
		b.doc.ScanErr = ev.Err
	default:
		invariant.Unreachable("unknown event kind %d", ev.Kind)
	}
}

func (b *Builder) addLeaf(kind NodeKind, ev *scanner.Event) {
	b.container().appendChild(&Node{
		Kind:   kind,
		Value:  ev.Value,
		Range:  ev.Range,
		Escape: ev.Escape,
		Line:   ev.Line,
		Block:  ev.Block,
	})
}

func (b *Builder) addText(ev *scanner.Event) {
	if b.cfg.dropWhitespace && strings.TrimSpace(ev.Value) == "" {
		return
	}
	parent := b.container()
	if k := len(parent.Children); k > 0 {
		if last := parent.Children[k-1]; last.Kind == NodeText && last.Range.End == ev.Range.Start {
			last.Value += ev.Value
			last.Range.End = ev.Range.End
			return
		}
	}
	b.addLeaf(NodeText, ev)
}

// popContainer closes the innermost open element matching the close event.
// Elements above it are closed implicitly; those that require a closing tag
// are reported.
func (b *Builder) popContainer(ev *scanner.Event) {
	for i := len(b.stack) - 1; i > 0; i-- {
		n := b.stack[i]
		if n.Tag != ev.Tag && n.Tag.Name != ev.Tag.Name {
			continue
		}

		for _, skipped := range b.stack[i+1:] {
			b.closeImplicitly(skipped, ev.Range.Start)
		}
		n.Closed = true
		if ev.Explicit {
			n.EndRange = ev.Range
			n.Range.End = ev.Range.End
		} else {
			n.Range.End = max(n.Range.End, lastEnd(n))
		}
		b.stack = b.stack[:i]
		return
	}

	names := make([]string, 0, len(b.stack)-1)
	for _, n := range b.stack[1:] {
		names = append(names, n.Name())
	}
	b.doc.Errors = append(b.doc.Errors, &TreeError{
		Code:       scanner.ErrUnmatchedClosingTag,
		Message:    fmt.Sprintf("closing tag </%s> has no open element", ev.Tag.Name),
		Range:      ev.Range,
		Name:       ev.Tag.Name,
		Suggestion: scanner.ClosestMatch(ev.Tag.Name, names),
	})
}

func (b *Builder) closeImplicitly(n *Node, at int) {
	n.Range.End = max(n.Range.End, lastEnd(n))
	b.cfg.logger.Debug("implicit close", "tag", n.Name(), "at", at)
	if n.Tag.OpenTagOnly || !b.cfg.requiresClose(n.Name()) {
		return
	}
	b.doc.Errors = append(b.doc.Errors, &TreeError{
		Code:    scanner.ErrMissingEndTag,
		Message: fmt.Sprintf("missing ending tag for <%s>", n.Name()),
		Range:   n.Tag.Range,
		Name:    n.Name(),
	})
}

// lastEnd is where the last descendant of n ends.
func lastEnd(n *Node) int {
	for len(n.Children) > 0 {
		n = n.Children[len(n.Children)-1]
		if n.Kind == NodeElement {
			return max(n.Range.End, lastEnd(n))
		}
	}
	return n.Range.End
}

// Finish closes whatever is still open and returns the document. Elements
// left open after a scan error are closed silently.
func (b *Builder) Finish() *Document {
	invariant.Precondition(!b.done, "Finish called twice")
	b.done = true
	for i := len(b.stack) - 1; i > 0; i-- {
		n := b.stack[i]
		if b.doc.ScanErr != nil {
			n.Range.End = max(n.Range.End, lastEnd(n))
			continue
		}
		b.closeImplicitly(n, b.end)
	}
	b.stack = b.stack[:1]
	b.root.Range = source.Range{End: b.end}
	return b.doc
}
