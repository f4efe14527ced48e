package scanner

import (
	"fmt"

	"github.com/opal-lang/tagscan/core/invariant"
	"github.com/opal-lang/tagscan/core/source"
)

// block is an entry of the open-block stack: an element waiting for its close,
// or the marker of a concise text block.
type block struct {
	tag      *Tag
	name     string
	concise  bool
	marker   bool
	indent   string // Indentation of the line that opened it (concise)
	bodyMode BodyMode

	hasChild    bool
	childIndent string
}

func (p *Parser) topBlock() *block {
	if len(p.blocks) == 0 {
		return nil
	}
	return p.blocks[len(p.blocks)-1]
}

func (p *Parser) pushBlock(b *block) {
	p.blocks = append(p.blocks, b)
	if p.telemetry != nil && len(p.blocks) > p.telemetry.MaxBlockDepth {
		p.telemetry.MaxBlockDepth = len(p.blocks)
	}
}

// popBlock removes the top block, emitting a synthetic close for elements.
func (p *Parser) popBlock(at int) {
	b := p.topBlock()
	invariant.NotNil(b, "block to pop")
	p.blocks = p.blocks[:len(p.blocks)-1]
	if b.marker {
		return
	}
	p.emit(&Event{
		Kind:  EventCloseTag,
		Range: source.Range{Start: at, End: at},
		Value: b.name,
		Tag:   b.tag,
	})
}

// indexOfBlock returns the position of b in the stack, or -1.
func (p *Parser) indexOfBlock(b *block) int {
	for i := len(p.blocks) - 1; i >= 0; i-- {
		if p.blocks[i] == b {
			return i
		}
	}
	return -1
}

// closeTag reconciles an explicit close. name is empty for </>.
//
// The walk goes outward from the innermost open element and stops at concise
// elements and text block markers, which a markup close tag cannot reach.
// Elements skipped on the way are closed synthetically unless one of them
// requires its own closing tag.
func (p *Parser) closeTag(name string, r source.Range) {
	var flagged *block
	match := -1
	var open []string
	for i := len(p.blocks) - 1; i >= 0; i-- {
		b := p.blocks[i]
		if b.marker || b.concise {
			break
		}
		if name == "" || b.name == name {
			match = i
			break
		}
		open = append(open, b.name)
		if flagged == nil && p.cfg.requiresClose(b.name) {
			flagged = b
		}
	}

	if match < 0 {
		if len(open) == 0 {
			p.notifyError(r, ErrUnmatchedClosingTag,
				"the closing %q tag was not expected%s", name, p.suggestion(name))
			return
		}
		p.notifyError(r, ErrMismatchedClosingTag,
			"the closing %q tag does not match the open %q tag%s", name, open[0], p.suggestion(name))
		return
	}
	if flagged != nil {
		p.missingEndTag(flagged)
		return
	}

	for len(p.blocks)-1 > match {
		p.popBlock(r.Start)
	}
	b := p.topBlock()
	p.blocks = p.blocks[:len(p.blocks)-1]
	p.emit(&Event{
		Kind:       EventCloseTag,
		Range:      r,
		Value:      b.name,
		ValueRange: source.Range{Start: r.Start + 2, End: r.Start + 2 + len(name)},
		Tag:        b.tag,
		Explicit:   true,
	})
}

// closeBlocksAbove closes everything stacked above index limit (-1 closes
// the whole stack). Markup elements that require a closing tag are reported
// instead, innermost first.
func (p *Parser) closeBlocksAbove(limit, at int) {
	for i := len(p.blocks) - 1; i > limit; i-- {
		b := p.blocks[i]
		if !b.concise && !b.marker && p.cfg.requiresClose(b.name) {
			p.missingEndTag(b)
			return
		}
	}
	for len(p.blocks)-1 > limit {
		p.popBlock(at)
	}
}

func (p *Parser) missingEndTag(b *block) {
	r := source.Range{Start: p.pos, End: p.pos}
	if b.tag != nil {
		r = b.tag.Range
	}
	p.notifyError(r, ErrMissingEndTag, "missing ending %q tag", b.name)
}

// suggestion renders a "did you mean" hint from the names of open elements.
func (p *Parser) suggestion(name string) string {
	var names []string
	for i := len(p.blocks) - 1; i >= 0; i-- {
		if !p.blocks[i].marker {
			names = append(names, p.blocks[i].name)
		}
	}
	if match := ClosestMatch(name, names); match != "" && match != name {
		return fmt.Sprintf(" (did you mean %q?)", match)
	}
	return ""
}

// conciseParent returns the innermost open block, or the document root.
func (p *Parser) conciseParent() *block {
	if b := p.topBlock(); b != nil {
		return b
	}
	return &p.root
}

// beginConciseLine runs the indentation tracker for the first construct of a
// concise line. It closes concise elements the line is not nested in and
// checks the line against its parent's established child indentation.
// It reports whether scanning may continue.
func (p *Parser) beginConciseLine() bool {
	indent := p.indent
	for b := p.topBlock(); b != nil && len(b.indent) >= len(indent); b = p.topBlock() {
		invariant.Invariant(b.concise, "concise line reached non-concise block %q", b.name)
		p.popBlock(p.pos)
	}

	here := source.Range{Start: p.lineStart, End: p.pos}
	tagOnly := p.tagOnly
	p.tagOnly = nil
	if tagOnly != nil && len(indent) > len(tagOnly.indent) {
		p.notifyError(here, ErrBadIndentation,
			"the %q tag cannot have nested content because it has no body", tagOnly.name)
		return false
	}

	parent := p.conciseParent()
	if parent == &p.root {
		if indent != "" {
			p.notifyError(here, ErrBadIndentation, "line has extra indentation at the beginning")
			return false
		}
		return true
	}
	if !parent.hasChild {
		parent.hasChild = true
		parent.childIndent = indent
		return true
	}
	if indent != parent.childIndent {
		p.notifyError(here, ErrBadIndentation,
			"line indentation does not match the indentation of the previous line under %q", parent.name)
		return false
	}
	return true
}
