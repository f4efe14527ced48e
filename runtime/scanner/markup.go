package scanner

import (
	"github.com/opal-lang/tagscan/core/invariant"
	"github.com/opal-lang/tagscan/core/source"
)

// openerLen is the length of the literal that opened each delimited state.
var openerLen = map[StateID]int{
	StateHTMLComment:  len("<!--"),
	StateCDATA:        len("<![CDATA["),
	StateDocumentType: len("<!"),
	StateDeclaration:  len("<?"),
}

// delimitedChar builds the char callback of a state that runs until a fixed
// closing literal and then emits its inner text.
func delimitedChar(closing string, kind EventKind, code ErrorCode) func(p *Parser, f *Frame, c byte) Cursor {
	return func(p *Parser, f *Frame, c byte) Cursor {
		if c != closing[0] || !p.lookingAt(closing) {
			return Advance
		}
		inner := source.Range{Start: f.Start + openerLen[f.State], End: p.pos}
		p.emitRange(kind, source.Range{Start: f.Start, End: p.pos + len(closing)}, inner)
		return p.exitStateWith(closing, code)
	}
}

func delimitedEOF(code ErrorCode, what string) func(p *Parser, f *Frame) {
	return func(p *Parser, f *Frame) {
		p.notifyError(source.Range{Start: f.Start, End: p.maxPos}, code,
			"end of input reached while parsing %s", what)
	}
}

// --- <% scriptlet %> ------------------------------------------------------

type scriptletMeta struct {
	code      *source.Range
	expectEnd bool
}

func scriptletChar(p *Parser, f *Frame, c byte) Cursor {
	m := f.meta.(*scriptletMeta)
	if m.expectEnd {
		if !p.lookingAt("%>") {
			return p.exitStateWith("%>", ErrMalformedScriptlet)
		}
		p.emit(&Event{
			Kind:       EventScriptlet,
			Range:      source.Range{Start: f.Start, End: p.pos + 2},
			Value:      p.Read(*m.code),
			ValueRange: *m.code,
		})
		return p.exitStateWith("%>", ErrMalformedScriptlet)
	}
	p.enterExpression(roleScriptlet, exprPolicy{
		terminators: []string{"%>"},
		code:        ErrMalformedScriptlet,
	})
	return Reprocess
}

func scriptletReturn(p *Parser, f *Frame, child *Frame) {
	m := f.meta.(*scriptletMeta)
	r := child.Range
	m.code = &r
	m.expectEnd = true
}

func scriptletEOF(p *Parser, f *Frame) {
	p.notifyError(source.Range{Start: f.Start, End: p.maxPos}, ErrMalformedScriptlet,
		"end of input reached while parsing scriptlet")
}

// --- $ inline script ------------------------------------------------------

type inlineScriptMeta struct {
	block    bool
	started  bool
	code     *source.Range
	trailing bool // Statement finished; only whitespace and comments may follow
}

func inlineScriptChar(p *Parser, f *Frame, c byte) Cursor {
	m := f.meta.(*inlineScriptMeta)
	if spaceAt(p.text, p.pos) {
		return Advance
	}
	if m.trailing {
		if c == '/' && (p.peek(1) == '/' || p.peek(1) == '*') {
			return p.enterJSComment(p.inConciseContent())
		}
		if c == ';' && !m.block {
			return Advance
		}
		p.legacyViolation(source.Range{Start: p.pos, End: p.pos + 1}, ErrInvalidCodeAfterSemicolon,
			"unexpected code after the end of an inline script")
		p.finishInlineScript(f)
		return p.skipToLineEnd()
	}
	if !m.started {
		m.started = true
		if c == '{' {
			m.block = true
			p.enterExpression(roleScriptBlock, exprPolicy{group: true, code: ErrMalformedScriptlet})
			return Reprocess
		}
		p.enterExpression(roleScriptLine, exprPolicy{
			terminators: []string{";"},
			endsAtEOL:   true,
			code:        ErrMalformedScriptlet,
		})
		return Reprocess
	}
	invariant.Unreachable("inline script resumed without a finished expression")
	return Advance
}

func inlineScriptReturn(p *Parser, f *Frame, child *Frame) {
	if child.State != StateExpression {
		return
	}
	m := f.meta.(*inlineScriptMeta)
	r := child.Range
	if child.meta.(*exprMeta).role == roleScriptBlock {
		// An unterminated "$ {" at end of input leaves only the brace.
		r = source.Range{Start: child.End, End: child.End}
		if child.Len() >= 2 {
			r = source.Range{Start: child.Start + 1, End: child.End - 1}
		}
	}
	m.code = &r
	m.trailing = true
	p.emitInlineScript(f, r)
}

func inlineScriptEOL(p *Parser, f *Frame, n int) Cursor {
	p.finishInlineScript(f)
	return Reprocess
}

func inlineScriptEOF(p *Parser, f *Frame) {
	p.finishInlineScript(f)
}

func (p *Parser) emitInlineScript(f *Frame, code source.Range) {
	m := f.meta.(*inlineScriptMeta)
	p.emit(&Event{
		Kind:       EventScriptlet,
		Range:      source.Range{Start: f.Start, End: code.End},
		Value:      p.Read(code),
		ValueRange: code,
		Line:       true,
		Block:      m.block,
	})
}

// finishInlineScript exits the state. A script whose code never started (a
// lone "$ " line) is emitted empty.
func (p *Parser) finishInlineScript(f *Frame) {
	if f.meta.(*inlineScriptMeta).code == nil {
		p.emitInlineScript(f, source.Range{Start: p.pos, End: p.pos})
	}
	p.exitState()
}

// skipToLineEnd returns the move that lands the cursor on the next line break.
func (p *Parser) skipToLineEnd() Cursor {
	i := p.pos
	for i < p.maxPos && !eolAt(p.text, i) {
		i++
	}
	if i == p.pos {
		return Reprocess
	}
	return Consume(i - p.pos)
}

// inConciseContent reports whether the frame under the top one is concise
// content, where JS comments become comment events.
func (p *Parser) inConciseContent() bool {
	parent := p.parent()
	return parent != nil && parent.State == StateConciseContent
}

// --- ${ placeholder } -----------------------------------------------------

type placeholderMeta struct {
	escape bool
	// emit is false for placeholders inside tag names, shorthands and close
	// tags; their parents read the expression in return.
	emit      bool
	expr      *source.Range
	expectEnd bool
}

func placeholderChar(p *Parser, f *Frame, c byte) Cursor {
	m := f.meta.(*placeholderMeta)
	if m.expectEnd {
		if m.emit && p.lookingAt("}") {
			p.emit(&Event{
				Kind:       EventPlaceholder,
				Range:      source.Range{Start: f.Start, End: p.pos + 1},
				Value:      p.Read(*m.expr),
				ValueRange: *m.expr,
				Escape:     m.escape,
			})
		}
		return p.exitStateWith("}", ErrMalformedPlaceholder)
	}
	p.enterExpression(rolePlaceholder, exprPolicy{
		terminators: []string{"}"},
		code:        ErrMalformedPlaceholder,
	})
	return Reprocess
}

func placeholderReturn(p *Parser, f *Frame, child *Frame) {
	m := f.meta.(*placeholderMeta)
	r := child.Range
	m.expr = &r
	m.expectEnd = true
}

func placeholderEOF(p *Parser, f *Frame) {
	p.notifyError(source.Range{Start: f.Start, End: p.maxPos}, ErrMalformedPlaceholder,
		"end of input reached while parsing placeholder")
}

// --- // and /* */ ---------------------------------------------------------

type jsCommentMeta struct {
	emit bool
}

// enterJSComment starts a comment at "//" or "/*". emit turns it into a
// comment event; otherwise it is skipped as part of whatever surrounds it.
func (p *Parser) enterJSComment(emit bool) Cursor {
	if p.peek(1) == '/' {
		p.enterState(StateJSLineComment, &jsCommentMeta{emit: emit})
	} else {
		p.enterState(StateJSBlockComment, &jsCommentMeta{emit: emit})
	}
	return Consume(2)
}

func jsLineCommentEOL(p *Parser, f *Frame, n int) Cursor {
	jsLineCommentEOF(p, f)
	return Reprocess
}

func jsLineCommentEOF(p *Parser, f *Frame) {
	if f.meta.(*jsCommentMeta).emit {
		inner := source.Range{Start: f.Start + 2, End: p.pos}
		p.emit(&Event{
			Kind:       EventComment,
			Range:      source.Range{Start: f.Start, End: p.pos},
			Value:      p.Read(inner),
			ValueRange: inner,
			Line:       true,
		})
	}
	p.exitState()
}

func jsBlockCommentChar(p *Parser, f *Frame, c byte) Cursor {
	if c != '*' || p.peek(1) != '/' {
		return Advance
	}
	if f.meta.(*jsCommentMeta).emit {
		p.emit(&Event{
			Kind:       EventComment,
			Range:      source.Range{Start: f.Start, End: p.pos + 2},
			Value:      p.text[f.Start+2 : p.pos],
			ValueRange: source.Range{Start: f.Start + 2, End: p.pos},
			Block:      true,
		})
	}
	return p.exitStateWith("*/", ErrMalformedComment)
}

func jsBlockCommentEOF(p *Parser, f *Frame) {
	p.notifyError(source.Range{Start: f.Start, End: p.maxPos}, ErrMalformedComment,
		"end of input reached while parsing comment")
}
