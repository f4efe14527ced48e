package scanner

import (
	"strings"

	"github.com/opal-lang/tagscan/core/source"
)

// --- concise content ------------------------------------------------------

type concisePhase uint8

const (
	phaseIndent concisePhase = iota // Consuming leading whitespace
	phaseLine                       // Between constructs on one line
)

type conciseMeta struct {
	phase concisePhase
	// started is set once the line's first construct has run the
	// indentation tracker.
	started bool
}

func conciseContentEnter(p *Parser, f *Frame) {
	p.lineStart = p.pos
}

func conciseContentChar(p *Parser, f *Frame, c byte) Cursor {
	m := f.meta.(*conciseMeta)
	if spaceAt(p.text, p.pos) {
		return Advance
	}
	if m.phase == phaseIndent {
		p.indent = p.text[p.lineStart:p.pos]
		m.phase = phaseLine
	}

	if c == '/' && (p.peek(1) == '/' || p.peek(1) == '*') {
		return p.enterJSComment(true)
	}

	if !m.started {
		m.started = true
		if !p.beginConciseLine() {
			return Advance
		}
	}

	parent := p.conciseParent()
	if parent.bodyMode != BodyHTML && c != '-' {
		p.notifyError(source.Range{Start: p.pos, End: p.pos + 1}, ErrIllegalLineStart,
			"the body of %q only allows text lines starting with \"-\"", parent.name)
		return Advance
	}

	switch {
	case c == '<':
		p.enterState(StateHTMLContent, &htmlContentMeta{mixed: true, base: len(p.blocks)})
		return Reprocess
	case c == '-':
		return p.conciseDashLine(parent.bodyMode)
	case c == '$' && spaceAt(p.text, p.pos+1):
		p.enterState(StateInlineScript, &inlineScriptMeta{})
		return Advance
	case c < 128 && isIllegalLineStart[c]:
		p.notifyError(source.Range{Start: p.pos, End: p.pos + 1}, ErrIllegalLineStart,
			"a line in concise mode cannot start with %q", string(c))
		return Advance
	}

	p.enterState(StateOpenTag, &tagMeta{concise: true})
	return Reprocess
}

// conciseDashLine handles "- text" and dash-delimited blocks.
func (p *Parser) conciseDashLine(mode BodyMode) Cursor {
	n := 0
	for p.peek(n) == '-' {
		n++
	}
	after := p.pos + n
	j := p.skipSpace(after)

	switch {
	case j >= p.maxPos || eolAt(p.text, j):
		p.enterState(StateHTMLBlock, &htmlBlockMeta{
			indent:    p.indent,
			delimiter: p.text[p.pos:after],
			delimited: true,
			opening:   true,
			mode:      mode,
		})
	case j > after:
		p.enterState(StateHTMLBlock, &htmlBlockMeta{indent: p.indent, mode: mode})
	default:
		p.notifyError(source.Range{Start: p.pos, End: j + 1}, ErrIllegalLineStart,
			"a text line must separate its dashes from the text with whitespace")
		return Advance
	}
	return Consume(j - p.pos)
}

func conciseContentEOL(p *Parser, f *Frame, n int) Cursor {
	m := f.meta.(*conciseMeta)
	m.phase = phaseIndent
	m.started = false
	p.lineStart = p.pos + n
	p.indent = ""
	return Consume(n)
}

func conciseContentEOF(p *Parser, f *Frame) {
	p.closeBlocksAbove(-1, p.maxPos)
	p.exitState()
}

func conciseContentReturn(p *Parser, f *Frame, child *Frame) {
	f.meta.(*conciseMeta).phase = phaseLine
}

// --- markup content -------------------------------------------------------

type htmlContentMeta struct {
	// mixed is set when a concise line started with '<'. Concise mode
	// resumes at the first line break where every markup element opened
	// since base may end without a closing tag.
	mixed bool
	base  int
}

func htmlContentChar(p *Parser, f *Frame, c byte) Cursor {
	return p.contentChar(c, BodyHTML, "")
}

func htmlContentEOL(p *Parser, f *Frame, n int) Cursor {
	m := f.meta.(*htmlContentMeta)
	if m.mixed && p.onlyOptionalEndsAbove(m.base) {
		p.flushText()
		for len(p.blocks) > m.base {
			p.popBlock(p.pos)
		}
		p.exitState()
		return Reprocess
	}
	return textEOL(p, f, n)
}

// onlyOptionalEndsAbove reports whether every element stacked above index
// base may be closed without a closing tag.
func (p *Parser) onlyOptionalEndsAbove(base int) bool {
	for i := len(p.blocks) - 1; i >= base; i-- {
		if b := p.blocks[i]; b.concise || b.marker || p.cfg.requiresClose(b.name) {
			return false
		}
	}
	return true
}

// --- text bodies of markup elements ---------------------------------------

type textBodyMeta struct {
	mode    BodyMode
	tagName string
}

func textBodyChar(p *Parser, f *Frame, c byte) Cursor {
	m := f.meta.(*textBodyMeta)
	return p.contentChar(c, m.mode, m.tagName)
}

// closesBody reports whether "</name" followed by whitespace, '>' or end of
// input starts at the cursor.
func (p *Parser) closesBody(name string) bool {
	if !p.lookingAt("</") {
		return false
	}
	i := p.pos + 2
	if p.maxPos-i < len(name) || !strings.EqualFold(p.text[i:i+len(name)], name) {
		return false
	}
	i += len(name)
	return i >= p.maxPos || p.text[i] == '>' || spaceAt(p.text, i) || eolAt(p.text, i)
}

// --- concise text blocks --------------------------------------------------

type htmlBlockMeta struct {
	indent    string
	delimiter string
	delimited bool
	// opening is set until the line holding the delimiter has ended.
	opening bool
	mode    BodyMode
	marker  *block
}

func htmlBlockEnter(p *Parser, f *Frame) {
	m := f.meta.(*htmlBlockMeta)
	m.marker = &block{marker: true, indent: m.indent, bodyMode: m.mode}
	p.pushBlock(m.marker)
}

func htmlBlockChar(p *Parser, f *Frame, c byte) Cursor {
	m := f.meta.(*htmlBlockMeta)
	if m.opening {
		return Advance
	}
	return p.contentChar(c, m.mode, "")
}

func htmlBlockEOL(p *Parser, f *Frame, n int) Cursor {
	m := f.meta.(*htmlBlockMeta)
	if !m.delimited {
		p.endHTMLBlock(m)
		return Reprocess
	}

	next := p.pos + n
	j := p.skipSpace(next)
	blank := j >= p.maxPos || eolAt(p.text, j)

	if !blank {
		closing := m.indent + m.delimiter
		if p.lookingAtFrom(next, closing) && p.restOfLineBlank(next+len(closing)) {
			p.flushText()
			p.endHTMLBlock(m)
			return Consume(p.skipSpace(next+len(closing)) - p.pos)
		}
		if j-next < len(m.indent) {
			p.flushText()
			p.endHTMLBlock(m)
			return Reprocess
		}
	}

	if m.opening {
		m.opening = false
	} else {
		p.beginText()
		p.flushTextAt(next)
	}
	if blank {
		return Consume(j - p.pos)
	}
	return Consume(next + len(m.indent) - p.pos)
}

func htmlBlockEOF(p *Parser, f *Frame) {
	p.flushText()
	p.endHTMLBlock(f.meta.(*htmlBlockMeta))
}

// endHTMLBlock closes markup opened inside the block, removes its marker and
// exits the block state.
func (p *Parser) endHTMLBlock(m *htmlBlockMeta) {
	p.flushText()
	if i := p.indexOfBlock(m.marker); i >= 0 {
		p.closeBlocksAbove(i, p.pos)
		if p.err == nil {
			p.blocks = p.blocks[:i]
		}
	}
	p.exitState()
}

// --- shared content dispatch ----------------------------------------------

// contentChar scans one byte of body content in the given mode. endTag, when
// set, is the element whose close tag ends a text body.
func (p *Parser) contentChar(c byte, mode BodyMode, endTag string) Cursor {
	if endTag != "" && c == '<' && p.closesBody(endTag) {
		p.flushText()
		p.exitState()
		return Reprocess
	}

	switch mode {
	case BodyStaticText:
		return p.textChar()
	case BodyScript:
		return p.scriptTextChar(c)
	case BodyParsedText:
		if mv, ok := p.placeholderStart(c); ok {
			return mv
		}
		return p.textChar()
	}

	if mv, ok := p.placeholderStart(c); ok {
		return mv
	}

	switch c {
	case '<':
		return p.markupStart()
	case '$':
		if spaceAt(p.text, p.pos+1) && p.onlySpaceBeforeOnLine() {
			p.flushText()
			p.enterState(StateInlineScript, &inlineScriptMeta{})
			return Advance
		}
	}
	return p.textChar()
}

// markupStart dispatches on the byte after '<'.
func (p *Parser) markupStart() Cursor {
	next := p.peek(1)
	switch {
	case next == '!':
		p.flushText()
		switch {
		case p.lookingAt("<!--"):
			p.enterState(StateHTMLComment, nil)
			return Consume(4)
		case p.lookingAt("<![CDATA["):
			p.enterState(StateCDATA, nil)
			return Consume(9)
		}
		p.enterState(StateDocumentType, nil)
		return Consume(2)
	case next == '?':
		p.flushText()
		p.enterState(StateDeclaration, nil)
		return Consume(2)
	case next == '%':
		p.flushText()
		p.enterState(StateScriptlet, &scriptletMeta{})
		return Consume(2)
	case next == '/':
		p.flushText()
		p.enterState(StateCloseTag, &closeTagMeta{})
		return Consume(2)
	case next < 128 && isTagNameStart[next], next >= 128, next == '$' && p.peek(2) == '{':
		p.flushText()
		p.enterState(StateOpenTag, &tagMeta{})
		return Advance
	}
	return p.textChar()
}

// placeholderStart recognizes ${, $!{ and their backslash escapes.
func (p *Parser) placeholderStart(c byte) (Cursor, bool) {
	if p.cfg.ignorePlaceholders {
		return 0, false
	}
	switch c {
	case '$':
		switch {
		case p.lookingAt("${"):
			p.flushText()
			p.enterState(StatePlaceholder, &placeholderMeta{escape: true, emit: true})
			return Consume(2), true
		case p.lookingAt("$!{"):
			p.flushText()
			p.enterState(StatePlaceholder, &placeholderMeta{emit: true})
			return Consume(3), true
		}
	case '\\':
		switch {
		case p.lookingAtFrom(p.pos+1, "${"), p.lookingAtFrom(p.pos+1, "$!{"):
			// \${ is literal text without the backslash.
			p.flushText()
			p.textStart = p.pos + 1
			if p.peek(2) == '!' {
				return Consume(4), true
			}
			return Consume(3), true
		case p.peek(1) == '\\' && (p.lookingAtFrom(p.pos+2, "${") || p.lookingAtFrom(p.pos+2, "$!{")):
			// \\${ is one backslash of text, then a placeholder.
			p.flushText()
			p.textStart = p.pos + 1
			return Consume(2), true
		}
	}
	return 0, false
}

// scriptTextChar keeps strings, template strings and comments of a script
// body inside the pending text so that "</script>" in a string is not a close.
func (p *Parser) scriptTextChar(c byte) Cursor {
	switch c {
	case '"', '\'':
		p.beginText()
		p.enterState(StateString, &stringMeta{quote: c, body: true})
		return Advance
	case '`':
		p.beginText()
		p.enterState(StateTemplateString, &templateMeta{body: true})
		return Advance
	case '/':
		if p.peek(1) == '/' || p.peek(1) == '*' {
			p.beginText()
			return p.enterJSComment(false)
		}
	}
	return p.textChar()
}
