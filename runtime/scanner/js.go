package scanner

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/opal-lang/tagscan/core/source"
)

// --- 'string' and "string" ------------------------------------------------

type stringPhase uint8

const (
	strText        stringPhase = iota
	strPlaceholder             // "${" consumed, expression not yet entered
	strExpectBrace             // Expression finished, "}" must follow
)

// stringPart is a literal run or a placeholder expression of a string.
type stringPart struct {
	expr bool
	r    source.Range
}

type stringMeta struct {
	quote byte
	// placeholders folds ${} inside the string. Only top-level strings of
	// attribute values use it.
	placeholders bool
	// body marks a string inside a script body. Line breaks and end of input
	// end it quietly; the host language reports its own errors.
	body bool

	phase           stringPhase
	parts           []stringPart
	segStart        int
	hasPlaceholders bool
	r               source.Range // Quotes included, set when the string closes
}

// raw returns the source between the quotes.
func (m *stringMeta) raw(text string) string {
	if m.r.Len() < 2 {
		return ""
	}
	return text[m.r.Start+1 : m.r.End-1]
}

func (m *stringMeta) closeSegment(end int) {
	if end > m.segStart {
		m.parts = append(m.parts, stringPart{r: source.Range{Start: m.segStart, End: end}})
	}
}

func stringEnter(p *Parser, f *Frame) {
	m := f.meta.(*stringMeta)
	m.segStart = f.Start + 1
}

func stringChar(p *Parser, f *Frame, c byte) Cursor {
	m := f.meta.(*stringMeta)
	switch m.phase {
	case strPlaceholder:
		p.enterExpression(roleStringPart, exprPolicy{
			terminators: []string{"}"},
			code:        ErrMalformedPlaceholder,
		})
		return Reprocess
	case strExpectBrace:
		if c != '}' {
			p.notifyError(source.Range{Start: p.pos, End: p.pos + 1}, ErrMalformedPlaceholder,
				"expected \"}\" to close the placeholder in a string")
			return Advance
		}
		m.phase = strText
		m.segStart = p.pos + 1
		return Advance
	}

	switch {
	case c == '\\':
		switch {
		case p.pos+1 >= p.maxPos:
			return Advance
		case p.peek(1) == '\r' && p.peek(2) == '\n':
			return Consume(3)
		}
		return Consume(2)
	case c == m.quote:
		m.closeSegment(p.pos)
		m.r = source.Range{Start: f.Start, End: p.pos + 1}
		p.exitStateAt(p.pos + 1)
		return Advance
	case c == '$' && m.placeholders && p.peek(1) == '{':
		m.closeSegment(p.pos)
		m.hasPlaceholders = true
		m.phase = strPlaceholder
		return Consume(2)
	}
	return Advance
}

func stringEOL(p *Parser, f *Frame, n int) Cursor {
	if f.meta.(*stringMeta).body {
		p.exitState()
		return Reprocess
	}
	p.notifyError(source.Range{Start: f.Start, End: p.pos}, ErrInvalidString,
		"a string cannot contain a line break")
	return Consume(n)
}

func stringEOF(p *Parser, f *Frame) {
	if f.meta.(*stringMeta).body {
		return
	}
	p.notifyError(source.Range{Start: f.Start, End: p.maxPos}, ErrInvalidString,
		"end of input reached while parsing string")
}

func stringReturn(p *Parser, f *Frame, child *Frame) {
	m := f.meta.(*stringMeta)
	m.parts = append(m.parts, stringPart{expr: true, r: child.Range})
	m.phase = strExpectBrace
}

// foldString rewrites a string with placeholders as a concatenation of its
// literal runs, in the original quotes, and its parenthesized expressions.
//
//	"a${b}c" => "a"+(b)+"c"
func (p *Parser) foldString(m *stringMeta) string {
	if len(m.parts) == 0 {
		return string(m.quote) + string(m.quote)
	}

	var b strings.Builder
	if m.parts[0].expr {
		b.WriteByte(m.quote)
		b.WriteByte(m.quote)
		b.WriteByte('+')
	}
	for i, part := range m.parts {
		if i > 0 {
			b.WriteByte('+')
		}
		if part.expr {
			b.WriteByte('(')
			b.WriteString(strings.TrimSpace(p.Read(part.r)))
			b.WriteByte(')')
			continue
		}
		b.WriteByte(m.quote)
		b.WriteString(p.Read(part.r))
		b.WriteByte(m.quote)
	}
	return b.String()
}

// DecodeString resolves the escape sequences of the body of a JavaScript
// string literal. Unknown escapes stand for the escaped character itself and
// malformed numeric escapes are kept verbatim.
func DecodeString(raw string) string {
	if !strings.Contains(raw, `\`) {
		return raw
	}

	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 == len(raw) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := raw[i]; e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\n':
			// Line continuation
		case '\r':
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
		case 'x':
			if r, ok := hexRune(raw, i+1, 2); ok {
				b.WriteRune(r)
				i += 2
			} else {
				b.WriteString(`\x`)
			}
		case 'u':
			if i+1 < len(raw) && raw[i+1] == '{' {
				end := strings.IndexByte(raw[i+1:], '}')
				if end > 1 {
					if r, ok := hexRune(raw, i+2, end-1); ok {
						b.WriteRune(r)
						i += end + 1
						continue
					}
				}
				b.WriteString(`\u`)
				continue
			}
			if r, ok := hexRune(raw, i+1, 4); ok {
				b.WriteRune(r)
				i += 4
			} else {
				b.WriteString(`\u`)
			}
		default:
			b.WriteByte(e)
		}
	}
	return b.String()
}

func hexRune(s string, start, n int) (rune, bool) {
	if start+n > len(s) || n > 6 {
		return 0, false
	}
	v, err := strconv.ParseUint(s[start:start+n], 16, 32)
	if err != nil || v > utf8.MaxRune {
		return 0, false
	}
	return rune(v), true
}

// --- `template ${string}` -------------------------------------------------

type templateMeta struct {
	body  bool
	phase stringPhase
}

func templateStringChar(p *Parser, f *Frame, c byte) Cursor {
	m := f.meta.(*templateMeta)
	switch m.phase {
	case strPlaceholder:
		p.enterExpression(roleTemplatePart, exprPolicy{
			terminators: []string{"}"},
			code:        ErrMalformedTemplateString,
		})
		return Reprocess
	case strExpectBrace:
		if c != '}' {
			p.notifyError(source.Range{Start: p.pos, End: p.pos + 1}, ErrMalformedTemplateString,
				"expected \"}\" to close the template string placeholder")
			return Advance
		}
		m.phase = strText
		return Advance
	}

	switch {
	case c == '\\':
		if p.pos+1 >= p.maxPos {
			return Advance
		}
		return Consume(2)
	case c == '`':
		p.exitStateAt(p.pos + 1)
		return Advance
	case c == '$' && p.peek(1) == '{':
		m.phase = strPlaceholder
		return Consume(2)
	}
	return Advance
}

func templateStringEOF(p *Parser, f *Frame) {
	if f.meta.(*templateMeta).body {
		return
	}
	p.notifyError(source.Range{Start: f.Start, End: p.maxPos}, ErrMalformedTemplateString,
		"end of input reached while parsing template string")
}

func templateStringReturn(p *Parser, f *Frame, child *Frame) {
	f.meta.(*templateMeta).phase = strExpectBrace
}

// --- /regular expression/ -------------------------------------------------

type regexMeta struct {
	inClass bool
}

func regexChar(p *Parser, f *Frame, c byte) Cursor {
	m := f.meta.(*regexMeta)
	switch c {
	case '\\':
		if p.pos+1 >= p.maxPos || eolAt(p.text, p.pos+1) {
			return Advance
		}
		return Consume(2)
	case '[':
		m.inClass = true
	case ']':
		m.inClass = false
	case '/':
		if !m.inClass {
			p.exitStateAt(p.pos + 1)
			return Advance
		}
	}
	return Advance
}

func regexEOL(p *Parser, f *Frame, n int) Cursor {
	p.notifyError(source.Range{Start: f.Start, End: p.pos}, ErrInvalidRegularExpression,
		"a regular expression cannot contain a line break")
	return Consume(n)
}

func regexEOF(p *Parser, f *Frame) {
	p.notifyError(source.Range{Start: f.Start, End: p.maxPos}, ErrInvalidRegularExpression,
		"end of input reached while parsing regular expression")
}
