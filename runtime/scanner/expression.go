package scanner

import (
	"strings"

	"github.com/opal-lang/tagscan/core/source"
)

// exprRole tells the parent which of its expressions just returned.
type exprRole uint8

const (
	rolePlaceholder exprRole = iota
	roleScriptlet
	roleScriptLine
	roleScriptBlock
	roleTagVar
	roleTagArgs
	roleTagParams
	roleAttrArgs
	roleAttrValue
	roleAttrMethod
	roleSpread
	roleTemplatePart
	roleStringPart
)

// exprPolicy decides where an expression ends when no group is open.
type exprPolicy struct {
	terminators []string
	// endsAtSpace ends the expression at whitespace (and line breaks)
	// unless an operator continues it.
	endsAtSpace bool
	// endsAtEOL ends the expression at a line break unless an operator
	// continues it. Horizontal whitespace does not end it.
	endsAtEOL bool
	// group ends the expression right after its first group closes. The
	// expression must start at the group's opening bracket.
	group bool
	// concise applies concise-line continuation rules: " -- " begins text.
	concise bool
	// markup forbids "/>" and ">" from continuing the expression.
	markup bool
	// stringTemplates folds ${} in top-level quoted strings.
	stringTemplates bool
	code            ErrorCode
}

type exprMeta struct {
	role   exprRole
	policy exprPolicy

	groups  []byte // Expected closers, innermost last
	lastSig byte   // Last significant byte at any depth, for regex detection
	atomEnd int    // End of the last string, template or regex literal

	// tokens counts significant top-level items. A string counts once,
	// every other significant byte counts once.
	tokens    int
	firstStr  *stringMeta
	parenOpen int // Last top-level parenthesis pair, -1 when none
	parenEnd  int
}

// singleString returns the string literal that is the entire expression.
func (m *exprMeta) singleString() *stringMeta {
	if m.tokens == 1 {
		return m.firstStr
	}
	return nil
}

// lastParens returns the inner range of the last top-level parenthesis pair.
func (m *exprMeta) lastParens() (source.Range, bool) {
	if m.parenOpen < 0 || m.parenEnd < m.parenOpen {
		return source.Range{}, false
	}
	return source.Range{Start: m.parenOpen + 1, End: m.parenEnd}, true
}

func (p *Parser) enterExpression(role exprRole, policy exprPolicy) *Frame {
	if policy.code == "" {
		policy.code = ErrMalformedExpression
	}
	return p.enterState(StateExpression, &exprMeta{role: role, policy: policy, atomEnd: -1, parenOpen: -1, parenEnd: -1})
}

func (p *Parser) atTerminator(m *exprMeta, i int) bool {
	for _, t := range m.policy.terminators {
		if p.lookingAtFrom(i, t) {
			return true
		}
	}
	return false
}

func expressionChar(p *Parser, f *Frame, c byte) Cursor {
	m := f.meta.(*exprMeta)
	depth := len(m.groups)

	if depth == 0 {
		if p.atTerminator(m, p.pos) {
			p.exitState()
			return Reprocess
		}
		if spaceAt(p.text, p.pos) && m.policy.endsAtSpace {
			if n := p.continuation(f, m, 0); n > 0 {
				return Consume(n)
			}
			p.exitState()
			return Reprocess
		}
	}

	if spaceAt(p.text, p.pos) {
		return Advance
	}

	if depth == 0 && c != '"' && c != '\'' {
		m.tokens++
	}

	switch c {
	case '(', '[', '{':
		closer := map[byte]byte{'(': ')', '[': ']', '{': '}'}[c]
		m.groups = append(m.groups, closer)
		if c == '(' && depth == 0 {
			m.parenOpen = p.pos
		}
	case ')', ']', '}':
		if depth == 0 {
			p.notifyError(source.Range{Start: p.pos, End: p.pos + 1}, m.policy.code,
				"mismatched group: found %q without a matching opening bracket", string(c))
			return Advance
		}
		if want := m.groups[depth-1]; want != c {
			p.notifyError(source.Range{Start: p.pos, End: p.pos + 1}, m.policy.code,
				"mismatched group: expected %q but found %q", string(want), string(c))
			return Advance
		}
		m.groups = m.groups[:depth-1]
		m.lastSig = c
		if len(m.groups) == 0 {
			if c == ')' {
				m.parenEnd = p.pos
			}
			if m.policy.group {
				p.exitStateAt(p.pos + 1)
				return Advance
			}
		}
		return Advance
	case '"', '\'':
		if depth == 0 {
			m.tokens++
		}
		p.enterState(StateString, &stringMeta{
			quote:        c,
			placeholders: depth == 0 && m.policy.stringTemplates,
		})
		return Advance
	case '`':
		p.enterState(StateTemplateString, &templateMeta{})
		return Advance
	case '=':
		// "=>" is one token; its '>' never terminates.
		if p.peek(1) == '>' {
			m.lastSig = '>'
			return Consume(2)
		}
	case '/':
		switch {
		case p.peek(1) == '/' || p.peek(1) == '*':
			return p.enterJSComment(false)
		case regexAllowed(m, p.pos):
			p.enterState(StateRegex, &regexMeta{})
			return Advance
		}
	}

	m.lastSig = c
	return Advance
}

// regexAllowed reports whether a '/' at i starts a regular expression rather
// than a division.
func regexAllowed(m *exprMeta, i int) bool {
	if m.atomEnd == i {
		return false
	}
	c := m.lastSig
	if c == 0 {
		return true
	}
	if c < 128 && isIdentPart[c] || c >= 128 {
		return false
	}
	return c != ')' && c != ']' && c != '}' && c != '"' && c != '`'
}

func expressionEOL(p *Parser, f *Frame, n int) Cursor {
	m := f.meta.(*exprMeta)
	if len(m.groups) == 0 && (m.policy.endsAtSpace || m.policy.endsAtEOL) {
		if k := p.continuation(f, m, n); k > 0 {
			return Consume(k)
		}
		p.exitState()
		return Reprocess
	}
	return Consume(n)
}

func expressionEOF(p *Parser, f *Frame) {
	m := f.meta.(*exprMeta)
	if len(m.groups) > 0 {
		p.notifyError(source.Range{Start: f.Start, End: p.maxPos}, m.policy.code,
			"end of input reached inside an expression, expected %q", string(m.groups[len(m.groups)-1]))
	}
}

func expressionReturn(p *Parser, f *Frame, child *Frame) {
	m := f.meta.(*exprMeta)
	switch child.State {
	case StateString:
		if s := child.meta.(*stringMeta); len(m.groups) == 0 && m.tokens == 1 && m.firstStr == nil {
			m.firstStr = s
		}
		m.atomEnd = child.End
		m.lastSig = '"'
	case StateTemplateString, StateRegex:
		m.atomEnd = child.End
		m.lastSig = '`'
	case StateJSLineComment, StateJSBlockComment:
		m.atomEnd = child.End
	}
}

// continuation decides whether whitespace at the cursor (eol == 0) or the
// line break of length eol at the cursor continues the expression. It
// returns how many bytes to consume to reach the continuing operator, or 0
// when the expression ends here.
func (p *Parser) continuation(f *Frame, m *exprMeta, eol int) int {
	if p.endsWithOperator(f, m) {
		if end := p.skipBlank(p.pos); end < p.maxPos {
			return end - p.pos
		}
		return 0
	}

	i := p.pos + eol
	i = p.skipSpace(i)
	if i >= p.maxPos || eolAt(p.text, i) || p.atTerminator(m, i) {
		return 0
	}
	if !p.operatorAt(i, eol > 0, m.policy) {
		return 0
	}
	return i - p.pos
}

// endsWithOperator looks behind: a trailing binary operator or unary keyword
// leaves the expression open.
func (p *Parser) endsWithOperator(f *Frame, m *exprMeta) bool {
	text := strings.TrimRight(p.text[f.Start:p.pos], " \t\r\n")
	if text == "" {
		return false
	}
	// A literal or comment owns its last byte.
	if m.atomEnd >= f.Start+len(text) {
		return false
	}
	last := text[len(text)-1]
	if last < 128 && isOperatorEnd[last] {
		if strings.HasSuffix(text, "++") || strings.HasSuffix(text, "--") {
			return false
		}
		return true
	}

	// Trailing keyword, delimited on the left by a non-identifier byte.
	i := len(text)
	for i > 0 && identAt(text, i-1) {
		i--
	}
	return unaryKeywords[text[i:]]
}

// operatorAt looks ahead: does a binary operator, followed by whitespace,
// start at i?
func (p *Parser) operatorAt(i int, nextLine bool, policy exprPolicy) bool {
	rest := p.text[i:]

	if policy.concise && strings.HasPrefix(rest, "--") && (len(rest) == 2 || spaceAt(rest, 2) || eolAt(rest, 2)) {
		return false
	}
	if policy.markup && (rest[0] == '>' || strings.HasPrefix(rest, "/>")) {
		return false
	}

	ops := nextLineOperators
	if !nextLine {
		ops = sameLineOperators
		for _, kw := range binaryKeywords {
			if strings.HasPrefix(rest, kw) && (len(rest) == len(kw) || spaceAt(rest, len(kw)) || eolAt(rest, len(kw))) {
				return true
			}
		}
	}
	for _, op := range ops {
		if !strings.HasPrefix(rest, op) {
			continue
		}
		// A binary operator stands apart from its right operand. This keeps
		// "//", "...", ":=" and names like ":class" from continuing.
		n := len(op)
		return n == len(rest) || spaceAt(rest, n) || eolAt(rest, n)
	}
	return false
}
