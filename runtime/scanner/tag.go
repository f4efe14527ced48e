package scanner

import (
	"strings"

	"github.com/opal-lang/tagscan/core/invariant"
	"github.com/opal-lang/tagscan/core/source"
)

// --- open tags ------------------------------------------------------------

type tagPhase uint8

const (
	tagPhaseName      tagPhase = iota
	tagPhaseParts              // Directly after the name, shorthands, var or args
	tagPhaseAttrs              // Whitespace seen; attributes follow
	tagPhaseSemicolon          // Concise tag ended by ';'
)

type pendingPart uint8

const (
	pendNone   pendingPart = iota
	pendVar                // "/" consumed
	pendParams             // "|" consumed
)

type separator uint8

const (
	sepUnknown separator = iota
	sepComma
	sepSpace
)

type tagMeta struct {
	concise bool
	phase   tagPhase
	tag     *Tag

	pending    pendingPart
	expectPipe bool

	group        bool
	attrCount    int
	pendingComma bool
	sepStyle     separator
	finished     bool
}

func openTagChar(p *Parser, f *Frame, c byte) Cursor {
	m := f.meta.(*tagMeta)
	switch m.phase {
	case tagPhaseName:
		m.tag = &Tag{Concise: m.concise}
		p.enterState(StateTagName, &tagNameMeta{concise: m.concise})
		return Reprocess
	case tagPhaseSemicolon:
		return p.afterSemicolon(c)
	}

	if m.pending != pendNone {
		return p.enterPending(m)
	}
	if m.expectPipe {
		m.expectPipe = false
		if c != '|' {
			p.errorHere(ErrMalformedOpenTag, "expected \"|\" to end the tag parameters")
			return Advance
		}
		m.phase = tagPhaseAttrs
		return Advance
	}
	if spaceAt(p.text, p.pos) {
		m.phase = tagPhaseAttrs
		return Advance
	}

	if m.concise {
		if mv, ok := p.conciseTagChar(f, m, c); ok {
			return mv
		}
	} else {
		switch {
		case c == '>':
			return p.endHTMLOpenTag(f, m, 1, false)
		case p.lookingAt("/>"):
			return p.endHTMLOpenTag(f, m, 2, true)
		}
	}

	switch {
	case c == ',':
		m.pendingComma = true
		m.phase = tagPhaseAttrs
		return Advance
	case c == '/' && (p.peek(1) == '/' || p.peek(1) == '*'):
		m.phase = tagPhaseAttrs
		return p.enterJSComment(false)
	case (c == '#' || c == '.') && m.phase == tagPhaseParts && !p.lookingAt("..."):
		p.enterState(StateShorthand, &shorthandMeta{id: c == '#', concise: m.concise})
		return Advance
	case c == '/' && m.attrCount == 0:
		if m.tag.Var != nil {
			p.errorHere(ErrMalformedOpenTag, "a tag can only have one tag variable")
			return Advance
		}
		m.pending = pendVar
		return Advance
	case c == '(':
		switch {
		case m.phase != tagPhaseParts || m.attrCount > 0:
			p.notifyError(source.Range{Start: p.pos, End: p.pos + 1}, ErrIllegalAttributeArgument,
				"tag arguments must directly follow the tag name")
			return Advance
		case m.tag.Args != nil:
			p.notifyError(source.Range{Start: p.pos, End: p.pos + 1}, ErrDuplicateTagArgument,
				"the %q tag already has arguments", m.tag.Name)
			return Advance
		}
		p.enterExpression(roleTagArgs, exprPolicy{group: true, code: ErrMalformedOpenTag})
		return Reprocess
	case c == '|' && m.attrCount == 0:
		if m.tag.Params != nil {
			p.errorHere(ErrMalformedOpenTag, "a tag can only have one parameter list")
			return Advance
		}
		m.pending = pendParams
		return Advance
	case c == '=':
		if m.attrCount > 0 {
			p.notifyError(source.Range{Start: p.pos, End: p.pos + 1}, ErrIllegalAttributeValue,
				"unexpected \"=\" after an attribute value")
			return Advance
		}
		return p.beginAttribute(m, attrDefault)
	case p.lookingAt("..."):
		return p.beginAttribute(m, attrSpread)
	case p.lookingAt("${"):
		return p.beginAttribute(m, attrSpreadPlaceholder)
	}
	return p.beginAttribute(m, attrNormal)
}

// conciseTagChar handles the bytes that only mean something in a concise
// open tag.
func (p *Parser) conciseTagChar(f *Frame, m *tagMeta, c byte) (Cursor, bool) {
	switch c {
	case '[':
		if m.group {
			p.notifyError(source.Range{Start: p.pos, End: p.pos + 1}, ErrMalformedOpenTag,
				"attribute groups cannot be nested")
			return Advance, true
		}
		m.group = true
		m.tag.WithinAttrGroup = true
		m.phase = tagPhaseAttrs
		return Advance, true
	case ']':
		if !m.group {
			p.notifyError(source.Range{Start: p.pos, End: p.pos + 1}, ErrMalformedOpenTag,
				"unexpected \"]\" outside an attribute group")
			return Advance, true
		}
		m.group = false
		m.phase = tagPhaseAttrs
		return Advance, true
	case ';':
		if m.group {
			p.notifyError(source.Range{Start: f.Start, End: p.pos}, ErrUnclosedAttributeGroup,
				"the attribute group of %q was not closed before \";\"", m.tag.Name)
			return Advance, true
		}
		p.finishOpenTag(f, m, p.pos+1, false)
		m.phase = tagPhaseSemicolon
		return Advance, true
	case '-':
		if m.group || m.phase != tagPhaseAttrs || !p.lookingAt("--") {
			return 0, false
		}
		n := 2
		for p.peek(n) == '-' {
			n++
		}
		if i := p.pos + n; i < p.maxPos && !spaceAt(p.text, i) && !eolAt(p.text, i) {
			return 0, false
		}
		return p.beginTagBody(f, m, n), true
	}
	return 0, false
}

// beginTagBody ends a concise open tag at a dash run and opens the text
// block that is its body.
func (p *Parser) beginTagBody(f *Frame, m *tagMeta, dashes int) Cursor {
	b := p.finishOpenTag(f, m, p.trimmedEnd(f.Start, p.pos), false)
	if b == nil {
		p.notifyError(source.Range{Start: p.pos, End: p.pos + dashes}, ErrMalformedOpenTag,
			"the %q tag cannot have a body", m.tag.Name)
		return Advance
	}
	p.exitState()

	after := p.pos + dashes
	j := p.skipSpace(after)
	delimited := j >= p.maxPos || eolAt(p.text, j)
	p.enterState(StateHTMLBlock, &htmlBlockMeta{
		indent:    p.indent,
		delimiter: p.text[p.pos:after],
		delimited: delimited,
		opening:   delimited,
		mode:      b.bodyMode,
	})
	return Consume(j - p.pos)
}

// afterSemicolon allows only whitespace and comments to follow a concise
// tag that ended with ';'.
func (p *Parser) afterSemicolon(c byte) Cursor {
	if spaceAt(p.text, p.pos) {
		return Advance
	}
	if c == '/' && (p.peek(1) == '/' || p.peek(1) == '*') {
		return p.enterJSComment(true)
	}
	if p.legacyViolation(source.Range{Start: p.pos, End: p.pos + 1}, ErrInvalidCodeAfterSemicolon,
		"unexpected code after \";\" ends a tag") {
		return p.skipToLineEnd()
	}
	return Advance
}

func (p *Parser) enterPending(m *tagMeta) Cursor {
	switch m.pending {
	case pendVar:
		p.enterExpression(roleTagVar, p.varPolicy(m.concise))
	case pendParams:
		p.enterExpression(roleTagParams, exprPolicy{terminators: []string{"|"}, code: ErrMalformedOpenTag})
	}
	m.pending = pendNone
	return Reprocess
}

func (p *Parser) varPolicy(concise bool) exprPolicy {
	if concise {
		return exprPolicy{
			terminators: []string{"=", "(", "|", ",", ";"},
			endsAtSpace: true,
			concise:     true,
			code:        ErrMalformedOpenTag,
		}
	}
	return exprPolicy{
		terminators: []string{"=", "(", "|", ",", ">", "/>"},
		endsAtSpace: true,
		markup:      true,
		code:        ErrMalformedOpenTag,
	}
}

// beginAttribute enforces concise comma consistency and starts an attribute.
func (p *Parser) beginAttribute(m *tagMeta, kind attrKind) Cursor {
	if m.concise && m.attrCount > 0 {
		style := sepSpace
		if m.pendingComma {
			style = sepComma
		}
		switch {
		case m.sepStyle == sepUnknown:
			m.sepStyle = style
		case m.sepStyle != style:
			if !p.legacyViolation(source.Range{Start: p.pos, End: p.pos + 1}, ErrInconsistentCommas,
				"attributes of %q must be separated consistently, either all by commas or all by whitespace", m.tag.Name) {
				return Advance
			}
		}
	}
	m.pendingComma = false
	m.attrCount++
	m.phase = tagPhaseAttrs
	p.enterState(StateAttribute, &attrMeta{kind: kind, concise: m.concise, group: m.group})
	return Reprocess
}

func (p *Parser) endHTMLOpenTag(f *Frame, m *tagMeta, n int, selfClosed bool) Cursor {
	end := p.pos + n
	b := p.finishOpenTag(f, m, end, selfClosed)
	p.exitStateAt(end)
	if b != nil && b.bodyMode != BodyHTML {
		p.enterState(StateTextBody, &textBodyMeta{mode: b.bodyMode, tagName: b.name})
	}
	return Consume(n)
}

// trimmedEnd backs end up over trailing spaces and tabs, stopping at start.
func (p *Parser) trimmedEnd(start, end int) int {
	for end > start && spaceAt(p.text, end-1) {
		end--
	}
	return end
}

// finishOpenTag emits the openTag event and either closes the tag right away
// (self-closed or open-tag-only) or pushes it as an open block, which it
// returns.
func (p *Parser) finishOpenTag(f *Frame, m *tagMeta, end int, selfClosed bool) *block {
	invariant.Precondition(!m.finished, "open tag %q finished twice", m.tag.Name)
	m.finished = true

	t := m.tag
	t.Range = source.Range{Start: f.Start, End: end}
	t.SelfClosed = selfClosed
	t.OpenTagOnly = p.cfg.isVoid != nil && p.cfg.isVoid(t.Name)

	p.pendingBody = BodyHTML
	if p.cfg.bodyMode != nil {
		p.pendingBody = p.cfg.bodyMode(t.Name)
	}
	p.inOpenTag = true
	p.emit(&Event{
		Kind:       EventOpenTag,
		Range:      t.Range,
		Value:      t.Name,
		ValueRange: t.NameRange,
		Tag:        t,
	})
	p.inOpenTag = false
	t.BodyMode = p.pendingBody

	if selfClosed || t.OpenTagOnly {
		p.emit(&Event{
			Kind:  EventCloseTag,
			Range: source.Range{Start: end, End: end},
			Value: t.Name,
			Tag:   t,
		})
		if m.concise {
			p.tagOnly = &block{name: t.Name, indent: p.indent}
		}
		return nil
	}

	b := &block{
		tag:      t,
		name:     t.Name,
		concise:  m.concise,
		indent:   p.indent,
		bodyMode: t.BodyMode,
	}
	p.pushBlock(b)
	return b
}

// EnterHTMLContent scans the body of the tag being opened as markup. It may
// only be called from the handler of an openTag event, as may the other
// Enter*Content methods.
func (p *Parser) EnterHTMLContent() { p.enterBody(BodyHTML) }

// EnterScriptContent scans the body as host script: text that skips over
// strings, template strings and comments.
func (p *Parser) EnterScriptContent() { p.enterBody(BodyScript) }

// EnterParsedTextContent scans the body as text with placeholders.
func (p *Parser) EnterParsedTextContent() { p.enterBody(BodyParsedText) }

// EnterStaticTextContent scans the body as plain text.
func (p *Parser) EnterStaticTextContent() { p.enterBody(BodyStaticText) }

func (p *Parser) enterBody(mode BodyMode) {
	invariant.Precondition(p.inOpenTag, "body mode %s chosen outside an openTag handler", mode)
	p.pendingBody = mode
}

func openTagEOL(p *Parser, f *Frame, n int) Cursor {
	m := f.meta.(*tagMeta)
	if m.pending != pendNone {
		return p.enterPending(m)
	}
	if !m.concise || m.group {
		if m.phase == tagPhaseParts {
			m.phase = tagPhaseAttrs
		}
		return Consume(n)
	}
	if m.phase != tagPhaseSemicolon {
		if m.expectPipe {
			p.errorHere(ErrMalformedOpenTag, "expected \"|\" to end the tag parameters")
			return Consume(n)
		}
		p.finishOpenTag(f, m, p.trimmedEnd(f.Start, p.pos), false)
	}
	p.exitState()
	return Reprocess
}

func openTagEOF(p *Parser, f *Frame) {
	m := f.meta.(*tagMeta)
	switch {
	case m.finished:
	case !m.concise:
		p.notifyError(source.Range{Start: f.Start, End: p.maxPos}, ErrMalformedOpenTag,
			"end of input reached while parsing open tag")
	case m.group:
		p.notifyError(source.Range{Start: f.Start, End: p.maxPos}, ErrUnclosedAttributeGroup,
			"end of input reached inside the attribute group of %q", m.tag.Name)
	case m.expectPipe, m.pending != pendNone:
		p.notifyError(source.Range{Start: f.Start, End: p.maxPos}, ErrMalformedOpenTag,
			"end of input reached while parsing open tag")
	case m.tag != nil:
		p.finishOpenTag(f, m, p.trimmedEnd(f.Start, p.maxPos), false)
	}
}

func openTagReturn(p *Parser, f *Frame, child *Frame) {
	m := f.meta.(*tagMeta)
	switch child.State {
	case StateTagName:
		nm := child.meta.(*tagNameMeta)
		t := m.tag
		t.Name = p.Read(child.Range)
		t.NameRange = child.Range
		if nm.expr != nil {
			t.NameExpression = p.Read(*nm.expr)
		}
		m.phase = tagPhaseParts
		if t.Name == "" && p.peek(0) != '#' && p.peek(0) != '.' {
			p.notifyError(source.Range{Start: f.Start, End: p.pos}, ErrMalformedOpenTag,
				"missing tag name")
			return
		}
		p.emit(&Event{
			Kind:       EventOpenTagName,
			Range:      source.Range{Start: f.Start, End: child.End},
			Value:      t.Name,
			ValueRange: child.Range,
			Tag:        t,
		})

	case StateShorthand:
		sm := child.meta.(*shorthandMeta)
		inner := source.Range{Start: child.Start + 1, End: child.End}
		if inner.Empty() {
			p.notifyError(child.Range, ErrMalformedOpenTag, "empty tag shorthand")
			return
		}
		part := p.part(inner)
		if !sm.id {
			m.tag.ShorthandClasses = append(m.tag.ShorthandClasses, part)
			return
		}
		if m.tag.ShorthandID != nil {
			p.notifyError(child.Range, ErrDuplicateShorthandID,
				"the %q tag already has the shorthand id %q", m.tag.Name, m.tag.ShorthandID.Value)
			return
		}
		m.tag.ShorthandID = &part

	case StateAttribute:
		am := child.meta.(*attrMeta)
		am.finishName(p)
		am.attr.Range = child.Range
		m.tag.Attributes = append(m.tag.Attributes, am.attr)

	case StateExpression:
		em := child.meta.(*exprMeta)
		switch em.role {
		case roleTagVar:
			if child.Empty() {
				p.notifyError(source.Range{Start: child.Start - 1, End: child.End}, ErrMalformedOpenTag,
					"missing tag variable after \"/\"")
				return
			}
			part := p.part(child.Range)
			m.tag.Var = &part
		case roleTagArgs:
			if inner, ok := em.lastParens(); ok {
				part := p.part(inner)
				m.tag.Args = &part
			}
		case roleTagParams:
			part := p.part(child.Range)
			m.tag.Params = &part
			m.expectPipe = true
		}
	}
}

func (p *Parser) part(r source.Range) Part {
	return Part{Value: p.Read(r), Range: r}
}

// --- tag names and shorthands ---------------------------------------------

type tagNameMeta struct {
	concise      bool
	placeholders int
	expr         *source.Range
}

// tagNameEnd reports whether c ends a tag name or shorthand.
func tagNameEnd(c byte, concise bool) bool {
	switch c {
	case ' ', '\t', '>', '/', '=', '(', '|', '#', '.', ',':
		return true
	case ';', '[', ']':
		return concise
	}
	return false
}

func tagNameChar(p *Parser, f *Frame, c byte) Cursor {
	m := f.meta.(*tagNameMeta)
	if p.lookingAt("${") {
		if m.placeholders > 0 {
			p.notifyError(source.Range{Start: p.pos, End: p.pos + 2}, ErrMalformedOpenTag,
				"a tag name can contain at most one placeholder")
			return Advance
		}
		p.enterState(StatePlaceholder, &placeholderMeta{escape: true})
		return Consume(2)
	}
	if tagNameEnd(c, m.concise) {
		p.exitState()
		return Reprocess
	}
	return Advance
}

func tagNameReturn(p *Parser, f *Frame, child *Frame) {
	m := f.meta.(*tagNameMeta)
	m.placeholders++
	m.expr = child.meta.(*placeholderMeta).expr
}

type shorthandMeta struct {
	id      bool
	concise bool
}

// shorthandChar scans the rest of a #id or .class. Placeholders are kept in
// the raw value.
func shorthandChar(p *Parser, f *Frame, c byte) Cursor {
	m := f.meta.(*shorthandMeta)
	if p.lookingAt("${") {
		p.enterState(StatePlaceholder, &placeholderMeta{escape: true})
		return Consume(2)
	}
	if tagNameEnd(c, m.concise) {
		p.exitState()
		return Reprocess
	}
	return Advance
}

func shorthandReturn(p *Parser, f *Frame, child *Frame) {}

// --- attributes -----------------------------------------------------------

type attrKind uint8

const (
	attrNormal attrKind = iota
	attrDefault
	attrSpread
	attrSpreadPlaceholder
)

type attrPhase uint8

const (
	attrPhaseStart attrPhase = iota
	attrPhaseName
	attrPhaseAfterName
	attrPhaseValueStart
	attrPhaseSpreadStart
	attrPhaseValue
	attrPhaseDone
)

type attrMeta struct {
	kind    attrKind
	concise bool
	group   bool

	phase     attrPhase
	nameStart int
	named     bool
	attr      Attribute
}

// finishName records the name scanned so far. It is idempotent.
func (m *attrMeta) finishName(p *Parser) {
	if m.phase != attrPhaseName || m.named {
		return
	}
	m.named = true
	r := source.Range{Start: m.nameStart, End: p.pos}
	m.attr.Name = p.Read(r)
	m.attr.NameRange = r
}

// attrNameEnd reports whether the byte at the cursor ends an attribute name.
func (p *Parser) attrNameEnd(m *attrMeta, c byte) bool {
	switch c {
	case ' ', '\t', '=', '(', ',':
		return true
	case ':':
		return p.peek(1) == '='
	case '>':
		return !m.concise
	case '/':
		return !m.concise && p.peek(1) == '>'
	case ';', '[', ']':
		return m.concise
	}
	return false
}

func (p *Parser) valuePolicy(m *attrMeta) exprPolicy {
	policy := exprPolicy{
		endsAtSpace:     true,
		stringTemplates: !p.cfg.ignoreStringTemplates,
		code:            ErrMalformedOpenTag,
	}
	if m.concise {
		policy.terminators = []string{",", ";"}
		if m.group {
			policy.terminators = append(policy.terminators, "]")
		}
		policy.concise = true
	} else {
		policy.terminators = []string{">", "/>", ","}
		policy.markup = true
	}
	return policy
}

func attributeChar(p *Parser, f *Frame, c byte) Cursor {
	m := f.meta.(*attrMeta)
	switch m.phase {
	case attrPhaseStart:
		switch m.kind {
		case attrDefault:
			m.attr.Default = true
			m.attr.NameRange = source.Range{Start: p.pos, End: p.pos}
			m.named = true
			m.phase = attrPhaseValueStart
			return Advance
		case attrSpread:
			m.attr.Spread = true
			m.named = true
			m.phase = attrPhaseSpreadStart
			return Consume(3)
		case attrSpreadPlaceholder:
			m.attr.Spread = true
			m.named = true
			m.phase = attrPhaseValue
			p.enterState(StatePlaceholder, &placeholderMeta{escape: true})
			return Consume(2)
		}
		m.phase = attrPhaseName
		m.nameStart = p.pos
		return Advance

	case attrPhaseName:
		if p.attrNameEnd(m, c) {
			m.finishName(p)
			m.phase = attrPhaseAfterName
			return Reprocess
		}
		return Advance

	case attrPhaseAfterName:
		switch {
		case c == '(':
			if m.attr.Argument != nil {
				p.notifyError(source.Range{Start: p.pos, End: p.pos + 1}, ErrDuplicateAttrArgument,
					"the %q attribute already has an argument", m.attr.Name)
				return Advance
			}
			p.enterExpression(roleAttrArgs, exprPolicy{group: true, code: ErrMalformedOpenTag})
			return Reprocess
		case c == '{' && m.attr.Argument != nil:
			p.enterExpression(roleAttrMethod, exprPolicy{group: true, code: ErrMalformedOpenTag})
			return Reprocess
		case p.lookingAt(":="):
			m.attr.Bound = true
			m.phase = attrPhaseValueStart
			return Consume(2)
		case c == '=':
			m.phase = attrPhaseValueStart
			return Advance
		case spaceAt(p.text, p.pos):
			j := p.skipSpace(p.pos)
			if p.lookingAtFrom(j, "=") || p.lookingAtFrom(j, ":=") || (m.attr.Argument != nil && p.lookingAtFrom(j, "{")) {
				return Consume(j - p.pos)
			}
		}
		p.exitState()
		return Reprocess

	case attrPhaseValueStart, attrPhaseSpreadStart:
		if spaceAt(p.text, p.pos) {
			return Advance
		}
		policy := p.valuePolicy(m)
		for _, t := range policy.terminators {
			if p.lookingAt(t) {
				p.notifyError(source.Range{Start: f.Start, End: p.pos}, ErrIllegalAttributeValue,
					"missing value for the %q attribute", m.attr.Name)
				return Advance
			}
		}
		role := roleAttrValue
		if m.phase == attrPhaseSpreadStart {
			role = roleSpread
		}
		m.phase = attrPhaseValue
		p.enterExpression(role, policy)
		return Reprocess

	case attrPhaseValue:
		invariant.Unreachable("attribute value resumed before its expression returned")
	}

	p.exitState()
	return Reprocess
}

func attributeEOL(p *Parser, f *Frame, n int) Cursor {
	m := f.meta.(*attrMeta)
	switch m.phase {
	case attrPhaseValueStart, attrPhaseSpreadStart:
		if m.concise && !m.group {
			p.notifyError(source.Range{Start: f.Start, End: p.pos}, ErrIllegalAttributeValue,
				"missing value for the %q attribute", m.attr.Name)
		}
		return Consume(n)
	case attrPhaseName:
		m.finishName(p)
	}
	p.exitState()
	return Reprocess
}

func attributeEOF(p *Parser, f *Frame) {
	m := f.meta.(*attrMeta)
	switch m.phase {
	case attrPhaseValueStart, attrPhaseSpreadStart:
		p.notifyError(source.Range{Start: f.Start, End: p.maxPos}, ErrIllegalAttributeValue,
			"missing value for the %q attribute", m.attr.Name)
	case attrPhaseName:
		m.finishName(p)
	}
}

func attributeReturn(p *Parser, f *Frame, child *Frame) {
	m := f.meta.(*attrMeta)
	if child.State == StatePlaceholder {
		if expr := child.meta.(*placeholderMeta).expr; expr != nil {
			part := p.part(*expr)
			m.attr.Value = &part
		}
		m.phase = attrPhaseDone
		return
	}

	em := child.meta.(*exprMeta)
	switch em.role {
	case roleAttrArgs:
		if inner, ok := em.lastParens(); ok {
			part := p.part(inner)
			m.attr.Argument = &part
		}
	case roleAttrMethod:
		m.attr.Method = true
		if child.Len() >= 2 {
			part := p.part(source.Range{Start: child.Start + 1, End: child.End - 1})
			m.attr.Value = &part
		}
		m.phase = attrPhaseDone
	case roleAttrValue, roleSpread:
		r := source.Range{Start: child.Start, End: p.trimmedEnd(child.Start, child.End)}
		part := p.part(r)
		if s := em.singleString(); s != nil && strings.TrimSpace(part.Value) == p.Read(s.r) {
			if s.hasPlaceholders {
				part.Value = p.foldString(s)
			} else {
				m.attr.Literal = true
				m.attr.LiteralValue = DecodeString(s.raw(p.text))
			}
		}
		m.attr.Value = &part
		m.phase = attrPhaseDone
	}
}

// --- close tags -----------------------------------------------------------

type closeTagMeta struct{}

func closeTagChar(p *Parser, f *Frame, c byte) Cursor {
	if p.lookingAt("${") {
		p.enterState(StatePlaceholder, &placeholderMeta{escape: true})
		return Consume(2)
	}
	if c != '>' {
		return Advance
	}
	name := strings.TrimSpace(p.text[f.Start+2 : p.pos])
	p.closeTag(name, source.Range{Start: f.Start, End: p.pos + 1})
	if p.err != nil {
		return Advance
	}
	return p.exitStateWith(">", ErrMalformedCloseTag)
}

func closeTagEOF(p *Parser, f *Frame) {
	p.notifyError(source.Range{Start: f.Start, End: p.maxPos}, ErrMalformedCloseTag,
		"end of input reached while parsing closing tag")
}
