package scanner

import (
	"fmt"

	"github.com/opal-lang/tagscan/core/invariant"
)

// StateID names a lexical state.
type StateID uint8

const (
	StateConciseContent StateID = iota // Initial state: indentation-sensitive lines
	StateHTMLContent                   // Markup; mixed mode when entered from a concise line
	StateTextBody                      // Script, parsed-text or static-text body of an HTML tag
	StateHTMLBlock                     // Concise "- text" line or dash-delimited block
	StateOpenTag
	StateTagName
	StateShorthand // #id or .class
	StateAttribute
	StateCloseTag
	StateExpression
	StateString
	StateTemplateString
	StateRegex
	StateJSLineComment
	StateJSBlockComment
	StateHTMLComment
	StateCDATA
	StateDocumentType
	StateDeclaration
	StateScriptlet
	StateInlineScript
	StatePlaceholder

	numStates
)

// state is the callback table of one StateID. char and eol return how far to
// move; the rest are notifications. ret is called on the new top frame after
// a child exits, with the child's finished frame.
type state struct {
	name  string
	enter func(p *Parser, f *Frame)
	exit  func(p *Parser, f *Frame)
	char  func(p *Parser, f *Frame, c byte) Cursor
	eol   func(p *Parser, f *Frame, n int) Cursor
	eof   func(p *Parser, f *Frame)
	ret   func(p *Parser, f *Frame, child *Frame)
}

// states is filled by init; the callbacks refer back to the table, which a
// composite literal initializer would turn into an initialization cycle.
var states [numStates]state

func (id StateID) String() string {
	if id < numStates && states[id].name != "" {
		return states[id].name
	}
	return fmt.Sprintf("state(%d)", uint8(id))
}

func init() {
	states[StateConciseContent] = state{
		name:  "conciseContent",
		char:  conciseContentChar,
		eol:   conciseContentEOL,
		eof:   conciseContentEOF,
		ret:   conciseContentReturn,
		enter: conciseContentEnter,
	}
	states[StateHTMLContent] = state{
		name: "htmlContent",
		char: htmlContentChar,
		eol:  htmlContentEOL,
		eof:  flushAndExit,
	}
	states[StateTextBody] = state{
		name: "textBody",
		char: textBodyChar,
		eol:  textEOL,
		eof:  flushAndExit,
	}
	states[StateHTMLBlock] = state{
		name:  "htmlBlock",
		enter: htmlBlockEnter,
		char:  htmlBlockChar,
		eol:   htmlBlockEOL,
		eof:   htmlBlockEOF,
	}
	states[StateOpenTag] = state{
		name: "openTag",
		char: openTagChar,
		eol:  openTagEOL,
		eof:  openTagEOF,
		ret:  openTagReturn,
	}
	states[StateTagName] = state{
		name: "tagName",
		char: tagNameChar,
		eol:  exitAndReprocess,
		ret:  tagNameReturn,
	}
	states[StateShorthand] = state{
		name: "shorthand",
		char: shorthandChar,
		eol:  exitAndReprocess,
		ret:  shorthandReturn,
	}
	states[StateAttribute] = state{
		name: "attribute",
		char: attributeChar,
		eol:  attributeEOL,
		eof:  attributeEOF,
		ret:  attributeReturn,
	}
	states[StateCloseTag] = state{
		name: "closeTag",
		char: closeTagChar,
		eof:  closeTagEOF,
	}
	states[StateExpression] = state{
		name: "expression",
		char: expressionChar,
		eol:  expressionEOL,
		eof:  expressionEOF,
		ret:  expressionReturn,
	}
	states[StateString] = state{
		name:  "string",
		enter: stringEnter,
		char:  stringChar,
		eol:   stringEOL,
		eof:   stringEOF,
		ret:   stringReturn,
	}
	states[StateTemplateString] = state{
		name: "templateString",
		char: templateStringChar,
		eof:  templateStringEOF,
		ret:  templateStringReturn,
	}
	states[StateRegex] = state{
		name: "regex",
		char: regexChar,
		eol:  regexEOL,
		eof:  regexEOF,
	}
	states[StateJSLineComment] = state{
		name: "jsLineComment",
		char: func(p *Parser, f *Frame, c byte) Cursor { return Advance },
		eol:  jsLineCommentEOL,
		eof:  jsLineCommentEOF,
	}
	states[StateJSBlockComment] = state{
		name: "jsBlockComment",
		char: jsBlockCommentChar,
		eof:  jsBlockCommentEOF,
	}
	states[StateHTMLComment] = state{
		name: "htmlComment",
		char: delimitedChar("-->", EventComment, ErrMalformedComment),
		eof:  delimitedEOF(ErrMalformedComment, "comment"),
	}
	states[StateCDATA] = state{
		name: "cdata",
		char: delimitedChar("]]>", EventCDATA, ErrMalformedCDATA),
		eof:  delimitedEOF(ErrMalformedCDATA, "CDATA section"),
	}
	states[StateDocumentType] = state{
		name: "documentType",
		char: delimitedChar(">", EventDocumentType, ErrMalformedDocumentType),
		eof:  delimitedEOF(ErrMalformedDocumentType, "document type"),
	}
	states[StateDeclaration] = state{
		name: "declaration",
		char: delimitedChar("?>", EventDeclaration, ErrMalformedDeclaration),
		eof:  delimitedEOF(ErrMalformedDeclaration, "declaration"),
	}
	states[StateScriptlet] = state{
		name: "scriptlet",
		char: scriptletChar,
		eof:  scriptletEOF,
		ret:  scriptletReturn,
	}
	states[StateInlineScript] = state{
		name: "inlineScript",
		char: inlineScriptChar,
		eol:  inlineScriptEOL,
		eof:  inlineScriptEOF,
		ret:  inlineScriptReturn,
	}
	states[StatePlaceholder] = state{
		name: "placeholder",
		char: placeholderChar,
		eof:  placeholderEOF,
		ret:  placeholderReturn,
	}

	for id := StateID(0); id < numStates; id++ {
		st := &states[id]
		invariant.Invariant(st.name != "" && st.char != nil, "state %d is not registered", id)
		if st.eol == nil {
			st.eol = consumeEOL
		}
	}
}

// consumeEOL treats a line break like any other byte.
func consumeEOL(p *Parser, f *Frame, n int) Cursor {
	return Consume(n)
}

// exitAndReprocess hands the byte back to the parent.
func exitAndReprocess(p *Parser, f *Frame, n int) Cursor {
	p.exitState()
	return Reprocess
}

// flushAndExit ends a text-producing state at end of input.
func flushAndExit(p *Parser, f *Frame) {
	p.flushText()
	p.exitState()
}
