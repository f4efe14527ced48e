package scanner

import (
	"github.com/opal-lang/tagscan/core/source"
)

// EventKind represents the type of scan event
type EventKind uint8

const (
	EventText         EventKind = iota // Character data
	EventComment                       // <!-- -->, or // and /* */ on concise lines
	EventCDATA                         // <![CDATA[ ]]>
	EventDocumentType                  // <!DOCTYPE ...>
	EventDeclaration                   // <?xml ...?>
	EventScriptlet                     // <% %>, $ code, $ { code }
	EventPlaceholder                   // ${expr} or $!{expr}
	EventOpenTagName                   // Tag name finished, attributes not yet scanned
	EventOpenTag                       // Open tag finished
	EventCloseTag                      // Explicit or synthetic close
	EventError                         // The latched error; always last
)

var eventKindNames = [...]string{
	EventText:         "text",
	EventComment:      "comment",
	EventCDATA:        "cdata",
	EventDocumentType: "documentType",
	EventDeclaration:  "declaration",
	EventScriptlet:    "scriptlet",
	EventPlaceholder:  "placeholder",
	EventOpenTagName:  "openTagName",
	EventOpenTag:      "openTag",
	EventCloseTag:     "closeTag",
	EventError:        "error",
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "unknown"
}

// Event is one notification. Which fields are set depends on Kind:
//
//   - Text, Comment, CDATA, DocumentType, Declaration: Value/ValueRange hold the
//     inner text. Comments set Line for // and Block for /* */.
//   - Scriptlet: Value is the code; Line marks $-prefixed scripts and Block a
//     braced $ { } body.
//   - Placeholder: Value is the expression; Escape is false for $!{}.
//   - OpenTagName, OpenTag, CloseTag: Tag is shared by all three events of one
//     element. CloseTag sets Explicit when the close was written in the source.
//   - Error: Err is set.
type Event struct {
	Kind       EventKind
	Range      source.Range
	Value      string
	ValueRange source.Range

	Tag      *Tag
	Escape   bool
	Line     bool
	Block    bool
	Explicit bool

	Err *ScanError
}

// Part is a resolved piece of source: its text and where it came from.
type Part struct {
	Value string       `json:"value"`
	Range source.Range `json:"range"`
}

// Tag describes an element. OpenTagName events carry it with only the name
// fields populated; the same pointer is completed before OpenTag.
type Tag struct {
	Name      string       `json:"name"`
	NameRange source.Range `json:"nameRange"`
	// NameExpression is the body of the placeholder in a dynamic name.
	NameExpression string `json:"nameExpression,omitempty"`

	ShorthandID      *Part  `json:"shorthandId,omitempty"`
	ShorthandClasses []Part `json:"shorthandClasses,omitempty"`
	Var              *Part  `json:"var,omitempty"`
	Args             *Part  `json:"args,omitempty"`
	Params           *Part  `json:"params,omitempty"`

	Attributes []Attribute `json:"attributes,omitempty"`

	Concise         bool `json:"concise,omitempty"`
	SelfClosed      bool `json:"selfClosed,omitempty"`
	OpenTagOnly     bool `json:"openTagOnly,omitempty"`
	WithinAttrGroup bool `json:"withinAttrGroup,omitempty"`

	BodyMode BodyMode     `json:"-"`
	Range    source.Range `json:"range"`
}

// Attribute is one attribute of an open tag.
type Attribute struct {
	Name      string       `json:"name,omitempty"`
	NameRange source.Range `json:"nameRange"`
	Value     *Part        `json:"value,omitempty"`
	Argument  *Part        `json:"argument,omitempty"`

	Default bool `json:"default,omitempty"` // <tag=value>
	Spread  bool `json:"spread,omitempty"`  // ...expr or ${expr}
	Method  bool `json:"method,omitempty"`  // name(args) { body }
	Bound   bool `json:"bound,omitempty"`   // name:=value

	// Literal is set when Value is exactly one string literal; LiteralValue
	// holds its decoded contents.
	Literal      bool   `json:"literal,omitempty"`
	LiteralValue string `json:"literalValue,omitempty"`

	Range source.Range `json:"range"`
}

// Handler receives events as they are produced.
type Handler interface {
	HandleEvent(ev *Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ev *Event)

func (f HandlerFunc) HandleEvent(ev *Event) { f(ev) }
