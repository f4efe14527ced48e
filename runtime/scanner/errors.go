package scanner

import (
	"fmt"
	"strings"

	"github.com/opal-lang/tagscan/core/source"
)

// ErrorCode identifies one authoring mistake. Codes are stable and safe to
// match on.
type ErrorCode string

const (
	ErrMalformedComment          ErrorCode = "MALFORMED_COMMENT"
	ErrMalformedCDATA            ErrorCode = "MALFORMED_CDATA"
	ErrMalformedDocumentType     ErrorCode = "MALFORMED_DOCUMENT_TYPE"
	ErrMalformedDeclaration      ErrorCode = "MALFORMED_DECLARATION"
	ErrMalformedScriptlet        ErrorCode = "MALFORMED_SCRIPTLET"
	ErrInvalidString             ErrorCode = "INVALID_STRING"
	ErrInvalidRegularExpression  ErrorCode = "INVALID_REGULAR_EXPRESSION"
	ErrMalformedTemplateString   ErrorCode = "MALFORMED_TEMPLATE_STRING"
	ErrMalformedOpenTag          ErrorCode = "MALFORMED_OPEN_TAG"
	ErrMalformedCloseTag         ErrorCode = "MALFORMED_CLOSE_TAG"
	ErrMalformedPlaceholder      ErrorCode = "MALFORMED_PLACEHOLDER"
	ErrMalformedExpression       ErrorCode = "MALFORMED_EXPRESSION"
	ErrIllegalAttributeValue     ErrorCode = "ILLEGAL_ATTRIBUTE_VALUE"
	ErrIllegalAttributeArgument  ErrorCode = "ILLEGAL_ATTRIBUTE_ARGUMENT"
	ErrDuplicateTagArgument      ErrorCode = "DUPLICATE_TAG_ARGUMENT"
	ErrDuplicateAttrArgument     ErrorCode = "DUPLICATE_ATTRIBUTE_ARGUMENT"
	ErrDuplicateShorthandID      ErrorCode = "DUPLICATE_SHORTHAND_ID"
	ErrUnclosedAttributeGroup    ErrorCode = "UNCLOSED_ATTRIBUTE_GROUP"
	ErrBadIndentation            ErrorCode = "BAD_INDENTATION"
	ErrIllegalLineStart          ErrorCode = "ILLEGAL_LINE_START"
	ErrInconsistentCommas        ErrorCode = "INCONSISTENT_ATTRIBUTE_COMMAS"
	ErrMismatchedClosingTag      ErrorCode = "MISMATCHED_CLOSING_TAG"
	ErrUnmatchedClosingTag       ErrorCode = "UNMATCHED_CLOSING_TAG"
	ErrMissingEndTag             ErrorCode = "MISSING_END_TAG"
	ErrInvalidCodeAfterSemicolon ErrorCode = "INVALID_CODE_AFTER_SEMICOLON"
)

// ScanError is the single latched authoring error of a parse.
type ScanError struct {
	Code     ErrorCode
	Message  string
	Range    source.Range
	Filename string
	Location source.Location // Resolved start of Range
}

// Error returns "file:line:col: CODE: message".
func (e *ScanError) Error() string {
	loc := e.Location.String()
	if e.Filename != "" {
		loc = e.Filename + ":" + loc
	}
	return fmt.Sprintf("%s: %s: %s", loc, e.Code, e.Message)
}

// Snippet renders the offending line with a caret under the error start, in
// the style of rustc and clang diagnostics.
func (e *ScanError) Snippet(src *source.Source) string {
	if src == nil || e.Location.Line == 0 {
		return ""
	}
	li := src.Lines()
	if e.Location.Line > li.LineCount() {
		return ""
	}
	line := src.Read(li.LineRange(src.Text, e.Location.Line))

	var b strings.Builder
	if e.Filename != "" {
		fmt.Fprintf(&b, "  --> %s:%d:%d\n", e.Filename, e.Location.Line, e.Location.Column)
	} else {
		fmt.Fprintf(&b, "  --> %d:%d\n", e.Location.Line, e.Location.Column)
	}
	b.WriteString("   |\n")
	fmt.Fprintf(&b, "%2d | %s\n", e.Location.Line, line)
	b.WriteString("   | ")
	if e.Location.Column > 0 && e.Location.Column <= len(line)+1 {
		b.WriteString(strings.Repeat(" ", e.Location.Column-1) + "^")
	}
	return b.String()
}

// Warning is a non-fatal diagnostic; scanning continues normally.
type Warning struct {
	Code     ErrorCode
	Message  string
	Range    source.Range
	Location source.Location
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: warning %s: %s", w.Location, w.Code, w.Message)
}
