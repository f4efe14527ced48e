package scanner

// ASCII lookup tables. Bytes >= 128 are never structural; callers check
// bounds inline:
//
//	if c < 128 && isIdentPart[c] { ... }
var (
	isSpace            [128]bool // Space and tab; newlines are dispatched separately
	isIdentPart        [128]bool // JS identifier characters: letters, digits, _ and $
	isTagNameStart     [128]bool // Characters that may follow '<' to open a tag
	isIllegalLineStart [128]bool // Characters that cannot begin a concise line
	isOperatorEnd      [128]bool // Characters that leave a binary expression open
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)
		letter := ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
		digit := '0' <= ch && ch <= '9'

		isSpace[i] = ch == ' ' || ch == '\t'
		isIdentPart[i] = letter || digit || ch == '_' || ch == '$'
		isTagNameStart[i] = letter || ch == '_' || ch == '@' || ch == ':' || ch == '#' || ch == '.'
	}

	for _, ch := range []byte(">)]},=;'\"`!?%&*+|~^") {
		isIllegalLineStart[ch] = true
	}
	for _, ch := range []byte("+-*/%=&|^<>!?:~.") {
		isOperatorEnd[ch] = true
	}
}

func spaceAt(s string, i int) bool {
	return i < len(s) && s[i] < 128 && isSpace[s[i]]
}

// eolAt reports whether a line ends at i ("\n" or "\r\n").
func eolAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	return s[i] == '\n' || (s[i] == '\r' && i+1 < len(s) && s[i+1] == '\n')
}

func identAt(s string, i int) bool {
	return i >= 0 && i < len(s) && (s[i] >= 128 || isIdentPart[s[i]])
}

// unaryKeywords leave an expression open when they are its last word.
var unaryKeywords = map[string]bool{
	"typeof":     true,
	"new":        true,
	"void":       true,
	"delete":     true,
	"await":      true,
	"in":         true,
	"instanceof": true,
	"keyof":      true,
	"as":         true,
	"satisfies":  true,
}

// binaryKeywords continue an expression when they follow whitespace and are
// themselves followed by whitespace.
var binaryKeywords = []string{"instanceof", "satisfies", "in", "as"}

// sameLineOperators continue an expression across horizontal whitespace.
// Longer operators come first so the first match wins.
var sameLineOperators = []string{
	"===", "!==", "**", "==", "!=", "=>", "<=", ">=", "&&", "||", "??", "<<", ">>",
	"+", "-", "*", "/", "%", "&", "|", "^", "?", ":", ".", "<", ">",
}

// nextLineOperators continue an expression onto the next line. Characters
// that begin concise lines (-, ., /, <) are excluded.
var nextLineOperators = []string{
	"===", "!==", "**", "==", "!=", "=>", ">=", "&&", "||", "??", ">>",
	"+", "*", "%", "&", "|", "^", "?", ":", ">",
}
