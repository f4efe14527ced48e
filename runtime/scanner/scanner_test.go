package scanner

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// summarize renders events as "kind:value", skipping openTagName. Errors
// render as "error:CODE".
func summarize(events []Event) []string {
	var out []string
	for _, ev := range events {
		switch ev.Kind {
		case EventOpenTagName:
			continue
		case EventError:
			out = append(out, "error:"+string(ev.Err.Code))
		default:
			out = append(out, ev.Kind.String()+":"+ev.Value)
		}
	}
	return out
}

type scanCase struct {
	name  string
	input string
	opts  []Option
	want  []string
}

func runScanCases(t *testing.T, tests []scanCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.input, tt.opts...)
			if diff := cmp.Diff(tt.want, summarize(res.Events)); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDocumentBasics(t *testing.T) {
	runScanCases(t, []scanCase{
		{
			name:  "html element with text",
			input: `<div>hi</div>`,
			want:  []string{"openTag:div", "text:hi", "closeTag:div"},
		},
		{
			name:  "concise nesting with text line",
			input: "div\n  span\n    - hi",
			want: []string{
				"openTag:div", "openTag:span", "text:hi",
				"closeTag:span", "closeTag:div",
			},
		},
		{
			name:  "void element closes itself",
			input: `<div><img src="a.png"></div>`,
			want: []string{
				"openTag:div", "openTag:img", "closeTag:img", "closeTag:div",
			},
		},
		{
			name:  "self-closed element",
			input: `<foo/>`,
			want:  []string{"openTag:foo", "closeTag:foo"},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "blank lines only",
			input: "\n\n  \n",
			want:  nil,
		},
		{
			name:  "byte order mark is skipped",
			input: "\uFEFFdiv",
			want:  []string{"openTag:div", "closeTag:div"},
		},
		{
			name:  "crlf line endings",
			input: "div\r\n  span\r\n",
			want:  []string{"openTag:div", "openTag:span", "closeTag:span", "closeTag:div"},
		},
		{
			name:  "concise siblings",
			input: "ul\n  li\n  li",
			want: []string{
				"openTag:ul", "openTag:li", "closeTag:li",
				"openTag:li", "closeTag:li", "closeTag:ul",
			},
		},
		{
			name:  "mixed line inside concise parent",
			input: "div\n  <span>x</span>",
			want: []string{
				"openTag:div", "openTag:span", "text:x", "closeTag:span", "closeTag:div",
			},
		},
		{
			name:  "optional end tags close at the end of a mixed line",
			input: "ul\n  <li>a\n  <li>b\nspan",
			want: []string{
				"openTag:ul", "openTag:li", "text:a", "closeTag:li",
				"openTag:li", "text:b", "closeTag:li", "closeTag:ul",
				"openTag:span", "closeTag:span",
			},
		},
		{
			name:  "html element spanning lines from a concise line",
			input: "<div>\nhi\n</div>\nspan",
			want: []string{
				"openTag:div", "text:\nhi\n", "closeTag:div",
				"openTag:span", "closeTag:span",
			},
		},
	})
}

func TestMarkupConstructs(t *testing.T) {
	runScanCases(t, []scanCase{
		{
			name:  "html comment",
			input: `<!-- hi -->`,
			want:  []string{"comment: hi "},
		},
		{
			name:  "cdata",
			input: `<![CDATA[x<y]]>`,
			want:  []string{"cdata:x<y"},
		},
		{
			name:  "doctype",
			input: `<!DOCTYPE html>`,
			want:  []string{"documentType:DOCTYPE html"},
		},
		{
			name:  "declaration",
			input: `<?xml version="1.0"?>`,
			want:  []string{`declaration:xml version="1.0"`},
		},
		{
			name:  "scriptlet",
			input: `<% foo() %>`,
			want:  []string{"scriptlet: foo() "},
		},
		{
			name:  "unterminated comment",
			input: `<!-- hi`,
			want:  []string{"error:MALFORMED_COMMENT"},
		},
		{
			name:  "unterminated cdata",
			input: `<![CDATA[x`,
			want:  []string{"error:MALFORMED_CDATA"},
		},
		{
			name:  "unterminated declaration",
			input: `<?xml`,
			want:  []string{"error:MALFORMED_DECLARATION"},
		},
		{
			name:  "unterminated scriptlet",
			input: `<% foo()`,
			want:  []string{"error:MALFORMED_SCRIPTLET"},
		},
		{
			name:  "lone angle bracket is text",
			input: `<p>a < b</p>`,
			want:  []string{"openTag:p", "text:a < b", "closeTag:p"},
		},
	})
}

func TestPlaceholders(t *testing.T) {
	runScanCases(t, []scanCase{
		{
			name:  "escaped placeholder in text",
			input: `<p>Hello ${name}!</p>`,
			want: []string{
				"openTag:p", "text:Hello ", "placeholder:name", "text:!", "closeTag:p",
			},
		},
		{
			name:  "unescaped placeholder",
			input: `<p>$!{html}</p>`,
			want:  []string{"openTag:p", "placeholder:html", "closeTag:p"},
		},
		{
			name:  "placeholder with nested braces",
			input: `<p>${ {a: 1}.a }</p>`,
			want:  []string{"openTag:p", "placeholder: {a: 1}.a ", "closeTag:p"},
		},
		{
			name:  "placeholder containing a string with a brace",
			input: `<p>${"}"}</p>`,
			want:  []string{"openTag:p", `placeholder:"}"`, "closeTag:p"},
		},
		{
			name:  "backslash escapes the placeholder",
			input: `<p>\${x}</p>`,
			want:  []string{"openTag:p", "text:${x}", "closeTag:p"},
		},
		{
			name:  "double backslash keeps one and scans the placeholder",
			input: `<p>\\${x}</p>`,
			want:  []string{"openTag:p", `text:\`, "placeholder:x", "closeTag:p"},
		},
		{
			name:  "ignored placeholders are text",
			input: `<p>${x}</p>`,
			opts:  []Option{WithIgnorePlaceholders()},
			want:  []string{"openTag:p", "text:${x}", "closeTag:p"},
		},
		{
			name:  "unterminated placeholder",
			input: `<p>${x`,
			want:  []string{"openTag:p", "error:MALFORMED_PLACEHOLDER"},
		},
		{
			name:  "placeholder in a concise text line",
			input: "p -- Hello ${name}",
			want: []string{
				"openTag:p", "text:Hello ", "placeholder:name", "closeTag:p",
			},
		},
	})
}

func TestPlaceholderEscapeFlag(t *testing.T) {
	res := Parse(`<p>${a}$!{b}</p>`)
	require.NoError(t, res.Err())

	var escapes []bool
	for _, ev := range res.Events {
		if ev.Kind == EventPlaceholder {
			escapes = append(escapes, ev.Escape)
		}
	}
	assert.Equal(t, []bool{true, false}, escapes)
}

func TestInlineScripts(t *testing.T) {
	runScanCases(t, []scanCase{
		{
			name:  "line script",
			input: "$ x = 1\ndiv",
			want:  []string{"scriptlet:x = 1", "openTag:div", "closeTag:div"},
		},
		{
			name:  "line script continues after a trailing operator",
			input: "$ x = 1 +\n  2",
			want:  []string{"scriptlet:x = 1 +\n  2"},
		},
		{
			name:  "line script continues on a leading operator",
			input: "$ x = a\n  || b",
			want:  []string{"scriptlet:x = a\n  || b"},
		},
		{
			name:  "block script",
			input: "$ {\n  a()\n}",
			want:  []string{"scriptlet:\n  a()\n"},
		},
		{
			name:  "statement followed by a comment",
			input: "$ x(); // done",
			want:  []string{"scriptlet:x()", "comment: done"},
		},
		{
			name:  "statement followed by a block comment",
			input: "$ x(); /* done */",
			want:  []string{"scriptlet:x()", "comment: done "},
		},
		{
			name:  "unterminated block script",
			input: "div\n  $ {",
			want:  []string{"openTag:div", "error:MALFORMED_SCRIPTLET"},
		},
		{
			name:  "code after the statement",
			input: "$ x(); y()",
			want:  []string{"scriptlet:x()", "error:INVALID_CODE_AFTER_SEMICOLON"},
		},
		{
			name:  "code after the statement under legacy compatibility",
			input: "$ x(); y()",
			opts:  []Option{WithLegacyCompatibility()},
			want:  []string{"scriptlet:x()"},
		},
		{
			name:  "inline script in html content",
			input: "<div>\n  $ x()\n</div>",
			want: []string{
				"openTag:div", "text:\n  ", "scriptlet:x()", "text:\n", "closeTag:div",
			},
		},
	})
}

func TestInlineScriptFlags(t *testing.T) {
	res := Parse("$ {\n  a()\n}\n$ b()")
	require.NoError(t, res.Err())
	require.Len(t, res.Events, 2)

	assert.True(t, res.Events[0].Line)
	assert.True(t, res.Events[0].Block)
	assert.True(t, res.Events[1].Line)
	assert.False(t, res.Events[1].Block)
}

func TestConciseComments(t *testing.T) {
	runScanCases(t, []scanCase{
		{
			name:  "line comment",
			input: "// note\ndiv",
			want:  []string{"comment: note", "openTag:div", "closeTag:div"},
		},
		{
			name:  "block comment",
			input: "/* a\n b */\ndiv",
			want:  []string{"comment: a\n b ", "openTag:div", "closeTag:div"},
		},
		{
			name:  "comment lines ignore indentation",
			input: "div\n// note\n  span",
			want: []string{
				"openTag:div", "comment: note", "openTag:span", "closeTag:span", "closeTag:div",
			},
		},
	})
}

func TestConciseTextBlocks(t *testing.T) {
	runScanCases(t, []scanCase{
		{
			name:  "single line",
			input: "-- hello <b>world</b>",
			want: []string{
				"text:hello ", "openTag:b", "text:world", "closeTag:b",
			},
		},
		{
			name:  "delimited block",
			input: "div\n  --\n  hello\n  world\n  --",
			want: []string{
				"openTag:div", "text:hello\n", "text:world", "closeTag:div",
			},
		},
		{
			name:  "delimited block ended by a dedent",
			input: "div\n  --\n  hello\nspan",
			want: []string{
				"openTag:div", "text:hello", "closeTag:div", "openTag:span", "closeTag:span",
			},
		},
		{
			name:  "tag body on the same line",
			input: "p -- Hi",
			want:  []string{"openTag:p", "text:Hi", "closeTag:p"},
		},
		{
			name:  "delimited tag body",
			input: "p --\n  Hi\n--",
			want:  []string{"openTag:p", "text:  Hi", "closeTag:p"},
		},
		{
			name:  "markup left open in a single line block",
			input: "- <div>x",
			want:  []string{"openTag:div", "text:x", "error:MISSING_END_TAG"},
		},
		{
			name:  "dashes glued to text",
			input: "--hello",
			want:  []string{"error:ILLEGAL_LINE_START"},
		},
	})
}

func TestIndentation(t *testing.T) {
	runScanCases(t, []scanCase{
		{
			name:  "dedent to an inconsistent column",
			input: "div\n  span\n a",
			want:  []string{"openTag:div", "openTag:span", "closeTag:span", "error:BAD_INDENTATION"},
		},
		{
			name:  "indented first line",
			input: "  div",
			want:  []string{"error:BAD_INDENTATION"},
		},
		{
			name:  "nested content under a void element",
			input: "img\n  span",
			want:  []string{"openTag:img", "closeTag:img", "error:BAD_INDENTATION"},
		},
		{
			name:  "sibling with different indentation",
			input: "div\n  a\n    b\n   c",
			want: []string{
				"openTag:div", "openTag:a", "openTag:b", "closeTag:b",
				"error:BAD_INDENTATION",
			},
		},
		{
			name:  "tabs as indentation",
			input: "div\n\tspan",
			want:  []string{"openTag:div", "openTag:span", "closeTag:span", "closeTag:div"},
		},
	})
}

func TestIllegalLineStarts(t *testing.T) {
	for _, start := range []string{">", ")", "]", "}", ",", "=", ";", "'", "!", "?", "%", "&", "*", "+", "|", "~", "^"} {
		t.Run(start, func(t *testing.T) {
			res := Parse(start + " x")
			require.Error(t, res.Err())
			assert.Equal(t, ErrIllegalLineStart, res.Errors[0].Code)
		})
	}
}

func TestNonHTMLBodyRejectsTagLines(t *testing.T) {
	res := Parse("script\n  foo", WithBodyMode(StandardBodyMode))
	require.Error(t, res.Err())
	assert.Equal(t, ErrIllegalLineStart, res.Errors[0].Code)

	res = Parse("script\n  -- foo()", WithBodyMode(StandardBodyMode))
	require.NoError(t, res.Err())
	assert.Equal(t, []string{"openTag:script", "text:foo()", "closeTag:script"}, summarize(res.Events))
}

func TestBodyModes(t *testing.T) {
	runScanCases(t, []scanCase{
		{
			name:  "script body skips strings",
			input: `<script>if (a < b) { x = "</div>" }</script>`,
			opts:  []Option{WithBodyMode(StandardBodyMode)},
			want: []string{
				"openTag:script", `text:if (a < b) { x = "</div>" }`, "closeTag:script",
			},
		},
		{
			name:  "script body skips comments",
			input: "<script>// </script>\n</script>",
			opts:  []Option{WithBodyMode(StandardBodyMode)},
			want: []string{
				"openTag:script", "text:// </script>\n", "closeTag:script",
			},
		},
		{
			name:  "parsed text keeps placeholders",
			input: `<title>${t} <b></title>`,
			opts:  []Option{WithBodyMode(StandardBodyMode)},
			want: []string{
				"openTag:title", "placeholder:t", "text: <b>", "closeTag:title",
			},
		},
		{
			name:  "static text",
			input: `<xmp>${t} <b></xmp>`,
			opts:  []Option{WithBodyMode(StandardBodyMode)},
			want:  []string{"openTag:xmp", "text:${t} <b>", "closeTag:xmp"},
		},
		{
			name:  "default mode scans markup",
			input: `<script><b></b></script>`,
			want: []string{
				"openTag:script", "openTag:b", "closeTag:b", "closeTag:script",
			},
		},
	})
}

func TestHandlerChoosesBodyMode(t *testing.T) {
	p := New()
	var got []Event
	err := p.Parse(`<markdown>${x} <b></markdown>`, HandlerFunc(func(ev *Event) {
		got = append(got, *ev)
		if ev.Kind == EventOpenTag && ev.Tag.Name == "markdown" {
			p.EnterStaticTextContent()
		}
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"openTag:markdown", "text:${x} <b>", "closeTag:markdown"}, summarize(got))
	assert.Equal(t, BodyStaticText, got[1].Tag.BodyMode)
}

func TestEnterContentOutsideHandlerPanics(t *testing.T) {
	p := New()
	assert.Panics(t, func() { p.EnterScriptContent() })
}

func TestStrayGroupClosers(t *testing.T) {
	runScanCases(t, []scanCase{
		{
			name:  "placeholder",
			input: `<div>${ a) }</div>`,
			want:  []string{"openTag:div", "error:MALFORMED_PLACEHOLDER"},
		},
		{
			name:  "scriptlet",
			input: `<% if (a)) { %>`,
			want:  []string{"error:MALFORMED_SCRIPTLET"},
		},
		{
			name:  "mismatched bracket in a scriptlet",
			input: `<% f(] %>`,
			want:  []string{"error:MALFORMED_SCRIPTLET"},
		},
	})

	for _, input := range []string{"${)", "<%]$", "<p>${]", "$ x)"} {
		t.Run(input, func(t *testing.T) {
			var res *Result
			require.NotPanics(t, func() { res = Parse(input) })
			require.Error(t, res.Err())
		})
	}
}

func TestClosingTagErrors(t *testing.T) {
	runScanCases(t, []scanCase{
		{
			name:  "different element open",
			input: "<p>one</div>",
			want:  []string{"openTag:p", "text:one", "error:MISMATCHED_CLOSING_TAG"},
		},
		{
			name:  "nothing open",
			input: "</a>",
			want:  []string{"error:UNMATCHED_CLOSING_TAG"},
		},
		{
			name:  "concise element cannot be closed by markup",
			input: "div\n  </div>",
			want:  []string{"openTag:div", "error:UNMATCHED_CLOSING_TAG"},
		},
	})
}

func TestErrorLatches(t *testing.T) {
	res := Parse("</a>\n</b>")
	require.Len(t, res.Errors, 1)
	assert.Equal(t, ErrUnmatchedClosingTag, res.Errors[0].Code)

	last := res.Events[len(res.Events)-1]
	assert.Equal(t, EventError, last.Kind)
	for _, ev := range res.Events[:len(res.Events)-1] {
		assert.NotEqual(t, EventError, ev.Kind)
	}
}

func TestErrorLocation(t *testing.T) {
	res := Parse("div\n  span\n a", WithFilename("page.marko"))
	require.Error(t, res.Err())

	e := res.Errors[0]
	assert.Equal(t, 3, e.Location.Line)
	assert.Equal(t, 1, e.Location.Column)
	assert.True(t, strings.HasPrefix(e.Error(), "page.marko:3:1: BAD_INDENTATION: "), e.Error())

	snippet := e.Snippet(res.Source)
	assert.Contains(t, snippet, "page.marko:3:1")
	assert.Contains(t, snippet, " a")
}

func TestTelemetry(t *testing.T) {
	res := Parse("div\n  span -- hi", WithTelemetryTiming())
	require.NoError(t, res.Err())
	require.NotNil(t, res.Telemetry)

	assert.Equal(t, len(res.Events), res.Telemetry.EventCount)
	assert.Equal(t, 0, res.Telemetry.ErrorCount)
	assert.Equal(t, 3, res.Telemetry.MaxBlockDepth)
	assert.Greater(t, res.Telemetry.StateTransitions, 0)
	assert.Greater(t, res.Telemetry.MaxStateDepth, 1)
}

func TestTelemetryOffByDefault(t *testing.T) {
	res := Parse("div")
	assert.Nil(t, res.Telemetry)
	assert.Nil(t, res.DebugEvents)
}

func TestDebugTracing(t *testing.T) {
	res := Parse("div", WithDebugDetailed(), WithLogger(DiscardLogger()))
	require.NotEmpty(t, res.DebugEvents)
	assert.Equal(t, "enter_conciseContent", res.DebugEvents[0].Event)

	var emitted []string
	for _, ev := range res.DebugEvents {
		if strings.HasPrefix(ev.Event, "emit_") {
			emitted = append(emitted, ev.Event)
		}
	}
	assert.Equal(t, []string{"emit_openTagName", "emit_openTag", "emit_closeTag"}, emitted)
}

func TestParserIsReusable(t *testing.T) {
	p := New()
	collect := func(src string) ([]string, error) {
		var got []Event
		err := p.Parse(src, HandlerFunc(func(ev *Event) { got = append(got, *ev) }))
		return summarize(got), err
	}

	_, err := collect("</x>")
	require.Error(t, err)

	got, err := collect("<a>b</a>")
	require.NoError(t, err)
	assert.Equal(t, []string{"openTag:a", "text:b", "closeTag:a"}, got)
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "openTag", StateOpenTag.String())
	assert.Equal(t, "expression", StateExpression.String())
	assert.Equal(t, "state(200)", StateID(200).String())
}
