package scanner

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// firstTag returns the tag of the first openTag event.
func firstTag(t *testing.T, res *Result) *Tag {
	t.Helper()
	for _, ev := range res.Events {
		if ev.Kind == EventOpenTag {
			return ev.Tag
		}
	}
	t.Fatalf("no openTag event in %v", summarize(res.Events))
	return nil
}

// describeAttrs renders attributes compactly: name, flags in brackets, then
// "=value" and "(argument)" when present.
func describeAttrs(attrs []Attribute) []string {
	var out []string
	for _, a := range attrs {
		var b strings.Builder
		b.WriteString(a.Name)
		var flags []string
		for _, f := range []struct {
			on   bool
			name string
		}{
			{a.Default, "default"},
			{a.Spread, "spread"},
			{a.Method, "method"},
			{a.Bound, "bound"},
			{a.Literal, "literal"},
		} {
			if f.on {
				flags = append(flags, f.name)
			}
		}
		if len(flags) > 0 {
			fmt.Fprintf(&b, "[%s]", strings.Join(flags, ","))
		}
		if a.Argument != nil {
			fmt.Fprintf(&b, "(%s)", a.Argument.Value)
		}
		if a.Value != nil {
			fmt.Fprintf(&b, "=%s", a.Value.Value)
		}
		out = append(out, b.String())
	}
	return out
}

func TestAttributes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  []Option
		want  []string
	}{
		{
			name:  "html attributes",
			input: `<div a=1 b="x" c></div>`,
			want:  []string{"a=1", `b[literal]="x"`, "c"},
		},
		{
			name:  "whitespace around equals",
			input: `<div a = 1></div>`,
			want:  []string{"a=1"},
		},
		{
			name:  "attributes across lines",
			input: "<div\n  a=1\n  b=2></div>",
			want:  []string{"a=1", "b=2"},
		},
		{
			name:  "expression value with spaces inside groups",
			input: `<div a=foo(1, 2) b=[x, y]></div>`,
			want:  []string{"a=foo(1, 2)", "b=[x, y]"},
		},
		{
			name:  "binary operators continue across whitespace",
			input: `<div a=x + y b=c></div>`,
			want:  []string{"a=x + y", "b=c"},
		},
		{
			name:  "greater than ends an html value",
			input: `<div a=x>y></div>`,
			want:  []string{"a=x"},
		},
		{
			name:  "regex value containing a closing angle bracket",
			input: `<div a=/x>y/></div>`,
			want:  []string{"a=/x>y/"},
		},
		{
			name:  "division is not a regex",
			input: `<div a=(b / c) d=e></div>`,
			want:  []string{"a=(b / c)", "d=e"},
		},
		{
			name:  "template string value",
			input: "<div a=`x${y}z`></div>",
			want:  []string{"a=`x${y}z`"},
		},
		{
			name:  "string placeholders fold into concatenation",
			input: `<div title="a${b}c"></div>`,
			want:  []string{`title="a"+(b)+"c"`},
		},
		{
			name:  "leading string placeholder",
			input: `<div title="${b}!"></div>`,
			want:  []string{`title=""+(b)+"!"`},
		},
		{
			name:  "string placeholders left alone",
			input: `<div title="a${b}c"></div>`,
			opts:  []Option{WithIgnoreNonstandardStringPlaceholders()},
			want:  []string{`title[literal]="a${b}c"`},
		},
		{
			name:  "bound attribute",
			input: `<input value:=state.text>`,
			want:  []string{"value[bound]=state.text"},
		},
		{
			name:  "attribute argument",
			input: `<div on-click(handle, 1)></div>`,
			want:  []string{"on-click(handle, 1)"},
		},
		{
			name:  "method shorthand",
			input: `<div onClick(ev) { go(ev) }></div>`,
			want:  []string{"onClick[method](ev)= go(ev) "},
		},
		{
			name:  "default attribute",
			input: `<foo=bar></foo>`,
			want:  []string{"[default]=bar"},
		},
		{
			name:  "spread attribute",
			input: `<div ...rest a=1></div>`,
			want:  []string{"[spread]=rest", "a=1"},
		},
		{
			name:  "placeholder spread attribute",
			input: `<div ${attrs}></div>`,
			want:  []string{"[spread]=attrs"},
		},
		{
			name:  "commas between html attributes",
			input: `<div a=1, b=2 c=3></div>`,
			want:  []string{"a=1", "b=2", "c=3"},
		},
		{
			name:  "concise attributes",
			input: `div a=1 b="x"`,
			want:  []string{"a=1", `b[literal]="x"`},
		},
		{
			name:  "concise comma separated attributes",
			input: `div a=1, b=2, c=3`,
			want:  []string{"a=1", "b=2", "c=3"},
		},
		{
			name:  "concise attribute group across lines",
			input: "div [\n  a=1\n  b=2\n]",
			want:  []string{"a=1", "b=2"},
		},
		{
			name:  "concise value continued on the next line",
			input: "div a=x\n  + y",
			want:  []string{"a=x\n  + y"},
		},
		{
			name:  "concise value ends before a text body",
			input: "div a=x -- hi",
			want:  []string{"a=x"},
		},
		{
			name:  "attribute names with punctuation",
			input: `<div @click=go :class=c v-on:key=k></div>`,
			want:  []string{"@click=go", ":class=c", "v-on:key=k"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.input, tt.opts...)
			require.NoError(t, res.Err())
			tag := firstTag(t, res)
			if diff := cmp.Diff(tt.want, describeAttrs(tag.Attributes)); diff != "" {
				t.Errorf("attributes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLiteralValues(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`<a b="x"></a>`, "x"},
		{`<a b='it\'s'></a>`, "it's"},
		{`<a b="tab\there"></a>`, "tab\there"},
		{`<a b="é\x41"></a>`, "éA"},
		{`<a b="\u{1F600}"></a>`, "\U0001F600"},
		{`<a b=""></a>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := Parse(tt.input)
			require.NoError(t, res.Err())
			attrs := firstTag(t, res).Attributes
			require.Len(t, attrs, 1)
			assert.True(t, attrs[0].Literal)
			assert.Equal(t, tt.want, attrs[0].LiteralValue)
		})
	}
}

func TestNonLiteralStringValue(t *testing.T) {
	res := Parse(`<a b="x" + y></a>`)
	require.NoError(t, res.Err())
	attrs := firstTag(t, res).Attributes
	require.Len(t, attrs, 1)
	assert.False(t, attrs[0].Literal)
	assert.Equal(t, `"x" + y`, attrs[0].Value.Value)
}

func TestTagParts(t *testing.T) {
	t.Run("shorthands", func(t *testing.T) {
		res := Parse("div#main.a.b")
		require.NoError(t, res.Err())
		tag := firstTag(t, res)
		assert.Equal(t, "div", tag.Name)
		require.NotNil(t, tag.ShorthandID)
		assert.Equal(t, "main", tag.ShorthandID.Value)
		assert.Equal(t, []string{"a", "b"}, partValues(tag.ShorthandClasses))
	})

	t.Run("shorthand only", func(t *testing.T) {
		res := Parse(".card")
		require.NoError(t, res.Err())
		tag := firstTag(t, res)
		assert.Equal(t, "", tag.Name)
		assert.Equal(t, []string{"card"}, partValues(tag.ShorthandClasses))
	})

	t.Run("shorthand with placeholder", func(t *testing.T) {
		res := Parse("div.col-${n}")
		require.NoError(t, res.Err())
		assert.Equal(t, []string{"col-${n}"}, partValues(firstTag(t, res).ShorthandClasses))
	})

	t.Run("tag variable and default attribute", func(t *testing.T) {
		res := Parse(`<let/count=0/>`)
		require.NoError(t, res.Err())
		tag := firstTag(t, res)
		require.NotNil(t, tag.Var)
		assert.Equal(t, "count", tag.Var.Value)
		assert.True(t, tag.SelfClosed)
		assert.Equal(t, []string{"[default]=0"}, describeAttrs(tag.Attributes))
	})

	t.Run("destructured tag variable", func(t *testing.T) {
		res := Parse(`<const/{ a, b }=obj/>`)
		require.NoError(t, res.Err())
		assert.Equal(t, "{ a, b }", firstTag(t, res).Var.Value)
	})

	t.Run("tag arguments", func(t *testing.T) {
		res := Parse(`<if(x > 1)>yes</if>`)
		require.NoError(t, res.Err())
		tag := firstTag(t, res)
		require.NotNil(t, tag.Args)
		assert.Equal(t, "x > 1", tag.Args.Value)
		assert.Equal(t, []string{"openTag:if", "text:yes", "closeTag:if"}, summarize(res.Events))
	})

	t.Run("tag parameters", func(t *testing.T) {
		res := Parse(`<for|item, i| of=list></for>`)
		require.NoError(t, res.Err())
		tag := firstTag(t, res)
		require.NotNil(t, tag.Params)
		assert.Equal(t, "item, i", tag.Params.Value)
		assert.Equal(t, []string{"of=list"}, describeAttrs(tag.Attributes))
	})

	t.Run("tag parameters after whitespace", func(t *testing.T) {
		res := Parse("for |x| of=xs")
		require.NoError(t, res.Err())
		assert.Equal(t, "x", firstTag(t, res).Params.Value)
	})

	t.Run("dynamic tag name", func(t *testing.T) {
		res := Parse(`<${comp} a=1></>`)
		require.NoError(t, res.Err())
		tag := firstTag(t, res)
		assert.Equal(t, "${comp}", tag.Name)
		assert.Equal(t, "comp", tag.NameExpression)
	})

	t.Run("attribute group flag", func(t *testing.T) {
		res := Parse("div [a=1]")
		require.NoError(t, res.Err())
		assert.True(t, firstTag(t, res).WithinAttrGroup)
	})
}

func partValues(parts []Part) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p.Value)
	}
	return out
}

func TestOpenTagNameEvent(t *testing.T) {
	res := Parse(`<div class="a">x</div>`)
	require.NoError(t, res.Err())
	require.GreaterOrEqual(t, len(res.Events), 2)

	nameEv, openEv := res.Events[0], res.Events[1]
	assert.Equal(t, EventOpenTagName, nameEv.Kind)
	assert.Equal(t, "div", nameEv.Value)
	assert.Equal(t, EventOpenTag, openEv.Kind)
	assert.Same(t, nameEv.Tag, openEv.Tag)
	assert.Equal(t, 0, openEv.Range.Start)
	assert.Equal(t, len(`<div class="a">`), openEv.Range.End)
}

func TestTagRanges(t *testing.T) {
	src := `<div a="x"></div>`
	res := Parse(src)
	require.NoError(t, res.Err())
	tag := firstTag(t, res)

	assert.Equal(t, "div", res.Source.Read(tag.NameRange))
	require.Len(t, tag.Attributes, 1)
	a := tag.Attributes[0]
	assert.Equal(t, "a", res.Source.Read(a.NameRange))
	assert.Equal(t, `a="x"`, res.Source.Read(a.Range))
	assert.Equal(t, `"x"`, res.Source.Read(a.Value.Range))
}

func TestOpenTagErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  []Option
		want  ErrorCode
	}{
		{"unterminated html open tag", `<div a=1`, nil, ErrMalformedOpenTag},
		{"duplicate shorthand id", "div#a#b", nil, ErrDuplicateShorthandID},
		{"empty shorthand", "div#", nil, ErrMalformedOpenTag},
		{"duplicate tag arguments", `<if(a)(b)>`, nil, ErrDuplicateTagArgument},
		{"duplicate attribute arguments", `<div a(1)(2)>`, nil, ErrDuplicateAttrArgument},
		{"argument without attribute", `<div (x)>`, nil, ErrIllegalAttributeArgument},
		{"missing value", `<div a=>`, nil, ErrIllegalAttributeValue},
		{"missing concise value", "div a=\n", nil, ErrIllegalAttributeValue},
		{"second equals", `<div a=1 =2>`, nil, ErrIllegalAttributeValue},
		{"unclosed attribute group", "div [a=1", nil, ErrUnclosedAttributeGroup},
		{"nested attribute group", "div [a=1 [b=2]]", nil, ErrMalformedOpenTag},
		{"stray group close", "div a=1]", nil, ErrMalformedOpenTag},
		{"two name placeholders", `<${a}${b}>`, nil, ErrMalformedOpenTag},
		{"inconsistent commas", "div a=1, b=2 c=3", nil, ErrInconsistentCommas},
		{"code after semicolon", "div; span", nil, ErrInvalidCodeAfterSemicolon},
		{"body on a void element", "img -- text", nil, ErrMalformedOpenTag},
		{"unterminated parameters", "for|x", nil, ErrMalformedOpenTag},
		{"unterminated string", `<div a="x`, nil, ErrInvalidString},
		{"line break in string", "<div a=\"x\ny\">", nil, ErrInvalidString},
		{"line break in regex", "<div a=/x\ny/>", nil, ErrInvalidRegularExpression},
		{"unterminated template string", "<div a=`x", nil, ErrMalformedTemplateString},
		{"unbalanced group", `<div a=(1>`, nil, ErrMalformedOpenTag},
		{"mismatched group", `<div a=(1]>`, nil, ErrMalformedOpenTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.input, tt.opts...)
			require.Error(t, res.Err())
			assert.Equal(t, tt.want, res.Errors[0].Code, res.Errors[0].Message)
		})
	}
}

func TestLegacyCompatibilityWarnings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
		code  ErrorCode
	}{
		{
			name:  "inconsistent commas",
			input: "div a=1, b=2 c=3",
			want:  []string{"openTag:div", "closeTag:div"},
			code:  ErrInconsistentCommas,
		},
		{
			name:  "code after semicolon",
			input: "div; span\np",
			want:  []string{"openTag:div", "closeTag:div", "openTag:p", "closeTag:p"},
			code:  ErrInvalidCodeAfterSemicolon,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Parse(tt.input, WithLegacyCompatibility())
			require.NoError(t, res.Err())
			assert.Equal(t, tt.want, summarize(res.Events))
			require.Len(t, res.Warnings, 1)
			assert.Equal(t, tt.code, res.Warnings[0].Code)
		})
	}
}

func TestSemicolonEndsConciseTag(t *testing.T) {
	res := Parse("div; // trailing\n  span")
	require.NoError(t, res.Err())
	assert.Equal(t, []string{
		"openTag:div", "comment: trailing", "openTag:span", "closeTag:span", "closeTag:div",
	}, summarize(res.Events))
}

func TestCustomVoidElements(t *testing.T) {
	res := Parse(`<icon name="x"><b></b>`, WithVoidElements(func(name string) bool {
		return name == "icon"
	}))
	require.NoError(t, res.Err())
	assert.Equal(t, []string{
		"openTag:icon", "closeTag:icon", "openTag:b", "closeTag:b",
	}, summarize(res.Events))
	assert.True(t, firstTag(t, res).OpenTagOnly)
}
