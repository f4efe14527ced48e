package tree

import (
	"strconv"
	"strings"

	"github.com/opal-lang/tagscan/runtime/scanner"
)

// String renders the subtree rooted at n, one node per line, children
// indented by two spaces. The document node itself prints nothing.
//
//	<div#main.card title="x">
//	  "hello "
//	  ${name}
func (n *Node) String() string {
	var b strings.Builder
	if n.Kind == NodeDocument {
		for _, c := range n.Children {
			c.dump(&b, 0)
		}
	} else {
		n.dump(&b, 0)
	}
	return b.String()
}

func (n *Node) dump(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(n.label())
	b.WriteByte('\n')
	for _, c := range n.Children {
		c.dump(b, depth+1)
	}
}

func (n *Node) label() string {
	switch n.Kind {
	case NodeElement:
		return openTagLabel(n.Tag)
	case NodeText:
		return strconv.Quote(n.Value)
	case NodeComment:
		switch {
		case n.Line:
			return "//" + n.Value
		case n.Block:
			return "/*" + n.Value + "*/"
		}
		return "<!--" + n.Value + "-->"
	case NodeCDATA:
		return "<![CDATA[" + n.Value + "]]>"
	case NodeDocumentType:
		return "<!" + n.Value + ">"
	case NodeDeclaration:
		return "<?" + n.Value + "?>"
	case NodeScriptlet:
		switch {
		case n.Block:
			return "$ {" + n.Value + "}"
		case n.Line:
			return "$ " + n.Value
		}
		return "<%" + n.Value + "%>"
	case NodePlaceholder:
		if n.Escape {
			return "${" + n.Value + "}"
		}
		return "$!{" + n.Value + "}"
	}
	return n.Kind.String()
}

func openTagLabel(t *scanner.Tag) string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(t.Name)
	if t.ShorthandID != nil {
		b.WriteString("#" + t.ShorthandID.Value)
	}
	for _, c := range t.ShorthandClasses {
		b.WriteString("." + c.Value)
	}
	if t.Var != nil {
		b.WriteString("/" + t.Var.Value)
	}
	if t.Args != nil {
		b.WriteString("(" + t.Args.Value + ")")
	}
	if t.Params != nil {
		b.WriteString("|" + t.Params.Value + "|")
	}
	for _, a := range t.Attributes {
		b.WriteByte(' ')
		b.WriteString(attributeLabel(a))
	}
	if t.SelfClosed {
		b.WriteString("/")
	}
	b.WriteByte('>')
	return b.String()
}

func attributeLabel(a scanner.Attribute) string {
	value := ""
	if a.Value != nil {
		value = a.Value.Value
	}
	switch {
	case a.Spread:
		return "..." + value
	case a.Default:
		return "=" + value
	}

	s := a.Name
	if a.Argument != nil {
		s += "(" + a.Argument.Value + ")"
	}
	switch {
	case a.Method:
		return s + "{" + value + "}"
	case a.Value == nil:
		return s
	case a.Bound:
		return s + ":=" + value
	}
	return s + "=" + value
}
