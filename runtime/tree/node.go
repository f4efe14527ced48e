package tree

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/opal-lang/tagscan/core/source"
	"github.com/opal-lang/tagscan/runtime/scanner"
)

// NodeKind represents the type of a tree node
type NodeKind uint8

const (
	NodeDocument NodeKind = iota
	NodeElement
	NodeText
	NodeComment
	NodeCDATA
	NodeDocumentType
	NodeDeclaration
	NodeScriptlet
	NodePlaceholder
)

var nodeKindNames = [...]string{
	NodeDocument:     "document",
	NodeElement:      "element",
	NodeText:         "text",
	NodeComment:      "comment",
	NodeCDATA:        "cdata",
	NodeDocumentType: "documentType",
	NodeDeclaration:  "declaration",
	NodeScriptlet:    "scriptlet",
	NodePlaceholder:  "placeholder",
}

func (k NodeKind) String() string {
	if int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return "unknown"
}

// Node is one element or leaf of the tree.
type Node struct {
	Kind  NodeKind
	Value string
	Range source.Range

	// Element only
	Tag      *scanner.Tag
	EndRange source.Range // Explicit close tag; empty when closed implicitly
	Closed   bool         // A closeTag was seen

	// Flags copied from the event
	Escape bool
	Line   bool
	Block  bool

	Parent   *Node
	Children []*Node
}

// Name returns the tag name of an element and "" for every other kind.
func (n *Node) Name() string {
	if n.Kind != NodeElement || n.Tag == nil {
		return ""
	}
	return n.Tag.Name
}

func (n *Node) appendChild(c *Node) {
	c.Parent = n
	n.Children = append(n.Children, c)
}

// Walk visits n and its descendants depth-first, in source order. Returning
// false from fn skips the children of that node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Elements returns the descendant elements named name.
func (n *Node) Elements(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		c.Walk(func(d *Node) bool {
			if d.Kind == NodeElement && d.Name() == name {
				out = append(out, d)
			}
			return true
		})
	}
	return out
}

// ElementNames returns the distinct descendant element names in first-seen
// order.
func (n *Node) ElementNames() []string {
	seen := map[string]bool{}
	var names []string
	for _, c := range n.Children {
		c.Walk(func(d *Node) bool {
			if name := d.Name(); name != "" && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
			return true
		})
	}
	return names
}

// Search returns the descendant elements whose names fuzzily match term,
// case-insensitively.
func (n *Node) Search(term string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		c.Walk(func(d *Node) bool {
			if name := d.Name(); name != "" && fuzzy.MatchFold(term, name) {
				out = append(out, d)
			}
			return true
		})
	}
	return out
}

// TextContent concatenates the text of n and its descendants.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.Walk(func(d *Node) bool {
		if d.Kind == NodeText || d.Kind == NodeCDATA {
			b.WriteString(d.Value)
		}
		return true
	})
	return b.String()
}
