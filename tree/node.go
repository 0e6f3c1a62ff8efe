// Package tree shapes a match trace into the final syntax tree by
// applying each element's reflection policy: omitted sub-matches never
// appear, named sub-matches become wrapped nodes, flattened sub-matches
// contribute their children in place.
package tree

import (
	"strings"

	"github.com/dhamidi/fern/grammar"
)

// Node is one syntax tree node. Name is empty for structurally
// transparent nodes and anonymous leaves. A parse result is owned solely
// by the caller that requested it.
type Node struct {
	Name     string
	Span     grammar.Span
	Children []*Node
	Leaf     bool
	Value    string
}

func (n *Node) AddChild(child *Node) {
	if child != nil {
		n.Children = append(n.Children, child)
	}
}

// FirstChild returns the first direct child with the given name.
func (n *Node) FirstChild(name string) *Node {
	for _, child := range n.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// ChildrenNamed returns all direct children with the given name.
func (n *Node) ChildrenNamed(name string) []*Node {
	var result []*Node
	for _, child := range n.Children {
		if child.Name == name {
			result = append(result, child)
		}
	}
	return result
}

// Text concatenates the matched text of all descendant leaves.
func (n *Node) Text() string {
	if n.Leaf {
		return n.Value
	}
	var sb strings.Builder
	for _, child := range n.Children {
		sb.WriteString(child.Text())
	}
	return sb.String()
}

func (n *Node) String() string {
	return n.stringIndent(0, false)
}

func (n *Node) StringWithPositions() string {
	return n.stringIndent(0, true)
}

func (n *Node) stringIndent(indent int, showPositions bool) string {
	prefix := strings.Repeat("  ", indent)

	name := n.Name
	if name == "" {
		name = "(anon)"
	}
	result := prefix + name
	if n.Leaf {
		result += " " + quoteValue(n.Value)
	}
	if showPositions {
		result += " [" + n.Span.Start.String() + "-" + n.Span.End.String() + "]"
	}
	result += "\n"

	for _, child := range n.Children {
		result += child.stringIndent(indent+1, showPositions)
	}
	return result
}

func quoteValue(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return "\"" + s + "\""
}
