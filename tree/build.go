package tree

import (
	"github.com/dhamidi/fern/grammar"
	"github.com/dhamidi/fern/match"
)

// Build converts a successful match trace into the caller-owned syntax
// tree. The root is always a named node for the start rule, regardless
// of the policies below it.
func Build(t *match.Trace) *Node {
	root := buildNode(t)
	if root == nil {
		root = &Node{Span: span(t)}
	}
	if root.Name == "" {
		root.Name = effectiveName(t)
	}
	return root
}

func buildNode(t *match.Trace) *Node {
	if t.Leaf {
		node := &Node{Span: span(t), Leaf: true, Value: t.Text}
		if t.Reflect.Kind == grammar.ReflectName {
			node.Name = t.Reflect.Name
		}
		return node
	}

	node := &Node{Name: effectiveName(t), Span: span(t)}
	for _, child := range t.Children {
		appendChild(node, child)
	}
	return node
}

// appendChild applies the child's reflection policy while attaching it.
func appendChild(parent *Node, t *match.Trace) {
	switch t.Reflect.Kind {
	case grammar.ReflectOmit:
		// consumed input, contributes no node

	case grammar.ReflectFlatten:
		built := buildNode(t)
		if built.Leaf {
			parent.AddChild(built)
			return
		}
		parent.Children = append(parent.Children, built.Children...)

	case grammar.ReflectName:
		parent.AddChild(buildNode(t))

	default:
		// Default policy: rule references become named nodes, groups
		// are transparent, terminals become anonymous leaves.
		built := buildNode(t)
		if built.Leaf {
			parent.AddChild(built)
			return
		}
		if t.Rule == grammar.NoRule {
			parent.Children = append(parent.Children, built.Children...)
			return
		}
		if len(built.Children) == 0 && built.Name == "" {
			return
		}
		parent.AddChild(built)
	}
}

func effectiveName(t *match.Trace) string {
	switch t.Reflect.Kind {
	case grammar.ReflectName:
		if t.Reflect.Name != "" {
			return t.Reflect.Name
		}
		return t.DefaultName
	case grammar.ReflectDefault:
		return t.DefaultName
	}
	return ""
}

func span(t *match.Trace) grammar.Span {
	return grammar.Span{Start: t.Pos, End: t.EndPos}
}
