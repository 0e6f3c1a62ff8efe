package format

import (
	"encoding/json"
	"io"

	"github.com/dhamidi/fern/tree"
)

type TreeJSONEncoder struct {
	w    io.Writer
	node *tree.Node
}

func NewTreeJSONEncoder(w io.Writer) *TreeJSONEncoder {
	return &TreeJSONEncoder{w: w}
}

func (e *TreeJSONEncoder) Encode(node *tree.Node) error {
	e.node = node
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *TreeJSONEncoder) MarshalText() ([]byte, error) {
	return json.MarshalIndent(nodeToJSON(e.node), "", "  ")
}

type jsonNode struct {
	Name     string      `json:"name,omitempty"`
	Value    string      `json:"value,omitempty"`
	Span     *jsonSpan   `json:"span,omitempty"`
	Children []*jsonNode `json:"children,omitempty"`
}

type jsonSpan struct {
	Start jsonPosition `json:"start"`
	End   jsonPosition `json:"end"`
}

type jsonPosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func nodeToJSON(n *tree.Node) *jsonNode {
	jn := &jsonNode{Name: n.Name}

	if n.Leaf {
		jn.Value = n.Value
	}
	if n.Span.Start.Line != 0 || n.Span.End.Line != 0 {
		jn.Span = &jsonSpan{
			Start: jsonPosition{Line: n.Span.Start.Line, Column: n.Span.Start.Column},
			End:   jsonPosition{Line: n.Span.End.Line, Column: n.Span.End.Column},
		}
	}
	for _, child := range n.Children {
		jn.Children = append(jn.Children, nodeToJSON(child))
	}
	return jn
}
