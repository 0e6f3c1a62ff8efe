package format

import (
	"io"

	"github.com/dhamidi/fern/tree"
)

// TreeTextEncoder writes the indented text form of a syntax tree.
type TreeTextEncoder struct {
	w             io.Writer
	withPositions bool
	node          *tree.Node
}

func NewTreeTextEncoder(w io.Writer, withPositions bool) *TreeTextEncoder {
	return &TreeTextEncoder{w: w, withPositions: withPositions}
}

func (e *TreeTextEncoder) Encode(node *tree.Node) error {
	e.node = node
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *TreeTextEncoder) MarshalText() ([]byte, error) {
	if e.withPositions {
		return []byte(e.node.StringWithPositions()), nil
	}
	return []byte(e.node.String()), nil
}
