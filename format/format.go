// Package format renders syntax trees produced by a parse into external
// representations.
package format

import (
	"encoding"

	"github.com/dhamidi/fern/tree"
)

type Encoder interface {
	encoding.TextMarshaler
	Encode(node *tree.Node) error
}
