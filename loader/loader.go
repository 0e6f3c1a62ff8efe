// Package loader reads fern grammar files from disk and compiles them
// into one grammar model. Blocks from all files share a single
// namespace, so a "+ use" directive resolves across file boundaries by
// block name.
package loader

import (
	"fmt"
	"os"

	"github.com/dhamidi/fern/grammar"
	"github.com/dhamidi/fern/parser"
)

// Load reads and compiles one or more grammar files. Duplicate block
// names across files are duplicate-definition compile errors, like
// duplicates within one file.
func Load(paths ...string) (*grammar.Grammar, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no grammar files given")
	}

	sources := make([]parser.Source, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read grammar: %w", err)
		}
		sources = append(sources, parser.Source{Name: path, Data: data})
	}
	return parser.Compile(sources...)
}
