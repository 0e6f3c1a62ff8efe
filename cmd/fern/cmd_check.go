package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dhamidi/fern/loader"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <grammar.fern>...",
		Short: "Compile grammar files and report diagnostics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loader.Load(args...)
			if err != nil {
				return err
			}
			fmt.Printf("ok: %d block(s), %d rule(s), start %s\n",
				len(g.Blocks), len(g.Rules), g.StartName)
			return nil
		},
	}
}
