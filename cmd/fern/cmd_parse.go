package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhamidi/fern/format"
	"github.com/dhamidi/fern/loader"
	"github.com/dhamidi/fern/match"
	"github.com/dhamidi/fern/tree"
)

func newParseCmd() *cobra.Command {
	var grammarFiles []string
	var startRule string
	var outputFormat string
	var includePositions bool
	var maxSteps int
	var memoize bool

	cmd := &cobra.Command{
		Use:   "parse --grammar <g.fern> <input>",
		Short: "Parse an input file with a compiled grammar and dump the syntax tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loader.Load(grammarFiles...)
			if err != nil {
				return err
			}

			input, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			opts := []match.Option{match.WithInputName(args[0])}
			if startRule != "" {
				opts = append(opts, match.WithStartRule(startRule))
			}
			if maxSteps > 0 {
				opts = append(opts, match.WithMaxSteps(maxSteps))
			}
			if memoize {
				opts = append(opts, match.WithMemoization())
			}

			result, err := match.Parse(cmd.Context(), g, string(input), opts...)
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}
			if !result.OK() {
				return fmt.Errorf("parse failed at %s", result.Failure)
			}

			node := tree.Build(result.Trace)

			var encoder format.Encoder
			switch outputFormat {
			case "json":
				encoder = format.NewTreeJSONEncoder(os.Stdout)
			case "text":
				encoder = format.NewTreeTextEncoder(os.Stdout, includePositions)
			default:
				return fmt.Errorf("unknown format: %s", outputFormat)
			}
			if err := encoder.Encode(node); err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&grammarFiles, "grammar", "g", nil, "grammar file (repeatable for multi-file grammars)")
	cmd.Flags().StringVarP(&startRule, "start", "s", "", "start rule as Block.Rule (default: the grammar's + start target)")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format (text, json)")
	cmd.Flags().BoolVar(&includePositions, "positions", false, "include node positions in text output")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "abort after this many rule invocations (0 = unlimited)")
	cmd.Flags().BoolVar(&memoize, "memoize", false, "cache intermediate match results")
	cmd.MarkFlagRequired("grammar")

	return cmd
}
