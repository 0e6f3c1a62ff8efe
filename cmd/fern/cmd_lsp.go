package main

import (
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/fern/langserver"
)

func newLSPCmd() *cobra.Command {
	var verbosity int

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		RunE: func(cmd *cobra.Command, args []string) error {
			commonlog.Configure(verbosity, nil)
			server := langserver.New(version)
			return server.RunStdio()
		},
	}

	cmd.Flags().IntVar(&verbosity, "verbosity", 0, "log verbosity (0 = quiet)")

	return cmd
}
