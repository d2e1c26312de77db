package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alucardeht/spreadsheet-agent/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s (MCP protocol %s)\n", version.ServerName, version.Version, version.ProtocolVersion)
			return err
		},
	}
}
