package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alucardeht/spreadsheet-agent/internal/logger"
	"github.com/alucardeht/spreadsheet-agent/internal/mcp"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the database tools over MCP on stdin/stdout",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing the read-only
database tools. Logs go to stderr. No LLM API key is needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			env, err := openToolEnv(a.cfg)
			if err != nil {
				return err
			}
			defer env.Close()

			logger.Info("MCP server ready", "tools", len(env.registry.Names()), "db", a.cfg.DBPath)
			server := mcp.NewServer(env.registry, a.cfg.Agent.ToolTimeout)
			return server.ProcessStream(ctx, os.Stdin, os.Stdout)
		},
	}
}
