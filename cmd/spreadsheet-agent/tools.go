package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alucardeht/spreadsheet-agent/internal/mcp"
	"github.com/alucardeht/spreadsheet-agent/pkg/protocol"
)

func newToolsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List or call the agent's database tools directly",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List available tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openToolEnv(a.cfg)
			if err != nil {
				return err
			}
			defer env.Close()

			described := mcp.DescribeTools(env.registry)
			return render(cmd.OutOrStdout(), a.output, described, func(w io.Writer) error {
				rows := make([][]string, len(described))
				for i, t := range described {
					rows[i] = []string{t.Name, t.Description}
				}
				return renderTable(w, []string{"tool", "description"}, rows)
			})
		},
	}

	call := &cobra.Command{
		Use:   "call <name> [json-arguments]",
		Short: "Call a tool with JSON arguments",
		Example: `  spreadsheet-agent tools call get_object_columns '{"object_name":"orders"}'
  spreadsheet-agent tools call run_readonly_query '{"sql":"SELECT COUNT(*) FROM orders"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openToolEnv(a.cfg)
			if err != nil {
				return err
			}
			defer env.Close()

			input := json.RawMessage(`{}`)
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("arguments must be a JSON object, got %q", args[1])
				}
				input = json.RawMessage(args[1])
			}

			if _, ok := env.registry.Get(args[0]); !ok {
				return fmt.Errorf("unknown tool %q", args[0])
			}

			result := mcp.CallTool(cmd.Context(), env.registry, protocol.ToolCall{Name: args[0], Arguments: input}, a.cfg.Agent.ToolTimeout)
			out := cmd.OutOrStdout()
			for _, c := range result.Content {
				fmt.Fprintln(out, c.Text)
			}
			if result.IsError {
				return fmt.Errorf("tool %s failed", args[0])
			}
			return nil
		},
	}

	addOutputFlag(list, a)
	cmd.AddCommand(list, call)
	return cmd
}
