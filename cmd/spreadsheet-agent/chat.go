package main

import (
	"github.com/spf13/cobra"

	"github.com/alucardeht/spreadsheet-agent/internal/agent"
	"github.com/alucardeht/spreadsheet-agent/internal/chat"
)

func newChatCmd(a *app) *cobra.Command {
	var (
		agentName string
		opts      chat.Options
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the agent interactively",
		Long: `Start an interactive conversation with the agent. On a terminal this opens a
full-screen chat; otherwise questions are read line by line from stdin.
Type /tools, /reset, /exit or /quit. Requires an LLM API key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openToolEnv(a.cfg)
			if err != nil {
				return err
			}
			defer env.Close()

			svc, err := newAgentService(a.cfg, env.registry)
			if err != nil {
				return err
			}
			runner, err := svc.Runner(agentName)
			if err != nil {
				return err
			}

			return chat.Run(cmd.Context(), chat.NewRunnerConversation(runner), opts)
		},
	}
	cmd.Flags().StringVar(&agentName, "agent", agent.RootAgentName, "agent to chat with: db_agent or spreadsheet_agent")
	cmd.Flags().BoolVar(&opts.ForcePlain, "plain", false, "use the line-oriented chat even on a terminal")
	cmd.Flags().BoolVar(&opts.ShowTrace, "trace", false, "print tool calls in the line-oriented chat")
	return cmd
}
