package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alucardeht/spreadsheet-agent/internal/agent"
	"github.com/alucardeht/spreadsheet-agent/internal/daemon"
	"github.com/alucardeht/spreadsheet-agent/internal/logger"
)

func newAskCmd(a *app) *cobra.Command {
	var (
		agentName string
		noDaemon  bool
		sessionID string
		showTrace bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask the agent one question",
		Long: `Ask the agent one question about the imported spreadsheets. When a daemon
started with "serve" is running, the question is sent to it; otherwise the
agent runs in this process. Requires an LLM API key.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			params := daemon.AskParams{Agent: agentName, SessionID: sessionID, Question: question}

			var (
				answer *agent.Answer
				err    error
			)
			if !noDaemon {
				answer, err = askDaemon(cmd.Context(), a, params)
			}
			if noDaemon || errors.Is(err, errNoDaemon) {
				answer, err = askInProcess(cmd.Context(), a, params)
			}
			if answer == nil {
				return err
			}

			if rerr := render(cmd.OutOrStdout(), a.output, answer, func(w io.Writer) error {
				if showTrace {
					for _, call := range answer.ToolCalls {
						fmt.Fprintf(w, "↳ %s %s (error=%t, %s)\n", call.Name, call.Arguments, call.IsError, call.Duration.Round(time.Millisecond))
					}
				}
				_, werr := fmt.Fprintln(w, answer.Text)
				return werr
			}); rerr != nil {
				return rerr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&agentName, "agent", agent.RootAgentName, "agent to ask: db_agent or spreadsheet_agent")
	cmd.Flags().BoolVar(&noDaemon, "no-daemon", false, "always run the agent in this process")
	cmd.Flags().StringVar(&sessionID, "session", "", "continue a daemon session")
	cmd.Flags().BoolVar(&showTrace, "trace", false, "print the tool calls the agent made")
	addOutputFlag(cmd, a)
	return cmd
}

var errNoDaemon = errors.New("no daemon running")

func askDaemon(ctx context.Context, a *app, params daemon.AskParams) (*agent.Answer, error) {
	client, err := daemon.Connect(ctx, a.cfg.SocketPath())
	if err != nil {
		logger.Debug("daemon not reachable, running in-process", "socket", a.cfg.SocketPath(), "error", err)
		return nil, errNoDaemon
	}
	defer client.Close()
	return client.Ask(ctx, params)
}

func askInProcess(ctx context.Context, a *app, params daemon.AskParams) (*agent.Answer, error) {
	if params.SessionID != "" {
		return nil, fmt.Errorf("--session needs a running daemon")
	}

	env, err := openToolEnv(a.cfg)
	if err != nil {
		return nil, err
	}
	defer env.Close()

	svc, err := newAgentService(a.cfg, env.registry)
	if err != nil {
		return nil, err
	}
	return svc.Ask(ctx, params.Agent, "", params.Question)
}
