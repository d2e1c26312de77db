// Package chat provides the interactive front ends for talking to an agent.
package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/alucardeht/spreadsheet-agent/internal/agent"
	"github.com/alucardeht/spreadsheet-agent/internal/logger"
)

var log = logger.ForComponent("chat")

// Conversation is one ongoing exchange with an agent.
type Conversation interface {
	Ask(ctx context.Context, question string) (*agent.Answer, error)
	Reset()
	Tools() []string
	AgentName() string
}

type RunnerConversation struct {
	runner *agent.Runner

	mu      sync.Mutex
	session *agent.Session
}

func NewRunnerConversation(runner *agent.Runner) *RunnerConversation {
	return &RunnerConversation{runner: runner, session: runner.NewSession()}
}

func (c *RunnerConversation) Ask(ctx context.Context, question string) (*agent.Answer, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	return c.runner.Ask(ctx, session, question)
}

func (c *RunnerConversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runner.DropSession(c.session.ID)
	c.session = c.runner.NewSession()
	log.Debug("session reset", "session_id", c.session.ID)
}

func (c *RunnerConversation) Tools() []string {
	return c.runner.ToolNames()
}

func (c *RunnerConversation) AgentName() string {
	return c.runner.Agent().Name
}

type command int

const (
	cmdNone command = iota
	cmdExit
	cmdReset
	cmdTools
	cmdHelp
	cmdUnknown
)

func parseCommand(line string) command {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return cmdNone
	}
	switch strings.ToLower(strings.Fields(line)[0]) {
	case "/exit", "/quit":
		return cmdExit
	case "/reset":
		return cmdReset
	case "/tools":
		return cmdTools
	case "/help":
		return cmdHelp
	default:
		return cmdUnknown
	}
}

const helpText = "Commands: /tools lists tools, /reset starts a new session, /exit or /quit leaves."

func toolsText(conv Conversation) string {
	names := conv.Tools()
	if len(names) == 0 {
		return "No tools available."
	}
	return "Tools: " + strings.Join(names, ", ")
}

func traceLines(answer *agent.Answer) []string {
	lines := make([]string, 0, len(answer.ToolCalls))
	for _, call := range answer.ToolCalls {
		status := "ok"
		if call.IsError {
			status = "error: " + call.Error
		}
		lines = append(lines, "↳ "+call.Name+" "+call.Arguments+" ("+status+")")
	}
	return lines
}
