package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/alucardeht/spreadsheet-agent/internal/config"
	"github.com/alucardeht/spreadsheet-agent/internal/tools"
)

var ErrMaxTurns = errors.New("agent stopped after reaching the maximum number of turns")

const (
	defaultMaxSessions = 256
	defaultSessionTTL  = time.Hour
)

type RunnerConfig struct {
	Model          string
	Temperature    float64
	MaxTurns       int
	ToolTimeout    time.Duration
	MaxResultChars int
	// MaxSessions caps the sessions kept per runner; the least recently
	// used one is evicted first.
	MaxSessions int
	// SessionTTL drops a session that has not been looked up for this long.
	SessionTTL time.Duration
}

func RunnerConfigFrom(cfg config.AgentConfig) RunnerConfig {
	return RunnerConfig{
		Model:          cfg.Model,
		Temperature:    cfg.Temperature,
		MaxTurns:       cfg.MaxTurns,
		ToolTimeout:    cfg.ToolTimeout,
		MaxResultChars: cfg.MaxResultChars,
		MaxSessions:    cfg.MaxSessions,
		SessionTTL:     cfg.SessionTTL,
	}
}

type Session struct {
	ID        string
	Agent     string
	CreatedAt time.Time

	mu      sync.Mutex
	history []Message
}

// History returns a copy of the conversation so far.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.history...)
}

type ToolTrace struct {
	Name      string        `json:"name" yaml:"name"`
	Arguments string        `json:"arguments" yaml:"arguments"`
	IsError   bool          `json:"is_error" yaml:"is_error"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

type Answer struct {
	SessionID string      `json:"session_id" yaml:"session_id"`
	Agent     string      `json:"agent" yaml:"agent"`
	Text      string      `json:"text" yaml:"text"`
	ToolCalls []ToolTrace `json:"tool_calls" yaml:"tool_calls"`
	Turns     int         `json:"turns" yaml:"turns"`
}

// Runner drives one agent's tool loop. Sub-agents are reachable through
// ask_<name> tools backed by their own runners.
type Runner struct {
	agent    *Agent
	model    Model
	registry *tools.Registry
	specs    []ToolSpec
	cfg      RunnerConfig

	sessions *expirable.LRU[string, *Session]
}

// NewRunner builds a runner whose tools are the agent's named tools taken
// from available, plus one delegation tool per sub-agent. Names missing
// from available are skipped with a warning.
func NewRunner(a *Agent, model Model, available *tools.Registry, cfg RunnerConfig) (*Runner, error) {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 8
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = defaultMaxSessions
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if a.Model != "" {
		cfg.Model = a.Model
	}

	registry, missing := available.Subset(a.Tools)
	for _, name := range missing {
		log.Warn("Tool not available for agent", "agent", a.Name, "tool", name)
	}

	for _, sub := range a.SubAgents {
		subRunner, err := NewRunner(sub, model, available, cfg)
		if err != nil {
			return nil, fmt.Errorf("sub-agent %s: %w", sub.Name, err)
		}
		if err := registry.Register(&DelegateTool{runner: subRunner}); err != nil {
			return nil, err
		}
	}

	r := &Runner{
		agent:    a,
		model:    model,
		registry: registry,
		cfg:      cfg,
		sessions: expirable.NewLRU[string, *Session](cfg.MaxSessions, nil, cfg.SessionTTL),
	}
	for _, tool := range registry.List() {
		r.specs = append(r.specs, ToolSpec{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Schema(),
		})
	}
	return r, nil
}

func (r *Runner) Agent() *Agent {
	return r.agent
}

func (r *Runner) ToolNames() []string {
	return r.registry.Names()
}

func (r *Runner) NewSession() *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Agent:     r.agent.Name,
		CreatedAt: time.Now(),
	}
	r.sessions.Add(s.ID, s)
	log.Debug("Created session", "agent", r.agent.Name, "session_id", s.ID)
	return s
}

// Session returns a session by id, or a new one when id is empty. A
// lookup restarts the session's idle timer.
func (r *Runner) Session(id string) (*Session, error) {
	if id == "" {
		return r.NewSession(), nil
	}
	s, ok := r.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %s not found or expired", id)
	}
	r.sessions.Add(id, s)
	return s, nil
}

func (r *Runner) DropSession(id string) {
	r.sessions.Remove(id)
}

// SessionCount reports how many sessions the runner currently keeps.
func (r *Runner) SessionCount() int {
	return r.sessions.Len()
}

// Ask adds question to the session and loops until the model answers
// without requesting tools. On ErrMaxTurns the partial answer is returned
// alongside the error and the session history is left unchanged.
func (r *Runner) Ask(ctx context.Context, s *Session, question string) (*Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append([]Message(nil), s.history...)
	history = append(history, Message{Role: RoleUser, Content: question})

	answer := &Answer{SessionID: s.ID, Agent: r.agent.Name, ToolCalls: []ToolTrace{}}
	log.Info("Agent received question", "agent", r.agent.Name, "session_id", s.ID)

	for turn := 1; turn <= r.cfg.MaxTurns; turn++ {
		answer.Turns = turn

		resp, err := r.model.Generate(ctx, Request{
			Model:       r.cfg.Model,
			System:      r.agent.Instruction,
			Messages:    history,
			Tools:       r.specs,
			Temperature: r.cfg.Temperature,
		})
		if err != nil {
			log.Error("Model call failed", "agent", r.agent.Name, "turn", turn, "error", err)
			return nil, fmt.Errorf("%s turn %d: %w", r.agent.Name, turn, err)
		}

		history = append(history, Message{
			Role:      RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		if len(resp.ToolCalls) == 0 {
			answer.Text = resp.Text
			s.history = history
			log.Info("Agent answered", "agent", r.agent.Name, "turns", turn, "tool_calls", len(answer.ToolCalls))
			return answer, nil
		}

		for _, call := range resp.ToolCalls {
			content, trace := r.runTool(ctx, call)
			answer.ToolCalls = append(answer.ToolCalls, trace)
			history = append(history, Message{
				Role:       RoleTool,
				Content:    content,
				ToolCallID: call.ID,
			})
		}
	}

	log.Warn("Agent reached max turns", "agent", r.agent.Name, "max_turns", r.cfg.MaxTurns)
	return answer, ErrMaxTurns
}

// runTool never fails: errors become {"error": "..."} payloads for the
// model to read.
func (r *Runner) runTool(ctx context.Context, call ToolCall) (string, ToolTrace) {
	trace := ToolTrace{Name: call.Name, Arguments: call.Arguments}
	start := time.Now()

	args := json.RawMessage(call.Arguments)
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	result, err := r.registry.ExecuteWithTimeout(ctx, call.Name, args, r.cfg.ToolTimeout)
	trace.Duration = time.Since(start)

	if err != nil {
		trace.IsError = true
		trace.Error = err.Error()
		log.Warn("Tool returned error", "agent", r.agent.Name, "tool", call.Name, "error", err)
		return errorPayload(err), trace
	}

	data, err := json.MarshalIndent(result, "", " ")
	if err != nil {
		trace.IsError = true
		trace.Error = err.Error()
		return errorPayload(err), trace
	}

	log.Debug("Tool succeeded", "agent", r.agent.Name, "tool", call.Name, "bytes", len(data))
	return tools.Truncate(string(data), r.cfg.MaxResultChars, tools.TruncateSmart), trace
}

func errorPayload(err error) string {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(data)
}

// DelegateTool lets a coordinating agent hand a request to a sub-agent.
// Each call runs in a fresh sub-agent session.
type DelegateTool struct {
	runner *Runner
}

type delegateRequest struct {
	Request string `json:"request"`
}

type DelegateResult struct {
	Agent     string `json:"agent"`
	Answer    string `json:"answer"`
	ToolCalls int    `json:"tool_calls"`
}

func (t *DelegateTool) Name() string {
	return delegateToolName(t.runner.agent)
}

func (t *DelegateTool) Title() string {
	return "Ask " + t.runner.agent.Name
}

func (t *DelegateTool) Description() string {
	return t.runner.agent.Description + " Send it a self-contained request in natural language."
}

func (t *DelegateTool) Annotations() map[string]bool {
	return tools.OpenWorldReadOnlyAnnotations()
}

func (t *DelegateTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"request": {
				"type": "string",
				"description": "What the agent should find out"
			}
		},
		"required": ["request"]
	}`)
}

func (t *DelegateTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var req delegateRequest
	if err := tools.DecodeArgs(input, &req); err != nil {
		return nil, err
	}
	if req.Request == "" {
		return nil, tools.NewInvalidParamsError("request is required")
	}

	session := t.runner.NewSession()
	defer t.runner.DropSession(session.ID)

	answer, err := t.runner.Ask(ctx, session, req.Request)
	if err != nil {
		return nil, err
	}
	return &DelegateResult{
		Agent:     answer.Agent,
		Answer:    answer.Text,
		ToolCalls: len(answer.ToolCalls),
	}, nil
}
