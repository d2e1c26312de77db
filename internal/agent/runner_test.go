package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alucardeht/spreadsheet-agent/internal/tools"
)

// scriptedModel replays responses in order and records each request.
type scriptedModel struct {
	mu        sync.Mutex
	responses []*Response
	requests  []Request
}

func (m *scriptedModel) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.responses) == 0 {
		return nil, errors.New("no scripted response left")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

type echoTool struct {
	name string
	fail error
}

func (e *echoTool) Name() string            { return e.name }
func (e *echoTool) Description() string     { return "echo" }
func (e *echoTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (e *echoTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	if e.fail != nil {
		return nil, e.fail
	}
	return map[string]string{"tables": "orders"}, nil
}

func testRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	if err := r.RegisterAll(
		&echoTool{name: "list_tables_and_views"},
		&echoTool{name: "get_object_columns", fail: errors.New("Object 'nope' not found.")},
	); err != nil {
		t.Fatal(err)
	}
	return r
}

func testConfig() RunnerConfig {
	return RunnerConfig{Model: "test-model", MaxTurns: 4, MaxResultChars: 4000}
}

func TestAskWithoutTools(t *testing.T) {
	model := &scriptedModel{responses: []*Response{{Text: "Hello."}}}
	runner, err := NewRunner(DBAgent(), model, testRegistry(t), testConfig())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	session := runner.NewSession()
	answer, err := runner.Ask(context.Background(), session, "hi")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Text != "Hello." || answer.Turns != 1 || len(answer.ToolCalls) != 0 {
		t.Errorf("unexpected answer %+v", answer)
	}
	if len(session.History()) != 2 {
		t.Errorf("expected user and assistant messages, got %d", len(session.History()))
	}
	if model.requests[0].System != DBAgent().Instruction || model.requests[0].Model != "test-model" {
		t.Errorf("unexpected request %+v", model.requests[0])
	}
}

func TestAskRunsToolsAndPassesErrors(t *testing.T) {
	model := &scriptedModel{responses: []*Response{
		{ToolCalls: []ToolCall{
			{ID: "c1", Name: "list_tables_and_views", Arguments: "{}"},
			{ID: "c2", Name: "get_object_columns", Arguments: `{"object_name":"nope"}`},
		}},
		{Text: "There is one table: orders."},
	}}
	runner, err := NewRunner(DBAgent(), model, testRegistry(t), testConfig())
	if err != nil {
		t.Fatal(err)
	}

	answer, err := runner.Ask(context.Background(), runner.NewSession(), "what tables exist?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Turns != 2 || len(answer.ToolCalls) != 2 {
		t.Fatalf("unexpected answer %+v", answer)
	}
	if answer.ToolCalls[0].IsError || !answer.ToolCalls[1].IsError {
		t.Errorf("unexpected error flags %+v", answer.ToolCalls)
	}

	second := model.requests[1].Messages
	var toolMsgs []Message
	for _, m := range second {
		if m.Role == RoleTool {
			toolMsgs = append(toolMsgs, m)
		}
	}
	if len(toolMsgs) != 2 {
		t.Fatalf("expected 2 tool messages, got %d", len(toolMsgs))
	}
	if !strings.Contains(toolMsgs[0].Content, "orders") || toolMsgs[0].ToolCallID != "c1" {
		t.Errorf("unexpected tool result %+v", toolMsgs[0])
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(toolMsgs[1].Content), &payload); err != nil {
		t.Fatalf("error payload is not JSON: %v", err)
	}
	if payload["error"] != "Object 'nope' not found." {
		t.Errorf("unexpected error payload %v", payload)
	}
}

func TestAskUnknownToolBecomesErrorPayload(t *testing.T) {
	model := &scriptedModel{responses: []*Response{
		{ToolCalls: []ToolCall{{ID: "c1", Name: "drop_everything"}}},
		{Text: "I cannot do that."},
	}}
	runner, _ := NewRunner(DBAgent(), model, testRegistry(t), testConfig())

	answer, err := runner.Ask(context.Background(), runner.NewSession(), "drop it")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !answer.ToolCalls[0].IsError {
		t.Error("expected unknown tool to be flagged as error")
	}
}

func TestAskStopsAtMaxTurns(t *testing.T) {
	loop := &Response{ToolCalls: []ToolCall{{ID: "c", Name: "list_tables_and_views", Arguments: "{}"}}}
	model := &scriptedModel{responses: []*Response{loop, loop, loop, loop, loop}}
	runner, _ := NewRunner(DBAgent(), model, testRegistry(t), testConfig())

	session := runner.NewSession()
	answer, err := runner.Ask(context.Background(), session, "loop")
	if !errors.Is(err, ErrMaxTurns) {
		t.Fatalf("expected ErrMaxTurns, got %v", err)
	}
	if answer.Turns != 4 {
		t.Errorf("expected 4 turns, got %d", answer.Turns)
	}
	if len(session.History()) != 0 {
		t.Error("history should be unchanged after max turns")
	}
}

func TestRootAgentDelegates(t *testing.T) {
	model := &scriptedModel{responses: []*Response{
		{ToolCalls: []ToolCall{{ID: "r1", Name: "ask_db_agent", Arguments: `{"request":"count orders"}`}}},
		{Text: "830 orders."},
		{Text: "You have 830 orders."},
	}}
	runner, err := NewRunner(RootAgent(), model, testRegistry(t), testConfig())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	names := runner.ToolNames()
	if len(names) != 1 || names[0] != "ask_db_agent" {
		t.Errorf("expected only ask_db_agent (list_imports unavailable), got %v", names)
	}

	answer, err := runner.Ask(context.Background(), runner.NewSession(), "how many orders?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Text != "You have 830 orders." || answer.Agent != RootAgentName {
		t.Errorf("unexpected answer %+v", answer)
	}
	if model.requests[1].System != DBAgent().Instruction {
		t.Error("second model call should come from db_agent")
	}
	if model.requests[1].Messages[0].Content != "count orders" {
		t.Errorf("delegated request not forwarded: %+v", model.requests[1].Messages)
	}
}

func TestSessionLookup(t *testing.T) {
	runner, _ := NewRunner(DBAgent(), &scriptedModel{}, testRegistry(t), testConfig())

	s, err := runner.Session("")
	if err != nil || s.ID == "" {
		t.Fatalf("expected new session, got %v %v", s, err)
	}
	again, err := runner.Session(s.ID)
	if err != nil || again != s {
		t.Errorf("expected same session back")
	}
	if _, err := runner.Session("missing"); err == nil {
		t.Error("expected error for unknown session")
	}
}

func TestLookup(t *testing.T) {
	a, err := Lookup("db_agent")
	if err != nil || a.Name != DBAgentName {
		t.Fatalf("Lookup: %v %v", a, err)
	}
	if _, err := Lookup("nope"); err == nil {
		t.Error("expected error for unknown agent")
	}
}

func TestServiceKeepsSessions(t *testing.T) {
	model := &scriptedModel{responses: []*Response{{Text: "first"}, {Text: "second"}}}
	svc, err := NewService(model, testRegistry(t), testConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	first, err := svc.Ask(context.Background(), DBAgentName, "", "one")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	second, err := svc.Ask(context.Background(), DBAgentName, first.SessionID, "two")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if second.SessionID != first.SessionID {
		t.Error("expected the session to be reused")
	}
	if got := len(model.requests[1].Messages); got != 3 {
		t.Errorf("expected prior turn in history, got %d messages", got)
	}

	if _, err := svc.Ask(context.Background(), "nobody", "", "x"); err == nil {
		t.Error("expected unknown agent error")
	}
}

func TestServiceBoundsOneShotSessions(t *testing.T) {
	responses := make([]*Response, 50)
	for i := range responses {
		responses[i] = &Response{Text: "ok"}
	}
	cfg := testConfig()
	cfg.MaxSessions = 3
	svc, err := NewService(&scriptedModel{responses: responses}, testRegistry(t), cfg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	var first string
	for i := 0; i < 50; i++ {
		answer, err := svc.Ask(context.Background(), DBAgentName, "", "q")
		if err != nil {
			t.Fatalf("Ask %d: %v", i, err)
		}
		if i == 0 {
			first = answer.SessionID
		}
	}

	runner, _ := svc.Runner(DBAgentName)
	if got := runner.SessionCount(); got != 3 {
		t.Fatalf("expected sessions capped at 3, got %d", got)
	}
	if _, err := runner.Session(first); err == nil {
		t.Error("oldest session should have been evicted")
	}
}

func TestSessionLookupKeepsItRecent(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSessions = 2
	runner, err := NewRunner(DBAgent(), &scriptedModel{}, testRegistry(t), cfg)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	a := runner.NewSession()
	b := runner.NewSession()
	if _, err := runner.Session(a.ID); err != nil {
		t.Fatalf("Session(a): %v", err)
	}
	runner.NewSession()

	if _, err := runner.Session(a.ID); err != nil {
		t.Errorf("recently used session was evicted: %v", err)
	}
	if _, err := runner.Session(b.ID); err == nil {
		t.Error("least recently used session should be evicted")
	}
}

func TestSessionsExpireWhenIdle(t *testing.T) {
	cfg := testConfig()
	cfg.SessionTTL = 20 * time.Millisecond
	runner, err := NewRunner(DBAgent(), &scriptedModel{}, testRegistry(t), cfg)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	s := runner.NewSession()
	time.Sleep(60 * time.Millisecond)

	if _, err := runner.Session(s.ID); err == nil {
		t.Error("idle session should have expired")
	}
	if runner.SessionCount() != 0 {
		t.Errorf("expected no sessions left, got %d", runner.SessionCount())
	}
}
