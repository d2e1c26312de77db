package chat

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alucardeht/spreadsheet-agent/internal/agent"
)

type fakeConversation struct {
	questions []string
	resets    int
	err       error
}

func (f *fakeConversation) Ask(ctx context.Context, question string) (*agent.Answer, error) {
	f.questions = append(f.questions, question)
	if f.err != nil {
		return nil, f.err
	}
	return &agent.Answer{
		Text:      "There are 830 orders.",
		ToolCalls: []agent.ToolTrace{{Name: "run_readonly_query", Arguments: `{"sql":"SELECT COUNT(*) FROM orders"}`}},
	}, nil
}

func (f *fakeConversation) Reset()            { f.resets++ }
func (f *fakeConversation) Tools() []string   { return []string{"list_tables_and_views", "run_readonly_query"} }
func (f *fakeConversation) AgentName() string { return "db_agent" }

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want command
	}{
		{"/exit", cmdExit},
		{"/QUIT", cmdExit},
		{" /reset ", cmdReset},
		{"/tools", cmdTools},
		{"/help", cmdHelp},
		{"/nope", cmdUnknown},
		{"how many orders?", cmdNone},
	}
	for _, tt := range tests {
		if got := parseCommand(tt.line); got != tt.want {
			t.Errorf("parseCommand(%q) = %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestREPL(t *testing.T) {
	conv := &fakeConversation{}
	in := strings.NewReader("how many orders?\n\n/tools\n/reset\n/exit\nnever asked\n")
	var out bytes.Buffer

	if err := RunREPL(context.Background(), conv, in, &out, true); err != nil {
		t.Fatalf("RunREPL: %v", err)
	}

	if len(conv.questions) != 1 || conv.questions[0] != "how many orders?" {
		t.Errorf("unexpected questions %v", conv.questions)
	}
	if conv.resets != 1 {
		t.Errorf("expected one reset, got %d", conv.resets)
	}
	text := out.String()
	for _, want := range []string{"There are 830 orders.", "run_readonly_query", "Tools: list_tables_and_views", "new session"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestREPLReportsErrors(t *testing.T) {
	conv := &fakeConversation{err: errors.New("missing API key")}
	var out bytes.Buffer

	if err := RunREPL(context.Background(), conv, strings.NewReader("hi\n"), &out, false); err != nil {
		t.Fatalf("RunREPL: %v", err)
	}
	if !strings.Contains(out.String(), "error: missing API key") {
		t.Errorf("expected error line, got:\n%s", out.String())
	}
}

func TestModelSubmitAndAnswer(t *testing.T) {
	conv := &fakeConversation{}
	m := newModel(context.Background(), conv)
	m.input.SetValue("how many orders?")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	if !m.busy || cmd == nil {
		t.Fatal("expected the model to be busy with a pending command")
	}
	if m.input.Value() != "" {
		t.Error("input should be cleared after submit")
	}

	answer, _ := conv.Ask(context.Background(), "how many orders?")
	next, _ = m.Update(answerMsg{answer: answer})
	m = next.(model)
	if m.busy {
		t.Error("expected busy to clear after the answer")
	}
	transcript := strings.Join(m.transcript, "\n")
	if !strings.Contains(transcript, "There are 830 orders.") || !strings.Contains(transcript, "run_readonly_query") {
		t.Errorf("transcript missing answer or trace:\n%s", transcript)
	}
}

func TestModelCommands(t *testing.T) {
	conv := &fakeConversation{}
	m := newModel(context.Background(), conv)

	m.input.SetValue("/tools")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	if !strings.Contains(strings.Join(m.transcript, "\n"), "run_readonly_query") {
		t.Error("expected tools listed in transcript")
	}

	m.input.SetValue("/reset")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	if conv.resets != 1 || len(m.transcript) != 1 {
		t.Errorf("expected reset with fresh transcript, got resets=%d transcript=%v", conv.resets, m.transcript)
	}

	m.input.SetValue("/exit")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestModelAnswerError(t *testing.T) {
	m := newModel(context.Background(), &fakeConversation{})
	m.busy = true

	next, _ := m.Update(answerMsg{err: agent.ErrCircuitOpen})
	m = next.(model)
	if !strings.Contains(m.transcript[len(m.transcript)-1], "circuit breaker is open") {
		t.Errorf("expected error in transcript, got %v", m.transcript)
	}
}
