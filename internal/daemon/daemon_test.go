package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alucardeht/spreadsheet-agent/internal/agent"
	"github.com/alucardeht/spreadsheet-agent/internal/ingest"
	"github.com/alucardeht/spreadsheet-agent/internal/tools"
	"github.com/alucardeht/spreadsheet-agent/pkg/protocol"
)

type listTool struct{}

func (listTool) Name() string            { return "list_tables_and_views" }
func (listTool) Description() string     { return "list" }
func (listTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (listTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	return map[string][]string{"tables": {"orders"}}, nil
}

type fakeImporter struct{ runs atomic.Int32 }

func (f *fakeImporter) Run(ctx context.Context) (*ingest.Report, error) {
	f.runs.Add(1)
	return &ingest.Report{Unchanged: []string{"orders.csv"}}, nil
}

type fakeAsker struct {
	mu   sync.Mutex
	last AskParams
}

func (f *fakeAsker) Ask(ctx context.Context, agentName, sessionID, question string) (*agent.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = AskParams{Agent: agentName, SessionID: sessionID, Question: question}
	return &agent.Answer{SessionID: "s-1", Agent: agentName, Text: "42"}, nil
}

// shortSocketPath keeps unix socket paths under the platform length limit.
func shortSocketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "sad")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "d.sock")
}

func startDaemon(t *testing.T, opts Options) (*Daemon, *Client) {
	t.Helper()
	if opts.SocketPath == "" {
		opts.SocketPath = shortSocketPath(t)
	}
	if opts.Registry == nil {
		opts.Registry = tools.NewRegistry()
		opts.Registry.RegisterAll(tools.NewHealthTool(opts.Registry, nil), listTool{})
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := New(opts)
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Start: %v", err)
	}

	client, err := Connect(ctx, opts.SocketPath)
	if err != nil {
		cancel()
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
		cancel()
		d.Shutdown()
	})
	return d, client
}

func TestHealth(t *testing.T) {
	_, client := startDaemon(t, Options{})

	health, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Status != "healthy" || health.Tools != 2 {
		t.Errorf("unexpected health %+v", health)
	}
}

func TestToolsListAndCall(t *testing.T) {
	_, client := startDaemon(t, Options{})
	ctx := context.Background()

	var list struct {
		Tools []protocol.Tool `json:"tools"`
	}
	if err := client.Call(ctx, MethodToolsList, struct{}{}, &list); err != nil {
		t.Fatalf("tools/list: %v", err)
	}
	if len(list.Tools) != 2 {
		t.Errorf("expected 2 tools, got %d", len(list.Tools))
	}

	var result protocol.ToolResult
	call := protocol.ToolCall{Name: "list_tables_and_views"}
	if err := client.Call(ctx, MethodToolsCall, call, &result); err != nil {
		t.Fatalf("tools/call: %v", err)
	}
	if result.IsError || !strings.Contains(result.Content[0].Text, "orders") {
		t.Errorf("unexpected result %+v", result)
	}

	err := client.Call(ctx, MethodToolsCall, protocol.ToolCall{Name: "nope"}, &result)
	if err == nil || !strings.Contains(err.Error(), "Unknown tool") {
		t.Errorf("expected unknown tool error, got %v", err)
	}
}

func TestImportRun(t *testing.T) {
	importer := &fakeImporter{}
	_, client := startDaemon(t, Options{Importer: importer})

	var report ingest.Report
	if err := client.Call(context.Background(), MethodImportRun, struct{}{}, &report); err != nil {
		t.Fatalf("import/run: %v", err)
	}
	if importer.runs.Load() != 1 || len(report.Unchanged) != 1 {
		t.Errorf("unexpected report %+v after %d runs", report, importer.runs.Load())
	}
}

func TestAgentAsk(t *testing.T) {
	asker := &fakeAsker{}
	_, client := startDaemon(t, Options{Agents: asker})

	answer, err := client.Ask(context.Background(), AskParams{Question: "how many?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	asker.mu.Lock()
	defer asker.mu.Unlock()
	if answer.Text != "42" || asker.last.Agent != agent.RootAgentName {
		t.Errorf("unexpected answer %+v (asked %+v)", answer, asker.last)
	}
}

func TestAgentAskUnavailable(t *testing.T) {
	_, client := startDaemon(t, Options{AgentError: errors.New("no API key")})

	_, err := client.Ask(context.Background(), AskParams{Question: "hi"})
	if err == nil || !strings.Contains(err.Error(), "no API key") {
		t.Errorf("expected unavailable error, got %v", err)
	}
}

func TestUnknownMethod(t *testing.T) {
	_, client := startDaemon(t, Options{})
	var out any
	if err := client.Call(context.Background(), "files/delete", struct{}{}, &out); err == nil {
		t.Error("expected method not found")
	}
}

func TestShutdownRemovesSocket(t *testing.T) {
	d, _ := startDaemon(t, Options{})
	d.Shutdown()
	if _, err := os.Stat(d.SocketPath()); !os.IsNotExist(err) {
		t.Errorf("expected socket removed, got %v", err)
	}
}
