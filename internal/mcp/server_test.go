package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/alucardeht/spreadsheet-agent/internal/tools"
	"github.com/alucardeht/spreadsheet-agent/pkg/protocol"
	"github.com/alucardeht/spreadsheet-agent/pkg/version"
)

type fakeTool struct {
	name string
	err  error
}

func (f *fakeTool) Name() string            { return f.name }
func (f *fakeTool) Title() string           { return "Fake " + f.name }
func (f *fakeTool) Description() string     { return "fake tool" }
func (f *fakeTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object","properties":{}}`) }
func (f *fakeTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}
func (f *fakeTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return map[string][]string{"tables": {"orders"}}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	r := tools.NewRegistry()
	if err := r.RegisterAll(
		&fakeTool{name: "list_tables_and_views"},
		&fakeTool{name: "get_object_columns", err: errors.New("Object 'nope' not found.")},
	); err != nil {
		t.Fatal(err)
	}
	return NewServer(r, 0)
}

func runStream(t *testing.T, s *Server, lines ...string) []Response {
	t.Helper()
	var out bytes.Buffer
	if err := s.ProcessStream(context.Background(), strings.NewReader(strings.Join(lines, "\n")+"\n"), &out); err != nil {
		t.Fatalf("ProcessStream: %v", err)
	}

	var responses []Response
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var resp Response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("stdout carried non JSON-RPC output %q: %v", scanner.Text(), err)
		}
		responses = append(responses, resp)
	}
	return responses
}

func decodeResult(t *testing.T, resp Response, v any) {
	t.Helper()
	data, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatal(err)
	}
}

func TestInitializeNegotiatesVersion(t *testing.T) {
	s := newTestServer(t)
	responses := runStream(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test","version":"1"}}}`,
		`{"jsonrpc":"2.0","id":2,"method":"initialize","params":{"protocolVersion":"1999-01-01"}}`,
	)
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}

	var first, second InitializeResponse
	decodeResult(t, responses[0], &first)
	decodeResult(t, responses[1], &second)
	if first.ProtocolVersion != "2024-11-05" {
		t.Errorf("expected supported version echoed, got %s", first.ProtocolVersion)
	}
	if second.ProtocolVersion != version.ProtocolVersion {
		t.Errorf("expected fallback to %s, got %s", version.ProtocolVersion, second.ProtocolVersion)
	}
	if first.ServerInfo.Name != version.ServerName {
		t.Errorf("unexpected server info %+v", first.ServerInfo)
	}
}

func TestNotificationsGetNoResponse(t *testing.T) {
	s := newTestServer(t)
	responses := runStream(t, s,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":"a","method":"ping"}`,
	)
	if len(responses) != 1 || responses[0].ID != "a" {
		t.Fatalf("expected only the ping response, got %+v", responses)
	}
}

func TestInvalidRequest(t *testing.T) {
	s := newTestServer(t)
	responses := runStream(t, s,
		`{"jsonrpc":"1.0","id":1,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":2}`,
	)
	if len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(responses))
	}
	for _, resp := range responses {
		if resp.Error == nil || resp.Error.Code != protocol.CodeInvalidRequest {
			t.Errorf("expected invalid request error, got %+v", resp)
		}
	}
}

func TestParseErrorHasNullID(t *testing.T) {
	s := newTestServer(t)
	responses := runStream(t, s, `{not json`)
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if responses[0].ID != nil || responses[0].Error == nil || responses[0].Error.Code != protocol.CodeParseError {
		t.Errorf("unexpected response %+v", responses[0])
	}
}

func TestUnknownMethod(t *testing.T) {
	s := newTestServer(t)
	responses := runStream(t, s, `{"jsonrpc":"2.0","id":3,"method":"resources/list"}`)
	if responses[0].Error == nil || responses[0].Error.Code != protocol.CodeMethodNotFound {
		t.Errorf("expected method not found, got %+v", responses[0])
	}
}

func TestToolsList(t *testing.T) {
	s := newTestServer(t)
	responses := runStream(t, s, `{"jsonrpc":"2.0","id":4,"method":"tools/list"}`)

	var list ListToolsResponse
	decodeResult(t, responses[0], &list)
	if len(list.Tools) != 2 || list.Tools[0].Name != "get_object_columns" {
		t.Fatalf("unexpected tools %+v", list.Tools)
	}
	if !list.Tools[0].Annotations["readOnlyHint"] || list.Tools[0].Title == "" {
		t.Errorf("expected annotations and title, got %+v", list.Tools[0])
	}
}

func TestToolsCall(t *testing.T) {
	s := newTestServer(t)
	responses := runStream(t, s,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"list_tables_and_views","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"get_object_columns","arguments":{"object_name":"nope"}}}`,
		`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"missing"}}`,
	)
	if len(responses) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(responses))
	}

	var ok ToolResult
	decodeResult(t, responses[0], &ok)
	if ok.IsError || !strings.Contains(ok.Content[0].Text, "orders") {
		t.Errorf("unexpected success result %+v", ok)
	}

	var failed ToolResult
	decodeResult(t, responses[1], &failed)
	if !failed.IsError || failed.Content[0].Text != `{"error":"Object 'nope' not found."}` {
		t.Errorf("unexpected error result %+v", failed)
	}

	if responses[2].Error == nil || responses[2].Error.Code != protocol.CodeInvalidParams {
		t.Errorf("expected invalid params for unknown tool, got %+v", responses[2])
	}
}
