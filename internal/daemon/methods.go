package daemon

import (
	"context"

	"github.com/alucardeht/spreadsheet-agent/internal/agent"
	"github.com/alucardeht/spreadsheet-agent/internal/ingest"
)

const (
	MethodHealth    = "health"
	MethodToolsList = "tools/list"
	MethodToolsCall = "tools/call"
	MethodImportRun = "import/run"
	MethodAgentAsk  = "agent/ask"
)

// Importer is satisfied by *ingest.Importer.
type Importer interface {
	Run(ctx context.Context) (*ingest.Report, error)
}

// Asker is satisfied by *agent.Service.
type Asker interface {
	Ask(ctx context.Context, agentName, sessionID, question string) (*agent.Answer, error)
}

type AskParams struct {
	Agent     string `json:"agent"`
	SessionID string `json:"session_id,omitempty"`
	Question  string `json:"question"`
}

type ToolsListResult struct {
	Tools any `json:"tools"`
}
