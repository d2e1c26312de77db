package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/alucardeht/spreadsheet-agent/internal/ingest"
	"github.com/alucardeht/spreadsheet-agent/internal/ledger"
	"github.com/alucardeht/spreadsheet-agent/pkg/version"
)

// LedgerStats is satisfied by *ledger.Store.
type LedgerStats interface {
	Stats() (*ledger.Stats, error)
}

// QueueStats is satisfied by *ingest.Worker.
type QueueStats interface {
	GetStats() ingest.WorkerStats
}

type HealthTool struct {
	registry *Registry
	ledger   LedgerStats
	queue    QueueStats
	started  time.Time
}

// NewHealthTool reports on registry and ledger; either may be nil.
func NewHealthTool(registry *Registry, ledger LedgerStats) *HealthTool {
	return &HealthTool{
		registry: registry,
		ledger:   ledger,
		started:  time.Now(),
	}
}

// WithQueue adds the background import queue to the report. Call it before
// the tool is served.
func (t *HealthTool) WithQueue(queue QueueStats) *HealthTool {
	t.queue = queue
	return t
}

type HealthResult struct {
	Status  string              `json:"status" yaml:"status"`
	Version string              `json:"version" yaml:"version"`
	Uptime  string              `json:"uptime" yaml:"uptime"`
	Tools   int                 `json:"tools" yaml:"tools"`
	Imports *ledger.Stats       `json:"imports,omitempty" yaml:"imports,omitempty"`
	Queue   *ingest.WorkerStats `json:"queue,omitempty" yaml:"queue,omitempty"`
	Error   string              `json:"error,omitempty" yaml:"error,omitempty"`
}

func (t *HealthTool) Name() string {
	return "health"
}

func (t *HealthTool) Title() string {
	return "Health"
}

func (t *HealthTool) Description() string {
	return "Report server health, uptime, tool count, import statistics and the background import queue"
}

func (t *HealthTool) Annotations() map[string]bool {
	return ReadOnlyAnnotations()
}

func (t *HealthTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {},
		"required": []
	}`)
}

func (t *HealthTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	result := &HealthResult{
		Status:  "healthy",
		Version: version.Version,
		Uptime:  time.Since(t.started).Round(time.Second).String(),
	}

	if t.registry != nil {
		result.Tools = len(t.registry.Names())
	}

	if t.queue != nil {
		stats := t.queue.GetStats()
		result.Queue = &stats
	}

	if t.ledger != nil {
		stats, err := t.ledger.Stats()
		if err != nil {
			result.Status = "degraded"
			result.Error = err.Error()
		} else {
			result.Imports = stats
		}
	}

	return result, nil
}
