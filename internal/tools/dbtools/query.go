package dbtools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/alucardeht/spreadsheet-agent/internal/tools"
)

type QueryTool struct {
	inspector Inspector
}

type queryRequest struct {
	SQL   string `json:"sql"`
	Limit int    `json:"limit"`
}

func (t *QueryTool) Name() string {
	return "run_readonly_query"
}

func (t *QueryTool) Title() string {
	return "Run read-only query"
}

func (t *QueryTool) Description() string {
	return "Runs a single read-only SQL statement (SELECT, WITH or VALUES) and returns the columns and up to limit rows."
}

func (t *QueryTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *QueryTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"sql": {
				"type": "string",
				"description": "A single SELECT, WITH or VALUES statement"
			},
			"limit": {
				"type": "integer",
				"description": "Maximum rows to return (default: 100, max: 1000)"
			}
		},
		"required": ["sql"]
	}`)
}

func (t *QueryTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var req queryRequest
	if err := tools.DecodeArgs(input, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.SQL) == "" {
		return nil, tools.NewInvalidParamsError("sql is required")
	}

	result, err := t.inspector.Query(ctx, req.SQL, req.Limit)
	if err != nil {
		log.Warn("Read-only query failed", "error", err)
		return nil, err
	}
	return result, nil
}
