package dbtools

import (
	"context"
	"encoding/json"

	"github.com/alucardeht/spreadsheet-agent/internal/ledger"
	"github.com/alucardeht/spreadsheet-agent/internal/tools"
)

type ListImportsTool struct {
	imports ImportLister
}

type listImportsRequest struct {
	Status string `json:"status"`
}

type ListImportsResult struct {
	Imports []*ledger.Entry `json:"imports" yaml:"imports"`
	Count   int             `json:"count" yaml:"count"`
}

func (t *ListImportsTool) Name() string {
	return "list_imports"
}

func (t *ListImportsTool) Title() string {
	return "List imports"
}

func (t *ListImportsTool) Description() string {
	return "Lists the spreadsheet files that were imported, with their table name, row count, encoding and status."
}

func (t *ListImportsTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *ListImportsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"status": {
				"type": "string",
				"enum": ["imported", "failed", "removed"],
				"description": "Only return entries with this status"
			}
		},
		"required": []
	}`)
}

func (t *ListImportsTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var req listImportsRequest
	if err := tools.DecodeArgs(input, &req); err != nil {
		return nil, err
	}

	entries, err := t.imports.List()
	if err != nil {
		return nil, err
	}

	filtered := make([]*ledger.Entry, 0, len(entries))
	for _, e := range entries {
		if req.Status != "" && string(e.Status) != req.Status {
			continue
		}
		filtered = append(filtered, e)
	}

	return &ListImportsResult{Imports: filtered, Count: len(filtered)}, nil
}
