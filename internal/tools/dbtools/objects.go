package dbtools

import (
	"context"
	"encoding/json"

	"github.com/alucardeht/spreadsheet-agent/internal/dbinspect"
	"github.com/alucardeht/spreadsheet-agent/internal/tools"
)

type ListTablesTool struct {
	inspector Inspector
}

func (t *ListTablesTool) Name() string {
	return "list_tables_and_views"
}

func (t *ListTablesTool) Title() string {
	return "List tables and views"
}

func (t *ListTablesTool) Description() string {
	return "Lists all tables and views in the SQLite database."
}

func (t *ListTablesTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *ListTablesTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {},
		"required": []
	}`)
}

func (t *ListTablesTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	return t.inspector.ListTablesAndViews(ctx)
}

type objectRequest struct {
	ObjectName string `json:"object_name"`
}

func decodeObjectName(input json.RawMessage) (string, error) {
	var req objectRequest
	if err := tools.DecodeArgs(input, &req); err != nil {
		return "", err
	}
	name := req.ObjectName
	if name == "" {
		return "", tools.NewInvalidParamsError("object_name is required")
	}
	return name, nil
}

type ColumnsTool struct {
	inspector Inspector
}

func (t *ColumnsTool) Name() string {
	return "get_object_columns"
}

func (t *ColumnsTool) Title() string {
	return "Get object columns"
}

func (t *ColumnsTool) Description() string {
	return "Retrieves the column names and types for a given table or view."
}

func (t *ColumnsTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *ColumnsTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"object_name": {
				"type": "string",
				"description": "Name of the table or view"
			}
		},
		"required": ["object_name"]
	}`)
}

type ColumnsResult struct {
	ObjectName string                 `json:"object_name" yaml:"object_name"`
	Columns    []dbinspect.ColumnInfo `json:"columns" yaml:"columns"`
}

func (t *ColumnsTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	name, err := decodeObjectName(input)
	if err != nil {
		return nil, err
	}
	columns, err := t.inspector.ObjectColumns(ctx, name)
	if err != nil {
		return nil, err
	}
	return &ColumnsResult{ObjectName: name, Columns: columns}, nil
}

type SummaryTool struct {
	inspector Inspector
}

func (t *SummaryTool) Name() string {
	return "get_object_summary"
}

func (t *SummaryTool) Title() string {
	return "Get object summary"
}

func (t *SummaryTool) Description() string {
	return "Provides a summary of a table or view, including row count and sample rows."
}

func (t *SummaryTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *SummaryTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"object_name": {
				"type": "string",
				"description": "Name of the table or view"
			}
		},
		"required": ["object_name"]
	}`)
}

func (t *SummaryTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	name, err := decodeObjectName(input)
	if err != nil {
		return nil, err
	}
	return t.inspector.ObjectSummary(ctx, name)
}

type ViewDefinitionTool struct {
	inspector Inspector
}

func (t *ViewDefinitionTool) Name() string {
	return "get_view_definition"
}

func (t *ViewDefinitionTool) Title() string {
	return "Get view definition"
}

func (t *ViewDefinitionTool) Description() string {
	return "Retrieves the SQL definition of a given view."
}

func (t *ViewDefinitionTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *ViewDefinitionTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"view_name": {
				"type": "string",
				"description": "Name of the view"
			}
		},
		"required": ["view_name"]
	}`)
}

type viewRequest struct {
	ViewName string `json:"view_name"`
}

type ViewDefinitionResult struct {
	ViewName   string `json:"view_name" yaml:"view_name"`
	Definition string `json:"definition" yaml:"definition"`
}

func (t *ViewDefinitionTool) Execute(ctx context.Context, input json.RawMessage) (any, error) {
	var req viewRequest
	if err := tools.DecodeArgs(input, &req); err != nil {
		return nil, err
	}
	name := req.ViewName
	if name == "" {
		return nil, tools.NewInvalidParamsError("view_name is required")
	}

	def, err := t.inspector.ViewDefinition(ctx, name)
	if err != nil {
		return nil, err
	}
	return &ViewDefinitionResult{ViewName: name, Definition: def}, nil
}
