// Package dbtools exposes the read-only database inspector and the import
// ledger as tools for agents and MCP clients.
package dbtools

import (
	"context"

	"github.com/alucardeht/spreadsheet-agent/internal/dbinspect"
	"github.com/alucardeht/spreadsheet-agent/internal/ledger"
	"github.com/alucardeht/spreadsheet-agent/internal/logger"
	"github.com/alucardeht/spreadsheet-agent/internal/tools"
)

var log = logger.ForComponent("dbtools")

// Inspector is satisfied by *dbinspect.Inspector.
type Inspector interface {
	ListTablesAndViews(ctx context.Context) (*dbinspect.Objects, error)
	ObjectColumns(ctx context.Context, name string) ([]dbinspect.ColumnInfo, error)
	ObjectSummary(ctx context.Context, name string) (*dbinspect.Summary, error)
	ViewDefinition(ctx context.Context, name string) (string, error)
	Query(ctx context.Context, query string, limit int) (*dbinspect.QueryResult, error)
}

// ImportLister is satisfied by *ledger.Store.
type ImportLister interface {
	List() ([]*ledger.Entry, error)
}

// DBAgentTools names the tools given to the database agent, in the order
// they are offered to the model.
var DBAgentTools = []string{
	"list_tables_and_views",
	"get_object_columns",
	"get_object_summary",
	"get_view_definition",
	"run_readonly_query",
	"list_imports",
}

// GetTools returns the database tools. list_imports is omitted when imports
// is nil.
func GetTools(inspector Inspector, imports ImportLister) []tools.Tool {
	result := []tools.Tool{
		&ListTablesTool{inspector: inspector},
		&ColumnsTool{inspector: inspector},
		&SummaryTool{inspector: inspector},
		&ViewDefinitionTool{inspector: inspector},
		&QueryTool{inspector: inspector},
	}
	if imports != nil {
		result = append(result, &ListImportsTool{imports: imports})
	}
	return result
}
