// Package agent runs LLM agents that answer questions about the imported
// spreadsheets through database tools.
package agent

import (
	"fmt"
	"sort"

	"github.com/alucardeht/spreadsheet-agent/internal/logger"
	"github.com/alucardeht/spreadsheet-agent/internal/tools/dbtools"
)

var log = logger.ForComponent("agent")

const (
	DBAgentName   = "db_agent"
	RootAgentName = "spreadsheet_agent"
)

type Agent struct {
	Name        string
	Description string
	Instruction string
	// Model overrides the configured model name when set.
	Model     string
	Tools     []string
	SubAgents []*Agent
}

const dbAgentInstruction = `You answer questions about a SQLite database built from spreadsheet files.
Each spreadsheet was imported as one table named after its file.

Start with list_tables_and_views to see what exists. Use get_object_columns and
get_object_summary to learn a table's shape before querying it, and
get_view_definition to explain a view. Use run_readonly_query for counts,
aggregates and lookups; write one SELECT statement at a time and quote table or
column names that contain spaces with double quotes. list_imports tells you
which file each table came from.

Only state facts you read from tool results. If a tool returns an error, read
it, correct the call and try again. Answer concisely.`

const rootAgentInstruction = `You are a spreadsheet assistant. The user's spreadsheets have been imported
into a database that only db_agent can read.

For any question about the data, call ask_db_agent with a self-contained
request describing what you need. You may call it several times to break a
question down. Use list_imports when the user asks which files were loaded.
Combine the answers into a clear reply for the user.`

func DBAgent() *Agent {
	return &Agent{
		Name:        DBAgentName,
		Description: "An agent that can answer questions about the database.",
		Instruction: dbAgentInstruction,
		Tools:       append([]string(nil), dbtools.DBAgentTools...),
	}
}

func RootAgent() *Agent {
	return &Agent{
		Name:        RootAgentName,
		Description: "Coordinates answers about imported spreadsheets by delegating to db_agent.",
		Instruction: rootAgentInstruction,
		Tools:       []string{"list_imports"},
		SubAgents:   []*Agent{DBAgent()},
	}
}

var builtin = map[string]func() *Agent{
	DBAgentName:   DBAgent,
	RootAgentName: RootAgent,
}

// Lookup returns a fresh copy of a built-in agent.
func Lookup(name string) (*Agent, error) {
	build, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("unknown agent %q (available: %v)", name, Names())
	}
	return build(), nil
}

func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func delegateToolName(sub *Agent) string {
	return "ask_" + sub.Name
}
