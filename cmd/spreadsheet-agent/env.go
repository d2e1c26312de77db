package main

import (
	"errors"
	"fmt"

	"github.com/alucardeht/spreadsheet-agent/internal/agent"
	"github.com/alucardeht/spreadsheet-agent/internal/config"
	"github.com/alucardeht/spreadsheet-agent/internal/dbinspect"
	"github.com/alucardeht/spreadsheet-agent/internal/ingest"
	"github.com/alucardeht/spreadsheet-agent/internal/ledger"
	"github.com/alucardeht/spreadsheet-agent/internal/tools"
	"github.com/alucardeht/spreadsheet-agent/internal/tools/dbtools"
)

// toolEnv is the read-only side: inspector, ledger and the tool registry
// built on them.
type toolEnv struct {
	inspector *dbinspect.Inspector
	ledger    *ledger.Store
	registry  *tools.Registry
}

func openToolEnv(cfg *config.Config) (*toolEnv, error) {
	inspector, err := dbinspect.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}

	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		inspector.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	registry, err := buildRegistry(inspector, store, nil)
	if err != nil {
		inspector.Close()
		store.Close()
		return nil, err
	}

	return &toolEnv{inspector: inspector, ledger: store, registry: registry}, nil
}

// buildRegistry registers health and the DB tools. queue is the serve
// command's import worker and may be nil.
func buildRegistry(inspector dbtools.Inspector, store *ledger.Store, queue *ingest.Worker) (*tools.Registry, error) {
	registry := tools.NewRegistry()
	var stats tools.LedgerStats
	var imports dbtools.ImportLister
	if store != nil {
		stats, imports = store, store
	}
	health := tools.NewHealthTool(registry, stats)
	if queue != nil {
		health.WithQueue(queue)
	}
	if err := registry.Register(health); err != nil {
		return nil, err
	}
	if err := registry.RegisterAll(dbtools.GetTools(inspector, imports)...); err != nil {
		return nil, err
	}
	return registry, nil
}

func (e *toolEnv) Close() error {
	return errors.Join(e.inspector.Close(), e.ledger.Close())
}

// newAgentService fails with config.ErrMissingAPIKey when no LLM key is set.
func newAgentService(cfg *config.Config, registry *tools.Registry) (*agent.Service, error) {
	creds, err := config.LoadCredentials()
	if err != nil {
		return nil, err
	}
	key, err := creds.LLMKey()
	if err != nil {
		return nil, err
	}

	model := agent.NewModel(cfg.Agent, key)
	return agent.NewService(model, registry, agent.RunnerConfigFrom(cfg.Agent))
}
