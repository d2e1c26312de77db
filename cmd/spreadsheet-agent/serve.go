package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alucardeht/spreadsheet-agent/internal/daemon"
	"github.com/alucardeht/spreadsheet-agent/internal/dbinspect"
	"github.com/alucardeht/spreadsheet-agent/internal/ingest"
	"github.com/alucardeht/spreadsheet-agent/internal/ledger"
	"github.com/alucardeht/spreadsheet-agent/internal/logger"
	"github.com/alucardeht/spreadsheet-agent/internal/watcher"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon: import, watch the data directory and answer requests",
		Long: `Run the local daemon. It imports the data directory once, then watches it and
re-imports changed files in the background, and answers health, tool, import
and agent requests on a unix socket. Only one daemon may run per state
directory. Agent requests need an LLM API key; everything else works without.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return err
	}

	lifecycle := daemon.NewLifecycleManager(cfg.StateDir, cfg.SocketPath())
	if err := lifecycle.Acquire(); err != nil {
		return err
	}
	defer lifecycle.Cleanup()

	db, err := ingest.OpenDatabase(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return err
	}
	defer store.Close()

	importer := ingest.NewImporter(db, store, ingest.OptionsFromConfig(cfg))
	report, err := importer.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("initial import finished", "imported", len(report.Imported), "unchanged", len(report.Unchanged), "failed", len(report.Failed))

	inspector, err := dbinspect.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer inspector.Close()

	importer.OnImported(func(tables []string) {
		inspector.Invalidate()
		logger.Debug("invalidated inspector cache", "tables", tables)
	})

	worker := ingest.NewWorker(importer, ingest.WorkerConfig{
		WorkerCount:  cfg.Watch.Workers,
		MaxQueueSize: cfg.Watch.QueueSize,
	})
	worker.Start()
	defer worker.Stop()

	registry, err := buildRegistry(inspector, store, worker)
	if err != nil {
		return err
	}

	w, err := watcher.New(watcher.FromConfig(cfg), cfg.DataDir, worker)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	opts := daemon.Options{
		SocketPath:  cfg.SocketPath(),
		Registry:    registry,
		ToolTimeout: cfg.Agent.ToolTimeout,
		Importer:    importer,
	}
	if svc, err := newAgentService(cfg, registry); err != nil {
		logger.Warn("agent disabled", "error", err)
		opts.AgentError = err
	} else {
		opts.Agents = svc
	}

	d := daemon.New(opts)
	if err := d.Start(ctx); err != nil {
		return err
	}

	logger.Info("serving", "socket", cfg.SocketPath(), "data_dir", cfg.DataDir, "db", cfg.DBPath)
	<-d.Done()
	d.Shutdown()
	return nil
}
