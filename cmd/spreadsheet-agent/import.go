package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alucardeht/spreadsheet-agent/internal/ingest"
	"github.com/alucardeht/spreadsheet-agent/internal/ledger"
)

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import spreadsheets from the data directory into SQLite",
		Long: `Import every CSV and Excel file in the data directory into the SQLite
database, one table per file. Files whose content has not changed since the
last import are skipped unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, a)
		},
	}
	cmd.Flags().String("input-dir", "", "directory to import from (overrides data_dir)")
	cmd.Flags().Bool("force", false, "re-import files even when unchanged")
	addOutputFlag(cmd, a)
	return cmd
}

func runImport(cmd *cobra.Command, a *app) error {
	cfg := a.cfg
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

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
	report, err := importer.Run(cmd.Context())
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), a.output, report, func(w io.Writer) error {
		return printReport(w, report)
	})
}

func printReport(w io.Writer, report *ingest.Report) error {
	for _, r := range report.Imported {
		fmt.Fprintf(w, "imported  %-40s -> %s (%d rows, %d columns, %s)\n", r.File, r.Table, r.RowCount, r.Columns, r.Encoding)
	}
	for _, path := range report.Unchanged {
		fmt.Fprintf(w, "unchanged %s\n", path)
	}
	for _, f := range report.Failed {
		fmt.Fprintf(w, "failed    %s: %v\n", f.File, f.Err)
	}
	for _, v := range report.Validated {
		if v.Error != "" {
			fmt.Fprintf(w, "invalid   %s: %s\n", v.Table, v.Error)
		}
	}
	_, err := fmt.Fprintf(w, "%d imported, %d unchanged, %d failed\n", len(report.Imported), len(report.Unchanged), len(report.Failed))
	return err
}
