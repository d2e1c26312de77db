package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alucardeht/spreadsheet-agent/internal/dbinspect"
)

func newTablesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Inspect the imported database without an LLM",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List tables and views",
		Args:  cobra.NoArgs,
		RunE: withInspector(a, func(cmd *cobra.Command, in *dbinspect.Inspector, args []string) error {
			objects, err := in.ListTablesAndViews(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.output, objects, func(w io.Writer) error {
				rows := make([][]string, 0, len(objects.Tables)+len(objects.Views))
				for _, name := range objects.Tables {
					rows = append(rows, []string{name, "table"})
				}
				for _, name := range objects.Views {
					rows = append(rows, []string{name, "view"})
				}
				return renderTable(w, []string{"name", "type"}, rows)
			})
		}),
	}

	columns := &cobra.Command{
		Use:   "columns <name>",
		Short: "Show the columns of a table or view",
		Args:  cobra.ExactArgs(1),
		RunE: withInspector(a, func(cmd *cobra.Command, in *dbinspect.Inspector, args []string) error {
			cols, err := in.ObjectColumns(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.output, cols, func(w io.Writer) error {
				rows := make([][]string, len(cols))
				for i, c := range cols {
					rows[i] = []string{c.Name, c.Type}
				}
				return renderTable(w, []string{"column", "type"}, rows)
			})
		}),
	}

	summary := &cobra.Command{
		Use:   "summary <name>",
		Short: "Show the row count and sample rows of a table or view",
		Args:  cobra.ExactArgs(1),
		RunE: withInspector(a, func(cmd *cobra.Command, in *dbinspect.Inspector, args []string) error {
			s, err := in.ObjectSummary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.output, s, func(w io.Writer) error {
				fmt.Fprintf(w, "%s: %d rows\n", args[0], s.RowCount)
				if len(s.SampleRows) == 0 {
					return nil
				}
				cols, err := in.ObjectColumns(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				headers := make([]string, len(cols))
				for i, c := range cols {
					headers[i] = c.Name
				}
				rows := make([][]string, len(s.SampleRows))
				for i, sample := range s.SampleRows {
					rows[i] = make([]string, len(headers))
					for j, h := range headers {
						rows[i][j] = cellString(sample[h])
					}
				}
				return renderTable(w, headers, rows)
			})
		}),
	}

	view := &cobra.Command{
		Use:   "view <name>",
		Short: "Print the SQL definition of a view",
		Args:  cobra.ExactArgs(1),
		RunE: withInspector(a, func(cmd *cobra.Command, in *dbinspect.Inspector, args []string) error {
			def, err := in.ViewDefinition(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			result := map[string]string{"view_name": args[0], "definition": def}
			return render(cmd.OutOrStdout(), a.output, result, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, def)
				return err
			})
		}),
	}

	var limit int
	query := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a read-only SQL statement",
		Args:  cobra.MinimumNArgs(1),
		RunE: withInspector(a, func(cmd *cobra.Command, in *dbinspect.Inspector, args []string) error {
			result, err := in.Query(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.output, result, func(w io.Writer) error {
				rows := make([][]string, len(result.Rows))
				for i, row := range result.Rows {
					rows[i] = make([]string, len(row))
					for j, v := range row {
						rows[i][j] = cellString(v)
					}
				}
				if err := renderTable(w, result.Columns, rows); err != nil {
					return err
				}
				if result.Truncated {
					fmt.Fprintf(w, "(showing first %d rows)\n", len(result.Rows))
				}
				return nil
			})
		}),
	}
	query.Flags().IntVar(&limit, "limit", dbinspect.DefaultQueryLimit, "maximum rows to return")

	for _, sub := range []*cobra.Command{list, columns, summary, view, query} {
		addOutputFlag(sub, a)
		cmd.AddCommand(sub)
	}
	return cmd
}

func withInspector(a *app, run func(cmd *cobra.Command, in *dbinspect.Inspector, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		in, err := dbinspect.Open(a.cfg.DBPath)
		if err != nil {
			return err
		}
		defer in.Close()
		return run(cmd, in, args)
	}
}
