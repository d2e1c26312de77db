package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alucardeht/spreadsheet-agent/internal/download"
)

func newDownloadCmd(a *app) *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the Northwind sample spreadsheets into the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := download.OptionsFromConfig(a.cfg)
			if baseURL != "" {
				opts.BaseURL = baseURL
			}

			results, err := download.New(opts).Run(cmd.Context())
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), a.output, results, func(w io.Writer) error {
				for _, r := range results {
					if _, err := fmt.Fprintf(w, "%s (%d bytes)\n", r.File, r.Size); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "URL the files are fetched from (overrides download.base_url)")
	addOutputFlag(cmd, a)
	return cmd
}
