package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alucardeht/spreadsheet-agent/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or show the configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configFile
			if path == "" {
				var err error
				if path, err = config.DefaultFilePath(); err != nil {
					return err
				}
			}
			if err := config.WriteFile(config.Default(), path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfgFile != "" {
				fmt.Fprintf(os.Stderr, "# from %s\n", a.cfgFile)
			}
			format := a.output
			if format == "text" {
				format = "yaml"
			}
			return render(cmd.OutOrStdout(), format, a.cfg, func(w io.Writer) error { return nil })
		},
	}
	addOutputFlag(show, a)

	cmd.AddCommand(initCmd, show)
	return cmd
}
