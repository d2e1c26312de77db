package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alucardeht/spreadsheet-agent/internal/config"
	"github.com/alucardeht/spreadsheet-agent/internal/logger"
)

// app carries state shared by every subcommand once flags are parsed.
type app struct {
	configFile string
	output     string

	cfg     *config.Config
	cfgFile string
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "spreadsheet-agent",
		Short: "Ask questions about your spreadsheets in plain language",
		Long: `spreadsheet-agent imports CSV and Excel files into a local SQLite database
and lets an LLM agent answer questions about them through read-only tools.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "Hello from spreadsheet-agent!")
			return cmd.Usage()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: ./spreadsheet-agent.yaml or the user config dir)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("data-dir", "", "directory holding the spreadsheets to import")
	flags.String("db-path", "", "SQLite database the spreadsheets are imported into")
	flags.String("state-dir", "", "directory for the import ledger, daemon socket and lock")

	root.AddCommand(
		newImportCmd(a),
		newDownloadCmd(a),
		newTablesCmd(a),
		newToolsCmd(a),
		newAskCmd(a),
		newChatCmd(a),
		newMCPCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

// load resolves configuration and installs the logger. Logs always go to
// stderr so stdout stays clean for results and the MCP stream.
func (a *app) load(cmd *cobra.Command) error {
	cfg, used, err := config.Load(config.LoadOptions{
		ConfigFile: a.configFile,
		Command:    cmd,
	})
	if err != nil {
		return err
	}

	logger.Init(logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})

	a.cfg = cfg
	a.cfgFile = used
	if used != "" {
		logger.Debug("loaded config", "file", used)
	}
	return nil
}

func addOutputFlag(cmd *cobra.Command, a *app) {
	cmd.Flags().StringVarP(&a.output, "output", "o", "text", "output format: text, json or yaml")
}
