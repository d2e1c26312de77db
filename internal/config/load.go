package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// FlagKeys maps command-line flag names onto config keys. Only flags that
// exist on the command being run are bound.
var FlagKeys = map[string]string{
	"data-dir":     "data_dir",
	"input-dir":    "data_dir",
	"db-path":      "db_path",
	"state-dir":    "state_dir",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"force":        "import.force",
	"model":        "agent.model",
	"base-url":     "agent.base_url",
	"download-url": "download.base_url",
}

type LoadOptions struct {
	// ConfigFile overrides the search path when non-empty.
	ConfigFile string
	// Command supplies flags to bind; may be nil.
	Command *cobra.Command
	// DotEnv is the .env file loaded before anything else. Empty means ".env".
	DotEnv string
}

// Load layers defaults, the YAML config file, SHEETAGENT_* environment
// variables and command-line flags, in that order of precedence.
func Load(opts LoadOptions) (*Config, string, error) {
	dotEnv := opts.DotEnv
	if dotEnv == "" {
		dotEnv = ".env"
	}
	if _, err := os.Stat(dotEnv); err == nil {
		if err := godotenv.Load(dotEnv); err != nil {
			return nil, "", fmt.Errorf("load %s: %w", dotEnv, err)
		}
	}

	v := viper.New()
	for key, value := range defaultsMap(Default()) {
		v.SetDefault(key, value)
	}

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.AddConfigPath(".")
		if dir, err := UserConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	used := ""
	if err := v.ReadInConfig(); err == nil {
		used = v.ConfigFileUsed()
	} else {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Command != nil {
		for flagName, key := range FlagKeys {
			flag := opts.Command.Flags().Lookup(flagName)
			if flag == nil || !flag.Changed {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, "", fmt.Errorf("bind flag %s: %w", flagName, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, "", fmt.Errorf("decode config: %w", err)
	}

	cfg.StateDir = expandHome(cfg.StateDir)
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, used, nil
}

func (c *Config) Validate() error {
	switch c.Import.OnBadLines {
	case "skip", "error":
	default:
		return fmt.Errorf("import.on_bad_lines must be skip or error, got %q", c.Import.OnBadLines)
	}
	if c.Import.BatchSize <= 0 {
		return fmt.Errorf("import.batch_size must be positive")
	}
	if c.Agent.MaxTurns <= 0 {
		return fmt.Errorf("agent.max_turns must be positive")
	}
	if c.Watch.Workers <= 0 {
		c.Watch.Workers = 1
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	return nil
}

func UserConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

func defaultsMap(c *Config) map[string]any {
	return map[string]any{
		"data_dir":               c.DataDir,
		"db_path":                c.DBPath,
		"state_dir":              c.StateDir,
		"log.level":              c.Log.Level,
		"log.format":             c.Log.Format,
		"import.include":         c.Import.Include,
		"import.exclude":         c.Import.Exclude,
		"import.on_bad_lines":    c.Import.OnBadLines,
		"import.batch_size":      c.Import.BatchSize,
		"import.force":           c.Import.Force,
		"watch.debounce":         c.Watch.Debounce,
		"watch.max_batch":        c.Watch.MaxBatch,
		"watch.workers":          c.Watch.Workers,
		"watch.queue_size":       c.Watch.QueueSize,
		"agent.model":            c.Agent.Model,
		"agent.base_url":         c.Agent.BaseURL,
		"agent.temperature":      c.Agent.Temperature,
		"agent.max_turns":        c.Agent.MaxTurns,
		"agent.tool_timeout":     c.Agent.ToolTimeout,
		"agent.request_timeout":  c.Agent.RequestTimeout,
		"agent.max_result_chars": c.Agent.MaxResultChars,
		"agent.max_sessions":     c.Agent.MaxSessions,
		"agent.session_ttl":      c.Agent.SessionTTL,
		"download.base_url":      c.Download.BaseURL,
		"download.files":         c.Download.Files,
		"download.timeout":       c.Download.Timeout,
	}
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
