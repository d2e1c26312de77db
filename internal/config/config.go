package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	AppName   = "spreadsheet-agent"
	EnvPrefix = "SHEETAGENT"
	FileName  = "spreadsheet-agent"
)

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type ImportConfig struct {
	Include    []string `mapstructure:"include" yaml:"include"`
	Exclude    []string `mapstructure:"exclude" yaml:"exclude"`
	OnBadLines string   `mapstructure:"on_bad_lines" yaml:"on_bad_lines"`
	BatchSize  int      `mapstructure:"batch_size" yaml:"batch_size"`
	Force      bool     `mapstructure:"force" yaml:"force"`
}

type WatchConfig struct {
	Debounce  time.Duration `mapstructure:"debounce" yaml:"debounce"`
	MaxBatch  int           `mapstructure:"max_batch" yaml:"max_batch"`
	Workers   int           `mapstructure:"workers" yaml:"workers"`
	QueueSize int           `mapstructure:"queue_size" yaml:"queue_size"`
}

type AgentConfig struct {
	Model          string        `mapstructure:"model" yaml:"model"`
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	Temperature    float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTurns       int           `mapstructure:"max_turns" yaml:"max_turns"`
	ToolTimeout    time.Duration `mapstructure:"tool_timeout" yaml:"tool_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	MaxResultChars int           `mapstructure:"max_result_chars" yaml:"max_result_chars"`
	MaxSessions    int           `mapstructure:"max_sessions" yaml:"max_sessions"`
	SessionTTL     time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
}

type DownloadConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Files   []string      `mapstructure:"files" yaml:"files"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type Config struct {
	DataDir  string         `mapstructure:"data_dir" yaml:"data_dir"`
	DBPath   string         `mapstructure:"db_path" yaml:"db_path"`
	StateDir string         `mapstructure:"state_dir" yaml:"state_dir"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Import   ImportConfig   `mapstructure:"import" yaml:"import"`
	Watch    WatchConfig    `mapstructure:"watch" yaml:"watch"`
	Agent    AgentConfig    `mapstructure:"agent" yaml:"agent"`
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
}

func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		DataDir:  filepath.Join("data", "spreadsheets"),
		DBPath:   filepath.Join("data", "dbs", "local_debug.sqlite3"),
		StateDir: filepath.Join(homeDir, ".spreadsheet-agent"),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Import: ImportConfig{
			Include:    []string{"*.csv", "*.xlsx", "*.xlsm", "*.xls"},
			Exclude:    []string{"~$*", ".*"},
			OnBadLines: "skip",
			BatchSize:  500,
		},
		Watch: WatchConfig{
			Debounce:  500 * time.Millisecond,
			MaxBatch:  50,
			Workers:   2,
			QueueSize: 256,
		},
		Agent: AgentConfig{
			Model:          "gemini-2.0-flash",
			BaseURL:        "https://generativelanguage.googleapis.com/v1beta/openai/",
			Temperature:    0.2,
			MaxTurns:       8,
			ToolTimeout:    30 * time.Second,
			RequestTimeout: 60 * time.Second,
			MaxResultChars: 8000,
			MaxSessions:    256,
			SessionTTL:     time.Hour,
		},
		Download: DownloadConfig{
			BaseURL: "https://data.neo4j.com/northwind/",
			Files:   []string{"orders.csv", "order-details.csv"},
			Timeout: 60 * time.Second,
		},
	}
}

func (c *Config) LedgerPath() string {
	return filepath.Join(c.StateDir, "ledger.db")
}

func (c *Config) SocketPath() string {
	return filepath.Join(c.StateDir, "daemon.sock")
}

func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.StateDir, 0700); err != nil {
		return err
	}
	return os.MkdirAll(filepath.Dir(c.DBPath), 0755)
}
