package watcher

import (
	"time"

	"github.com/alucardeht/spreadsheet-agent/internal/config"
)

type WatcherConfig struct {
	DebounceWindow time.Duration `json:"debounce_window"`
	MaxBatchSize   int           `json:"max_batch_size"`
	Include        []string      `json:"include"`
	Exclude        []string      `json:"exclude"`
	WatchHidden    bool          `json:"watch_hidden"`
}

func DefaultWatcherConfig() WatcherConfig {
	return FromConfig(config.Default())
}

func FromConfig(cfg *config.Config) WatcherConfig {
	return WatcherConfig{
		DebounceWindow: cfg.Watch.Debounce,
		MaxBatchSize:   cfg.Watch.MaxBatch,
		Include:        cfg.Import.Include,
		Exclude:        cfg.Import.Exclude,
	}
}
