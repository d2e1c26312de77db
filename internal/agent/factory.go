package agent

import (
	"github.com/alucardeht/spreadsheet-agent/internal/config"
)

// NewModel builds the configured OpenAI-compatible model behind a circuit
// breaker.
func NewModel(cfg config.AgentConfig, apiKey string) Model {
	return NewGuardedModel(NewOpenAIModel(OpenAIConfig{
		APIKey:     apiKey,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.RequestTimeout,
		MaxRetries: 2,
	}), nil)
}
