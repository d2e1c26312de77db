package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

var ErrMissingAPIKey = errors.New("no LLM API key found: set SHEETAGENT_API_KEY, GOOGLE_API_KEY, GEMINI_API_KEY or OPENAI_API_KEY")

// Credentials are read from the environment only and never persisted.
type Credentials struct {
	APIKey       string `env:"SHEETAGENT_API_KEY"`
	GoogleAPIKey string `env:"GOOGLE_API_KEY"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
}

func LoadCredentials() (Credentials, error) {
	var creds Credentials
	if err := env.Parse(&creds); err != nil {
		return Credentials{}, fmt.Errorf("parse env: %w", err)
	}
	return creds, nil
}

// LLMKey returns the first configured key in precedence order.
func (c Credentials) LLMKey() (string, error) {
	for _, key := range []string{c.APIKey, c.GoogleAPIKey, c.GeminiAPIKey, c.OpenAIAPIKey} {
		if key = strings.TrimSpace(key); key != "" {
			return key, nil
		}
	}
	return "", ErrMissingAPIKey
}
