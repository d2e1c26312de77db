package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

var ErrConfigExists = errors.New("config file already exists")

func Marshal(c *Config) ([]byte, error) {
	return yaml.Marshal(c)
}

// WriteFile stores c as YAML at path. It refuses to replace an existing file
// unless overwrite is set.
func WriteFile(c *Config, path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	data, err := Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// DefaultFilePath is where `config init` writes when no path is given.
func DefaultFilePath() (string, error) {
	dir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName+".yaml"), nil
}
