package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, used, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if used != "" {
		t.Errorf("expected no config file, got %s", used)
	}

	if cfg.DBPath != filepath.Join("data", "dbs", "local_debug.sqlite3") {
		t.Errorf("unexpected db path %s", cfg.DBPath)
	}
	if cfg.Agent.Model != "gemini-2.0-flash" {
		t.Errorf("unexpected model %s", cfg.Agent.Model)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("unexpected debounce %v", cfg.Watch.Debounce)
	}
	if len(cfg.Download.Files) != 2 {
		t.Errorf("expected two download files, got %v", cfg.Download.Files)
	}
	if cfg.Agent.MaxSessions != 256 || cfg.Agent.SessionTTL != time.Hour {
		t.Errorf("unexpected session bounds %d / %v", cfg.Agent.MaxSessions, cfg.Agent.SessionTTL)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	yamlDoc := "db_path: custom.sqlite3\nagent:\n  max_turns: 3\n  tool_timeout: 5s\nimport:\n  on_bad_lines: error\n"
	if err := os.WriteFile(filepath.Join(dir, "spreadsheet-agent.yaml"), []byte(yamlDoc), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHEETAGENT_AGENT_MAX_TURNS", "4")

	cfg, used, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if filepath.Base(used) != "spreadsheet-agent.yaml" {
		t.Errorf("expected config file to be used, got %q", used)
	}
	if cfg.DBPath != "custom.sqlite3" {
		t.Errorf("file value not applied: %s", cfg.DBPath)
	}
	if cfg.Agent.MaxTurns != 4 {
		t.Errorf("env should override file, got %d", cfg.Agent.MaxTurns)
	}
	if cfg.Agent.ToolTimeout != 5*time.Second {
		t.Errorf("duration not decoded: %v", cfg.Agent.ToolTimeout)
	}
	if cfg.Import.OnBadLines != "error" {
		t.Errorf("unexpected bad line policy %s", cfg.Import.OnBadLines)
	}
}

func TestLoadRejectsBadPolicy(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SHEETAGENT_IMPORT_ON_BAD_LINES", "warn")

	if _, _, err := Load(LoadOptions{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "absent.yaml")

	cfg, used, err := Load(LoadOptions{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if used != "" {
		t.Errorf("missing file should not be reported as used, got %s", used)
	}
	if cfg.Import.BatchSize != 500 {
		t.Errorf("expected defaults, got batch size %d", cfg.Import.BatchSize)
	}
}

func TestDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SHEETAGENT_DB_PATH=fromdotenv.db\nSHEETAGENT_DATA_DIR=sheets\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHEETAGENT_DB_PATH", "fromenv.db")
	t.Cleanup(func() { os.Unsetenv("SHEETAGENT_DATA_DIR") })

	cfg, _, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "fromenv.db" {
		t.Errorf("process env must win over .env, got %s", cfg.DBPath)
	}
	if cfg.DataDir != "sheets" {
		t.Errorf(".env value not applied, got %s", cfg.DataDir)
	}
}

func TestCredentialsPrecedence(t *testing.T) {
	t.Setenv("SHEETAGENT_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "gemini")
	t.Setenv("OPENAI_API_KEY", "openai")

	creds, err := LoadCredentials()
	if err != nil {
		t.Fatal(err)
	}
	key, err := creds.LLMKey()
	if err != nil {
		t.Fatal(err)
	}
	if key != "gemini" {
		t.Errorf("expected gemini key first, got %s", key)
	}

	if _, err := (Credentials{}).LLMKey(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "spreadsheet-agent.yaml")

	cfg := Default()
	cfg.DBPath = "roundtrip.sqlite3"
	if err := WriteFile(cfg, path, false); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := WriteFile(cfg, path, false); !errors.Is(err, ErrConfigExists) {
		t.Fatalf("expected ErrConfigExists, got %v", err)
	}

	chdir(t, t.TempDir())
	loaded, _, err := Load(LoadOptions{ConfigFile: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.DBPath != "roundtrip.sqlite3" {
		t.Errorf("db path lost in round trip: %s", loaded.DBPath)
	}
	if loaded.Agent.RequestTimeout != cfg.Agent.RequestTimeout {
		t.Errorf("request timeout lost: %v", loaded.Agent.RequestTimeout)
	}
}
