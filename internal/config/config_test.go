package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/foundrymcp/foundry/internal/backend"
	"github.com/foundrymcp/foundry/internal/config"
)

// testRoot points FOUNDRY_ROOT at a fresh directory and clears every other
// override so each test starts from the built-in defaults.
func testRoot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FOUNDRY_ROOT", dir)
	for _, name := range []string{
		"FOUNDRY_BACKEND", "FOUNDRY_JOURNAL",
		"FOUNDRY_LINEAR_API_KEY", "LINEAR_API_KEY",
		"FOUNDRY_LINEAR_TEAM_ID", "LINEAR_TEAM_ID",
	} {
		t.Setenv(name, "")
	}
	return dir
}

func writeConfigFile(t *testing.T, root, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config.yaml: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	root := testRoot(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Root != root {
		t.Errorf("Root = %s, want %s", cfg.Root, root)
	}
	if cfg.Backend != config.BackendLocal {
		t.Errorf("Backend = %s, want local", cfg.Backend)
	}
	if cfg.Journal.Disabled {
		t.Error("journal disabled by default")
	}
	if cfg.Linear.Endpoint != config.DefaultLinearEndpoint {
		t.Errorf("Endpoint = %s", cfg.Linear.Endpoint)
	}
	if cfg.Linear.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s, want 30s", cfg.Linear.Timeout)
	}
	if cfg.Linear.MaxRetries != 4 {
		t.Errorf("MaxRetries = %d, want 4", cfg.Linear.MaxRetries)
	}
	if cfg.File() != filepath.Join(root, "config.yaml") {
		t.Errorf("File = %s", cfg.File())
	}
	if cfg.JournalPath() != filepath.Join(root, "journal.db") {
		t.Errorf("JournalPath = %s", cfg.JournalPath())
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	root := testRoot(t)
	writeConfigFile(t, root, `
backend: linear
journal:
  disabled: true
linear:
  api-key: lin_api_file
  team-id: team-42
  timeout: 5s
  max-retries: 2
`)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != config.BackendLinear {
		t.Errorf("Backend = %s, want linear", cfg.Backend)
	}
	if !cfg.Journal.Disabled {
		t.Error("journal.disabled not read")
	}
	if cfg.Linear.APIKey != "lin_api_file" || cfg.Linear.TeamID != "team-42" {
		t.Errorf("credentials = %q / %q", cfg.Linear.APIKey, cfg.Linear.TeamID)
	}
	if cfg.Linear.Timeout != 5*time.Second {
		t.Errorf("Timeout = %s, want 5s", cfg.Linear.Timeout)
	}
	if cfg.Linear.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", cfg.Linear.MaxRetries)
	}
	// Unset keys keep their defaults.
	if cfg.Linear.Endpoint != config.DefaultLinearEndpoint {
		t.Errorf("Endpoint = %s", cfg.Linear.Endpoint)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	root := testRoot(t)
	writeConfigFile(t, root, `
backend: local
linear:
  api-key: lin_api_file
`)
	t.Setenv("FOUNDRY_BACKEND", "linear")
	t.Setenv("FOUNDRY_LINEAR_API_KEY", "lin_api_env")
	t.Setenv("FOUNDRY_LINEAR_TEAM_ID", "team-env")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != config.BackendLinear {
		t.Errorf("Backend = %s, want linear", cfg.Backend)
	}
	if cfg.Linear.APIKey != "lin_api_env" {
		t.Errorf("APIKey = %s, want env value", cfg.Linear.APIKey)
	}
	if cfg.Linear.TeamID != "team-env" {
		t.Errorf("TeamID = %s, want env value", cfg.Linear.TeamID)
	}
}

func TestLinearEnvFallbacks(t *testing.T) {
	testRoot(t)
	t.Setenv("FOUNDRY_BACKEND", "linear")
	t.Setenv("LINEAR_API_KEY", "lin_api_plain")
	t.Setenv("LINEAR_TEAM_ID", "team-plain")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Linear.APIKey != "lin_api_plain" || cfg.Linear.TeamID != "team-plain" {
		t.Errorf("fallback credentials = %q / %q", cfg.Linear.APIKey, cfg.Linear.TeamID)
	}
}

func TestLinearRequiresCredentials(t *testing.T) {
	testRoot(t)
	t.Setenv("FOUNDRY_BACKEND", "linear")

	_, err := config.Load()
	if backend.KindOf(err) != backend.KindInvalidInput {
		t.Fatalf("err = %v, want invalid_input", err)
	}
	if !strings.Contains(err.Error(), "API key") {
		t.Errorf("err = %v, want mention of the API key", err)
	}

	t.Setenv("FOUNDRY_LINEAR_API_KEY", "lin_api_test")
	_, err = config.Load()
	if backend.KindOf(err) != backend.KindInvalidInput {
		t.Fatalf("err = %v, want invalid_input", err)
	}
	if !strings.Contains(err.Error(), "team") {
		t.Errorf("err = %v, want mention of the team", err)
	}
}

func TestUnknownBackend(t *testing.T) {
	testRoot(t)
	t.Setenv("FOUNDRY_BACKEND", "sqlite")

	_, err := config.Load()
	if backend.KindOf(err) != backend.KindInvalidInput {
		t.Fatalf("err = %v, want invalid_input", err)
	}
	if !strings.Contains(err.Error(), `unknown backend "sqlite"`) {
		t.Errorf("err = %v", err)
	}
}

func TestJournalOffEnv(t *testing.T) {
	testRoot(t)
	t.Setenv("FOUNDRY_JOURNAL", "off")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Journal.Disabled {
		t.Error("FOUNDRY_JOURNAL=off did not disable the journal")
	}
}

func TestLoadMalformedFileErrors(t *testing.T) {
	root := testRoot(t)
	writeConfigFile(t, root, "backend: [oops\n")

	_, err := config.Load()
	if err == nil {
		t.Fatal("Load accepted malformed YAML")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("err = %v", err)
	}
}

func TestInitFile(t *testing.T) {
	root := testRoot(t)

	path, err := config.InitFile(root)
	if err != nil {
		t.Fatalf("InitFile: %v", err)
	}
	if path != filepath.Join(root, "config.yaml") {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read starter: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "#") {
		t.Error("starter is missing its header comment")
	}
	if !strings.Contains(text, "backend: local") {
		t.Errorf("starter missing backend default:\n%s", text)
	}
	if !strings.Contains(text, "timeout: 30s") {
		t.Errorf("starter missing readable timeout:\n%s", text)
	}

	// The starter must load cleanly as-is.
	if _, err := config.Load(); err != nil {
		t.Errorf("Load on starter: %v", err)
	}

	_, err = config.InitFile(root)
	if backend.KindOf(err) != backend.KindConflict {
		t.Fatalf("second InitFile err = %v, want conflict", err)
	}
}
