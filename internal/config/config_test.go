package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.BaseURL != "http://localhost:8080" {
		t.Errorf("backend base url = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.MaxAttempts != 3 || cfg.Backend.RetryBaseDelayMS != 500 {
		t.Errorf("retry defaults = %+v", cfg.Backend)
	}
	if cfg.Ask.Mode != "agentic" || !cfg.Ask.Explain {
		t.Errorf("ask defaults = %+v", cfg.Ask)
	}
	if !cfg.Prescreen.Enabled {
		t.Error("prescreen must default on")
	}
	if cfg.Voice.Enabled {
		t.Error("voice must default off")
	}
	if cfg.Voice.Language != "en" || cfg.Voice.CacheSize != 32 {
		t.Errorf("voice defaults = %+v", cfg.Voice)
	}
	if cfg.Transcript.Type != "sqlite" || cfg.Transcript.Path != "kestrel.db" {
		t.Errorf("transcript defaults = %+v", cfg.Transcript)
	}
	if cfg.Telemetry.Enabled {
		t.Error("telemetry must default off")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("KESTREL_BACKEND__BASE_URL", "http://agent.internal:9090")
	t.Setenv("KESTREL_BACKEND__MAX_ATTEMPTS", "5")
	t.Setenv("KESTREL_ASK__MODE", "brief")
	t.Setenv("KESTREL_VOICE__ENABLED", "true")
	t.Setenv("KESTREL_TRANSCRIPT__TYPE", "memory")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.BaseURL != "http://agent.internal:9090" {
		t.Errorf("backend base url = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.MaxAttempts != 5 {
		t.Errorf("max attempts = %d", cfg.Backend.MaxAttempts)
	}
	if cfg.Ask.Mode != "brief" {
		t.Errorf("ask mode = %q", cfg.Ask.Mode)
	}
	if !cfg.Voice.Enabled {
		t.Error("voice not enabled from env")
	}
	if cfg.Transcript.Type != "memory" {
		t.Errorf("transcript type = %q", cfg.Transcript.Type)
	}
	// Untouched keys keep their defaults.
	if cfg.Backend.RetryBaseDelayMS != 500 {
		t.Errorf("retry base delay = %d", cfg.Backend.RetryBaseDelayMS)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kestrel.yaml")
	content := `
backend:
  base_url: http://file.internal:7070
ask:
  mode: brief
  required_sources:
    - kql
    - graph
prescreen:
  enabled: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.BaseURL != "http://file.internal:7070" {
		t.Errorf("backend base url = %q", cfg.Backend.BaseURL)
	}
	if !reflect.DeepEqual(cfg.Ask.RequiredSources, []string{"kql", "graph"}) {
		t.Errorf("required sources = %v", cfg.Ask.RequiredSources)
	}
	if cfg.Prescreen.Enabled {
		t.Error("file must be able to disable prescreen")
	}
}

func TestLoadEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kestrel.yaml")
	if err := os.WriteFile(path, []byte("ask:\n  mode: deep\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KESTREL_ASK__MODE", "brief")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Ask.Mode != "brief" {
		t.Errorf("ask mode = %q, want env to win over file", cfg.Ask.Mode)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
