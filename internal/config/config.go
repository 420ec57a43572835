// Package config loads the client configuration from an optional YAML file
// and KESTREL_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Backend    BackendConfig    `koanf:"backend"`
	Ask        AskConfig        `koanf:"ask"`
	Prescreen  PrescreenConfig  `koanf:"prescreen"`
	Voice      VoiceConfig      `koanf:"voice"`
	Transcript TranscriptConfig `koanf:"transcript"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

type BackendConfig struct {
	BaseURL          string `koanf:"base_url"`
	MaxAttempts      int    `koanf:"max_attempts"`
	RetryBaseDelayMS int    `koanf:"retry_base_delay_ms"`
}

type AskConfig struct {
	Mode                string   `koanf:"mode"`
	Profile             string   `koanf:"profile"`
	RiskMode            string   `koanf:"risk_mode"`
	Explain             bool     `koanf:"explain"`
	FreshnessSLAMinutes int      `koanf:"freshness_sla_minutes"`
	RequiredSources     []string `koanf:"required_sources"`
	Scenario            string   `koanf:"scenario"`
}

type PrescreenConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
}

type VoiceConfig struct {
	Enabled       bool   `koanf:"enabled"`
	Language      string `koanf:"language"`
	SpeechURL     string `koanf:"speech_url"`
	PlayerCommand string `koanf:"player_command"`
	CacheSize     int    `koanf:"cache_size"`
}

type TranscriptConfig struct {
	Type string `koanf:"type"` // sqlite, memory, none
	Path string `koanf:"path"`
}

type TelemetryConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Load reads configuration from the YAML file at path (if non-empty), then
// overlays environment variables, then applies defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Double underscore separates levels so snake_case keys survive:
	// KESTREL_BACKEND__BASE_URL maps to backend.base_url.
	if err := k.Load(env.Provider("KESTREL_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "KESTREL_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	defaults := map[string]any{
		"backend.base_url":            "http://localhost:8080",
		"backend.max_attempts":        3,
		"backend.retry_base_delay_ms": 500,
		"ask.mode":                    "agentic",
		"ask.profile":                 "default",
		"ask.risk_mode":               "standard",
		"ask.explain":                 true,
		"prescreen.enabled":           true,
		"prescreen.url":               "http://localhost:8080/v1/prescreen",
		"voice.language":              "en",
		"voice.speech_url":            "http://localhost:8080/v1/speech",
		"voice.cache_size":            32,
		"transcript.type":             "sqlite",
		"transcript.path":             "kestrel.db",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
