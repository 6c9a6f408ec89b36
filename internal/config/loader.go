package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Persistence.Backend == "" {
		cfg.Persistence.Backend = PersistFile
	}
	if cfg.Persistence.Backend == PersistFile && cfg.Persistence.Path == "" {
		cfg.Persistence.Path = "data"
	}
	if cfg.Memory.HistoryWindow == 0 {
		cfg.Memory.HistoryWindow = 30
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if !cfg.Persistence.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("persistence.backend %q is invalid; valid values: file, postgres", cfg.Persistence.Backend))
	}
	if cfg.Persistence.Backend == PersistPostgres && cfg.Persistence.PostgresDSN == "" {
		errs = append(errs, errors.New("persistence.postgres_dsn is required when persistence.backend is postgres"))
	}

	if cfg.Assistant.APIKey == "" {
		errs = append(errs, errors.New("assistant.api_key is required"))
	}
	if cfg.Assistant.Timeout < 0 {
		errs = append(errs, fmt.Errorf("assistant.timeout %s must not be negative", cfg.Assistant.Timeout.Std()))
	}
	if cfg.Speech.Timeout < 0 {
		errs = append(errs, fmt.Errorf("speech.timeout %s must not be negative", cfg.Speech.Timeout.Std()))
	}

	if cfg.Memory.HistoryWindow < 0 {
		errs = append(errs, fmt.Errorf("memory.history_window %d must not be negative", cfg.Memory.HistoryWindow))
	}
	if cfg.Memory.Debounce < 0 {
		errs = append(errs, fmt.Errorf("memory.debounce %s must not be negative", cfg.Memory.Debounce.Std()))
	}

	if p := cfg.Profile; p != nil {
		if p.Voice != "" && !p.Voice.IsValid() {
			errs = append(errs, fmt.Errorf("profile.voice %q is invalid; valid values: aria, cove, ember, juniper, sol", p.Voice))
		}
		if p.Register != "" && !p.Register.IsValid() {
			errs = append(errs, fmt.Errorf("profile.register %q is invalid; valid values: polite, casual", p.Register))
		}
	}

	return errors.Join(errs...)
}
