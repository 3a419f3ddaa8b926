package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per capability kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"recognition": {"mock", "wsasr"},
	"synthesis":   {"mock", "console", "openai"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and [Validate].
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

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Log.Level != "" && !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	if cfg.Wake.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("wake.max_retries %d must not be negative", cfg.Wake.MaxRetries))
	}

	if cfg.Voice.Rate != 0 && (cfg.Voice.Rate < 0.5 || cfg.Voice.Rate > 2.0) {
		errs = append(errs, fmt.Errorf("voice.rate %.2f is out of range [0.5, 2.0]", cfg.Voice.Rate))
	}
	if cfg.Voice.Pitch != 0 && (cfg.Voice.Pitch < 0.5 || cfg.Voice.Pitch > 2.0) {
		errs = append(errs, fmt.Errorf("voice.pitch %.2f is out of range [0.5, 2.0]", cfg.Voice.Pitch))
	}
	if cfg.Voice.Volume < 0 || cfg.Voice.Volume > 1.0 {
		errs = append(errs, fmt.Errorf("voice.volume %.2f is out of range [0.0, 1.0]", cfg.Voice.Volume))
	}

	if cfg.Reminders.DeliveryMode != "" && !cfg.Reminders.DeliveryMode.IsValid() {
		errs = append(errs, fmt.Errorf("reminders.delivery_mode %q is invalid; valid values: notification, voice, both", cfg.Reminders.DeliveryMode))
	}

	validateProviderName("recognition", cfg.Providers.Recognition.Name)
	validateProviderName("synthesis", cfg.Providers.Synthesis.Name)

	if cfg.Storage.Backend != "" && !cfg.Storage.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("storage.backend %q is invalid; valid values: memory, file, postgres", cfg.Storage.Backend))
	}
	if cfg.Storage.Backend == StorageFile && cfg.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required when storage.backend is file"))
	}
	if cfg.Storage.Backend == StoragePostgres && cfg.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.postgres_dsn is required when storage.backend is postgres"))
	}
	if cfg.Storage.Backend == StorageMemory || cfg.Storage.Backend == "" {
		slog.Warn("storage.backend is memory; reminders will not survive a restart")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
