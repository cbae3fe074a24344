package config

import (
	"fmt"
	"log/slog"
	"sync"
)

// Source re-reads a configuration file for long-running commands. It keeps
// the last configuration that loaded and validated, so a broken edit never
// replaces a working one.
type Source struct {
	path   string
	pin    func(next *Config)
	logger *slog.Logger

	mu      sync.RWMutex
	current *Config
}

// NewSource returns a Source that starts from initial. pin, when non-nil,
// runs on every reloaded configuration before validation; callers use it
// to carry over settings that cannot change while running.
func NewSource(path string, initial *Config, pin func(next *Config)) *Source {
	return &Source{
		path:    path,
		pin:     pin,
		logger:  slog.Default().With("component", "config.source"),
		current: initial,
	}
}

// Current returns the active configuration.
func (s *Source) Current() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload loads the file again with environment overrides. On failure the
// previous configuration stays active and is returned with the error.
// A Source without a path never changes.
func (s *Source) Reload() (*Config, error) {
	if s.path == "" {
		return s.Current(), nil
	}

	cfg, err := LoadConfigWithEnvOverrides(s.path)
	if err == nil && s.pin != nil {
		s.pin(cfg)
		err = Validate(cfg)
	}
	if err != nil {
		s.logger.Warn("configuration reload failed, keeping previous", "path", s.path, "error", err)
		return s.Current(), fmt.Errorf("failed to reload configuration: %w", err)
	}

	s.mu.Lock()
	s.current = cfg
	s.mu.Unlock()

	s.logger.Debug("configuration reloaded", "path", s.path)
	return cfg, nil
}
