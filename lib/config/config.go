// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the replay server.
//
// Configuration is loaded from a single file specified by:
//   - IPWB_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures deterministic,
// auditable configuration with no hidden overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for the replay server.
type Config struct {
	// Index configures where the CDXJ index comes from.
	Index IndexConfig `yaml:"index"`

	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server"`

	// Store configures the content store daemon connection.
	Store StoreConfig `yaml:"store"`

	// Replay configures response reconstruction and TimeMap output.
	Replay ReplayConfig `yaml:"replay"`
}

// IndexConfig configures the CDXJ index source.
type IndexConfig struct {
	// Location is a filesystem path, a gzip-compressed path, or a
	// bare content hash resolved through the store.
	Location string `yaml:"location"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Listen is the address the server binds.
	// Default: :2016
	Listen string `yaml:"listen"`
}

// StoreConfig configures the content store daemon connection.
type StoreConfig struct {
	// Endpoint is the daemon HTTP API base URL.
	// Default: http://127.0.0.1:5001
	Endpoint string `yaml:"endpoint"`

	// FetchTimeout bounds each blob fetch.
	// Default: 10s
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// CacheEntries sizes the in-memory blob cache. Zero disables it.
	// Default: 256
	CacheEntries int `yaml:"cache_entries"`
}

// ReplayConfig configures response reconstruction and TimeMap output.
type ReplayConfig struct {
	// Proxy, when set, replaces the scheme and authority of every
	// URI the server emits in Memento responses. Used when the
	// server sits behind a reverse proxy under another name.
	Proxy string `yaml:"proxy"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file;
// they make every field usable without one, since a config file is
// optional for this server.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen: ":2016",
		},
		Store: StoreConfig{
			Endpoint:     "http://127.0.0.1:5001",
			FetchTimeout: 10 * time.Second,
			CacheEntries: 256,
		},
	}
}

// Load loads configuration from the IPWB_CONFIG environment variable.
//
// There are no fallbacks - if IPWB_CONFIG is not set, this fails.
// Commands that accept --config should call [LoadFile] directly.
func Load() (*Config, error) {
	configPath := os.Getenv("IPWB_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("IPWB_CONFIG environment variable not set; " +
			"set it to the path of your replay config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables
// do not override config values. The only expansion performed is
// ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()

	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in the
// path-like fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Index.Location = expandVars(c.Index.Location, vars)
	c.Store.Endpoint = expandVars(c.Store.Endpoint, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Index.Location == "" {
		errs = append(errs, fmt.Errorf("index.location is required"))
	}
	if c.Server.Listen == "" {
		errs = append(errs, fmt.Errorf("server.listen is required"))
	}
	if c.Store.Endpoint == "" {
		errs = append(errs, fmt.Errorf("store.endpoint is required"))
	}
	if c.Store.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("store.fetch_timeout must be positive"))
	}
	if c.Store.CacheEntries < 0 {
		errs = append(errs, fmt.Errorf("store.cache_entries must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
