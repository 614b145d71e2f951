// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for host applications
// built on this module.
//
// Configuration is loaded from a single file specified by:
//   - SYFTRPC_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures deterministic,
// auditable configuration with no hidden overrides.
//
// The config file may contain environment-specific sections (development,
// staging, production) that override base values when the environment matches.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for a host application.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Server configures the event server (§4.6).
	Server ServerConfig `yaml:"server"`

	// Bridge configures the HTTP bridge (§4.7). Only relevant to
	// applications that register the bridge's handler.
	Bridge BridgeConfig `yaml:"bridge"`

	// Cleanup configures the cleanup service (§4.8).
	Cleanup CleanupConfig `yaml:"cleanup"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths   *PathsConfig   `yaml:"paths,omitempty"`
	Server  *ServerConfig  `yaml:"server,omitempty"`
	Bridge  *BridgeConfig  `yaml:"bridge,omitempty"`
	Cleanup *CleanupConfig `yaml:"cleanup,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the datasite workspace root — the directory that the
	// (out-of-scope) sync agent keeps replicated, containing
	// datasites/<email>/app_data/<app>/rpc/...
	Root string `yaml:"root"`

	// State is where the future store's per-app databases live.
	State string `yaml:"state"`
}

// ServerConfig configures the event server.
type ServerConfig struct {
	// AppName identifies the application under app_data/<app_name>.
	AppName string `yaml:"app_name"`

	// Workers is the worker pool size. Default: 4.
	Workers int `yaml:"workers"`

	// IntakeCapacity bounds the dispatch queue; events beyond this are
	// dropped and counted. Default: 256.
	IntakeCapacity int `yaml:"intake_capacity"`

	// PollInterval is the fallback full-tree rescan interval used when
	// the filesystem watcher degrades. Default: 5s.
	PollInterval string `yaml:"poll_interval"`

	// DebugMode controls whether handler-error response bodies carry
	// full diagnostic detail (type, message, traceback-equivalent) or
	// a generic message safe to show in production.
	DebugMode bool `yaml:"debug_mode"`
}

// BridgeConfig configures the HTTP bridge.
type BridgeConfig struct {
	// AllowedHosts is a list of host globs the bridge may forward to.
	// An empty list allows nothing — the bridge fails closed.
	AllowedHosts []string `yaml:"allowed_hosts"`

	// PerHostRate bounds outbound requests per second per upstream
	// host. Zero disables rate limiting.
	PerHostRate float64 `yaml:"per_host_rate"`
}

// CleanupConfig configures the cleanup service.
type CleanupConfig struct {
	// Interval is how often the sweep runs. Default: 1m.
	Interval string `yaml:"cleanup_interval"`

	// Retention is added to a record's expiry before it becomes
	// eligible for deletion. Default: 0s (delete as soon as expired).
	Retention string `yaml:"cleanup_retention"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "syftrpc")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:  defaultRoot,
			State: filepath.Join(defaultRoot, "state"),
		},
		Server: ServerConfig{
			AppName:        "app",
			Workers:        4,
			IntakeCapacity: 256,
			PollInterval:   "5s",
			DebugMode:      true,
		},
		Bridge: BridgeConfig{
			AllowedHosts: nil,
			PerHostRate:  0,
		},
		Cleanup: CleanupConfig{
			Interval:  "1m",
			Retention: "0s",
		},
	}
}

// Load loads configuration from the SYFTRPC_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if SYFTRPC_CONFIG is not set, this fails.
// This ensures deterministic, auditable configuration with no hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("SYFTRPC_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("SYFTRPC_CONFIG environment variable not set; " +
			"set it to the path of your config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do not
// override config values - this ensures deterministic, auditable configuration.
// The only expansion performed is ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/staging/production sections in the file).
	cfg.applyEnvironmentOverrides()

	// Expand ${HOME} and similar variables in paths for portability.
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: no diagnostic detail in error responses.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Server: &ServerConfig{
					DebugMode: false,
				},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.State != "" {
			c.Paths.State = overrides.Paths.State
		}
	}

	if overrides.Server != nil {
		if overrides.Server.AppName != "" {
			c.Server.AppName = overrides.Server.AppName
		}
		if overrides.Server.Workers != 0 {
			c.Server.Workers = overrides.Server.Workers
		}
		if overrides.Server.IntakeCapacity != 0 {
			c.Server.IntakeCapacity = overrides.Server.IntakeCapacity
		}
		if overrides.Server.PollInterval != "" {
			c.Server.PollInterval = overrides.Server.PollInterval
		}
		// DebugMode is a bool, so we always apply it from overrides.
		c.Server.DebugMode = overrides.Server.DebugMode
	}

	if overrides.Bridge != nil {
		if overrides.Bridge.AllowedHosts != nil {
			c.Bridge.AllowedHosts = overrides.Bridge.AllowedHosts
		}
		if overrides.Bridge.PerHostRate != 0 {
			c.Bridge.PerHostRate = overrides.Bridge.PerHostRate
		}
	}

	if overrides.Cleanup != nil {
		if overrides.Cleanup.Interval != "" {
			c.Cleanup.Interval = overrides.Cleanup.Interval
		}
		if overrides.Cleanup.Retention != "" {
			c.Cleanup.Retention = overrides.Cleanup.Retention
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"SYFTRPC_ROOT": c.Paths.Root,
		"HOME":         os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["SYFTRPC_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.State = expandVars(c.Paths.State, vars)
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

		// Check provided vars first, then environment.
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

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}

	if c.Server.AppName == "" {
		errs = append(errs, fmt.Errorf("server.app_name is required"))
	}

	if c.Server.Workers <= 0 {
		errs = append(errs, fmt.Errorf("server.workers must be positive"))
	}

	if _, err := time.ParseDuration(c.Server.PollInterval); err != nil {
		errs = append(errs, fmt.Errorf("server.poll_interval: %w", err))
	}

	if _, err := time.ParseDuration(c.Cleanup.Interval); err != nil {
		errs = append(errs, fmt.Errorf("cleanup.cleanup_interval: %w", err))
	}

	if _, err := time.ParseDuration(c.Cleanup.Retention); err != nil {
		errs = append(errs, fmt.Errorf("cleanup.cleanup_retention: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Paths.Root,
		c.Paths.State,
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}
