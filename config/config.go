// Package config loads the process-wide delegation settings. Configuration
// is read once at startup from defaults, an optional YAML file and
// TASKMESH_* environment variables (in that order of precedence); there is
// no live reconfiguration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names consumed by FromEnv.
const (
	EnvEnabled             = "TASKMESH_ENABLED"
	EnvMaxConcurrentAgents = "TASKMESH_MAX_CONCURRENT_AGENTS"
	EnvMaxDelegationDepth  = "TASKMESH_MAX_DELEGATION_DEPTH"
	EnvTaskTimeout         = "TASKMESH_TASK_TIMEOUT"
	EnvSlotWaitTimeout     = "TASKMESH_SLOT_WAIT_TIMEOUT"
	EnvCacheTTL            = "TASKMESH_CACHE_TTL"
	EnvCacheMaxEntries     = "TASKMESH_CACHE_MAX_ENTRIES"
)

// Config holds the delegation subsystem settings.
type Config struct {
	// Enabled is the global feature gate. When false, Delegate returns an
	// immediate error suggesting direct execution; it never silently
	// no-ops.
	Enabled bool `yaml:"enabled"`

	// MaxConcurrentAgents is the ceiling for any single agent's
	// concurrency bound, and the fallback when an agent declares none.
	MaxConcurrentAgents int `yaml:"max_concurrent_agents"`

	// MaxDelegationDepth bounds how deep delegation chains may nest.
	MaxDelegationDepth int `yaml:"max_delegation_depth"`

	// TaskTimeout is the per-task wait+execution budget applied when a
	// task declares none.
	TaskTimeout time.Duration `yaml:"task_timeout"`

	// SlotWaitTimeout caps time queued for an admission slot when the
	// delegation deadline is further away.
	SlotWaitTimeout time.Duration `yaml:"slot_wait_timeout"`

	// CacheTTL and CacheMaxEntries tune the shared content cache.
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	CacheMaxEntries int           `yaml:"cache_max_entries"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		Enabled:             true,
		MaxConcurrentAgents: 5,
		MaxDelegationDepth:  3,
		TaskTimeout:         2 * time.Minute,
		SlotWaitTimeout:     30 * time.Second,
		CacheTTL:            5 * time.Minute,
		CacheMaxEntries:     256,
	}
}

// Load builds the effective configuration: defaults, overlaid by the YAML
// file at path (when non-empty), overlaid by environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// FromEnv builds the effective configuration from defaults plus
// environment variables only.
func FromEnv() (Config, error) {
	return Load("")
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(EnvEnabled); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvEnabled, err)
		}
		cfg.Enabled = enabled
	}

	if err := envInt(EnvMaxConcurrentAgents, &cfg.MaxConcurrentAgents); err != nil {
		return err
	}
	if err := envInt(EnvMaxDelegationDepth, &cfg.MaxDelegationDepth); err != nil {
		return err
	}
	if err := envInt(EnvCacheMaxEntries, &cfg.CacheMaxEntries); err != nil {
		return err
	}
	if err := envDuration(EnvTaskTimeout, &cfg.TaskTimeout); err != nil {
		return err
	}
	if err := envDuration(EnvSlotWaitTimeout, &cfg.SlotWaitTimeout); err != nil {
		return err
	}
	if err := envDuration(EnvCacheTTL, &cfg.CacheTTL); err != nil {
		return err
	}

	return nil
}

func envInt(name string, dst *int) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = n
	return nil
}

func envDuration(name string, dst *time.Duration) error {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: expected a duration like 90s or 2m: %w", name, err)
	}
	*dst = d
	return nil
}

// Validate rejects configurations the subsystem cannot run with.
func (c Config) Validate() error {
	if c.MaxConcurrentAgents < 1 {
		return fmt.Errorf("max_concurrent_agents must be >= 1, got %d", c.MaxConcurrentAgents)
	}
	if c.MaxDelegationDepth < 0 {
		return fmt.Errorf("max_delegation_depth must be >= 0, got %d", c.MaxDelegationDepth)
	}
	if c.TaskTimeout <= 0 {
		return fmt.Errorf("task_timeout must be positive, got %s", c.TaskTimeout)
	}
	if c.SlotWaitTimeout < 0 {
		return fmt.Errorf("slot_wait_timeout must be >= 0, got %s", c.SlotWaitTimeout)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive, got %s", c.CacheTTL)
	}
	if c.CacheMaxEntries < 1 {
		return fmt.Errorf("cache_max_entries must be >= 1, got %d", c.CacheMaxEntries)
	}
	return nil
}
