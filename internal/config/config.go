// Package config loads gateway configuration from an optional config.yaml
// file with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces the gateway's environment variables. A double
// underscore separates nesting levels, e.g. LLMGW_SERVER__PORT.
const envPrefix = "LLMGW_"

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Limits   LimitsConfig   `koanf:"limits"`
	Filter   FilterConfig   `koanf:"filter"`
	Storage  StorageConfig  `koanf:"storage"`
	Models   ModelsConfig   `koanf:"models"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type UpstreamConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// LimitsConfig tunes admission control. The defaults match the documented
// behavior: 15 requests per minute, blacklist after 2 rapid requests.
type LimitsConfig struct {
	PerMinute         int           `koanf:"per_minute"`
	BurstThreshold    int           `koanf:"burst_threshold"`
	ShortWindow       time.Duration `koanf:"short_window"`
	ResetWindow       time.Duration `koanf:"reset_window"`
	BlacklistDuration time.Duration `koanf:"blacklist_duration"`
	SweepInterval     time.Duration `koanf:"sweep_interval"`
	IdleTTL           time.Duration `koanf:"idle_ttl"`
}

type FilterConfig struct {
	// ExtraPatterns are appended after the built-in pattern list.
	ExtraPatterns []string `koanf:"extra_patterns"`
}

type StorageConfig struct {
	// Path is the SQLite database file for the request audit log. Empty
	// disables audit logging.
	Path string `koanf:"path"`
}

type ModelsConfig struct {
	Default string   `koanf:"default"`
	Allowed []string `koanf:"allowed"`
}

// Load reads config.yaml if present, then environment variables, then fills
// in defaults for anything still unset.
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile is Load with an explicit file path.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// Environment variables override file config
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	setDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"server.port":               8080,
		"upstream.base_url":         "http://localhost:11434",
		"upstream.timeout":          "10s",
		"limits.per_minute":         15,
		"limits.burst_threshold":    2,
		"limits.short_window":       "1s",
		"limits.reset_window":       "5s",
		"limits.blacklist_duration": "1m",
		"limits.sweep_interval":     "1m",
		"limits.idle_ttl":           "10m",
		"storage.path":              "./data/gateway.db",
		"models.default":            "gemma3:1b",
		"models.allowed":            []string{"gemma3:1b", "mistral"},
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Limits.PerMinute <= 0 {
		return fmt.Errorf("limits.per_minute must be positive, got %d", c.Limits.PerMinute)
	}
	if c.Limits.BurstThreshold <= 0 {
		return fmt.Errorf("limits.burst_threshold must be positive, got %d", c.Limits.BurstThreshold)
	}
	if c.Limits.ShortWindow >= c.Limits.ResetWindow {
		return fmt.Errorf("limits.short_window (%s) must be below limits.reset_window (%s)",
			c.Limits.ShortWindow, c.Limits.ResetWindow)
	}
	if c.Models.Default == "" {
		return fmt.Errorf("models.default must be set")
	}
	return nil
}
