// Package config holds cardforge's runtime configuration: upstream catalog
// endpoint, cache sizing, and diagnostics server settings.
//
// The load/singleton shape is grounded on the teacher's
// internal/config/config.go (CreateDefaultConfig / Load / Get); CLI flag
// parsing is dropped per spec.md's Non-goals (no CLI argument parsing in
// core scope), and an optional on-disk layer is added via YAML, matching
// the teacher's own direct dependency on gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tunables for a cardforge instance.
type Config struct {
	Upstream UpstreamConfig `yaml:"upstream"`
	Cache    CacheConfig    `yaml:"cache"`
	Diag     DiagConfig     `yaml:"diag"`
	Debug    bool           `yaml:"debug"`
}

// UpstreamConfig describes the remote card catalog API.
type UpstreamConfig struct {
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Cooldown  time.Duration `yaml:"cooldown"`
}

// CacheConfig holds sizing and freshness knobs for every tiered cache.
type CacheConfig struct {
	Dir               string        `yaml:"dir"`
	ImageMaxBytes     int64         `yaml:"image_max_bytes"`
	SearchMaxEntries  int           `yaml:"search_max_entries"`
	SearchMaxBytes    int64         `yaml:"search_max_bytes"`
	CatalogTTL        time.Duration `yaml:"catalog_ttl"`
	ImageSizeEstimate int64         `yaml:"image_size_estimate"`
}

// DiagConfig configures the optional diagnostics HTTP server.
type DiagConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

var instance *Config

// Default returns a Config populated with cardforge's baked-in defaults,
// mirroring the teacher's CreateDefaultConfig.
func Default() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			BaseURL:   "https://api.scryfall.com",
			UserAgent: "cardforge/0.1",
			Cooldown:  100 * time.Millisecond,
		},
		Cache: CacheConfig{
			Dir:               defaultCacheDir(),
			ImageMaxBytes:     1 << 30, // 1 GB
			SearchMaxEntries:  1000,
			SearchMaxBytes:    50 * 1024 * 1024,
			CatalogTTL:        24 * time.Hour,
			ImageSizeEstimate: 956 * 1024, // ~480x680 card crop, matches original_source estimate
		},
		Diag: DiagConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8090",
		},
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "cardforge")
}

// Load reads a YAML config file at path, overlaying it onto defaults. A
// missing file is not an error: defaults are returned as-is, matching the
// teacher's "database is source of truth, flags/files only override"
// philosophy applied here to a single YAML layer.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		instance = cfg
		return instance, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			instance = cfg
			return instance, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	instance = cfg
	return instance, nil
}

func applyEnvOverrides(cfg *Config) {
	if dir := os.Getenv("CARDFORGE_CACHE_DIR"); dir != "" {
		cfg.Cache.Dir = dir
	}
	if v := os.Getenv("CARDFORGE_DEBUG"); v == "1" || v == "true" {
		cfg.Debug = true
	}
}

// Get returns the most recently loaded Config, or defaults if Load was
// never called.
func Get() *Config {
	if instance == nil {
		instance = Default()
	}
	return instance
}

// SetConfig overrides the active singleton; primarily for tests.
func SetConfig(cfg *Config) {
	instance = cfg
}
