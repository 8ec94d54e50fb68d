// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in
// priority order. The first one found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/seedrunner/config.yaml",
	"/etc/seedrunner/config.yml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns sensible defaults for every field, applied
// before the config file and environment variable layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			WSAddr:          ":8081",
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			DSN:                "seedrunner.duckdb",
			BreakerMaxRequests: 1,
			BreakerOpenTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins: nil,
		},
		Sweeper: SweeperConfig{
			Interval:  60 * time.Second,
			Threshold: 5 * time.Minute,
		},
		Cache: CacheConfig{
			Dir: "",
		},
		Authz: AuthzConfig{
			CacheTTL: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads Config by layering defaults, an optional config
// file, and environment variables, in that priority order, then
// validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("config: process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, checking
// ConfigPathEnvVar before DefaultConfigPaths. Returns "" if none exist.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists koanf paths that must be split from a
// comma-separated environment variable into a slice.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps an environment variable name to its koanf path,
// e.g. HTTP_ADDR -> server.addr, STORE_DSN -> store.dsn.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		"http_addr":          "server.addr",
		"ws_addr":            "server.ws_addr",
		"shutdown_timeout":   "server.shutdown_timeout",
		"store_dsn":          "store.dsn",
		"jwt_secret":         "security.jwt_secret",
		"cors_origins":       "security.cors_origins",
		"sweeper_interval":   "sweeper.interval",
		"sweeper_threshold":  "sweeper.threshold",
		"cache_dir":          "cache.dir",
		"authz_policy_path":  "authz.policy_path",
		"authz_cache_ttl":    "authz.cache_ttl",
		"log_level":          "logging.level",
		"log_format":         "logging.format",
		"log_caller":         "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	return strings.ReplaceAll(key, "_", ".")
}
