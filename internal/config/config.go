// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package config

import "time"

// Config holds every runtime setting the server needs at startup.
// Each field's koanf tag is the dotted key used by the config file and
// (via envTransformFunc) by its environment variable.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Security SecurityConfig `koanf:"security"`
	Sweeper  SweeperConfig  `koanf:"sweeper"`
	Cache    CacheConfig    `koanf:"cache"`
	Authz    AuthzConfig    `koanf:"authz"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig controls the control-surface and WebSocket listener.
type ServerConfig struct {
	// Addr is the control-surface listen address, e.g. ":8080".
	Addr string `koanf:"addr"`
	// WSAddr is the WebSocket gateway listen address, e.g. ":8081". Kept
	// on its own port so the control surface's rate limiting and CORS
	// policy never apply to the connection surface.
	WSAddr string `koanf:"ws_addr"`
	// ShutdownTimeout bounds graceful shutdown of in-flight requests and
	// connections.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StoreConfig controls the persistence layer (C2).
type StoreConfig struct {
	// DSN is the DuckDB data source: a file path, or ":memory:" for
	// ephemeral/test deployments.
	DSN string `koanf:"dsn"`
	// BreakerMaxRequests is the request count allowed through the
	// circuit breaker while half-open.
	BreakerMaxRequests uint32 `koanf:"breaker_max_requests"`
	// BreakerOpenTimeout is how long the breaker stays open before
	// probing again.
	BreakerOpenTimeout time.Duration `koanf:"breaker_open_timeout"`
}

// SecurityConfig controls organizer-token verification (C19) and the
// control surface's CORS policy.
type SecurityConfig struct {
	// JWTSecret signs and verifies organizer bearer tokens. Must be at
	// least 32 bytes.
	JWTSecret string `koanf:"jwt_secret"`
	// CORSOrigins lists allowed Origin header values for the control
	// surface; empty means same-origin only.
	CORSOrigins []string `koanf:"cors_origins"`
}

// SweeperConfig controls the inactivity sweeper (C10).
type SweeperConfig struct {
	// Interval is how often the sweeper scans for stale participants.
	Interval time.Duration `koanf:"interval"`
	// Threshold is how long a participant may go without an IGT change
	// before being force-abandoned.
	Threshold time.Duration `koanf:"threshold"`
}

// CacheConfig controls the seed-graph read-through cache (C18).
type CacheConfig struct {
	// Dir is the badger database directory. Empty opens an in-memory
	// database.
	Dir string `koanf:"dir"`
}

// AuthzConfig controls the role-enforcement layer (C17).
type AuthzConfig struct {
	// PolicyPath, if set, loads and persists policy from this CSV file
	// instead of the embedded default — used to grant the admin role
	// without a redeploy.
	PolicyPath string `koanf:"policy_path"`
	// CacheTTL caches enforcement decisions for this long.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// LoggingConfig controls the zerolog setup (internal/logging).
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is the output format: json or console.
	Format string `koanf:"format"`
	// Caller includes caller file and line number in log output.
	Caller bool `koanf:"caller"`
}
