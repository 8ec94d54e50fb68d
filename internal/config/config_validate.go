// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package config

import "fmt"

// minJWTSecretLength: short HMAC secrets are brute-forceable regardless
// of algorithm strength.
const minJWTSecretLength = 32

// Validate checks that every loaded field is usable, returning the
// first problem found.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.WSAddr == "" {
		return fmt.Errorf("server.ws_addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}

	if c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required")
	}
	if c.Store.BreakerMaxRequests == 0 {
		return fmt.Errorf("store.breaker_max_requests must be positive")
	}
	if c.Store.BreakerOpenTimeout <= 0 {
		return fmt.Errorf("store.breaker_open_timeout must be positive, got %s", c.Store.BreakerOpenTimeout)
	}

	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("security.jwt_secret must be at least %d characters, got %d", minJWTSecretLength, len(c.Security.JWTSecret))
	}

	if c.Sweeper.Interval <= 0 {
		return fmt.Errorf("sweeper.interval must be positive, got %s", c.Sweeper.Interval)
	}
	if c.Sweeper.Threshold <= 0 {
		return fmt.Errorf("sweeper.threshold must be positive, got %s", c.Sweeper.Threshold)
	}

	if c.Authz.CacheTTL < 0 {
		return fmt.Errorf("authz.cache_ttl must not be negative, got %s", c.Authz.CacheTTL)
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return fmt.Errorf("logging.level must be one of trace/debug/info/warn/error/fatal/panic, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	return nil
}
