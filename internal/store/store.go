// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package store is the typed load/update adapter over the authoritative
// transactional store (C2). Every call is wrapped in a circuit breaker
// with a hard ≤2s timeout; Race writes use the optimistic `version`
// column, Participant writes are last-writer-wins because there is
// exactly one room writer per race.
//
// Backed by DuckDB, following a connection-lifecycle pattern of extension
// preload followed by checkpoint-before-close.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/sony/gobreaker/v2"

	"github.com/seedrunner/race-server/internal/logging"
	"github.com/seedrunner/race-server/internal/metrics"
)

// callTimeout bounds every store call, which must itself carry a
// timeout ≤ 2 s.
const callTimeout = 2 * time.Second

// Store is the DuckDB-backed adapter. Safe for concurrent use; database/sql
// pools connections internally.
type Store struct {
	db      *sql.DB
	breaker *gobreaker.CircuitBreaker[any]
}

// Config controls the breaker and connection behavior.
type Config struct {
	// DSN is the DuckDB data source, e.g. a file path or ":memory:".
	DSN string
	// BreakerMaxRequests is the number of requests allowed through while
	// the breaker is half-open.
	BreakerMaxRequests uint32
	// BreakerOpenTimeout is how long the breaker stays open before
	// probing with a half-open request.
	BreakerOpenTimeout time.Duration
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:                dsn,
		BreakerMaxRequests: 1,
		BreakerOpenTimeout: 10 * time.Second,
	}
}

// New opens the DuckDB connection, installs the schema if absent, and
// wraps it with a circuit breaker.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("duckdb", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: open duckdb: %w", err)
	}

	if err := db.Ping(); err != nil {
		closeWithLog(db, "duckdb-connection")
		return nil, fmt.Errorf("store: ping duckdb: %w", err)
	}

	breakerSettings := gobreaker.Settings{
		Name:        "store",
		MaxRequests: cfg.BreakerMaxRequests,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("store circuit breaker state changed")
		},
	}

	s := &Store{
		db:      db,
		breaker: gobreaker.NewCircuitBreaker[any](breakerSettings),
	}

	if err := s.createSchema(context.Background()); err != nil {
		closeWithLog(db, "duckdb-connection")
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return s, nil
}

// Close checkpoints and closes the underlying connection.
func (s *Store) Close() error {
	if _, err := s.db.Exec("CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("store: checkpoint before close failed")
	}
	return s.db.Close()
}

// call runs fn through the circuit breaker with a bounded timeout and
// records latency/outcome to internal/metrics.
func (s *Store) call(ctx context.Context, operation string, fn func(ctx context.Context) (any, error)) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.breaker.Execute(func() (any, error) {
		return fn(ctx)
	})
	duration := time.Since(start)

	errKind := ""
	switch {
	case err == nil:
	case err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests:
		errKind = "breaker_open"
	case ctx.Err() != nil:
		errKind = "timeout"
	default:
		errKind = "error"
	}
	metrics.RecordStoreCall(operation, duration, errKind)

	return result, err
}

func (s *Store) createSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			login TEXT NOT NULL,
			display_name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS seeds (
			id TEXT PRIMARY KEY,
			pool_name TEXT NOT NULL,
			total_layers INTEGER NOT NULL,
			nodes_json TEXT NOT NULL,
			edges_json TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS races (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			organizer_id TEXT NOT NULL,
			status TEXT NOT NULL,
			seed_id TEXT,
			seeds_released_at TIMESTAMP,
			started_at TIMESTAMP,
			version BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS participants (
			id TEXT PRIMARY KEY,
			race_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			mod_token TEXT NOT NULL,
			status TEXT NOT NULL,
			current_zone TEXT,
			current_layer INTEGER NOT NULL DEFAULT 0,
			igt_ms BIGINT NOT NULL DEFAULT 0,
			death_count INTEGER NOT NULL DEFAULT 0,
			zone_history_json TEXT NOT NULL DEFAULT '[]',
			last_igt_change_at TIMESTAMP,
			finished_at TIMESTAMP,
			color_index INTEGER NOT NULL DEFAULT 0,
			registered_seq BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS casters (
			race_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			PRIMARY KEY (race_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS training_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			seed_id TEXT NOT NULL,
			mod_token TEXT NOT NULL,
			status TEXT NOT NULL,
			igt_ms BIGINT NOT NULL DEFAULT 0,
			death_count INTEGER NOT NULL DEFAULT 0,
			current_zone TEXT,
			progress_nodes_json TEXT NOT NULL DEFAULT '[]',
			last_igt_change_at TIMESTAMP,
			finished_at TIMESTAMP
		)`,
		`CREATE SEQUENCE IF NOT EXISTS participants_registered_seq`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}
	return nil
}
