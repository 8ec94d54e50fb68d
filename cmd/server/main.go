// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package main is the entry point for the Seedrunner race server.
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, config file, and environment (Koanf v2)
//  2. Logging: zerolog, configured from the Logging section
//  3. Store: DuckDB-backed persistence, wrapped in a circuit breaker
//  4. Seed cache: a badger-backed read-through cache in front of the store
//  5. Authorization: casbin-backed role enforcement plus race-ownership checks
//  6. Organizer token verification: HMAC-signed bearer tokens
//  7. Supervisor tree: a rooms layer (race/training workers, the sweeper,
//     the websocket reaper) and an api layer (the two HTTP servers)
//  8. Control surface: the organizer-facing HTTP API
//  9. WebSocket gateway: the mod/listener/training connection surface
//
// # Signal handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the supervisor tree stops
// accepting new work and waits (bounded by each service's own timeout) for
// in-flight requests and connections to finish before the process exits.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seedrunner/race-server/internal/authz"
	"github.com/seedrunner/race-server/internal/cache"
	"github.com/seedrunner/race-server/internal/config"
	"github.com/seedrunner/race-server/internal/ghost"
	"github.com/seedrunner/race-server/internal/logging"
	"github.com/seedrunner/race-server/internal/orgauth"
	"github.com/seedrunner/race-server/internal/racecontrol"
	"github.com/seedrunner/race-server/internal/raceroom"
	"github.com/seedrunner/race-server/internal/store"
	"github.com/seedrunner/race-server/internal/supervisor"
	"github.com/seedrunner/race-server/internal/supervisor/services"
	"github.com/seedrunner/race-server/internal/sweeper"
	"github.com/seedrunner/race-server/internal/training"
	"github.com/seedrunner/race-server/internal/wsconn"
	"github.com/seedrunner/race-server/internal/wsgateway"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Seedrunner with supervisor tree")

	db, err := store.New(store.Config{
		DSN:                cfg.Store.DSN,
		BreakerMaxRequests: cfg.Store.BreakerMaxRequests,
		BreakerOpenTimeout: cfg.Store.BreakerOpenTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()
	logging.Info().Str("dsn", cfg.Store.DSN).Msg("Store initialized")

	badgerDB, err := cache.Open(cache.Options{Dir: cfg.Cache.Dir})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open seed cache")
	}
	defer func() {
		if err := badgerDB.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing seed cache")
		}
	}()
	seedCache := cache.NewSeedCache(badgerDB, db)
	cachedDB := newCachedStore(db, seedCache)

	enforcer, err := authz.NewEnforcer(&authz.EnforcerConfig{
		PolicyPath: cfg.Authz.PolicyPath,
		CacheTTL:   cfg.Authz.CacheTTL,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization enforcer")
	}
	authorizer := authz.NewAuthorizer(cachedDB, enforcer)

	verifier, err := orgauth.NewVerifier([]byte(cfg.Security.JWTSecret))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize organizer token verifier")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	registry := wsconn.NewRegistry()
	rooms := raceroom.NewManager()
	sessions := training.NewManager()

	gw := wsgateway.New(cachedDB, cachedDB, registry, rooms, sessions, tree)
	tree.AddRoomService(wsgateway.NewReaper(gw, wsgateway.DefaultReapInterval))
	logging.Info().Msg("WebSocket gateway reaper added to supervisor tree")

	sweep := sweeper.New(cachedDB, sweeper.NewManagerLookup(rooms), cfg.Sweeper.Interval, cfg.Sweeper.Threshold)
	tree.AddRoomService(sweep)
	logging.Info().Msg("Inactivity sweeper added to supervisor tree")

	ghosts := ghost.New(cachedDB)
	handlers := racecontrol.New(racecontrol.NewManagerLookup(rooms), verifier, authorizer, cachedDB, ghosts)

	controlServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      racecontrol.NewRouter(handlers, cfg.Security.CORSOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(controlServer, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", controlServer.Addr).Msg("Control-surface HTTP server added")

	wsServer := &http.Server{
		Addr:         cfg.Server.WSAddr,
		Handler:      wsgateway.NewRouter(gw),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(wsServer, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", wsServer.Addr).Msg("WebSocket gateway HTTP server added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
