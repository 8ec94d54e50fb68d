// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package racecontrol

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seedrunner/race-server/internal/middleware"
)

// organizerRateLimit bounds how many control-surface requests a single
// client IP may make per minute, ahead of any per-race authz check.
const organizerRateLimit = 120

// NewRouter assembles the control-surface HTTP handler. corsOrigins is the
// allowlist from internal/config's SecurityConfig; a nil/empty list denies
// all cross-origin requests rather than defaulting to a wildcard.
func NewRouter(h *Handlers, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(h.perf.Middleware)
	r.Use(middleware.Compression)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(organizerRateLimit, time.Minute))

	r.Get("/healthz", h.Healthz)
	r.Get("/debug/performance", h.Performance)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/races/{raceID}", func(r chi.Router) {
		r.Post("/seeds/release", h.ReleaseSeeds)
		r.Post("/start", h.StartRace)
		r.Post("/seed/reroll", h.RerollSeed)
		r.Post("/participants/{participantID}/abandon", h.Abandon)
		r.Post("/casters", h.AddCaster)
		r.Delete("/casters/{userID}", h.RemoveCaster)
	})

	r.Get("/training/{sessionID}/ghosts", h.Ghosts)

	return r
}
