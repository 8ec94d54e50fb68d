// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for Seedrunner's connection manager, race
// rooms, store, and HTTP control surface.

var (
	// WSConnections tracks live websocket sessions by role ("mod" or
	// "listener"). Incremented on attach, decremented on detach.
	WSConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "seedrunner_ws_connections",
			Help: "Current number of live websocket sessions by role",
		},
		[]string{"role"},
	)

	// RoomMutationsTotal counts every accepted or rejected mutation entry
	// point a race room processes.
	RoomMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seedrunner_room_mutations_total",
			Help: "Total race room mutations processed, by entry point and outcome",
		},
		[]string{"race_id", "entry_point", "outcome"},
	)

	// BroadcastDropsTotal counts messages dropped because a session's send
	// queue was full (a slow or wedged client).
	BroadcastDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seedrunner_broadcast_drops_total",
			Help: "Total broadcast messages dropped due to a full session send queue",
		},
		[]string{"race_id", "audience"},
	)

	// SweeperAbandonsTotal counts participants the inactivity sweeper
	// force-abandoned.
	SweeperAbandonsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "seedrunner_sweeper_abandons_total",
			Help: "Total participants force-abandoned by the inactivity sweeper",
		},
	)

	// StoreCallDuration tracks store adapter call latency, including time
	// spent inside the circuit breaker.
	StoreCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seedrunner_store_call_duration_seconds",
			Help:    "Duration of store adapter calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// StoreCallErrorsTotal counts store adapter call failures, including
	// circuit breaker open-state rejections.
	StoreCallErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seedrunner_store_call_errors_total",
			Help: "Total store adapter call failures by operation and error kind",
		},
		[]string{"operation", "kind"},
	)

	// HTTPRequestDuration tracks control surface request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seedrunner_http_request_duration_seconds",
			Help:    "Duration of control surface HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// HTTPActiveRequests tracks in-flight control surface requests.
	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seedrunner_http_active_requests",
			Help: "Current number of in-flight control surface HTTP requests",
		},
	)

	// LeaderboardBroadcastsTotal counts coalesced leaderboard pushes sent
	// to listeners.
	LeaderboardBroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seedrunner_leaderboard_broadcasts_total",
			Help: "Total leaderboard broadcasts sent after coalescing",
		},
		[]string{"race_id"},
	)

	// CacheHitsTotal / CacheMissesTotal track the seed graph read-through
	// cache's effectiveness.
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seedrunner_cache_hits_total",
			Help: "Total seed graph cache hits",
		},
		[]string{"cache"},
	)
	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seedrunner_cache_misses_total",
			Help: "Total seed graph cache misses",
		},
		[]string{"cache"},
	)
)

// TrackActiveRequest increments or decrements the in-flight HTTP request
// gauge. Call with active=true on entry and active=false on exit.
func TrackActiveRequest(active bool) {
	if active {
		HTTPActiveRequests.Inc()
		return
	}
	HTTPActiveRequests.Dec()
}

// RecordAPIRequest records a completed control surface request's latency and
// outcome.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// RecordRoomMutation records the outcome of a single race room mutation
// entry point (e.g. "status_update", "finished", "abandon").
func RecordRoomMutation(raceID, entryPoint, outcome string) {
	RoomMutationsTotal.WithLabelValues(raceID, entryPoint, outcome).Inc()
}

// RecordBroadcastDrop records a message dropped for a full send queue.
func RecordBroadcastDrop(raceID, audience string) {
	BroadcastDropsTotal.WithLabelValues(raceID, audience).Inc()
}

// RecordStoreCall records a store adapter call's latency and, if it failed,
// the kind of failure ("timeout", "breaker_open", "error").
func RecordStoreCall(operation string, duration time.Duration, errKind string) {
	StoreCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if errKind != "" {
		StoreCallErrorsTotal.WithLabelValues(operation, errKind).Inc()
	}
}

// SetWSConnections adjusts the current connection gauge for a role by delta
// (+1 on attach, -1 on detach).
func SetWSConnections(role string, delta float64) {
	WSConnections.WithLabelValues(role).Add(delta)
}
