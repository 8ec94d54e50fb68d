// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

/*
Package metrics provides Prometheus instrumentation for Seedrunner.

This package exposes counters, gauges, and histograms covering the
connection manager, race room mutations, the store adapter, the inactivity
sweeper, the leaderboard broadcaster, the seed graph cache, and the HTTP
control surface.

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format via
promhttp.Handler(), mounted by the internal/racecontrol router alongside
the control surface routes.

# Available Metrics

Connection manager:
  - seedrunner_ws_connections{role}: live websocket sessions (gauge)
  - seedrunner_broadcast_drops_total{race_id,audience}: messages dropped for
    a full session send queue (counter)

Race room:
  - seedrunner_room_mutations_total{race_id,entry_point,outcome}: mutations
    processed, accepted or rejected (counter)
  - seedrunner_leaderboard_broadcasts_total{race_id}: leaderboard pushes
    sent after coalescing (counter)

Store adapter:
  - seedrunner_store_call_duration_seconds{operation}: call latency (histogram)
  - seedrunner_store_call_errors_total{operation,kind}: call failures, kind
    one of "timeout", "breaker_open", "error" (counter)

Sweeper:
  - seedrunner_sweeper_abandons_total: participants force-abandoned by the
    inactivity sweeper (counter)

Seed graph cache:
  - seedrunner_cache_hits_total{cache} / seedrunner_cache_misses_total{cache}

HTTP control surface:
  - seedrunner_http_request_duration_seconds{method,route,status} (histogram)
  - seedrunner_http_active_requests (gauge)

# Usage

Record a room mutation outcome from internal/raceroom:

	metrics.RecordRoomMutation(race.ID, "status_update", "accepted")

Record an HTTP request from the middleware wrapping chi's router:

	metrics.TrackActiveRequest(true)
	defer metrics.TrackActiveRequest(false)
	start := time.Now()
	next.ServeHTTP(w, r)
	metrics.RecordAPIRequest(r.Method, routePattern, statusCode, time.Since(start))

# Thread Safety

All recording functions are safe for concurrent use; they delegate directly
to prometheus client_golang collectors, which are themselves safe for
concurrent use.
*/
package metrics
