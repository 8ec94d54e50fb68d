// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package wsconn is the connection manager (C4): a per-race registry of mod
// and listener WebSocket sessions, and the Conn type that owns the
// read/write pumps for one physical connection.
//
// A race keeps at most one mod session per participant id and an unbounded
// set of listener sessions (casters and anonymous spectators). Attaching a
// mod session evicts any prior session for the same participant, sending it
// a "replaced" error frame before closing it. Broadcast and direct sends are
// best-effort: each Conn owns a bounded outbound queue (depth 64); when full,
// the oldest coalescible frame (currently only leaderboard_update) is
// dropped to make room, and only if no coalescible frame is queued is the
// session closed outright. Per-session delivery order is preserved; no
// ordering guarantee holds across sessions.
//
// Shaped like a classic hub/client websocket pair — the registry takes
// the role of a hub (deterministic iteration, snapshot-before-send), Conn
// takes the role of a client (read/write pumps, ping/pong over
// gorilla/websocket) — sized down from a single global hub and 54s/60s
// ping cadence to this package's per-race registry and 30s ping /
// two-missed-pong idle close.
package wsconn
