// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package spectator implements the read-only listener connection (C8):
// on connect it sends one race_state hello frame, then receives every
// subsequent broadcast the room fans out to wsconn.AudienceListeners. It
// accepts no client-initiated frames — every inbound message is discarded,
// whether empty or not.
//
// A spectator.Session carries no per-connection state beyond its room and
// registry handles; unlike modsession it has no handshake, no auth token,
// and no gating logic, because listeners never mutate race state.
package spectator
