// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package cache provides a read-through BadgerDB cache in front of
// internal/store's seed lookups. Seeds are immutable once created (spec
// §4.2) and are read by every mod on auth, by every spectator on attach,
// and by every status/zone_entered frame's derivation pass, but written
// exactly once — the shape internal/auth's badger-backed session and jti
// stores are built for, applied here to a different hot path.
package cache
