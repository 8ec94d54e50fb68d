// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package racecontrol exposes the HTTP control surface for race lifecycle
// operations (C9): release seeds, start race, reroll seed, self/force
// abandon, caster join/leave. Every handler resolves the target race's
// internal/raceroom.Room through a RoomLookup and delegates the actual
// state transition to it; this package owns none of the race's state, only
// request parsing, authorization, and response shaping.
//
// Organizer-only routes are gated by a narrow Authorizer interface
// (satisfied by internal/authz's casbin enforcer) checked after an
// OrganizerVerifier has authenticated the caller's JWT. Both are accepted
// as interfaces so this package is unit-testable without a real casbin
// policy file or a real signing key.
package racecontrol
