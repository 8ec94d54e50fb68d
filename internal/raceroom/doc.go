// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package raceroom ties together models, envelope, leaderboard and store
// into the race room actor (C5): one Room per RUNNING-or-SETUP race,
// exposing the apply_status / apply_event_flag / apply_finished /
// apply_abandon / apply_ready / release_seeds / start_race / reroll_seed
// entry points from section 4.3 and 4.7 of the race specification, plus
// caster join/leave.
//
// Every exported mutation serializes through the single goroutine running
// Serve; callers (internal/modsession, internal/racecontrol, the sweeper)
// never touch Room fields directly. See mutations.go for the entry points
// and derive.go for the pure zone/death/auto-finish rules they share.
package raceroom
