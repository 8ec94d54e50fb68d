// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package modsession implements the per-connection mod state machine (C7):
// UNAUTH -> AUTHED -> READY/PLAYING-PRE -> PLAYING -> FINISHED, with a
// 10-second auth handshake timeout and frame gating while the race is not
// RUNNING or the participant is terminal.
//
// A Session owns no race state itself — every gameplay frame is forwarded
// to internal/raceroom, which is the single source of truth for whether a
// mutation is accepted. The Session's own state field is best-effort local
// bookkeeping, advanced optimistically from the outcome of each room call;
// it exists for logging and to gate frames before a participant id is even
// known, not to re-implement the room's preconditions.
package modsession
