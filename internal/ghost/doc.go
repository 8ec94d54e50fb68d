// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package ghost implements the read-only ghost-replay aggregation query
// (C12): given a training session id, return every other FINISHED training
// session on the same seed, sorted by in-game time ascending, with user
// identity stripped. This never touches internal/raceroom — it is a pure
// store read, independent of any live room's single-writer queue.
package ghost
