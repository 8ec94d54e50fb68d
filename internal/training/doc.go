// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package training implements the solo training runtime (C11): a training
// session behaves like a one-participant race frozen in RUNNING for its
// duration. It reuses the race room's single-writer-actor shape (Room.Serve
// as the suture.Service, every mutation funneled through a request/done
// channel pair) and the race mod protocol's wire frames, but drops
// everything that only makes sense with more than one participant or a
// seed pool: no ready gate, no leaderboard, no seed release/start/reroll,
// no casters. Seeds are read-only here and are never marked consumed.
package training
