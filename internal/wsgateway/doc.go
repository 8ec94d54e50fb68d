// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package wsgateway is the HTTP entry point for the wire protocol: it
// upgrades incoming connections (gorilla/websocket) and hands them to the
// mod/spectator/training session handlers, lazily creating and supervising
// the race or training room behind the requested id.
//
// The control surface (internal/racecontrol) governs race lifecycle over
// plain HTTP; this package governs the persistent duplex channels spec.md
// §6.1-§6.2 describes. Room creation happens here, on first connection,
// rather than on an explicit "create room" endpoint: spec.md treats a race
// as already existing (seeded by an external organizer workflow) by the
// time any participant connects, and internal/raceroom.Manager's own doc
// comment already describes rooms as "added when their Serve goroutine is
// launched" — this package is that launch site.
package wsgateway
