// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package spectator

import (
	"github.com/seedrunner/race-server/internal/envelope"
	"github.com/seedrunner/race-server/internal/logging"
	"github.com/seedrunner/race-server/internal/wsconn"
)

// Room is the slice of internal/raceroom.Room a Session needs for its hello
// frame.
type Room interface {
	Snapshot() (envelope.RaceInfo, envelope.SeedInfo, []envelope.ParticipantInfo, error)
}

// Session is one spectator connection: a hello frame on attach, registry
// membership for the lifetime of the connection, and nothing else.
type Session struct {
	raceID   string
	room     Room
	registry *wsconn.Registry
	conn     *wsconn.Conn
}

// New constructs a Session for one race's spectator connection.
func New(raceID string, room Room, registry *wsconn.Registry) *Session {
	return &Session{raceID: raceID, room: room, registry: registry}
}

// Attach sends the race_state hello frame and joins the listener audience.
// Call once, before conn.Start().
func (s *Session) Attach(conn *wsconn.Conn) {
	s.conn = conn
	s.registry.AttachListener(s.raceID, conn)

	race, seed, participants, err := s.room.Snapshot()
	if err != nil {
		logging.Warn().Str("race_id", s.raceID).Err(err).Msg("spectator: race unavailable for hello frame")
		conn.Close("race_unavailable")
		return
	}
	data, err := envelope.Encode(envelope.NewRaceState(race, seed, participants))
	if err != nil {
		logging.Warn().Err(err).Msg("spectator: failed to encode race_state hello")
		return
	}
	conn.Enqueue(data, envelope.TypeRaceState)
}

// HandleInbound is the wsconn.InboundHandler for a spectator connection: no
// client-initiated frame is ever accepted, so every inbound frame is
// discarded.
func (s *Session) HandleInbound(frameType string, raw []byte) {
	logging.Debug().Str("race_id", s.raceID).Str("frame_type", frameType).Msg("spectator: discarding inbound frame")
}

// HandleClose removes this connection from the registry's listener set.
func (s *Session) HandleClose(reason string) {
	if s.conn == nil {
		return
	}
	s.registry.DetachListener(s.raceID, s.conn.ID())
}
