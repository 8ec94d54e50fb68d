// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package training

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/seedrunner/race-server/internal/envelope"
	"github.com/seedrunner/race-server/internal/logging"
	"github.com/seedrunner/race-server/internal/wsconn"
)

// authTimeout mirrors internal/modsession's handshake timeout.
const authTimeout = 10 * time.Second

type sessionState int

const (
	stateUnauth sessionState = iota
	statePlaying
	stateFinished
)

// Room is the slice of internal/training.Room a Session drives.
type Room interface {
	Authenticate(token string) bool
	ParticipantID() string
	Snapshot() (envelope.RaceInfo, envelope.SeedInfo, []envelope.ParticipantInfo, error)
	ApplyStatus(ctx context.Context, igtMs int64, currentZone *string, deathCount int) error
	ApplyZoneEntered(ctx context.Context, igtMs int64, toZone string) error
	ApplyEventFlag(ctx context.Context, igtMs int64) error
	ApplyFinished(ctx context.Context, igtMs int64) error
	ApplyAbandon(ctx context.Context) error
}

// Session is one training mod connection's handshake and dispatch state.
// Unlike internal/modsession, there is no ready gate: a successful auth
// goes straight to PLAYING and race_start is sent immediately after
// auth_ok.
type Session struct {
	sessionID string
	room      Room
	registry  *wsconn.Registry

	mu        sync.Mutex
	conn      *wsconn.Conn
	state     sessionState
	authTimer *time.Timer
}

// New constructs a Session for one training session.
func New(sessionID string, room Room, registry *wsconn.Registry) *Session {
	return &Session{sessionID: sessionID, room: room, registry: registry, state: stateUnauth}
}

// Attach binds conn to this session and starts the auth handshake timer.
func (s *Session) Attach(conn *wsconn.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.authTimer = time.AfterFunc(authTimeout, s.onAuthTimeout)
}

func (s *Session) onAuthTimeout() {
	s.mu.Lock()
	authed := s.state != stateUnauth
	conn := s.conn
	s.mu.Unlock()
	if authed || conn == nil {
		return
	}
	s.sendAndClose(conn, envelope.NewAuthError("auth_timeout"), envelope.TypeAuthError, "auth_timeout")
}

// HandleInbound is the wsconn.InboundHandler for this session's Conn.
func (s *Session) HandleInbound(frameType string, raw []byte) {
	ctx := context.Background()

	if frameType == envelope.TypePong {
		return
	}
	if frameType == envelope.TypeAuth {
		s.handleAuth(ctx, raw)
		return
	}

	if !s.isAuthenticated() {
		return
	}

	switch frameType {
	case envelope.TypeStatusUpdate:
		s.handleStatusUpdate(ctx, raw)
	case envelope.TypeZoneEntered:
		s.handleZoneEntered(ctx, raw)
	case envelope.TypeEventFlag:
		s.handleEventFlag(ctx, raw)
	case envelope.TypeFinished:
		s.handleFinished(ctx, raw)
	default:
		logging.Debug().Str("session_id", s.sessionID).Str("frame_type", frameType).
			Msg("training: dropping unrecognized frame type")
	}
}

// HandleClose is the wsconn onClose callback: detaches from the registry
// and force-abandons the session if it never reached a terminal state.
func (s *Session) HandleClose(reason string) {
	s.mu.Lock()
	authed := s.state != stateUnauth
	finished := s.state == stateFinished
	conn := s.conn
	s.mu.Unlock()
	if !authed || conn == nil {
		return
	}
	s.registry.DetachMod(s.sessionID, s.room.ParticipantID(), conn)
	if finished {
		return
	}
	if err := s.room.ApplyAbandon(context.Background()); err != nil {
		logging.Warn().Err(err).Str("session_id", s.sessionID).Msg("training: abandon on close failed")
	}
}

func (s *Session) isAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != stateUnauth
}

func (s *Session) handleAuth(ctx context.Context, raw []byte) {
	s.mu.Lock()
	already := s.state != stateUnauth
	conn := s.conn
	s.mu.Unlock()
	if already || conn == nil {
		return
	}

	frame, err := envelope.ParseAuth(raw)
	if err != nil {
		s.sendAndClose(conn, envelope.NewAuthError("invalid_frame"), envelope.TypeAuthError, "invalid_frame")
		return
	}

	if !s.room.Authenticate(frame.ModToken) {
		s.sendAndClose(conn, envelope.NewAuthError("invalid_token"), envelope.TypeAuthError, "invalid_token")
		return
	}

	race, seed, participants, err := s.room.Snapshot()
	if err != nil {
		s.sendAndClose(conn, envelope.NewAuthError("race_unavailable"), envelope.TypeAuthError, "race_unavailable")
		return
	}

	s.mu.Lock()
	s.state = statePlaying
	if s.authTimer != nil {
		s.authTimer.Stop()
	}
	s.mu.Unlock()

	s.registry.AttachMod(s.sessionID, s.room.ParticipantID(), conn)

	if data, err := envelope.Encode(envelope.NewAuthOk(race, seed, participants, s.room.ParticipantID())); err == nil {
		conn.Enqueue(data, envelope.TypeAuthOk)
	}
	if data, err := envelope.Encode(envelope.NewRaceStart()); err == nil {
		conn.Enqueue(data, envelope.TypeRaceStart)
	}
}

func (s *Session) handleStatusUpdate(ctx context.Context, raw []byte) {
	frame, err := envelope.ParseStatusUpdate(raw)
	if err != nil {
		return
	}
	_ = s.room.ApplyStatus(ctx, frame.IGTMs, frame.CurrentZone, frame.DeathCount)
}

func (s *Session) handleZoneEntered(ctx context.Context, raw []byte) {
	frame, err := envelope.ParseZoneEntered(raw)
	if err != nil {
		return
	}
	_ = s.room.ApplyZoneEntered(ctx, frame.IGTMs, frame.ToZone)
}

func (s *Session) handleEventFlag(ctx context.Context, raw []byte) {
	frame, err := envelope.ParseEventFlag(raw)
	if err != nil {
		return
	}
	if err := s.room.ApplyEventFlag(ctx, frame.IGTMs); err != nil {
		s.sendSessionError(err)
	}
}

func (s *Session) handleFinished(ctx context.Context, raw []byte) {
	frame, err := envelope.ParseFinished(raw)
	if err != nil {
		return
	}
	if err := s.room.ApplyFinished(ctx, frame.IGTMs); err != nil {
		s.sendSessionError(err)
		return
	}
	s.mu.Lock()
	s.state = stateFinished
	s.mu.Unlock()
}

func (s *Session) sendSessionError(err error) {
	if !errors.Is(err, ErrSessionNotActive) {
		return
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	if data, encErr := envelope.Encode(envelope.NewError("session_not_active")); encErr == nil {
		conn.Enqueue(data, envelope.TypeError)
	}
}

func (s *Session) sendAndClose(conn *wsconn.Conn, frame interface{}, frameType, reason string) {
	if data, err := envelope.Encode(frame); err == nil {
		conn.Enqueue(data, frameType)
	}
	conn.Close(reason)
}
