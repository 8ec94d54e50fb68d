// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package modsession

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/seedrunner/race-server/internal/envelope"
	"github.com/seedrunner/race-server/internal/logging"
	"github.com/seedrunner/race-server/internal/models"
	"github.com/seedrunner/race-server/internal/raceroom"
	"github.com/seedrunner/race-server/internal/wsconn"
)

// authTimeout is how long a connection may stay UNAUTH before it is closed:
// it waits up to 10 s for the first frame.
const authTimeout = 10 * time.Second

type sessionState int

const (
	stateUnauth sessionState = iota
	stateAuthed
	stateReady
	statePlayingPre
	statePlaying
	stateFinished
)

// Store is the slice of internal/store.Store a Session needs to resolve a
// mod token into a participant.
type Store interface {
	LoadParticipantByModToken(ctx context.Context, raceID, modToken string) (*models.Participant, error)
}

// Room is the slice of internal/raceroom.Room a Session drives.
type Room interface {
	Snapshot() (envelope.RaceInfo, envelope.SeedInfo, []envelope.ParticipantInfo, error)
	ApplyReady(ctx context.Context, participantID string) error
	ApplyStatus(ctx context.Context, participantID string, igtMs int64, currentZone *string, deathCount int) error
	ApplyZoneEntered(ctx context.Context, participantID string, igtMs int64, toZone string) error
	ApplyEventFlag(ctx context.Context, participantID string, igtMs int64) error
	ApplyFinished(ctx context.Context, participantID string, igtMs int64) error
}

// Session is one mod connection's handshake and gating state, wired as a
// wsconn.Conn's InboundHandler/onClose pair.
type Session struct {
	raceID   string
	room     Room
	store    Store
	registry *wsconn.Registry

	mu            sync.Mutex
	conn          *wsconn.Conn
	state         sessionState
	participantID string
	authTimer     *time.Timer
}

// New constructs a Session for one race. Call Attach once the Conn exists,
// before starting its pumps.
func New(raceID string, room Room, st Store, registry *wsconn.Registry) *Session {
	return &Session{raceID: raceID, room: room, store: st, registry: registry, state: stateUnauth}
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

	// pong is always accepted, in any state.
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
	case envelope.TypeReady:
		s.handleReady(ctx)
	case envelope.TypeStatusUpdate:
		s.handleStatusUpdate(ctx, raw)
	case envelope.TypeZoneEntered:
		s.handleZoneEntered(ctx, raw)
	case envelope.TypeEventFlag:
		s.handleEventFlag(ctx, raw)
	case envelope.TypeFinished:
		s.handleFinished(ctx, raw)
	default:
		logging.Debug().Str("race_id", s.raceID).Str("frame_type", frameType).Msg("modsession: dropping unrecognized frame type")
	}
}

// HandleClose is the wsconn onClose callback: detaches this session from
// the registry if it ever authenticated.
func (s *Session) HandleClose(reason string) {
	s.mu.Lock()
	pid := s.participantID
	conn := s.conn
	s.mu.Unlock()
	if pid == "" || conn == nil {
		return
	}
	s.registry.DetachMod(s.raceID, pid, conn)
}

func (s *Session) isAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != stateUnauth
}

func (s *Session) currentParticipantID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participantID
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

	p, err := s.store.LoadParticipantByModToken(ctx, s.raceID, frame.ModToken)
	if err != nil {
		s.sendAndClose(conn, envelope.NewAuthError("invalid_token"), envelope.TypeAuthError, "invalid_token")
		return
	}

	race, seed, participants, err := s.room.Snapshot()
	if err != nil {
		s.sendAndClose(conn, envelope.NewAuthError("race_unavailable"), envelope.TypeAuthError, "race_unavailable")
		return
	}

	s.mu.Lock()
	s.participantID = p.ID
	if race.Status == string(models.RaceRunning) {
		s.state = statePlayingPre
	} else {
		s.state = stateAuthed
	}
	if s.authTimer != nil {
		s.authTimer.Stop()
	}
	s.mu.Unlock()

	s.registry.AttachMod(s.raceID, p.ID, conn)

	if data, err := envelope.Encode(envelope.NewAuthOk(race, seed, participants, p.ID)); err == nil {
		conn.Enqueue(data, envelope.TypeAuthOk)
	}
}

func (s *Session) handleReady(ctx context.Context) {
	pid := s.currentParticipantID()
	if err := s.room.ApplyReady(ctx, pid); err == nil {
		s.mu.Lock()
		if s.state == stateAuthed {
			s.state = stateReady
		}
		s.mu.Unlock()
	}
}

func (s *Session) handleStatusUpdate(ctx context.Context, raw []byte) {
	frame, err := envelope.ParseStatusUpdate(raw)
	if err != nil {
		return
	}
	pid := s.currentParticipantID()
	if err := s.room.ApplyStatus(ctx, pid, frame.IGTMs, frame.CurrentZone, frame.DeathCount); err != nil {
		s.sendGameplayError(err)
		return
	}
	s.markPlaying()
}

func (s *Session) handleZoneEntered(ctx context.Context, raw []byte) {
	frame, err := envelope.ParseZoneEntered(raw)
	if err != nil {
		return
	}
	pid := s.currentParticipantID()
	if err := s.room.ApplyZoneEntered(ctx, pid, frame.IGTMs, frame.ToZone); err != nil {
		s.sendGameplayError(err)
		return
	}
	s.markPlaying()
}

func (s *Session) handleEventFlag(ctx context.Context, raw []byte) {
	frame, err := envelope.ParseEventFlag(raw)
	if err != nil {
		return
	}
	pid := s.currentParticipantID()
	if err := s.room.ApplyEventFlag(ctx, pid, frame.IGTMs); err != nil {
		s.sendGameplayError(err)
		return
	}
	s.markPlaying()
}

func (s *Session) handleFinished(ctx context.Context, raw []byte) {
	frame, err := envelope.ParseFinished(raw)
	if err != nil {
		return
	}
	pid := s.currentParticipantID()
	if err := s.room.ApplyFinished(ctx, pid, frame.IGTMs); err != nil {
		s.sendGameplayError(err)
		return
	}
	s.mu.Lock()
	s.state = stateFinished
	s.mu.Unlock()
}

func (s *Session) markPlaying() {
	s.mu.Lock()
	if s.state == stateAuthed || s.state == stateReady || s.state == statePlayingPre {
		s.state = statePlaying
	}
	s.mu.Unlock()
}

// sendGameplayError maps a room error to the wire taxonomy: only
// "race not running" is surfaced to the client as a non-fatal
// error frame. A participant-state mismatch (not yet PLAYING, or already
// terminal) is dropped silently — the client has no actionable response to
// either, and the room itself treats a terminal participant's frames as a
// silent no-op rather than an error.
func (s *Session) sendGameplayError(err error) {
	if !errors.Is(err, raceroom.ErrRaceNotRunning) {
		return
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	if data, encErr := envelope.Encode(envelope.NewError("race_not_running")); encErr == nil {
		conn.Enqueue(data, envelope.TypeError)
	}
}

func (s *Session) sendAndClose(conn *wsconn.Conn, frame interface{}, frameType, reason string) {
	if data, err := envelope.Encode(frame); err == nil {
		conn.Enqueue(data, frameType)
	}
	conn.Close(reason)
}
