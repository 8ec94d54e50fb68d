// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package training

import (
	"context"
	"sync"

	"github.com/seedrunner/race-server/internal/clockid"
	"github.com/seedrunner/race-server/internal/envelope"
	"github.com/seedrunner/race-server/internal/models"
)

// Store is the slice of internal/store.Store a Room depends on. Unlike
// internal/raceroom, there is no seed-pool pick/consume: the seed is loaded
// once and only ever read.
type Store interface {
	LoadTrainingSession(ctx context.Context, sessionID string) (*models.TrainingSession, error)
	UpdateTrainingSession(ctx context.Context, t *models.TrainingSession) error
	LoadSeed(ctx context.Context, seedID string) (*models.Seed, error)
	LoadUser(ctx context.Context, userID string) (models.User, error)
}

// Broadcaster is the slice of internal/wsconn.Registry a Room depends on.
// There is no listener/spectator audience for a training session (spec
// §4.9 names only the mod endpoint), so only SendToMod is needed.
type Broadcaster interface {
	SendToMod(raceID, participantID string, frame []byte, frameType string) bool
}

type request struct {
	fn   func() error
	done chan error
}

// Room is one training session's single-writer actor, mirroring
// internal/raceroom.Room's shape for exactly one participant with no seed
// pool and no leaderboard.
type Room struct {
	sessionID   string
	store       Store
	broadcaster Broadcaster
	clock       clockid.Clock

	mutate chan request
	closed chan struct{}
	once   sync.Once

	session *models.TrainingSession
	seed    *models.Seed
	user    models.User
}

// NewRoom constructs a Room and loads its initial state from the store.
func NewRoom(ctx context.Context, sessionID string, st Store, broadcaster Broadcaster, clock clockid.Clock) (*Room, error) {
	session, err := st.LoadTrainingSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	seed, err := st.LoadSeed(ctx, session.SeedID)
	if err != nil {
		return nil, err
	}
	user, err := st.LoadUser(ctx, session.UserID)
	if err != nil {
		user = models.User{ID: session.UserID}
	}
	return &Room{
		sessionID:   sessionID,
		store:       st,
		broadcaster: broadcaster,
		clock:       clock,
		mutate:      make(chan request),
		closed:      make(chan struct{}),
		session:     session,
		seed:        seed,
		user:        user,
	}, nil
}

// String identifies this Room for suture's supervision tree logs.
func (r *Room) String() string { return "training:" + r.sessionID }

// SessionID returns the id of the training session this room owns.
func (r *Room) SessionID() string { return r.sessionID }

// Serve runs the room's single-writer loop until ctx is canceled.
// Implements suture.Service.
func (r *Room) Serve(ctx context.Context) error {
	defer r.once.Do(func() { close(r.closed) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-r.mutate:
			req.done <- req.fn()
		}
	}
}

func (r *Room) do(fn func() error) error {
	req := request{fn: fn, done: make(chan error, 1)}
	select {
	case r.mutate <- req:
	case <-r.closed:
		return ErrClosed
	}
	select {
	case err := <-req.done:
		return err
	case <-r.closed:
		return ErrClosed
	}
}

// Authenticate reports whether token matches this session's mod token.
func (r *Room) Authenticate(token string) bool {
	var ok bool
	_ = r.do(func() error {
		ok = token != "" && token == r.session.ModToken
		return nil
	})
	return ok
}

// ParticipantID returns the single participant id used on the wire for
// this training session: the session id itself.
func (r *Room) ParticipantID() string { return r.sessionID }

// Status reports the session's actual lifecycle state, unlike Snapshot's
// wire-frozen RUNNING status. Used by the reaper to decide when this room's
// worker should be torn down.
func (r *Room) Status() (status models.TrainingStatus, err error) {
	err = r.do(func() error {
		status = r.session.Status
		return nil
	})
	return status, err
}

// Snapshot returns the wire view of this session, frozen in RUNNING status
// so modsession-style auth logic skips straight past the ready gate (spec
// §4.9: "no ready required").
func (r *Room) Snapshot() (race envelope.RaceInfo, seed envelope.SeedInfo, participants []envelope.ParticipantInfo, err error) {
	err = r.do(func() error {
		race = envelope.RaceInfo{ID: r.sessionID, Name: "training", Status: string(models.RaceRunning)}
		if r.seed != nil {
			seed = seedInfo(r.seed)
		}
		participants = []envelope.ParticipantInfo{r.wireParticipant()}
		return nil
	})
	return race, seed, participants, err
}

func (r *Room) wireParticipant() envelope.ParticipantInfo {
	t := r.session
	return envelope.ParticipantInfo{
		ID: r.sessionID,
		User: envelope.UserInfo{
			ID:          r.user.ID,
			Login:       r.user.Login,
			DisplayName: r.user.DisplayName,
		},
		Status:       trainingStatusWire(t.Status),
		CurrentZone:  t.CurrentZone,
		CurrentLayer: currentLayer(r.seed, t.ProgressNodes),
		IGTMs:        t.IGTMs,
		DeathCount:   t.DeathCount,
		ZoneHistory:  zoneHistoryWire(t.ProgressNodes),
		IsLive:       t.Status == models.TrainingActive,
	}
}
