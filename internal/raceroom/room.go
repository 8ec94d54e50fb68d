// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package raceroom implements the race room (C5): the single-writer actor
// that owns one race's authoritative in-memory state, serializes every
// mutation through one goroutine, persists through the store adapter with
// optimistic concurrency, and drives the leaderboard and per-session
// broadcasts.
//
// The run loop is a priority-ordered select over lifecycle/command/timer
// channels, following the "the engine implements suture.Service directly"
// pattern also used in internal/supervisor/services: Room.Serve IS the
// suture.Service method, there is no separate wrapper.
package raceroom

import (
	"context"
	"sync"
	"time"

	"github.com/seedrunner/race-server/internal/clockid"
	"github.com/seedrunner/race-server/internal/envelope"
	"github.com/seedrunner/race-server/internal/logging"
	"github.com/seedrunner/race-server/internal/metrics"
	"github.com/seedrunner/race-server/internal/models"
	"github.com/seedrunner/race-server/internal/wsconn"
)

// leaderboardCoalesceInterval is the throttle tick for leaderboard_update
// broadcasts, default 100ms.
const leaderboardCoalesceInterval = 100 * time.Millisecond

// Store is the slice of internal/store.Store that a Room depends on.
// Accepting the interface, not the concrete type, keeps this package
// testable without a real DuckDB connection.
type Store interface {
	LoadRace(ctx context.Context, raceID string) (*models.Race, error)
	UpdateRace(ctx context.Context, race *models.Race) error
	LoadParticipants(ctx context.Context, raceID string) ([]*models.Participant, error)
	UpdateParticipant(ctx context.Context, p *models.Participant) error
	LoadSeed(ctx context.Context, seedID string) (*models.Seed, error)
	PickUnusedSeed(ctx context.Context, poolName, excludeSeedID string) (string, error)
	LoadCasters(ctx context.Context, raceID string) ([]models.Caster, error)
	AddCaster(ctx context.Context, raceID, userID string) error
	RemoveCaster(ctx context.Context, raceID, userID string) error
	LoadUser(ctx context.Context, userID string) (models.User, error)
}

// Broadcaster is the slice of internal/wsconn.Registry a Room depends on.
type Broadcaster interface {
	Broadcast(raceID string, frame []byte, frameType string, audience wsconn.Audience)
	SendToMod(raceID, participantID string, frame []byte, frameType string) bool
}

type request struct {
	fn   func() error
	done chan error
}

// Room is one race's single-writer actor. All fields below the mutate
// channel are owned exclusively by the goroutine running Serve; nothing else
// may read or write them.
type Room struct {
	raceID      string
	store       Store
	broadcaster Broadcaster
	clock       clockid.Clock

	mutate chan request
	closed chan struct{}
	once   sync.Once

	race         *models.Race
	seed         *models.Seed
	participants map[string]*models.Participant // keyed by participant id
	casters      map[string]bool                // keyed by user id
	users        map[string]models.User         // keyed by user id, cached for wire shape

	dirty bool // leaderboard needs a coalesced broadcast on the next tick
}

// NewRoom constructs a Room and loads its initial state from the store.
// Call Serve (typically via a suture tree) to start processing mutations.
func NewRoom(ctx context.Context, raceID string, st Store, broadcaster Broadcaster, clock clockid.Clock) (*Room, error) {
	race, err := st.LoadRace(ctx, raceID)
	if err != nil {
		return nil, err
	}

	participants, err := st.LoadParticipants(ctx, raceID)
	if err != nil {
		return nil, err
	}

	casterRows, err := st.LoadCasters(ctx, raceID)
	if err != nil {
		return nil, err
	}

	r := &Room{
		raceID:       raceID,
		store:        st,
		broadcaster:  broadcaster,
		clock:        clock,
		mutate:       make(chan request),
		closed:       make(chan struct{}),
		race:         race,
		participants: make(map[string]*models.Participant, len(participants)),
		casters:      make(map[string]bool, len(casterRows)),
		users:        make(map[string]models.User, len(participants)),
	}
	for _, p := range participants {
		r.participants[p.ID] = p
	}
	for _, c := range casterRows {
		r.casters[c.UserID] = true
	}

	if race.SeedID != nil {
		seed, err := st.LoadSeed(ctx, *race.SeedID)
		if err != nil {
			return nil, err
		}
		r.seed = seed
	}

	for _, p := range participants {
		if _, ok := r.users[p.UserID]; ok {
			continue
		}
		user, err := st.LoadUser(ctx, p.UserID)
		if err != nil {
			logging.Warn().Str("user_id", p.UserID).Err(err).Msg("room: could not resolve user identity, using blank")
			user = models.User{ID: p.UserID}
		}
		r.users[p.UserID] = user
	}

	return r, nil
}

// String identifies this Room for suture's supervision tree logs.
func (r *Room) String() string {
	return "raceroom:" + r.raceID
}

// RaceID returns the id of the race this room owns.
func (r *Room) RaceID() string { return r.raceID }

// Serve runs the room's single-writer loop until ctx is canceled. Implements
// suture.Service.
func (r *Room) Serve(ctx context.Context) error {
	ticker := time.NewTicker(leaderboardCoalesceInterval)
	defer ticker.Stop()
	defer r.once.Do(func() { close(r.closed) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-r.mutate:
			req.done <- req.fn()
		case <-ticker.C:
			r.flushLeaderboardIfDirty()
		}
	}
}

// do submits fn to run exclusively on the room's own goroutine and blocks
// for its result. Every exported mutation method is a thin wrapper over do.
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

// Snapshot returns copies of the room's race and seed state, safe to call
// from any goroutine via the single-writer queue — used for auth_ok and
// race_state hello frames.
func (r *Room) Snapshot() (race envelope.RaceInfo, seed envelope.SeedInfo, participants []envelope.ParticipantInfo, err error) {
	err = r.do(func() error {
		race = raceInfo(r.race)
		if r.seed != nil {
			seed = seedInfo(r.seed)
		}
		participants = r.leaderboardToWire()
		return nil
	})
	return race, seed, participants, err
}

// markLeaderboardDirty marks the room dirty; the next coalesce tick sends
// the full sorted list.
func (r *Room) markLeaderboardDirty() {
	r.dirty = true
}

// flushLeaderboardIfDirty runs on the room's own goroutine, called directly
// from Serve's ticker branch. It must never go through do(): do() blocks
// sending into r.mutate, which only Serve drains, so calling it from inside
// Serve itself would deadlock the room on the first dirty tick.
func (r *Room) flushLeaderboardIfDirty() {
	if !r.dirty {
		return
	}
	r.dirty = false
	frame, err := envelope.Encode(envelope.NewLeaderboardUpdate(r.leaderboardToWire()))
	if err != nil {
		logging.Warn().Str("race_id", r.raceID).Err(err).Msg("room: leaderboard flush failed")
		return
	}
	r.broadcaster.Broadcast(r.raceID, frame, envelope.TypeLeaderboardUpdate, wsconn.AudienceAll)
	metrics.LeaderboardBroadcastsTotal.WithLabelValues(r.raceID).Inc()
}

// broadcastPlayerUpdate sends an immediate player_update for one participant.
func (r *Room) broadcastPlayerUpdate(participantID string) {
	info, ok := r.wireForParticipant(participantID)
	if !ok {
		return
	}
	frame, err := envelope.Encode(envelope.NewPlayerUpdate(info))
	if err != nil {
		logging.Warn().Err(err).Msg("room: failed to encode player_update")
		return
	}
	r.broadcaster.Broadcast(r.raceID, frame, envelope.TypePlayerUpdate, wsconn.AudienceAll)
}

// broadcastZoneUpdate announces a participant's first visit to nodeID to
// every session on the race; the coalesced leaderboard_update follows on the
// next tick.
func (r *Room) broadcastZoneUpdate(participantID, nodeID string, igtMs int64) {
	frame, err := envelope.Encode(envelope.NewZoneUpdate(participantID, nodeID, igtMs))
	if err != nil {
		logging.Warn().Err(err).Msg("room: failed to encode zone_update")
		return
	}
	r.broadcaster.Broadcast(r.raceID, frame, envelope.TypeZoneUpdate, wsconn.AudienceAll)
}

func (r *Room) broadcastRaceStatusChange() {
	frame, err := envelope.Encode(envelope.NewRaceStatusChange(string(r.race.Status)))
	if err != nil {
		logging.Warn().Err(err).Msg("room: failed to encode race_status_change")
		return
	}
	r.broadcaster.Broadcast(r.raceID, frame, envelope.TypeRaceStatusChange, wsconn.AudienceAll)
}

func (r *Room) recordMutation(entryPoint, outcome string) {
	metrics.RecordRoomMutation(r.raceID, entryPoint, outcome)
}
