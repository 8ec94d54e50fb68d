// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package wsgateway

import (
	"context"
	"sync"

	"github.com/thejerf/suture/v4"

	"github.com/seedrunner/race-server/internal/clockid"
	"github.com/seedrunner/race-server/internal/raceroom"
	"github.com/seedrunner/race-server/internal/store"
	"github.com/seedrunner/race-server/internal/training"
	"github.com/seedrunner/race-server/internal/wsconn"
)

// RaceStore is the slice of internal/store.Store a Gateway needs to launch
// race rooms.
type RaceStore interface {
	raceroom.Store
}

// TrainingStore is the slice of internal/store.Store a Gateway needs to
// launch training rooms.
type TrainingStore interface {
	training.Store
}

// RoomAdder is the slice of internal/supervisor.SupervisorTree a Gateway
// needs to supervise the rooms it launches.
type RoomAdder interface {
	AddRoomService(svc suture.Service) suture.ServiceToken
	RemoveRoomService(token suture.ServiceToken) error
}

// Gateway is the websocket entry point: it resolves a race or training
// session id to its live Room, lazily constructing and supervising one on
// first connection, then hands the upgraded connection to the matching
// session handler.
type Gateway struct {
	raceStore     RaceStore
	trainingStore TrainingStore
	registry      *wsconn.Registry
	rooms         *raceroom.Manager
	sessions      *training.Manager
	tree          RoomAdder
	clock         clockid.Clock

	mu            sync.Mutex
	launchingRace map[string]chan struct{}
	launchingSess map[string]chan struct{}
	raceTokens    map[string]suture.ServiceToken
	sessTokens    map[string]suture.ServiceToken
}

// New constructs a Gateway. tree supervises every room this Gateway
// launches; rooms and sessions are the same process-wide managers consulted
// by internal/racecontrol and internal/sweeper.
func New(raceStore RaceStore, trainingStore TrainingStore, registry *wsconn.Registry, rooms *raceroom.Manager, sessions *training.Manager, tree RoomAdder) *Gateway {
	return &Gateway{
		raceStore:     raceStore,
		trainingStore: trainingStore,
		registry:      registry,
		rooms:         rooms,
		sessions:      sessions,
		tree:          tree,
		clock:         clockid.SystemClock{},
		launchingRace: make(map[string]chan struct{}),
		launchingSess: make(map[string]chan struct{}),
		raceTokens:    make(map[string]suture.ServiceToken),
		sessTokens:    make(map[string]suture.ServiceToken),
	}
}

// ensureRace returns the live room for raceID, constructing and supervising
// one from the store if none is registered yet. Concurrent callers for the
// same raceID coalesce onto a single construction.
func (g *Gateway) ensureRace(ctx context.Context, raceID string) (*raceroom.Room, error) {
	if room, ok := g.rooms.Get(raceID); ok {
		return room, nil
	}

	g.mu.Lock()
	if wait, inFlight := g.launchingRace[raceID]; inFlight {
		g.mu.Unlock()
		<-wait
		room, ok := g.rooms.Get(raceID)
		if !ok {
			return nil, store.ErrNotFound
		}
		return room, nil
	}
	done := make(chan struct{})
	g.launchingRace[raceID] = done
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.launchingRace, raceID)
		g.mu.Unlock()
		close(done)
	}()

	if room, ok := g.rooms.Get(raceID); ok {
		return room, nil
	}

	room, err := raceroom.NewRoom(ctx, raceID, g.raceStore, g.registry, g.clock)
	if err != nil {
		return nil, err
	}
	token := g.tree.AddRoomService(room)
	g.mu.Lock()
	g.raceTokens[raceID] = token
	g.mu.Unlock()
	g.rooms.Add(raceID, room)
	return room, nil
}

// ensureTraining returns the live room for sessionID, constructing and
// supervising one from the store if none is registered yet.
func (g *Gateway) ensureTraining(ctx context.Context, sessionID string) (*training.Room, error) {
	if room, ok := g.sessions.Get(sessionID); ok {
		return room, nil
	}

	g.mu.Lock()
	if wait, inFlight := g.launchingSess[sessionID]; inFlight {
		g.mu.Unlock()
		<-wait
		room, ok := g.sessions.Get(sessionID)
		if !ok {
			return nil, store.ErrNotFound
		}
		return room, nil
	}
	done := make(chan struct{})
	g.launchingSess[sessionID] = done
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.launchingSess, sessionID)
		g.mu.Unlock()
		close(done)
	}()

	if room, ok := g.sessions.Get(sessionID); ok {
		return room, nil
	}

	room, err := training.NewRoom(ctx, sessionID, g.trainingStore, g.registry, g.clock)
	if err != nil {
		return nil, err
	}
	token := g.tree.AddRoomService(room)
	g.mu.Lock()
	g.sessTokens[sessionID] = token
	g.mu.Unlock()
	g.sessions.Add(sessionID, room)
	return room, nil
}

// evictRace tears down the supervised worker and drops bookkeeping for a
// race whose room has reached a terminal status. Safe to call even if no
// token was ever recorded (e.g. the room predates this gateway instance).
func (g *Gateway) evictRace(raceID string) {
	g.mu.Lock()
	token, ok := g.raceTokens[raceID]
	delete(g.raceTokens, raceID)
	g.mu.Unlock()
	if ok {
		_ = g.tree.RemoveRoomService(token)
	}
	g.rooms.Remove(raceID)
	g.registry.CloseRace(raceID, "race_finished")
}

// evictTraining mirrors evictRace for a finished or abandoned training
// session.
func (g *Gateway) evictTraining(sessionID string) {
	g.mu.Lock()
	token, ok := g.sessTokens[sessionID]
	delete(g.sessTokens, sessionID)
	g.mu.Unlock()
	if ok {
		_ = g.tree.RemoveRoomService(token)
	}
	g.sessions.Remove(sessionID)
	g.registry.CloseRace(sessionID, "session_finished")
}
