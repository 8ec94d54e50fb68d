// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package training

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedrunner/race-server/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]*models.TrainingSession
	seeds    map[string]*models.Seed
	users    map[string]models.User
	updates  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[string]*models.TrainingSession),
		seeds:    make(map[string]*models.Seed),
		users:    make(map[string]models.User),
	}
}

func (f *fakeStore) LoadTrainingSession(ctx context.Context, sessionID string) (*models.TrainingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.sessions[sessionID]
	if !ok {
		return nil, errNotFound
	}
	return t, nil
}

func (f *fakeStore) UpdateTrainingSession(ctx context.Context, t *models.TrainingSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, t.ID)
	f.sessions[t.ID] = t
	return nil
}

func (f *fakeStore) LoadSeed(ctx context.Context, seedID string) (*models.Seed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seeds[seedID]
	if !ok {
		return nil, errNotFound
	}
	return s, nil
}

func (f *fakeStore) LoadUser(ctx context.Context, userID string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return models.User{}, errNotFound
	}
	return u, nil
}

type errNotFoundType struct{}

func (errNotFoundType) Error() string { return "not found" }

var errNotFound = errNotFoundType{}

type fakeBroadcaster struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeBroadcaster) SendToMod(raceID, participantID string, frame []byte, frameType string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, frameType)
	return true
}

func (f *fakeBroadcaster) count(frameType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.sent {
		if t == frameType {
			n++
		}
	}
	return n
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func testSeed() *models.Seed {
	return &models.Seed{
		ID:       "seed-1",
		PoolName: "pool-a",
		Nodes: []models.SeedNode{
			{ID: "z1", Tier: 1, Kind: "zone", Name: "Caves"},
			{ID: "z2", Tier: 2, Kind: "zone", Name: "Depths"},
		},
		TotalLayers: 2,
	}
}

func newTestRoom(t *testing.T) (*Room, *fakeStore, *fakeBroadcaster, func()) {
	t.Helper()
	fs := newFakeStore()
	fs.seeds["seed-1"] = testSeed()
	fs.users["u-1"] = models.User{ID: "u-1", Login: "alice", DisplayName: "Alice"}
	fs.sessions["t-1"] = &models.TrainingSession{
		ID: "t-1", UserID: "u-1", SeedID: "seed-1", ModToken: "mod-token-1", Status: models.TrainingActive,
	}

	fb := &fakeBroadcaster{}
	clock := &fakeClock{now: time.Unix(1700000000, 0).UTC()}

	room, err := NewRoom(context.Background(), "t-1", fs, fb, clock)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go room.Serve(ctx)

	return room, fs, fb, cancel
}

func TestAuthenticateMatchesModToken(t *testing.T) {
	room, _, _, cancel := newTestRoom(t)
	defer cancel()

	assert.True(t, room.Authenticate("mod-token-1"))
	assert.False(t, room.Authenticate("wrong-token"))
	assert.False(t, room.Authenticate(""))
}

func TestSnapshotReportsRunningStatusAlways(t *testing.T) {
	room, _, _, cancel := newTestRoom(t)
	defer cancel()

	race, seed, participants, err := room.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "running", race.Status)
	assert.Equal(t, "seed-1", seed.ID)
	require.Len(t, participants, 1)
	assert.Equal(t, "t-1", participants[0].ID)
	assert.True(t, participants[0].IsLive)
}

func TestApplyStatusAdvancesIGTAndZone(t *testing.T) {
	room, fs, fb, cancel := newTestRoom(t)
	defer cancel()

	zone := "z1"
	require.NoError(t, room.ApplyStatus(context.Background(), 1000, &zone, 0))

	fs.mu.Lock()
	sess := fs.sessions["t-1"]
	fs.mu.Unlock()
	assert.Equal(t, int64(1000), sess.IGTMs)
	assert.Equal(t, "z1", *sess.CurrentZone)
	require.Len(t, sess.ProgressNodes, 1)
	assert.Equal(t, 1, fb.count("player_update"))
}

func TestApplyStatusDropsStaleIGT(t *testing.T) {
	room, fs, _, cancel := newTestRoom(t)
	defer cancel()

	require.NoError(t, room.ApplyStatus(context.Background(), 2000, nil, 0))
	require.NoError(t, room.ApplyStatus(context.Background(), 1000, nil, 0))

	fs.mu.Lock()
	sess := fs.sessions["t-1"]
	fs.mu.Unlock()
	assert.Equal(t, int64(2000), sess.IGTMs)
}

func TestApplyZoneEnteredRecordsEvenWithUnchangedIGT(t *testing.T) {
	room, fs, _, cancel := newTestRoom(t)
	defer cancel()

	require.NoError(t, room.ApplyStatus(context.Background(), 1000, nil, 0))
	require.NoError(t, room.ApplyZoneEntered(context.Background(), 1000, "z2"))

	fs.mu.Lock()
	sess := fs.sessions["t-1"]
	fs.mu.Unlock()
	require.Len(t, sess.ProgressNodes, 1)
	assert.Equal(t, "z2", sess.ProgressNodes[0].NodeID)
}

func TestApplyFinishedTransitionsToFinished(t *testing.T) {
	room, fs, _, cancel := newTestRoom(t)
	defer cancel()

	require.NoError(t, room.ApplyFinished(context.Background(), 5000))

	fs.mu.Lock()
	sess := fs.sessions["t-1"]
	fs.mu.Unlock()
	assert.Equal(t, models.TrainingFinished, sess.Status)
	assert.NotNil(t, sess.FinishedAt)
}

func TestApplyFinishedRejectsAlreadyTerminal(t *testing.T) {
	room, _, _, cancel := newTestRoom(t)
	defer cancel()

	require.NoError(t, room.ApplyFinished(context.Background(), 5000))
	err := room.ApplyFinished(context.Background(), 6000)
	assert.ErrorIs(t, err, ErrSessionNotActive)
}

func TestApplyAbandonTransitionsToAbandoned(t *testing.T) {
	room, fs, _, cancel := newTestRoom(t)
	defer cancel()

	require.NoError(t, room.ApplyAbandon(context.Background()))

	fs.mu.Lock()
	sess := fs.sessions["t-1"]
	fs.mu.Unlock()
	assert.Equal(t, models.TrainingAbandoned, sess.Status)
}

func TestApplyAbandonIsIdempotentAfterFinish(t *testing.T) {
	room, fs, _, cancel := newTestRoom(t)
	defer cancel()

	require.NoError(t, room.ApplyFinished(context.Background(), 1000))
	require.NoError(t, room.ApplyAbandon(context.Background()))

	fs.mu.Lock()
	sess := fs.sessions["t-1"]
	fs.mu.Unlock()
	assert.Equal(t, models.TrainingFinished, sess.Status)
}
