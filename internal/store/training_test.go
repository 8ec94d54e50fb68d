// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedrunner/race-server/internal/models"
)

func TestCreateAndLoadTrainingSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateSeed(ctx, testSeedForStore()))

	ts := &models.TrainingSession{ID: "ts-1", UserID: "u-1", SeedID: "seed-1", ModToken: "tok-1", Status: models.TrainingActive}
	require.NoError(t, s.CreateTrainingSession(ctx, ts))

	loaded, err := s.LoadTrainingSession(ctx, "ts-1")
	require.NoError(t, err)
	assert.Equal(t, models.TrainingActive, loaded.Status)
	assert.Equal(t, "seed-1", loaded.SeedID)
}

func TestLoadTrainingSessionNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadTrainingSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateTrainingSessionAndLoadFinished(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateSeed(ctx, testSeedForStore()))

	ts := &models.TrainingSession{ID: "ts-2", UserID: "u-2", SeedID: "seed-1", ModToken: "tok-2", Status: models.TrainingActive}
	require.NoError(t, s.CreateTrainingSession(ctx, ts))

	ts.Status = models.TrainingFinished
	ts.IGTMs = 42000
	ts.ProgressNodes = []models.ZoneHistoryEntry{{NodeID: "start", IGTMs: 0}, {NodeID: "finish", IGTMs: 42000}}
	require.NoError(t, s.UpdateTrainingSession(ctx, ts))

	finished, err := s.LoadFinishedTrainingSessionsBySeed(ctx, "seed-1")
	require.NoError(t, err)
	require.Len(t, finished, 1)
	assert.Equal(t, "ts-2", finished[0].ID)
	require.Len(t, finished[0].ProgressNodes, 2)
}

func TestLoadFinishedTrainingSessionsBySeedExcludesActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateSeed(ctx, testSeedForStore()))

	require.NoError(t, s.CreateTrainingSession(ctx, &models.TrainingSession{
		ID: "ts-3", UserID: "u-3", SeedID: "seed-1", ModToken: "tok-3", Status: models.TrainingActive,
	}))

	finished, err := s.LoadFinishedTrainingSessionsBySeed(ctx, "seed-1")
	require.NoError(t, err)
	assert.Empty(t, finished)
}
