// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package ghost

import (
	"context"
	"sort"

	"github.com/seedrunner/race-server/internal/models"
)

// Entry is one anonymized prior run, returned in ascending igt_ms order.
// No user_id or session id is present: a ghost is replay data, not an
// attributable record.
type Entry struct {
	ZoneHistory []models.ZoneHistoryEntry `json:"zone_history"`
	IGTMs       int64                     `json:"igt_ms"`
	DeathCount  int                       `json:"death_count"`
}

// Store is the slice of internal/store.Store the ghost query needs.
type Store interface {
	LoadTrainingSession(ctx context.Context, sessionID string) (*models.TrainingSession, error)
	LoadFinishedTrainingSessionsBySeed(ctx context.Context, seedID string) ([]*models.TrainingSession, error)
}

// Service answers ghost queries against a Store.
type Service struct {
	store Store
}

// New constructs a ghost query service.
func New(store Store) *Service {
	return &Service{store: store}
}

// Ghosts returns every other FINISHED training session on sessionID's seed,
// excluding sessionID itself and any non-FINISHED or progress-less session,
// sorted by igt_ms ascending.
func (s *Service) Ghosts(ctx context.Context, sessionID string) ([]Entry, error) {
	session, err := s.store.LoadTrainingSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	finished, err := s.store.LoadFinishedTrainingSessionsBySeed(ctx, session.SeedID)
	if err != nil {
		return nil, err
	}

	out := make([]Entry, 0, len(finished))
	for _, t := range finished {
		if t.ID == sessionID || t.ProgressNodes == nil {
			continue
		}
		out = append(out, Entry{
			ZoneHistory: t.ProgressNodes,
			IGTMs:       t.IGTMs,
			DeathCount:  t.DeathCount,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IGTMs < out[j].IGTMs })
	return out, nil
}
