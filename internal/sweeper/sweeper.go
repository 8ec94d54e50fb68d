// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package sweeper

import (
	"context"
	"time"

	"github.com/seedrunner/race-server/internal/logging"
	"github.com/seedrunner/race-server/internal/metrics"
	"github.com/seedrunner/race-server/internal/models"
)

const (
	// DefaultInterval is how often the sweeper checks for stale participants.
	DefaultInterval = 60 * time.Second
	// DefaultThreshold is how long a participant's igt_ms may go unchanged
	// before it is force-abandoned.
	DefaultThreshold = 5 * time.Minute
)

// Store is the slice of internal/store.Store the sweeper reads from.
type Store interface {
	LoadStaleRunningParticipants(ctx context.Context, cutoff time.Time) ([]*models.Participant, error)
}

// Room is the one mutation the sweeper ever invokes.
type Room interface {
	ApplyAbandon(ctx context.Context, participantID string) error
}

// RoomLookup resolves a race id to its live Room, if one is running.
type RoomLookup interface {
	Get(raceID string) (Room, bool)
}

// Sweeper is a suture.Service: ticks every Interval, force-abandoning every
// participant whose last_igt_change_at predates now-Threshold.
type Sweeper struct {
	store     Store
	rooms     RoomLookup
	interval  time.Duration
	threshold time.Duration
}

// New constructs a Sweeper with the given store and room lookup. interval
// and threshold fall back to DefaultInterval/DefaultThreshold when zero.
func New(store Store, rooms RoomLookup, interval, threshold time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Sweeper{store: store, rooms: rooms, interval: interval, threshold: threshold}
}

// Serve implements suture.Service. It runs until ctx is canceled; a tick
// already in progress when ctx is canceled is allowed to finish before
// Serve returns.
func (s *Sweeper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// String implements fmt.Stringer for suture's logging.
func (s *Sweeper) String() string {
	return "inactivity-sweeper"
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.threshold)
	stale, err := s.store.LoadStaleRunningParticipants(ctx, cutoff)
	if err != nil {
		logging.Error().Err(err).Msg("sweeper: failed to load stale participants")
		return
	}

	for _, p := range stale {
		room, ok := s.rooms.Get(p.RaceID)
		if !ok {
			logging.Warn().Str("race_id", p.RaceID).Str("participant_id", p.ID).
				Msg("sweeper: stale participant has no live room, skipping")
			continue
		}
		if err := room.ApplyAbandon(ctx, p.ID); err != nil {
			logging.Warn().Err(err).Str("race_id", p.RaceID).Str("participant_id", p.ID).
				Msg("sweeper: abandon failed")
			continue
		}
		metrics.SweeperAbandonsTotal.Inc()
		logging.Info().Str("race_id", p.RaceID).Str("participant_id", p.ID).
			Dur("threshold", s.threshold).Msg("sweeper: force-abandoned inactive participant")
	}
}
