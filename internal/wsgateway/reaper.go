// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package wsgateway

import (
	"context"
	"time"

	"github.com/seedrunner/race-server/internal/logging"
	"github.com/seedrunner/race-server/internal/models"
)

// DefaultReapInterval is how often the reaper scans for rooms whose race or
// training session has reached a terminal status.
const DefaultReapInterval = 30 * time.Second

// Reaper is a suture.Service that evicts rooms for finished races and
// training sessions, mirroring internal/sweeper's tick-and-scan shape.
// internal/raceroom.Manager's own doc comment promises a room is "removed
// once a race reaches a terminal status and its worker is torn down"; this
// is where that promise is kept.
type Reaper struct {
	gw       *Gateway
	interval time.Duration
}

// NewReaper constructs a Reaper for gw. interval falls back to
// DefaultReapInterval when zero.
func NewReaper(gw *Gateway, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	return &Reaper{gw: gw, interval: interval}
}

// String implements fmt.Stringer for suture's logging.
func (r *Reaper) String() string { return "wsgateway-reaper" }

// Serve implements suture.Service.
func (r *Reaper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.reap()
		}
	}
}

func (r *Reaper) reap() {
	for raceID, room := range r.gw.rooms.Snapshot() {
		race, _, _, err := room.Snapshot()
		if err != nil {
			continue
		}
		if race.Status == string(models.RaceFinished) {
			logging.Info().Str("race_id", raceID).Msg("wsgateway: reaping finished race room")
			r.gw.evictRace(raceID)
		}
	}

	for sessionID, room := range r.gw.sessions.Snapshot() {
		status, err := room.Status()
		if err != nil {
			continue
		}
		if status == models.TrainingFinished || status == models.TrainingAbandoned {
			logging.Info().Str("session_id", sessionID).Msg("wsgateway: reaping finished training room")
			r.gw.evictTraining(sessionID)
		}
	}
}
