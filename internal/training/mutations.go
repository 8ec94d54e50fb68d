// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package training

import (
	"context"

	"github.com/seedrunner/race-server/internal/envelope"
	"github.com/seedrunner/race-server/internal/logging"
	"github.com/seedrunner/race-server/internal/models"
)

// ApplyStatus implements apply_status for a training session, adapted to
// one participant: stale or no-op replay updates are dropped
// silently, exactly as in internal/raceroom.
func (r *Room) ApplyStatus(ctx context.Context, igtMs int64, currentZone *string, deathCount int) error {
	return r.do(func() error {
		t := r.session
		if t.Status != models.TrainingActive {
			return nil
		}
		if igtMs < t.IGTMs {
			return nil
		}
		if igtMs == t.IGTMs && equalZone(t.CurrentZone, currentZone) && deathCount == t.DeathCount {
			return nil
		}

		advanced := igtMs > t.IGTMs
		t.IGTMs = igtMs
		if currentZone != nil {
			applyZoneEntry(t, r.seed, *currentZone, igtMs)
			t.CurrentZone = currentZone
		}
		attributeDeaths(t, deathCount)
		if advanced {
			now := r.clock.Now()
			t.LastIGTChangeAt = &now
		}

		if err := r.store.UpdateTrainingSession(ctx, t); err != nil {
			return err
		}
		r.broadcastPlayerUpdate()
		return nil
	})
}

// ApplyZoneEntered always records the zone transition, unlike ApplyStatus
// (the "zone_entered is a stronger signal" rule).
func (r *Room) ApplyZoneEntered(ctx context.Context, igtMs int64, toZone string) error {
	return r.do(func() error {
		t := r.session
		if t.Status != models.TrainingActive {
			return nil
		}
		if igtMs < t.IGTMs {
			return nil
		}

		advanced := igtMs > t.IGTMs
		t.IGTMs = igtMs
		applyZoneEntry(t, r.seed, toZone, igtMs)
		t.CurrentZone = &toZone
		if advanced {
			now := r.clock.Now()
			t.LastIGTChangeAt = &now
		}

		if err := r.store.UpdateTrainingSession(ctx, t); err != nil {
			return err
		}
		r.broadcastPlayerUpdate()
		return nil
	})
}

// ApplyEventFlag implements apply_event_flag for a training session.
func (r *Room) ApplyEventFlag(ctx context.Context, igtMs int64) error {
	return r.do(func() error {
		t := r.session
		if t.Status != models.TrainingActive {
			return ErrSessionNotActive
		}
		if igtMs <= t.IGTMs {
			return nil
		}

		t.IGTMs = igtMs
		now := r.clock.Now()
		t.LastIGTChangeAt = &now

		if err := r.store.UpdateTrainingSession(ctx, t); err != nil {
			return err
		}
		r.broadcastPlayerUpdate()
		return nil
	})
}

// ApplyFinished transitions the session to FINISHED and stamps finished_at;
// there is no auto-finish chain to check since there is only one
// participant.
func (r *Room) ApplyFinished(ctx context.Context, igtMs int64) error {
	return r.do(func() error {
		t := r.session
		if t.Status != models.TrainingActive {
			return ErrSessionNotActive
		}

		if igtMs > t.IGTMs {
			t.IGTMs = igtMs
		}
		t.Status = models.TrainingFinished
		now := r.clock.Now()
		t.FinishedAt = &now

		if err := r.store.UpdateTrainingSession(ctx, t); err != nil {
			return err
		}
		r.broadcastPlayerUpdate()
		return nil
	})
}

// ApplyAbandon transitions the session to ABANDONED. Invoked
// when the mod connection closes before the session reaches a terminal
// status, so a dropped connection always leaves a terminal record rather
// than an ACTIVE session with no writer left.
func (r *Room) ApplyAbandon(ctx context.Context) error {
	return r.do(func() error {
		t := r.session
		if t.Status != models.TrainingActive {
			return nil
		}

		t.Status = models.TrainingAbandoned
		now := r.clock.Now()
		t.FinishedAt = &now

		if err := r.store.UpdateTrainingSession(ctx, t); err != nil {
			return err
		}
		r.broadcastPlayerUpdate()
		return nil
	})
}

func (r *Room) broadcastPlayerUpdate() {
	frame, err := envelope.Encode(envelope.NewPlayerUpdate(r.wireParticipant()))
	if err != nil {
		logging.Warn().Err(err).Str("session_id", r.sessionID).Msg("training: failed to encode player_update")
		return
	}
	r.broadcaster.SendToMod(r.sessionID, r.sessionID, frame, envelope.TypePlayerUpdate)
}
