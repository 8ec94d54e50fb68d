// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package raceroom

import (
	"context"
	"errors"

	"github.com/seedrunner/race-server/internal/envelope"
	"github.com/seedrunner/race-server/internal/logging"
	"github.com/seedrunner/race-server/internal/models"
	"github.com/seedrunner/race-server/internal/store"
	"github.com/seedrunner/race-server/internal/wsconn"
)

func (r *Room) participant(participantID string) (*models.Participant, error) {
	p, ok := r.participants[participantID]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// ApplyStatus implements apply_status.
func (r *Room) ApplyStatus(ctx context.Context, participantID string, igtMs int64, currentZone *string, deathCount int) error {
	return r.do(func() error {
		p, err := r.participant(participantID)
		if err != nil {
			return err
		}
		if r.race.Status != models.RaceRunning {
			r.recordMutation("status_update", "rejected_not_running")
			return ErrRaceNotRunning
		}
		if p.Status.IsTerminal() {
			r.recordMutation("status_update", "dropped_terminal")
			return nil
		}

		// Promotion happens on the first accepted gameplay message regardless
		// of its payload, so a {0, nil, 0} replay-shaped first frame still
		// promotes instead of being swallowed by the noop_replay guard below.
		promoted := p.Status == models.ParticipantRegistered || p.Status == models.ParticipantReady
		if promoted {
			p.Status = models.ParticipantPlaying
		}

		if igtMs < p.IGTMs {
			r.recordMutation("status_update", "dropped_stale_igt")
			return nil
		}
		if !promoted && igtMs == p.IGTMs && equalZone(p.CurrentZone, currentZone) && deathCount == p.DeathCount {
			r.recordMutation("status_update", "noop_replay")
			return nil
		}

		advanced := igtMs > p.IGTMs
		p.IGTMs = igtMs
		if currentZone != nil {
			if applyZoneEntry(p, r.seed, *currentZone, igtMs) {
				r.broadcastZoneUpdate(p.ID, *currentZone, igtMs)
			}
			p.CurrentZone = currentZone
		}
		attributeDeaths(p, deathCount)
		if advanced {
			now := r.clock.Now()
			p.LastIGTChangeAt = &now
		}

		if err := r.store.UpdateParticipant(ctx, p); err != nil {
			r.recordMutation("status_update", "store_error")
			return err
		}

		r.markLeaderboardDirty()
		r.recordMutation("status_update", "accepted")
		return nil
	})
}

// ApplyZoneEntered implements the "zone_entered is a stronger signal" rule:
// unlike ApplyStatus, it always records the zone transition (a
// new zone_history entry or a layer bump) rather than treating an unchanged
// igt_ms/zone pair as a no-op replay, since a zone transition is itself the
// signal even when it lands on the same tick as a prior status_update.
func (r *Room) ApplyZoneEntered(ctx context.Context, participantID string, igtMs int64, toZone string) error {
	return r.do(func() error {
		p, err := r.participant(participantID)
		if err != nil {
			return err
		}
		if r.race.Status != models.RaceRunning {
			r.recordMutation("zone_entered", "rejected_not_running")
			return ErrRaceNotRunning
		}
		if p.Status.IsTerminal() {
			r.recordMutation("zone_entered", "dropped_terminal")
			return nil
		}
		if igtMs < p.IGTMs {
			r.recordMutation("zone_entered", "dropped_stale_igt")
			return nil
		}

		if p.Status == models.ParticipantRegistered || p.Status == models.ParticipantReady {
			p.Status = models.ParticipantPlaying
		}

		advanced := igtMs > p.IGTMs
		p.IGTMs = igtMs
		if applyZoneEntry(p, r.seed, toZone, igtMs) {
			r.broadcastZoneUpdate(p.ID, toZone, igtMs)
		}
		p.CurrentZone = &toZone
		if advanced {
			now := r.clock.Now()
			p.LastIGTChangeAt = &now
		}

		if err := r.store.UpdateParticipant(ctx, p); err != nil {
			r.recordMutation("zone_entered", "store_error")
			return err
		}

		r.markLeaderboardDirty()
		r.recordMutation("zone_entered", "accepted")
		return nil
	})
}

// ApplyEventFlag implements apply_event_flag.
func (r *Room) ApplyEventFlag(ctx context.Context, participantID string, igtMs int64) error {
	return r.do(func() error {
		p, err := r.participant(participantID)
		if err != nil {
			return err
		}
		if r.race.Status != models.RaceRunning {
			r.recordMutation("event_flag", "rejected_not_running")
			return ErrRaceNotRunning
		}
		if p.Status != models.ParticipantPlaying {
			r.recordMutation("event_flag", "rejected_not_playing")
			return ErrParticipantNotPlaying
		}
		if igtMs <= p.IGTMs {
			r.recordMutation("event_flag", "noop_stale")
			return nil
		}

		p.IGTMs = igtMs
		now := r.clock.Now()
		p.LastIGTChangeAt = &now

		if err := r.store.UpdateParticipant(ctx, p); err != nil {
			r.recordMutation("event_flag", "store_error")
			return err
		}

		r.broadcastPlayerUpdate(participantID)
		r.recordMutation("event_flag", "accepted")
		return nil
	})
}

// ApplyFinished implements apply_finished.
func (r *Room) ApplyFinished(ctx context.Context, participantID string, igtMs int64) error {
	return r.do(func() error {
		p, err := r.participant(participantID)
		if err != nil {
			return err
		}
		if r.race.Status != models.RaceRunning {
			r.recordMutation("finished", "rejected_not_running")
			return ErrRaceNotRunning
		}
		if p.Status != models.ParticipantPlaying {
			r.recordMutation("finished", "rejected_not_playing")
			return ErrParticipantNotPlaying
		}

		if igtMs > p.IGTMs {
			p.IGTMs = igtMs
		}
		p.Status = models.ParticipantFinished
		now := r.clock.Now()
		p.FinishedAt = &now

		if err := r.store.UpdateParticipant(ctx, p); err != nil {
			r.recordMutation("finished", "store_error")
			return err
		}

		r.broadcastPlayerUpdate(participantID)
		r.recordMutation("finished", "accepted")
		return r.checkAutoFinish(ctx)
	})
}

// ApplyAbandon implements apply_abandon. Used by both self-abandon and
// force-abandon (organizer, or the sweeper); the caller is responsible
// for the precondition check distinguishing the two paths.
func (r *Room) ApplyAbandon(ctx context.Context, participantID string) error {
	return r.do(func() error {
		p, err := r.participant(participantID)
		if err != nil {
			return err
		}
		if p.Status.IsTerminal() {
			r.recordMutation("abandon", "noop_already_terminal")
			return nil
		}

		p.Status = models.ParticipantAbandoned
		now := r.clock.Now()
		p.FinishedAt = &now

		if err := r.store.UpdateParticipant(ctx, p); err != nil {
			r.recordMutation("abandon", "store_error")
			return err
		}

		r.broadcastPlayerUpdate(participantID)
		r.recordMutation("abandon", "accepted")
		return r.checkAutoFinish(ctx)
	})
}

// SelfAbandon enforces the self-abandon precondition (race RUNNING and
// participant PLAYING) before delegating to ApplyAbandon. The
// precondition check and the abandon itself run as two separate do() calls,
// so another mutation can run between them; if that mutation has already
// made the participant terminal, ApplyAbandon leaves it unchanged.
func (r *Room) SelfAbandon(ctx context.Context, participantID string) error {
	err := r.do(func() error {
		p, err := r.participant(participantID)
		if err != nil {
			return err
		}
		if r.race.Status != models.RaceRunning || p.Status != models.ParticipantPlaying {
			return ErrParticipantNotPlaying
		}
		return nil
	})
	if err != nil {
		return err
	}
	return r.ApplyAbandon(ctx, participantID)
}

// ApplyReady implements apply_ready.
func (r *Room) ApplyReady(ctx context.Context, participantID string) error {
	return r.do(func() error {
		p, err := r.participant(participantID)
		if err != nil {
			return err
		}
		if r.race.Status != models.RaceSetup {
			r.recordMutation("ready", "rejected_not_setup")
			return ErrRaceNotSetup
		}
		if p.Status != models.ParticipantRegistered {
			r.recordMutation("ready", "noop")
			return nil
		}

		p.Status = models.ParticipantReady
		if err := r.store.UpdateParticipant(ctx, p); err != nil {
			r.recordMutation("ready", "store_error")
			return err
		}

		r.markLeaderboardDirty()
		r.recordMutation("ready", "accepted")
		return nil
	})
}

// ReleaseSeeds implements release_seeds.
func (r *Room) ReleaseSeeds(ctx context.Context) error {
	return r.do(func() error {
		if r.race.Status != models.RaceSetup {
			return ErrRaceNotSetup
		}
		if r.race.SeedsReleasedAt != nil {
			return ErrAlreadyReleased
		}

		now := r.clock.Now()
		r.race.SeedsReleasedAt = &now
		if err := r.updateRaceWithRetry(ctx); err != nil {
			return err
		}

		r.broadcastRaceState()
		r.recordMutation("release_seeds", "accepted")
		return nil
	})
}

// StartRace implements start_race.
func (r *Room) StartRace(ctx context.Context) error {
	return r.do(func() error {
		if r.race.Status != models.RaceSetup {
			return ErrRaceNotSetup
		}
		if r.race.SeedsReleasedAt == nil {
			return ErrSeedsNotReleased
		}

		now := r.clock.Now()
		r.race.Status = models.RaceRunning
		r.race.StartedAt = &now
		if err := r.updateRaceWithRetry(ctx); err != nil {
			return err
		}

		if frame, err := envelope.Encode(envelope.NewRaceStart()); err == nil {
			r.broadcaster.Broadcast(r.raceID, frame, envelope.TypeRaceStart, wsconn.AudienceAll)
		}
		r.broadcastRaceStatusChange()
		r.broadcastRaceState()
		r.recordMutation("start_race", "accepted")
		return nil
	})
}

// RerollSeed implements reroll_seed: picks a different unused
// seed from the same pool, clears seeds_released_at, rebinds seed_id.
func (r *Room) RerollSeed(ctx context.Context, poolName string) error {
	return r.do(func() error {
		if r.race.Status != models.RaceSetup {
			return ErrRaceNotSetup
		}

		excludeID := ""
		if r.race.SeedID != nil {
			excludeID = *r.race.SeedID
		}
		newSeedID, err := r.store.PickUnusedSeed(ctx, poolName, excludeID)
		if err != nil {
			return err
		}
		newSeed, err := r.store.LoadSeed(ctx, newSeedID)
		if err != nil {
			return err
		}

		r.race.SeedID = &newSeedID
		r.race.SeedsReleasedAt = nil
		if err := r.updateRaceWithRetry(ctx); err != nil {
			return err
		}
		r.seed = newSeed

		r.broadcastRaceState()
		r.recordMutation("reroll_seed", "accepted")
		return nil
	})
}

// AddCaster implements cast-join, enforcing the
// Participant/Caster mutual exclusion invariant (invariant 6).
func (r *Room) AddCaster(ctx context.Context, userID string) error {
	return r.do(func() error {
		for _, p := range r.participants {
			if p.UserID == userID {
				return ErrCasterConflict
			}
		}
		if r.casters[userID] {
			return nil
		}
		if err := r.store.AddCaster(ctx, r.raceID, userID); err != nil {
			return err
		}
		r.casters[userID] = true

		if frame, err := envelope.Encode(envelope.NewCasterUpdate(userID, true)); err == nil {
			r.broadcaster.Broadcast(r.raceID, frame, envelope.TypeCasterUpdate, wsconn.AudienceAll)
		}
		return nil
	})
}

// RemoveCaster implements cast-leave.
func (r *Room) RemoveCaster(ctx context.Context, userID string) error {
	return r.do(func() error {
		if !r.casters[userID] {
			return nil
		}
		if err := r.store.RemoveCaster(ctx, r.raceID, userID); err != nil {
			return err
		}
		delete(r.casters, userID)

		if frame, err := envelope.Encode(envelope.NewCasterUpdate(userID, false)); err == nil {
			r.broadcaster.Broadcast(r.raceID, frame, envelope.TypeCasterUpdate, wsconn.AudienceAll)
		}
		return nil
	})
}

// checkAutoFinish implements the "Auto-finish check": if every
// participant is terminal, transition the race to FINISHED under the
// optimistic lock, retrying once on conflict and giving up silently on a
// second conflict (a later mutation will re-check).
func (r *Room) checkAutoFinish(ctx context.Context) error {
	if r.race.Status != models.RaceRunning {
		return nil
	}
	if !allParticipantsTerminal(r.participants) {
		return nil
	}

	r.race.Status = models.RaceFinished
	if err := r.updateRaceWithRetry(ctx); err != nil {
		r.race.Status = models.RaceRunning
		logging.Warn().Str("race_id", r.raceID).Err(err).Msg("room: auto-finish gave up after retry")
		return nil
	}

	r.broadcastRaceStatusChange()
	return nil
}

// updateRaceWithRetry persists r.race, reloading and retrying exactly once
// on an optimistic lock conflict. A second conflict is given up
// on and surfaced as ErrRaceModified.
func (r *Room) updateRaceWithRetry(ctx context.Context) error {
	err := r.store.UpdateRace(ctx, r.race)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrVersionConflict) {
		return err
	}

	reloaded, reloadErr := r.store.LoadRace(ctx, r.raceID)
	if reloadErr != nil {
		return reloadErr
	}
	status, seedID, seedsReleasedAt, startedAt := r.race.Status, r.race.SeedID, r.race.SeedsReleasedAt, r.race.StartedAt
	r.race = reloaded
	r.race.Status = status
	r.race.SeedID = seedID
	r.race.SeedsReleasedAt = seedsReleasedAt
	r.race.StartedAt = startedAt

	if err := r.store.UpdateRace(ctx, r.race); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return ErrRaceModified
		}
		return err
	}
	return nil
}

func (r *Room) broadcastRaceState() {
	var seed envelope.SeedInfo
	if r.seed != nil {
		seed = seedInfo(r.seed)
	}
	frame, err := envelope.Encode(envelope.NewRaceState(raceInfo(r.race), seed, r.leaderboardToWire()))
	if err != nil {
		logging.Warn().Err(err).Msg("room: failed to encode race_state")
		return
	}
	r.broadcaster.Broadcast(r.raceID, frame, envelope.TypeRaceState, wsconn.AudienceAll)
}

func equalZone(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
