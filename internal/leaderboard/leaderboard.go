// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package leaderboard implements the pure sort and gap-timing functions
// for standings: sorting, layer derivation, and the per-participant gap to the
// leader. It has no side effects and does not touch the store or the wire;
// internal/raceroom calls it on every mutation that can change relative
// standings.
package leaderboard

import (
	"sort"

	"github.com/seedrunner/race-server/internal/models"
)

// Entry wraps a participant with its computed gap and rank in one snapshot.
type Entry struct {
	Participant *models.Participant
	GapMs       *int64
	Rank        int
}

var statusBucket = map[models.ParticipantStatus]int{
	models.ParticipantFinished:   0,
	models.ParticipantPlaying:    1,
	models.ParticipantReady:      2,
	models.ParticipantRegistered: 3,
	models.ParticipantAbandoned:  4,
}

// Compute returns participants sorted by standing with gap_ms and rank
// populated. seed is used to resolve node tiers for layer_entry_igt and
// leader_splits; it may be nil only if every participant is outside
// PLAYING (no tier lookups are then required).
func Compute(participants []*models.Participant, seed *models.Seed) []Entry {
	sorted := make([]*models.Participant, len(participants))
	copy(sorted, participants)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		ba, bb := statusBucket[a.Status], statusBucket[b.Status]
		if ba != bb {
			return ba < bb
		}
		switch a.Status {
		case models.ParticipantFinished:
			return a.IGTMs < b.IGTMs
		case models.ParticipantPlaying:
			if a.CurrentLayer != b.CurrentLayer {
				return a.CurrentLayer > b.CurrentLayer
			}
			aEntry, bEntry := layerEntryIGT(a, seed), layerEntryIGT(b, seed)
			if aEntry != bEntry {
				return aEntry < bEntry
			}
			return a.IGTMs < b.IGTMs
		default:
			return a.RegisteredSeq < b.RegisteredSeq
		}
	})

	entries := make([]Entry, len(sorted))
	for i, p := range sorted {
		entries[i] = Entry{Participant: p, Rank: i + 1}
	}

	leaderIdx := -1
	for i, e := range entries {
		if e.Participant.Status == models.ParticipantPlaying || e.Participant.Status == models.ParticipantFinished {
			leaderIdx = i
			break
		}
	}
	if leaderIdx == -1 {
		return entries
	}
	leader := entries[leaderIdx].Participant
	leaderSplits := layerSplits(leader, seed)

	for i := range entries {
		p := entries[i].Participant
		switch {
		case i == leaderIdx:
			entries[i].GapMs = nil
		case p.Status == models.ParticipantFinished:
			gap := p.IGTMs - leader.IGTMs
			entries[i].GapMs = &gap
		case p.Status == models.ParticipantPlaying:
			if split, ok := leaderSplits[p.CurrentLayer]; ok {
				gap := p.IGTMs - split
				entries[i].GapMs = &gap
			}
		}
	}

	return entries
}

// layerEntryIGT is the first igt_ms at which p entered its current layer,
// derived by scanning zone_history for the earliest entry whose node's
// tier equals current_layer. Falls back to igt_ms if zone_history is empty
// or no entry resolves to the current layer.
func layerEntryIGT(p *models.Participant, seed *models.Seed) int64 {
	if seed == nil || len(p.ZoneHistory) == 0 {
		return p.IGTMs
	}
	for _, entry := range p.ZoneHistory {
		tier, ok := seed.NodeTier(entry.NodeID)
		if ok && tier == p.CurrentLayer {
			return entry.IGTMs
		}
	}
	return p.IGTMs
}

// layerSplits builds layer -> first igt_ms at which p reached that layer,
// one pass over p's zone_history; first occurrence per tier wins.
func layerSplits(p *models.Participant, seed *models.Seed) map[int]int64 {
	splits := make(map[int]int64)
	if seed == nil {
		return splits
	}
	for _, entry := range p.ZoneHistory {
		tier, ok := seed.NodeTier(entry.NodeID)
		if !ok {
			continue
		}
		if _, seen := splits[tier]; !seen {
			splits[tier] = entry.IGTMs
		}
	}
	return splits
}
