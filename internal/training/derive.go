// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package training

import "github.com/seedrunner/race-server/internal/models"

// applyZoneEntry mirrors internal/raceroom's derived-layer rule, adapted to
// TrainingSession's progress_nodes field: if nodeID is new to t, append it;
// an already-visited node is left untouched.
func applyZoneEntry(t *models.TrainingSession, seed *models.Seed, nodeID string, igtMs int64) {
	if seed == nil {
		return
	}
	if _, known := seed.NodeTier(nodeID); !known {
		return
	}
	for _, entry := range t.ProgressNodes {
		if entry.NodeID == nodeID {
			return
		}
	}
	t.ProgressNodes = append(t.ProgressNodes, models.ZoneHistoryEntry{NodeID: nodeID, IGTMs: igtMs, Deaths: 0})
}

// attributeDeaths mirrors internal/raceroom's death-attribution rule.
func attributeDeaths(t *models.TrainingSession, newDeathCount int) {
	delta := newDeathCount - t.DeathCount
	t.DeathCount = newDeathCount
	if delta <= 0 || t.CurrentZone == nil {
		return
	}
	for i := range t.ProgressNodes {
		if t.ProgressNodes[i].NodeID == *t.CurrentZone {
			t.ProgressNodes[i].Deaths += delta
			return
		}
	}
}

// currentLayer is the max tier among progress_nodes seen so far. Unlike
// Participant, TrainingSession has no persisted current_layer column: it is
// cheap enough to derive on every wire conversion instead.
func currentLayer(seed *models.Seed, progress []models.ZoneHistoryEntry) int {
	if seed == nil {
		return 0
	}
	max := 0
	for _, entry := range progress {
		if tier, ok := seed.NodeTier(entry.NodeID); ok && tier > max {
			max = tier
		}
	}
	return max
}

func equalZone(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
