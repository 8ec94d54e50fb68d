// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package raceroom

import "github.com/seedrunner/race-server/internal/models"

// applyZoneEntry implements the "Derived layer" rule: if nodeID
// is new to p's zone_history, append {nodeID, igtMs, deaths:0} and recompute
// current_layer as the max tier seen. A node already present is left
// untouched (invariant 1: zone_history has no duplicate node ids). Reports
// whether a new zone_history entry was appended, so callers can tell a
// first visit from a revisit of an already-recorded node.
func applyZoneEntry(p *models.Participant, seed *models.Seed, nodeID string, igtMs int64) (entered bool) {
	if seed == nil {
		return false
	}
	tier, known := seed.NodeTier(nodeID)
	if !known {
		return false
	}

	for _, entry := range p.ZoneHistory {
		if entry.NodeID == nodeID {
			if tier > p.CurrentLayer {
				p.CurrentLayer = tier
			}
			return false
		}
	}

	p.ZoneHistory = append(p.ZoneHistory, models.ZoneHistoryEntry{NodeID: nodeID, IGTMs: igtMs, Deaths: 0})
	if tier > p.CurrentLayer {
		p.CurrentLayer = tier
	}
	return true
}

// attributeDeaths implements the "Death attribution" rule:
// delta = newDeathCount - p.DeathCount; if positive and current_zone has a
// zone_history entry, the delta is added to that entry's death count.
func attributeDeaths(p *models.Participant, newDeathCount int) {
	delta := newDeathCount - p.DeathCount
	p.DeathCount = newDeathCount
	if delta <= 0 || p.CurrentZone == nil {
		return
	}
	for i := range p.ZoneHistory {
		if p.ZoneHistory[i].NodeID == *p.CurrentZone {
			p.ZoneHistory[i].Deaths += delta
			return
		}
	}
}

// allParticipantsTerminal implements invariant 4: the race finishes iff
// every participant is FINISHED or ABANDONED. An empty race is not
// considered finished (there is nothing to finish).
func allParticipantsTerminal(participants map[string]*models.Participant) bool {
	if len(participants) == 0 {
		return false
	}
	for _, p := range participants {
		if !p.Status.IsTerminal() {
			return false
		}
	}
	return true
}
