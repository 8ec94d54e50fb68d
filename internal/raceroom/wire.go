// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package raceroom

import (
	"time"

	json "github.com/goccy/go-json"

	"github.com/seedrunner/race-server/internal/envelope"
	"github.com/seedrunner/race-server/internal/leaderboard"
	"github.com/seedrunner/race-server/internal/logging"
	"github.com/seedrunner/race-server/internal/models"
)

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func raceInfo(race *models.Race) envelope.RaceInfo {
	return envelope.RaceInfo{
		ID:              race.ID,
		Name:            race.Name,
		Status:          string(race.Status),
		StartedAt:       formatTime(race.StartedAt),
		SeedsReleasedAt: formatTime(race.SeedsReleasedAt),
	}
}

// seedGraphWire is the client-renderable DAG shape embedded in SeedInfo as
// a JSON string, kept separate from models.Seed so storage and wire layout
// can change independently.
type seedGraphWire struct {
	Nodes []seedGraphNode `json:"nodes"`
	Edges []seedGraphEdge `json:"edges"`
}

type seedGraphNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
	Tier int    `json:"tier"`
}

type seedGraphEdge struct {
	FromNodeID string `json:"from_node_id"`
	ToNodeID   string `json:"to_node_id"`
}

func marshalSeedGraph(seed *models.Seed) string {
	graph := seedGraphWire{
		Nodes: make([]seedGraphNode, len(seed.Nodes)),
		Edges: make([]seedGraphEdge, len(seed.Edges)),
	}
	for i, n := range seed.Nodes {
		graph.Nodes[i] = seedGraphNode{ID: n.ID, Name: n.Name, Kind: n.Kind, Tier: n.Tier}
	}
	for i, e := range seed.Edges {
		graph.Edges[i] = seedGraphEdge{FromNodeID: e.FromNodeID, ToNodeID: e.ToNodeID}
	}
	data, err := json.Marshal(graph)
	if err != nil {
		logging.Error().Err(err).Str("seed_id", seed.ID).Msg("raceroom: failed to marshal seed graph")
		return "{}"
	}
	return string(data)
}

func seedInfo(seed *models.Seed) envelope.SeedInfo {
	return envelope.SeedInfo{
		ID:          seed.ID,
		PoolName:    seed.PoolName,
		TotalLayers: seed.TotalLayers,
		TotalNodes:  len(seed.Nodes),
		GraphJSON:   marshalSeedGraph(seed),
	}
}

func zoneHistoryWire(history []models.ZoneHistoryEntry) []envelope.ZoneHistoryEntry {
	out := make([]envelope.ZoneHistoryEntry, len(history))
	for i, h := range history {
		out[i] = envelope.ZoneHistoryEntry{NodeID: h.NodeID, IGTMs: h.IGTMs, Deaths: h.Deaths}
	}
	return out
}

// participantInfo converts a Participant plus its user-identity lookup and
// computed leaderboard entry into the wire shape.
func participantInfo(p *models.Participant, user models.User, gapMs *int64, rank int) envelope.ParticipantInfo {
	return envelope.ParticipantInfo{
		ID:     p.ID,
		User:   envelope.UserInfo{ID: user.ID, Login: user.Login, DisplayName: user.DisplayName, ColorIndex: p.ColorIndex},
		Status: string(p.Status),
		CurrentZone:  p.CurrentZone,
		CurrentLayer: p.CurrentLayer,
		IGTMs:        p.IGTMs,
		DeathCount:   p.DeathCount,
		ZoneHistory:  zoneHistoryWire(p.ZoneHistory),
		GapMs:        gapMs,
		IsLive:       p.IsLive,
		Rank:         rank,
	}
}

// leaderboardToWire runs C6 over the room's current participants and returns
// the wire-shaped, pre-sorted list.
func (r *Room) leaderboardToWire() []envelope.ParticipantInfo {
	participants := make([]*models.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		participants = append(participants, p)
	}
	entries := leaderboard.Compute(participants, r.seed)

	out := make([]envelope.ParticipantInfo, len(entries))
	for i, e := range entries {
		user := r.users[e.Participant.UserID]
		out[i] = participantInfo(e.Participant, user, e.GapMs, e.Rank)
	}
	return out
}

// wireForParticipant returns the single wire-shaped ParticipantInfo for p,
// with gap/rank computed against the current full leaderboard.
func (r *Room) wireForParticipant(participantID string) (envelope.ParticipantInfo, bool) {
	for _, info := range r.leaderboardToWire() {
		if info.ID == participantID {
			return info, true
		}
	}
	return envelope.ParticipantInfo{}, false
}
