// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package training

import (
	json "github.com/goccy/go-json"

	"github.com/seedrunner/race-server/internal/envelope"
	"github.com/seedrunner/race-server/internal/logging"
	"github.com/seedrunner/race-server/internal/models"
)

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
		logging.Error().Err(err).Str("seed_id", seed.ID).Msg("training: failed to marshal seed graph")
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

// trainingStatusWire maps a TrainingStatus onto the participant status
// vocabulary the mod/spectator wire protocol already uses, so a client
// doesn't need a second status enum for the solo case.
func trainingStatusWire(status models.TrainingStatus) string {
	switch status {
	case models.TrainingFinished:
		return "finished"
	case models.TrainingAbandoned:
		return "abandoned"
	default:
		return "playing"
	}
}

func zoneHistoryWire(entries []models.ZoneHistoryEntry) []envelope.ZoneHistoryEntry {
	out := make([]envelope.ZoneHistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = envelope.ZoneHistoryEntry{NodeID: e.NodeID, IGTMs: e.IGTMs, Deaths: e.Deaths}
	}
	return out
}
