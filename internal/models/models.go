// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package models holds the domain entities shared by the store adapter,
// the race room, the leaderboard engine, and the wire envelope codec.
package models

import "time"

// RaceStatus is the lifecycle state of a Race. No regression: SETUP ->
// RUNNING -> FINISHED.
type RaceStatus string

const (
	RaceSetup    RaceStatus = "setup"
	RaceRunning  RaceStatus = "running"
	RaceFinished RaceStatus = "finished"
)

// ParticipantStatus is the lifecycle state of a Participant within one race.
type ParticipantStatus string

const (
	ParticipantRegistered ParticipantStatus = "registered"
	ParticipantReady      ParticipantStatus = "ready"
	ParticipantPlaying    ParticipantStatus = "playing"
	ParticipantFinished   ParticipantStatus = "finished"
	ParticipantAbandoned  ParticipantStatus = "abandoned"
)

// IsTerminal reports whether the status accepts no further gameplay frames.
func (s ParticipantStatus) IsTerminal() bool {
	return s == ParticipantFinished || s == ParticipantAbandoned
}

// TrainingStatus is the lifecycle state of a TrainingSession.
type TrainingStatus string

const (
	TrainingActive    TrainingStatus = "active"
	TrainingFinished  TrainingStatus = "finished"
	TrainingAbandoned TrainingStatus = "abandoned"
)

// User is the stable identity the core reads: an opaque id, a login handle,
// and a display name.
type User struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// SeedNode is one node of a seed's directed acyclic graph.
type SeedNode struct {
	ID   string `json:"id"`
	Tier int    `json:"tier"`
	Kind string `json:"kind"`
	Name string `json:"name"`
}

// SeedEdge is a directed edge between two seed graph nodes: read-only,
// attached at seed-assignment time, never mutated by the runtime.
type SeedEdge struct {
	FromNodeID string `json:"from_node_id"`
	ToNodeID   string `json:"to_node_id"`
}

// Seed is an immutable, pre-generated artifact. The graph is append-only
// once attached to a race.
type Seed struct {
	ID          string     `json:"id"`
	PoolName    string     `json:"pool_name"`
	Nodes       []SeedNode `json:"nodes"`
	Edges       []SeedEdge `json:"edges,omitempty"`
	TotalLayers int        `json:"total_layers"`
}

// NodeTier looks up a node's tier by id. Returns (0, false) if unknown.
func (s *Seed) NodeTier(nodeID string) (int, bool) {
	for _, n := range s.Nodes {
		if n.ID == nodeID {
			return n.Tier, true
		}
	}
	return 0, false
}

// Race is the authoritative record for one race.
type Race struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	OrganizerID      string     `json:"organizer_id"`
	Status           RaceStatus `json:"status"`
	SeedID           *string    `json:"seed_id"`
	SeedsReleasedAt  *time.Time `json:"seeds_released_at"`
	StartedAt        *time.Time `json:"started_at"`
	Version          int64      `json:"version"`
}

// ZoneHistoryEntry is one distinct node the participant has entered, in
// first-entry order, with in-game time of first entry and accumulated
// deaths while that node was current.
type ZoneHistoryEntry struct {
	NodeID string `json:"node_id"`
	IGTMs  int64  `json:"igt_ms"`
	Deaths int    `json:"deaths"`
}

// Participant is scoped to one race.
type Participant struct {
	ID              string             `json:"id"`
	RaceID          string             `json:"race_id"`
	UserID          string             `json:"user_id"`
	ModToken        string             `json:"-"`
	Status          ParticipantStatus  `json:"status"`
	CurrentZone     *string            `json:"current_zone"`
	CurrentLayer    int                `json:"current_layer"`
	IGTMs           int64              `json:"igt_ms"`
	DeathCount      int                `json:"death_count"`
	ZoneHistory     []ZoneHistoryEntry `json:"zone_history"`
	LastIGTChangeAt *time.Time         `json:"last_igt_change_at"`
	FinishedAt      *time.Time         `json:"finished_at"`
	ColorIndex      int                `json:"color_index"`
	RegisteredSeq   int64              `json:"-"`
	IsLive          bool               `json:"is_live"`
}

// Caster is scoped to one race; mutually exclusive with Participant on the
// same race.
type Caster struct {
	RaceID string `json:"race_id"`
	UserID string `json:"user_id"`
}

// TrainingSession is a degenerate race: one user, one seed not consumed from
// the pool, an independent mod token.
type TrainingSession struct {
	ID              string             `json:"id"`
	UserID          string             `json:"user_id"`
	SeedID          string             `json:"seed_id"`
	ModToken        string             `json:"-"`
	Status          TrainingStatus     `json:"status"`
	IGTMs           int64              `json:"igt_ms"`
	DeathCount      int                `json:"death_count"`
	ProgressNodes   []ZoneHistoryEntry `json:"progress_nodes"`
	CurrentZone     *string            `json:"current_zone"`
	LastIGTChangeAt *time.Time         `json:"last_igt_change_at"`
	FinishedAt      *time.Time         `json:"finished_at"`
}
