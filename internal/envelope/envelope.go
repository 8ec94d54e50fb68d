// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package envelope implements the tagged-union JSON frame codec shared by
// the mod wire protocol and the spectator channel.
//
// Parsing is strict on the type tag and lenient on unknown fields so the
// protocol can evolve without breaking older clients. A frame with a known
// tag but missing required fields is discarded by the caller (Decode
// returns ErrMissingField); it must never close the connection.
package envelope

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

// Size and length bounds: suggested 128 for tokens and node ids, 8 KB
// total frame.
const (
	MaxFrameBytes  = 8 * 1024
	MaxTokenLen    = 128
	MaxNodeIDLen   = 128
)

// Client tags (mod -> server).
const (
	TypeAuth        = "auth"
	TypeReady       = "ready"
	TypeStatusUpdate = "status_update"
	TypeEventFlag   = "event_flag"
	TypeZoneEntered = "zone_entered"
	TypeFinished    = "finished"
	TypePong        = "pong"
)

// Server tags (server -> client).
const (
	TypeAuthOk           = "auth_ok"
	TypeAuthError        = "auth_error"
	TypeError            = "error"
	TypeRaceStart        = "race_start"
	TypeRaceStatusChange = "race_status_change"
	TypeLeaderboardUpdate = "leaderboard_update"
	TypePlayerUpdate     = "player_update"
	TypeRaceState        = "race_state"
	TypeZoneUpdate       = "zone_update"
	TypePing             = "ping"
	TypeCasterUpdate     = "caster_update"
)

// ErrFrameTooLarge is returned when a raw frame exceeds MaxFrameBytes.
var ErrFrameTooLarge = errors.New("envelope: frame exceeds maximum size")

// ErrMissingField is returned by a Parse* helper when a required field for
// a known tag is absent or fails validation. The caller must discard the
// frame and log, never close the connection.
var ErrMissingField = errors.New("envelope: missing or invalid required field")

// ErrUnknownType is returned when the type tag is not recognized. Callers
// should log and drop, not close the connection.
var ErrUnknownType = errors.New("envelope: unknown type tag")

type tagged struct {
	Type string `json:"type"`
}

// PeekType extracts the mandatory type tag from a raw frame without fully
// decoding it, so dispatch can pick the right concrete struct.
func PeekType(data []byte) (string, error) {
	if len(data) > MaxFrameBytes {
		return "", ErrFrameTooLarge
	}
	var t tagged
	if err := json.Unmarshal(data, &t); err != nil {
		return "", fmt.Errorf("envelope: %w", err)
	}
	if t.Type == "" {
		return "", ErrMissingField
	}
	return t.Type, nil
}

// Encode marshals a server frame. frame must have a `type` json field
// (every *Frame type below does); Encode does not inject it.
func Encode(frame interface{}) ([]byte, error) {
	return json.Marshal(frame)
}

// --- client frames ---

// AuthFrame is the mandatory first frame on a mod connection.
type AuthFrame struct {
	Type     string `json:"type"`
	ModToken string `json:"mod_token"`
}

// ReadyFrame signals SETUP-era readiness.
type ReadyFrame struct {
	Type string `json:"type"`
}

// StatusUpdateFrame is sent by the mod roughly every second.
type StatusUpdateFrame struct {
	Type        string  `json:"type"`
	IGTMs       int64   `json:"igt_ms"`
	CurrentZone *string `json:"current_zone"`
	DeathCount  int     `json:"death_count"`
}

// ZoneEnteredFrame fires on a zone transition.
type ZoneEnteredFrame struct {
	Type     string  `json:"type"`
	FromZone *string `json:"from_zone"`
	ToZone   string  `json:"to_zone"`
	IGTMs    int64   `json:"igt_ms"`
}

// EventFlagFrame is a game-event signal.
type EventFlagFrame struct {
	Type  string `json:"type"`
	Flag  string `json:"flag"`
	IGTMs int64  `json:"igt_ms"`
}

// FinishedFrame is terminal for the sending participant.
type FinishedFrame struct {
	Type  string `json:"type"`
	IGTMs int64  `json:"igt_ms"`
}

// PongFrame answers a server ping.
type PongFrame struct {
	Type string `json:"type"`
}

// ParseAuth decodes and validates an AuthFrame.
func ParseAuth(data []byte) (*AuthFrame, error) {
	var f AuthFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}
	if f.ModToken == "" || len(f.ModToken) > MaxTokenLen {
		return nil, ErrMissingField
	}
	return &f, nil
}

// ParseStatusUpdate decodes and validates a StatusUpdateFrame.
func ParseStatusUpdate(data []byte) (*StatusUpdateFrame, error) {
	var f StatusUpdateFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}
	if f.IGTMs < 0 || f.DeathCount < 0 {
		return nil, ErrMissingField
	}
	if f.CurrentZone != nil && len(*f.CurrentZone) > MaxNodeIDLen {
		return nil, ErrMissingField
	}
	return &f, nil
}

// ParseZoneEntered decodes and validates a ZoneEnteredFrame.
func ParseZoneEntered(data []byte) (*ZoneEnteredFrame, error) {
	var f ZoneEnteredFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}
	if f.ToZone == "" || len(f.ToZone) > MaxNodeIDLen || f.IGTMs < 0 {
		return nil, ErrMissingField
	}
	if f.FromZone != nil && len(*f.FromZone) > MaxNodeIDLen {
		return nil, ErrMissingField
	}
	return &f, nil
}

// ParseEventFlag decodes and validates an EventFlagFrame.
func ParseEventFlag(data []byte) (*EventFlagFrame, error) {
	var f EventFlagFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}
	if f.Flag == "" || f.IGTMs < 0 {
		return nil, ErrMissingField
	}
	return &f, nil
}

// ParseFinished decodes and validates a FinishedFrame.
func ParseFinished(data []byte) (*FinishedFrame, error) {
	var f FinishedFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}
	if f.IGTMs < 0 {
		return nil, ErrMissingField
	}
	return &f, nil
}

// --- server frames ---

// UserInfo is the user shape embedded in ParticipantInfo.
type UserInfo struct {
	ID          string `json:"id"`
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
	ColorIndex  int    `json:"color_index"`
}

// ZoneHistoryEntry mirrors models.ZoneHistoryEntry for wire purposes.
type ZoneHistoryEntry struct {
	NodeID string `json:"node_id"`
	IGTMs  int64  `json:"igt_ms"`
	Deaths int    `json:"deaths"`
}

// ParticipantInfo is the wire shape of a participant.
type ParticipantInfo struct {
	ID           string             `json:"id"`
	User         UserInfo           `json:"user"`
	Status       string             `json:"status"`
	CurrentZone  *string            `json:"current_zone"`
	CurrentLayer int                `json:"current_layer"`
	IGTMs        int64              `json:"igt_ms"`
	DeathCount   int                `json:"death_count"`
	ZoneHistory  []ZoneHistoryEntry `json:"zone_history"`
	GapMs        *int64             `json:"gap_ms"`
	IsLive       bool               `json:"is_live"`
	Rank         int                `json:"rank"`
}

// SeedInfo is the wire shape of a seed.
type SeedInfo struct {
	ID          string `json:"id"`
	PoolName    string `json:"pool_name"`
	TotalLayers int    `json:"total_layers"`
	TotalNodes  int    `json:"total_nodes"`
	GraphJSON   string `json:"graph_json"`
}

// RaceInfo is the wire shape of a race.
type RaceInfo struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Status          string  `json:"status"`
	StartedAt       *string `json:"started_at"`
	SeedsReleasedAt *string `json:"seeds_released_at"`
}

// AuthOkFrame is sent after successful mod authentication.
type AuthOkFrame struct {
	Type            string            `json:"type"`
	Race            RaceInfo          `json:"race"`
	Seed            SeedInfo          `json:"seed"`
	Participants    []ParticipantInfo `json:"participants"`
	MyParticipantID string            `json:"my_participant_id"`
}

// AuthErrorFrame precedes a connection close.
type AuthErrorFrame struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// ErrorFrame is non-fatal; the session remains open.
type ErrorFrame struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// RaceStartFrame announces SETUP->RUNNING.
type RaceStartFrame struct {
	Type string `json:"type"`
}

// RaceStatusChangeFrame announces a race status transition.
type RaceStatusChangeFrame struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

// LeaderboardUpdateFrame carries the full pre-sorted participant list.
type LeaderboardUpdateFrame struct {
	Type         string            `json:"type"`
	Participants []ParticipantInfo `json:"participants"`
}

// PlayerUpdateFrame carries one changed participant.
type PlayerUpdateFrame struct {
	Type   string          `json:"type"`
	Player ParticipantInfo `json:"player"`
}

// RaceStateFrame is sent to a spectator on hello and carries the full
// race/seed/leaderboard snapshot.
type RaceStateFrame struct {
	Type         string            `json:"type"`
	Race         RaceInfo          `json:"race"`
	Seed         SeedInfo          `json:"seed"`
	Participants []ParticipantInfo `json:"participants"`
}

// ZoneUpdateFrame announces a participant's first visit to a zone; the room
// broadcasts it to every session on the race.
type ZoneUpdateFrame struct {
	Type          string `json:"type"`
	ParticipantID string `json:"participant_id"`
	NodeID        string `json:"node_id"`
	IGTMs         int64  `json:"igt_ms"`
}

// PingFrame is the application-level ping envelope. The server does not send
// it: connection keepalive uses WebSocket ping control frames every 30s
// (see internal/wsconn).
type PingFrame struct {
	Type string `json:"type"`
}

// CasterUpdateFrame announces a caster join/leave.
type CasterUpdateFrame struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Joined bool   `json:"joined"`
}

// NewAuthOk constructs an AuthOkFrame with its type tag set.
func NewAuthOk(race RaceInfo, seed SeedInfo, participants []ParticipantInfo, myParticipantID string) *AuthOkFrame {
	return &AuthOkFrame{Type: TypeAuthOk, Race: race, Seed: seed, Participants: participants, MyParticipantID: myParticipantID}
}

// NewAuthError constructs an AuthErrorFrame with its type tag set.
func NewAuthError(reason string) *AuthErrorFrame {
	return &AuthErrorFrame{Type: TypeAuthError, Reason: reason}
}

// NewError constructs a non-fatal ErrorFrame with its type tag set.
func NewError(reason string) *ErrorFrame {
	return &ErrorFrame{Type: TypeError, Reason: reason}
}

// NewRaceStart constructs a RaceStartFrame with its type tag set.
func NewRaceStart() *RaceStartFrame {
	return &RaceStartFrame{Type: TypeRaceStart}
}

// NewRaceStatusChange constructs a RaceStatusChangeFrame with its type tag set.
func NewRaceStatusChange(status string) *RaceStatusChangeFrame {
	return &RaceStatusChangeFrame{Type: TypeRaceStatusChange, Status: status}
}

// NewLeaderboardUpdate constructs a LeaderboardUpdateFrame with its type tag set.
func NewLeaderboardUpdate(participants []ParticipantInfo) *LeaderboardUpdateFrame {
	return &LeaderboardUpdateFrame{Type: TypeLeaderboardUpdate, Participants: participants}
}

// NewPlayerUpdate constructs a PlayerUpdateFrame with its type tag set.
func NewPlayerUpdate(player ParticipantInfo) *PlayerUpdateFrame {
	return &PlayerUpdateFrame{Type: TypePlayerUpdate, Player: player}
}

// NewRaceState constructs a RaceStateFrame with its type tag set.
func NewRaceState(race RaceInfo, seed SeedInfo, participants []ParticipantInfo) *RaceStateFrame {
	return &RaceStateFrame{Type: TypeRaceState, Race: race, Seed: seed, Participants: participants}
}

// NewPing constructs a PingFrame with its type tag set.
func NewPing() *PingFrame {
	return &PingFrame{Type: TypePing}
}

// NewCasterUpdate constructs a CasterUpdateFrame with its type tag set.
func NewCasterUpdate(userID string, joined bool) *CasterUpdateFrame {
	return &CasterUpdateFrame{Type: TypeCasterUpdate, UserID: userID, Joined: joined}
}

// NewZoneUpdate constructs a ZoneUpdateFrame with its type tag set.
func NewZoneUpdate(participantID, nodeID string, igtMs int64) *ZoneUpdateFrame {
	return &ZoneUpdateFrame{Type: TypeZoneUpdate, ParticipantID: participantID, NodeID: nodeID, IGTMs: igtMs}
}
