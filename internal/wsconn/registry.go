// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package wsconn

import (
	"sort"
	"sync"

	"github.com/seedrunner/race-server/internal/envelope"
	"github.com/seedrunner/race-server/internal/logging"
	"github.com/seedrunner/race-server/internal/metrics"
)

// Audience selects which sessions on a race a broadcast reaches.
type Audience int

const (
	AudienceMods Audience = iota
	AudienceListeners
	AudienceAll
)

func (a Audience) String() string {
	switch a {
	case AudienceMods:
		return "mods"
	case AudienceListeners:
		return "listeners"
	default:
		return "all"
	}
}

type raceConnections struct {
	mods      map[string]*Conn // participant id -> conn
	listeners map[string]*Conn // session id -> conn
}

// Registry is the per-process connection manager (C4): a race id -> session
// set map, guarded by one lock. Iteration for broadcast is done on a
// snapshot copy so sends never happen while the lock is held.
type Registry struct {
	mu    sync.RWMutex
	races map[string]*raceConnections
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{races: make(map[string]*raceConnections)}
}

func (r *Registry) raceFor(raceID string) *raceConnections {
	rc, ok := r.races[raceID]
	if !ok {
		rc = &raceConnections{mods: make(map[string]*Conn), listeners: make(map[string]*Conn)}
		r.races[raceID] = rc
	}
	return rc
}

// AttachMod registers conn as the mod session for participantID on raceID,
// evicting and closing any prior session for that participant after sending
// it a "replaced" error frame.
func (r *Registry) AttachMod(raceID, participantID string, conn *Conn) {
	r.mu.Lock()
	rc := r.raceFor(raceID)
	prior, hadPrior := rc.mods[participantID]
	rc.mods[participantID] = conn
	r.mu.Unlock()

	if hadPrior {
		if frame, err := envelope.Encode(envelope.NewError("replaced")); err == nil {
			prior.Enqueue(frame, envelope.TypeError)
		}
		prior.Close("replaced")
	}
	metrics.SetWSConnections("mod", 1)
}

// DetachMod removes the mod session for participantID from raceID, if conn
// is still the current occupant (avoids racing a fresh AttachMod out from
// under an already-evicted session's own cleanup).
func (r *Registry) DetachMod(raceID, participantID string, conn *Conn) {
	r.mu.Lock()
	rc, ok := r.races[raceID]
	if ok {
		if current, exists := rc.mods[participantID]; exists && current == conn {
			delete(rc.mods, participantID)
			metrics.SetWSConnections("mod", -1)
		}
	}
	r.mu.Unlock()
}

// AttachListener registers conn as a listener (caster or anonymous
// spectator) on raceID.
func (r *Registry) AttachListener(raceID string, conn *Conn) {
	r.mu.Lock()
	rc := r.raceFor(raceID)
	rc.listeners[conn.ID()] = conn
	r.mu.Unlock()
	metrics.SetWSConnections("listener", 1)
}

// DetachListener removes a listener session from raceID.
func (r *Registry) DetachListener(raceID, sessionID string) {
	r.mu.Lock()
	rc, ok := r.races[raceID]
	if ok {
		if _, exists := rc.listeners[sessionID]; exists {
			delete(rc.listeners, sessionID)
			metrics.SetWSConnections("listener", -1)
		}
	}
	r.mu.Unlock()
}

// Broadcast fans frame out to every session on raceID matching audience.
// Best-effort: per-connection backpressure is handled by Conn.Enqueue; a
// slow or dead session never blocks delivery to the others.
func (r *Registry) Broadcast(raceID string, frame []byte, frameType string, audience Audience) {
	targets := r.snapshot(raceID, audience)
	for _, conn := range targets {
		conn.Enqueue(frame, frameType)
	}
}

// SendToMod delivers frame to the single mod session for participantID on
// raceID, if one is attached. Returns false if no mod session is attached.
func (r *Registry) SendToMod(raceID, participantID string, frame []byte, frameType string) bool {
	r.mu.RLock()
	rc, ok := r.races[raceID]
	var conn *Conn
	if ok {
		conn, ok = rc.mods[participantID]
	}
	r.mu.RUnlock()
	if !ok {
		return false
	}
	conn.Enqueue(frame, frameType)
	return true
}

// snapshot returns a deterministically ordered copy of the sessions
// matching audience, taken under the read lock, so sends never happen
// while the lock is held.
func (r *Registry) snapshot(raceID string, audience Audience) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rc, ok := r.races[raceID]
	if !ok {
		return nil
	}

	var out []*Conn
	if audience == AudienceMods || audience == AudienceAll {
		for _, c := range rc.mods {
			out = append(out, c)
		}
	}
	if audience == AudienceListeners || audience == AudienceAll {
		for _, c := range rc.listeners {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// CloseRace closes every session attached to raceID and removes the race
// from the registry, used on process shutdown and after a race
// reaches FINISHED and is evicted from the supervisor's rooms layer.
func (r *Registry) CloseRace(raceID, reason string) {
	r.mu.Lock()
	rc, ok := r.races[raceID]
	delete(r.races, raceID)
	r.mu.Unlock()

	if !ok {
		return
	}
	for _, c := range rc.mods {
		c.Close(reason)
	}
	for _, c := range rc.listeners {
		c.Close(reason)
	}
	logging.Info().Str("race_id", raceID).Str("reason", reason).Msg("closed all sessions for race")
}

// NewDropMetricsHook returns an onDrop callback that records broadcast drops
// for raceID/audience to internal/metrics, for wiring into NewConn.
func NewDropMetricsHook(raceID, audience string) func(frameType string) {
	return func(frameType string) {
		metrics.RecordBroadcastDrop(raceID, audience)
	}
}
