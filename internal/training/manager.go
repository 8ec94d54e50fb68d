// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package training

import "sync"

// Manager is the process-wide session id -> Room lookup, mirroring
// internal/raceroom.Manager's shape. Rooms are added when their Serve
// goroutine is launched and removed once a session reaches a terminal
// status and its worker is torn down.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Room
}

// NewManager constructs an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Room)}
}

// Add registers room under sessionID, replacing any prior entry.
func (m *Manager) Add(sessionID string, room *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = room
}

// Remove drops sessionID from the manager.
func (m *Manager) Remove(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// Get returns the room for sessionID, if one is currently registered.
func (m *Manager) Get(sessionID string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.sessions[sessionID]
	return room, ok
}

// Len reports how many sessions are currently registered.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Snapshot returns a copy of the session id -> Room map, safe to range over
// without holding the manager's lock.
func (m *Manager) Snapshot() map[string]*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*Room, len(m.sessions))
	for k, v := range m.sessions {
		out[k] = v
	}
	return out
}
