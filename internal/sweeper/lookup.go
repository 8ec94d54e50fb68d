// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package sweeper

import "github.com/seedrunner/race-server/internal/raceroom"

// managerLookup adapts *raceroom.Manager to RoomLookup, mirroring
// internal/racecontrol's own managerLookup. *raceroom.Room already
// satisfies Room structurally.
type managerLookup struct {
	manager *raceroom.Manager
}

// NewManagerLookup wraps a raceroom.Manager as a RoomLookup.
func NewManagerLookup(manager *raceroom.Manager) RoomLookup {
	return &managerLookup{manager: manager}
}

func (l *managerLookup) Get(raceID string) (Room, bool) {
	room, ok := l.manager.Get(raceID)
	if !ok {
		return nil, false
	}
	return room, true
}
