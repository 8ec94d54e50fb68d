// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package racecontrol

import (
	"context"

	"github.com/seedrunner/race-server/internal/raceroom"
)

// Room is the slice of internal/raceroom.Room's mutation surface the HTTP
// control handlers invoke directly.
type Room interface {
	ReleaseSeeds(ctx context.Context) error
	StartRace(ctx context.Context) error
	RerollSeed(ctx context.Context, poolName string) error
	SelfAbandon(ctx context.Context, participantID string) error
	ApplyAbandon(ctx context.Context, participantID string) error
	AddCaster(ctx context.Context, userID string) error
	RemoveCaster(ctx context.Context, userID string) error
}

// RoomLookup resolves a race id to its live Room, if one is running.
type RoomLookup interface {
	Get(raceID string) (Room, bool)
}

// managerLookup adapts *raceroom.Manager to RoomLookup. *raceroom.Room
// already satisfies Room structurally, so the only work here is the nil
// case when the manager has nothing registered for raceID.
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
