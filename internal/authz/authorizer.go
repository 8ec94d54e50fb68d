// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package authz

import (
	"context"
	"errors"

	"github.com/seedrunner/race-server/internal/models"
	"github.com/seedrunner/race-server/internal/store"
)

// AdminRole is the casbin role granted to operators who may act on any
// race regardless of organizer_id. Use Enforcer.AddRoleForUser to grant
// it.
const AdminRole = "admin"

// RaceStore resolves a race's owning organizer.
type RaceStore interface {
	LoadRace(ctx context.Context, raceID string) (*models.Race, error)
}

// Authorizer answers racecontrol.Authorizer: may subject perform action
// on raceID? Ownership is checked first and needs no casbin lookup — a
// race's organizer_id names its one organizer — with the
// enforcer as a second path for the admin role.
type Authorizer struct {
	races    RaceStore
	enforcer *Enforcer
}

// NewAuthorizer constructs an Authorizer over a race store and enforcer.
func NewAuthorizer(races RaceStore, enforcer *Enforcer) *Authorizer {
	return &Authorizer{races: races, enforcer: enforcer}
}

// Allow implements racecontrol.Authorizer. A race that doesn't exist
// yet falls through to the role check alone: an admin may still act on
// it (e.g. to unblock a stuck creation), but the eventual 404 is left
// to the room lookup that runs after this check, not manufactured here.
func (a *Authorizer) Allow(ctx context.Context, subject, raceID, action string) (bool, error) {
	race, err := a.races.LoadRace(ctx, raceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return a.enforcer.Enforce(subject, raceID, action)
		}
		return false, err
	}
	if race.OrganizerID == subject {
		return true, nil
	}
	return a.enforcer.Enforce(subject, raceID, action)
}
