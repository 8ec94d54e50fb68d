// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package racecontrol

// rerollSeedRequest is the body for POST /races/{raceID}/seed/reroll (C20).
type rerollSeedRequest struct {
	PoolName string `json:"pool_name" validate:"required,min=1,max=128"`
}

// casterJoinRequest is the body for POST /races/{raceID}/casters.
type casterJoinRequest struct {
	UserID string `json:"user_id" validate:"required,min=1,max=64"`
}

// errorResponse is the JSON body written on any non-2xx response.
type errorResponse struct {
	Reason string `json:"reason"`
}
