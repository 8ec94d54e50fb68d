// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package raceroom

import "errors"

// Sentinel errors mirror the `reason` taxonomy on the wire.
// internal/racecontrol maps these to HTTP status codes; internal/modsession
// maps the gameplay-facing ones to error frames.
var (
	ErrRaceNotRunning    = errors.New("raceroom: race is not running")
	ErrRaceNotSetup      = errors.New("raceroom: race is not in setup")
	ErrParticipantTerminal = errors.New("raceroom: participant is in a terminal state")
	ErrParticipantNotPlaying = errors.New("raceroom: participant is not playing")
	ErrAlreadyReleased   = errors.New("raceroom: seeds already released")
	ErrSeedsNotReleased  = errors.New("raceroom: seeds not released")
	ErrNotFound          = errors.New("raceroom: participant not found")
	ErrCasterConflict    = errors.New("raceroom: user is already a participant or caster on this race")
	ErrRaceModified      = errors.New("raceroom: race modified (version conflict)")
	ErrClosed            = errors.New("raceroom: room is shutting down")
)
