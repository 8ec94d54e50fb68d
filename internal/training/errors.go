// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package training

import "errors"

var (
	// ErrClosed is returned by Room methods called after the room has
	// stopped serving.
	ErrClosed = errors.New("training: room closed")
	// ErrSessionNotActive is returned by mutations that require the
	// session to still be ACTIVE (event_flag, finished).
	ErrSessionNotActive = errors.New("training: session not active")
	// ErrNotFound is not returned by Room methods; Authenticate reports an
	// unrecognized token by returning false.
	ErrNotFound = errors.New("training: not found")
)
