// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package store

import (
	"errors"
	"io"

	"github.com/seedrunner/race-server/internal/logging"
)

// ErrVersionConflict is returned by UpdateRace when the optimistic version
// column no longer matches the caller's expectation.
var ErrVersionConflict = errors.New("store: race modified (version conflict)")

// ErrNotFound is returned when a load operation finds no matching row.
var ErrNotFound = errors.New("store: not found")

// ErrSeedUnavailable is returned by RerollSeed when the pool has no seed
// left to assign.
var ErrSeedUnavailable = errors.New("store: seed unavailable")

// closeWithLog closes closer and logs any non-nil error at Warn level,
// identifying the resource by resourceType.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Err(err).Str("resource", resourceType).Msg("failed to close resource")
	}
}
