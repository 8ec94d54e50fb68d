// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package racecontrol

// Wire reasons returned by this package's own failures (authentication,
// authorization, and request validation), as opposed to reasons forwarded
// from internal/raceroom's mutation sentinels via mapError.
const (
	reasonInvalidToken = "invalid_token"
	reasonForbidden    = "forbidden"
	reasonInvalidBody  = "invalid_body"
	reasonNotFound     = "not_found"
	reasonInternal     = "internal_error"
)
