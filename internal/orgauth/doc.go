// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package orgauth verifies the organizer-minted bearer tokens the
// control surface (C9) requires for every organizer-only route.
// Minting and the collaborator identity system that issues those tokens
// are out of scope here — this package only ever checks a
// signature and an expiry, the same narrowing jwt.go's GenerateToken
// undergoes by simply not existing here.
package orgauth
