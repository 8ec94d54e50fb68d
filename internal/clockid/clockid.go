// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

// Package clockid provides the clock and id-generation primitives every
// other Seedrunner component depends on: a seam for monotonic/wall time so
// room and sweeper logic can be tested deterministically, plus UUID and
// opaque-token generation.
package clockid

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts wall-clock time so tests can inject a fixed or
// step-controlled source instead of time.Now.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// NewID returns a new random UUID string, used for race, participant,
// caster, and training session ids.
func NewID() string {
	return uuid.NewString()
}

// NewModToken returns an opaque, unguessable token suitable for a
// participant's or training session's mod_token. 32 bytes of CSPRNG
// output, base64url-encoded without padding.
func NewModToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
