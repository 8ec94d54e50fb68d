// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package orgauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every way a bearer token can fail verification:
// bad signature, wrong algorithm, expired, or malformed. The control
// surface doesn't distinguish these for the caller — one "invalid_token"
// reason covers all of them — so there is nothing finer-grained to return.
var ErrInvalidToken = errors.New("orgauth: invalid organizer token")

// Claims is the subset of an organizer token's claims this verifier
// cares about. Subject carries the organizer id compared against a
// race's organizer_id elsewhere (internal/authz).
type Claims struct {
	jwt.RegisteredClaims
}

// Verifier checks organizer bearer tokens signed with a shared HMAC
// secret. There is no minting side: organizer identity and token
// issuance belong to a collaborator system out of this service's scope;
// this is a pure verifier.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier for tokens signed with secret.
func NewVerifier(secret []byte) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("orgauth: signing secret is required")
	}
	return &Verifier{secret: secret}, nil
}

// VerifyOrganizerToken implements racecontrol.OrganizerVerifier. It
// returns the token's subject as the organizer id on success.
func (v *Verifier) VerifyOrganizerToken(ctx context.Context, token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return "", ErrInvalidToken
	}

	return subject, nil
}
