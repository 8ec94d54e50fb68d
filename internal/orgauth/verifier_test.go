// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package orgauth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret []byte, subject string, expiresAt time.Time, method jwt.SigningMethod) string {
	t.Helper()
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}}
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestVerifyOrganizerTokenReturnsSubjectOnValidToken(t *testing.T) {
	secret := []byte("a-sufficiently-long-shared-secret")
	v, err := NewVerifier(secret)
	require.NoError(t, err)

	token := signToken(t, secret, "org-1", time.Now().Add(time.Hour), jwt.SigningMethodHS256)

	subject, err := v.VerifyOrganizerToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "org-1", subject)
}

func TestVerifyOrganizerTokenRejectsExpiredToken(t *testing.T) {
	secret := []byte("a-sufficiently-long-shared-secret")
	v, err := NewVerifier(secret)
	require.NoError(t, err)

	token := signToken(t, secret, "org-1", time.Now().Add(-time.Hour), jwt.SigningMethodHS256)

	_, err = v.VerifyOrganizerToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyOrganizerTokenRejectsWrongSecret(t *testing.T) {
	v, err := NewVerifier([]byte("a-sufficiently-long-shared-secret"))
	require.NoError(t, err)

	token := signToken(t, []byte("a-totally-different-secret-value"), "org-1", time.Now().Add(time.Hour), jwt.SigningMethodHS256)

	_, err = v.VerifyOrganizerToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyOrganizerTokenRejectsMissingSubject(t *testing.T) {
	secret := []byte("a-sufficiently-long-shared-secret")
	v, err := NewVerifier(secret)
	require.NoError(t, err)

	token := signToken(t, secret, "", time.Now().Add(time.Hour), jwt.SigningMethodHS256)

	_, err = v.VerifyOrganizerToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyOrganizerTokenRejectsMalformedToken(t *testing.T) {
	v, err := NewVerifier([]byte("a-sufficiently-long-shared-secret"))
	require.NoError(t, err)

	_, err = v.VerifyOrganizerToken(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewVerifierRejectsEmptySecret(t *testing.T) {
	_, err := NewVerifier(nil)
	assert.Error(t, err)
}
