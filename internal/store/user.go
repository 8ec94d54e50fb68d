// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/seedrunner/race-server/internal/models"
)

// UpsertUser replicates a user identity into the local store so the race
// room can resolve a participant's login/display name for the wire shape
// without a live call to the identity collaborator (out of scope per spec
// §1). The caller — the out-of-scope registration/invitation layer — is
// expected to call this once per user it introduces to a race.
func (s *Store) UpsertUser(ctx context.Context, u models.User) error {
	_, err := s.call(ctx, "upsert_user", func(ctx context.Context) (any, error) {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO users (id, login, display_name) VALUES (?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET login = excluded.login, display_name = excluded.display_name`,
			u.ID, u.Login, u.DisplayName,
		)
		return nil, err
	})
	return err
}

// LoadUser returns a replicated user identity by id, or ErrNotFound.
func (s *Store) LoadUser(ctx context.Context, userID string) (models.User, error) {
	result, err := s.call(ctx, "load_user", func(ctx context.Context) (any, error) {
		row := s.db.QueryRowContext(ctx, `SELECT id, login, display_name FROM users WHERE id = ?`, userID)
		var u models.User
		if err := row.Scan(&u.ID, &u.Login, &u.DisplayName); err != nil {
			return models.User{}, err
		}
		return u, nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return result.(models.User), nil
}
