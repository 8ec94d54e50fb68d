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

// CreateRace inserts a new race in SETUP with version 0. Race creation's
// HTTP routing is out of scope here; this is the persistence
// primitive that an out-of-scope caller, or a test, invokes.
func (s *Store) CreateRace(ctx context.Context, race *models.Race) error {
	_, err := s.call(ctx, "create_race", func(ctx context.Context) (any, error) {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO races (id, name, organizer_id, status, seed_id, seeds_released_at, started_at, version)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			race.ID, race.Name, race.OrganizerID, string(race.Status), race.SeedID, race.SeedsReleasedAt, race.StartedAt, race.Version,
		)
		return nil, err
	})
	return err
}

// LoadRace returns the race by id, or ErrNotFound.
func (s *Store) LoadRace(ctx context.Context, raceID string) (*models.Race, error) {
	result, err := s.call(ctx, "load_race", func(ctx context.Context) (any, error) {
		row := s.db.QueryRowContext(ctx,
			`SELECT id, name, organizer_id, status, seed_id, seeds_released_at, started_at, version
			 FROM races WHERE id = ?`, raceID)
		return scanRace(row)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return result.(*models.Race), nil
}

// UpdateRace persists race under an optimistic lock on race.Version: the
// write succeeds only if the stored version still equals race.Version, and
// on success the in-memory race.Version is advanced to match. Returns
// ErrVersionConflict if another writer already advanced the row (spec
// §4.7 "Auto-finish check", §6.5).
func (s *Store) UpdateRace(ctx context.Context, race *models.Race) error {
	_, err := s.call(ctx, "update_race", func(ctx context.Context) (any, error) {
		result, err := s.db.ExecContext(ctx,
			`UPDATE races SET name=?, organizer_id=?, status=?, seed_id=?, seeds_released_at=?, started_at=?, version=version+1
			 WHERE id=? AND version=?`,
			race.Name, race.OrganizerID, string(race.Status), race.SeedID, race.SeedsReleasedAt, race.StartedAt,
			race.ID, race.Version,
		)
		if err != nil {
			return nil, err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			return nil, ErrVersionConflict
		}
		race.Version++
		return nil, nil
	})
	return err
}

// LoadCasters returns every caster on a race.
func (s *Store) LoadCasters(ctx context.Context, raceID string) ([]models.Caster, error) {
	result, err := s.call(ctx, "load_casters", func(ctx context.Context) (any, error) {
		rows, err := s.db.QueryContext(ctx, `SELECT race_id, user_id FROM casters WHERE race_id = ?`, raceID)
		if err != nil {
			return nil, err
		}
		defer closeWithLog(rows, "rows:casters")

		var casters []models.Caster
		for rows.Next() {
			var c models.Caster
			if err := rows.Scan(&c.RaceID, &c.UserID); err != nil {
				return nil, err
			}
			casters = append(casters, c)
		}
		return casters, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.Caster), nil
}

// AddCaster inserts a caster, failing on a unique-constraint violation if
// the user is already a caster on the race. Mutual exclusion against
// Participant (invariant 6) is enforced by the caller before this call.
func (s *Store) AddCaster(ctx context.Context, raceID, userID string) error {
	_, err := s.call(ctx, "add_caster", func(ctx context.Context) (any, error) {
		_, err := s.db.ExecContext(ctx, `INSERT INTO casters (race_id, user_id) VALUES (?, ?)`, raceID, userID)
		return nil, err
	})
	return err
}

// RemoveCaster deletes a caster row.
func (s *Store) RemoveCaster(ctx context.Context, raceID, userID string) error {
	_, err := s.call(ctx, "remove_caster", func(ctx context.Context) (any, error) {
		_, err := s.db.ExecContext(ctx, `DELETE FROM casters WHERE race_id = ? AND user_id = ?`, raceID, userID)
		return nil, err
	})
	return err
}

func scanRace(row *sql.Row) (*models.Race, error) {
	var race models.Race
	var status string
	if err := row.Scan(&race.ID, &race.Name, &race.OrganizerID, &status, &race.SeedID,
		&race.SeedsReleasedAt, &race.StartedAt, &race.Version); err != nil {
		return nil, err
	}
	race.Status = models.RaceStatus(status)
	return &race, nil
}
