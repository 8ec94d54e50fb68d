// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package store

import (
	"context"
	"database/sql"
	"errors"

	json "github.com/goccy/go-json"

	"github.com/seedrunner/race-server/internal/models"
)

// CreateTrainingSession inserts a new training session.
func (s *Store) CreateTrainingSession(ctx context.Context, t *models.TrainingSession) error {
	_, err := s.call(ctx, "create_training_session", func(ctx context.Context) (any, error) {
		progressJSON, err := json.Marshal(t.ProgressNodes)
		if err != nil {
			return nil, err
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO training_sessions (id, user_id, seed_id, mod_token, status, igt_ms, death_count,
				current_zone, progress_nodes_json, last_igt_change_at, finished_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.UserID, t.SeedID, t.ModToken, string(t.Status), t.IGTMs, t.DeathCount,
			t.CurrentZone, string(progressJSON), t.LastIGTChangeAt, t.FinishedAt,
		)
		return nil, err
	})
	return err
}

// LoadTrainingSession returns a training session by id, or ErrNotFound.
func (s *Store) LoadTrainingSession(ctx context.Context, sessionID string) (*models.TrainingSession, error) {
	result, err := s.call(ctx, "load_training_session", func(ctx context.Context) (any, error) {
		row := s.db.QueryRowContext(ctx,
			`SELECT id, user_id, seed_id, mod_token, status, igt_ms, death_count, current_zone,
				progress_nodes_json, last_igt_change_at, finished_at
			 FROM training_sessions WHERE id = ?`, sessionID)
		return scanTrainingSession(row)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return result.(*models.TrainingSession), nil
}

// UpdateTrainingSession persists a training session's mutable fields.
// Last-writer-wins: exactly one training runtime owns a given session.
func (s *Store) UpdateTrainingSession(ctx context.Context, t *models.TrainingSession) error {
	_, err := s.call(ctx, "update_training_session", func(ctx context.Context) (any, error) {
		progressJSON, err := json.Marshal(t.ProgressNodes)
		if err != nil {
			return nil, err
		}
		_, err = s.db.ExecContext(ctx,
			`UPDATE training_sessions SET status=?, igt_ms=?, death_count=?, current_zone=?,
				progress_nodes_json=?, last_igt_change_at=?, finished_at=? WHERE id=?`,
			string(t.Status), t.IGTMs, t.DeathCount, t.CurrentZone, string(progressJSON),
			t.LastIGTChangeAt, t.FinishedAt, t.ID,
		)
		return nil, err
	})
	return err
}

// LoadFinishedTrainingSessionsBySeed returns every FINISHED training session
// on seedID, ordered by finish time ascending, for the ghost-replay query.
func (s *Store) LoadFinishedTrainingSessionsBySeed(ctx context.Context, seedID string) ([]*models.TrainingSession, error) {
	result, err := s.call(ctx, "load_finished_training_sessions", func(ctx context.Context) (any, error) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, user_id, seed_id, mod_token, status, igt_ms, death_count, current_zone,
				progress_nodes_json, last_igt_change_at, finished_at
			 FROM training_sessions WHERE seed_id = ? AND status = ? ORDER BY finished_at ASC`,
			seedID, string(models.TrainingFinished),
		)
		if err != nil {
			return nil, err
		}
		defer closeWithLog(rows, "rows:training-sessions")

		var out []*models.TrainingSession
		for rows.Next() {
			t, err := scanTrainingSession(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
		return out, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.TrainingSession), nil
}

func scanTrainingSession(row rowScanner) (*models.TrainingSession, error) {
	var t models.TrainingSession
	var status, progressJSON string
	if err := row.Scan(&t.ID, &t.UserID, &t.SeedID, &t.ModToken, &status, &t.IGTMs, &t.DeathCount,
		&t.CurrentZone, &progressJSON, &t.LastIGTChangeAt, &t.FinishedAt); err != nil {
		return nil, err
	}
	t.Status = models.TrainingStatus(status)
	if progressJSON != "" {
		if err := json.Unmarshal([]byte(progressJSON), &t.ProgressNodes); err != nil {
			return nil, err
		}
	}
	return &t, nil
}
