// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	json "github.com/goccy/go-json"

	"github.com/seedrunner/race-server/internal/models"
)

// CreateParticipant inserts a participant REGISTERED, assigning the next
// registration sequence number from the shared sequence so leaderboard
// ordering of non-competitive statuses is stable.
func (s *Store) CreateParticipant(ctx context.Context, p *models.Participant) error {
	_, err := s.call(ctx, "create_participant", func(ctx context.Context) (any, error) {
		var seq int64
		if err := s.db.QueryRowContext(ctx, `SELECT nextval('participants_registered_seq')`).Scan(&seq); err != nil {
			return nil, err
		}
		p.RegisteredSeq = seq

		zoneHistoryJSON, err := json.Marshal(p.ZoneHistory)
		if err != nil {
			return nil, err
		}

		_, err = s.db.ExecContext(ctx,
			`INSERT INTO participants (id, race_id, user_id, mod_token, status, current_zone, current_layer,
				igt_ms, death_count, zone_history_json, last_igt_change_at, finished_at, color_index, registered_seq)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.RaceID, p.UserID, p.ModToken, string(p.Status), p.CurrentZone, p.CurrentLayer,
			p.IGTMs, p.DeathCount, string(zoneHistoryJSON), p.LastIGTChangeAt, p.FinishedAt, p.ColorIndex, p.RegisteredSeq,
		)
		return nil, err
	})
	return err
}

// LoadParticipants returns every participant in a race, ordered by
// registration sequence.
func (s *Store) LoadParticipants(ctx context.Context, raceID string) ([]*models.Participant, error) {
	result, err := s.call(ctx, "load_participants", func(ctx context.Context) (any, error) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, race_id, user_id, mod_token, status, current_zone, current_layer, igt_ms, death_count,
				zone_history_json, last_igt_change_at, finished_at, color_index, registered_seq
			 FROM participants WHERE race_id = ? ORDER BY registered_seq ASC`, raceID)
		if err != nil {
			return nil, err
		}
		defer closeWithLog(rows, "rows:participants")

		var out []*models.Participant
		for rows.Next() {
			p, err := scanParticipant(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.Participant), nil
}

// LoadParticipantByModToken finds the participant owning a mod_token within
// a race, used by the mod session handshake.
func (s *Store) LoadParticipantByModToken(ctx context.Context, raceID, modToken string) (*models.Participant, error) {
	result, err := s.call(ctx, "load_participant_by_token", func(ctx context.Context) (any, error) {
		row := s.db.QueryRowContext(ctx,
			`SELECT id, race_id, user_id, mod_token, status, current_zone, current_layer, igt_ms, death_count,
				zone_history_json, last_igt_change_at, finished_at, color_index, registered_seq
			 FROM participants WHERE race_id = ? AND mod_token = ?`, raceID, modToken)
		return scanParticipantRow(row)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return result.(*models.Participant), nil
}

// UpdateParticipant persists a participant's mutable fields. No version
// column: safe as last-writer-wins because exactly one race room goroutine
// writes a given race's participants.
func (s *Store) UpdateParticipant(ctx context.Context, p *models.Participant) error {
	_, err := s.call(ctx, "update_participant", func(ctx context.Context) (any, error) {
		zoneHistoryJSON, err := json.Marshal(p.ZoneHistory)
		if err != nil {
			return nil, err
		}
		_, err = s.db.ExecContext(ctx,
			`UPDATE participants SET status=?, current_zone=?, current_layer=?, igt_ms=?, death_count=?,
				zone_history_json=?, last_igt_change_at=?, finished_at=? WHERE id=?`,
			string(p.Status), p.CurrentZone, p.CurrentLayer, p.IGTMs, p.DeathCount,
			string(zoneHistoryJSON), p.LastIGTChangeAt, p.FinishedAt, p.ID,
		)
		return nil, err
	})
	return err
}

// LoadStaleRunningParticipants returns participants whose race is RUNNING,
// who are PLAYING, and whose last_igt_change_at is non-null and strictly
// older than cutoff — the inactivity sweeper's first-pass query.
func (s *Store) LoadStaleRunningParticipants(ctx context.Context, cutoff time.Time) ([]*models.Participant, error) {
	result, err := s.call(ctx, "load_stale_participants", func(ctx context.Context) (any, error) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT p.id, p.race_id, p.user_id, p.mod_token, p.status, p.current_zone, p.current_layer, p.igt_ms,
				p.death_count, p.zone_history_json, p.last_igt_change_at, p.finished_at, p.color_index, p.registered_seq
			 FROM participants p
			 JOIN races r ON r.id = p.race_id
			 WHERE r.status = ? AND p.status = ? AND p.last_igt_change_at IS NOT NULL AND p.last_igt_change_at < ?`,
			string(models.RaceRunning), string(models.ParticipantPlaying), cutoff,
		)
		if err != nil {
			return nil, err
		}
		defer closeWithLog(rows, "rows:stale-participants")

		var out []*models.Participant
		for rows.Next() {
			p, err := scanParticipant(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]*models.Participant), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(rows *sql.Rows) (*models.Participant, error) {
	return scanParticipantRow(rows)
}

func scanParticipantRow(row rowScanner) (*models.Participant, error) {
	var p models.Participant
	var status, zoneHistoryJSON string
	if err := row.Scan(&p.ID, &p.RaceID, &p.UserID, &p.ModToken, &status, &p.CurrentZone, &p.CurrentLayer,
		&p.IGTMs, &p.DeathCount, &zoneHistoryJSON, &p.LastIGTChangeAt, &p.FinishedAt, &p.ColorIndex, &p.RegisteredSeq); err != nil {
		return nil, err
	}
	p.Status = models.ParticipantStatus(status)
	if zoneHistoryJSON != "" {
		if err := json.Unmarshal([]byte(zoneHistoryJSON), &p.ZoneHistory); err != nil {
			return nil, err
		}
	}
	return &p, nil
}
