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

// CreateSeed persists a seed's DAG, serializing its nodes and edges as JSON
// columns. Seeds are immutable once created, so there is no UpdateSeed.
func (s *Store) CreateSeed(ctx context.Context, seed *models.Seed) error {
	_, err := s.call(ctx, "create_seed", func(ctx context.Context) (any, error) {
		nodesJSON, err := json.Marshal(seed.Nodes)
		if err != nil {
			return nil, err
		}
		edgesJSON, err := json.Marshal(seed.Edges)
		if err != nil {
			return nil, err
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO seeds (id, pool_name, total_layers, nodes_json, edges_json) VALUES (?, ?, ?, ?, ?)`,
			seed.ID, seed.PoolName, seed.TotalLayers, string(nodesJSON), string(edgesJSON),
		)
		return nil, err
	})
	return err
}

// LoadSeed returns a seed's full DAG by id, or ErrNotFound. Callers that
// need repeated access to an immutable seed's graph should go through the
// read-through cache (C18) instead of calling this directly on every
// lookup.
func (s *Store) LoadSeed(ctx context.Context, seedID string) (*models.Seed, error) {
	result, err := s.call(ctx, "load_seed", func(ctx context.Context) (any, error) {
		row := s.db.QueryRowContext(ctx,
			`SELECT id, pool_name, total_layers, nodes_json, edges_json FROM seeds WHERE id = ?`, seedID)

		var seed models.Seed
		var nodesJSON, edgesJSON string
		if err := row.Scan(&seed.ID, &seed.PoolName, &seed.TotalLayers, &nodesJSON, &edgesJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(nodesJSON), &seed.Nodes); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(edgesJSON), &seed.Edges); err != nil {
			return nil, err
		}
		return &seed, nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return result.(*models.Seed), nil
}

// PickUnusedSeed returns the id of a seed in poolName that is not already
// assigned to any race, for RerollSeed. Returns ErrSeedUnavailable
// if the pool is exhausted.
func (s *Store) PickUnusedSeed(ctx context.Context, poolName string, excludeSeedID string) (string, error) {
	result, err := s.call(ctx, "pick_unused_seed", func(ctx context.Context) (any, error) {
		row := s.db.QueryRowContext(ctx,
			`SELECT s.id FROM seeds s
			 WHERE s.pool_name = ? AND s.id != ?
			   AND s.id NOT IN (SELECT seed_id FROM races WHERE seed_id IS NOT NULL)
			 LIMIT 1`, poolName, excludeSeedID)
		var id string
		if err := row.Scan(&id); err != nil {
			return nil, err
		}
		return id, nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrSeedUnavailable
		}
		return "", err
	}
	return result.(string), nil
}
