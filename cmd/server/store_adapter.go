// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package main

import (
	"context"

	"github.com/seedrunner/race-server/internal/cache"
	"github.com/seedrunner/race-server/internal/models"
	"github.com/seedrunner/race-server/internal/store"
)

// cachedStore satisfies raceroom.Store and training.Store, routing LoadSeed
// through the read-through seed cache (per store/seed.go's doc comment)
// while every other call goes straight to the underlying store.
type cachedStore struct {
	*store.Store
	seeds *cache.SeedCache
}

// newCachedStore wraps s so that LoadSeed reads through seeds instead of
// hitting the database on every lookup. seeds must be constructed with s as
// its loader.
func newCachedStore(s *store.Store, seeds *cache.SeedCache) *cachedStore {
	return &cachedStore{Store: s, seeds: seeds}
}

func (c *cachedStore) LoadSeed(ctx context.Context, seedID string) (*models.Seed, error) {
	return c.seeds.LoadSeed(ctx, seedID)
}
