// Seedrunner - live race server
// Copyright 2026 Seedrunner contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seedrunner/race-server

package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/seedrunner/race-server/internal/models"
)

const seedKeyPrefix = "seed:"

// SeedLoader is the backing store this cache reads through to on a miss.
type SeedLoader interface {
	LoadSeed(ctx context.Context, seedID string) (*models.Seed, error)
}

// SeedCache is a read-through cache over a seed's DAG. Seeds never
// change once created, so there is no invalidation path: a key, once
// populated, is valid until the process's badger directory is wiped.
type SeedCache struct {
	db     *badger.DB
	loader SeedLoader
}

// Options configures where the badger database lives.
type Options struct {
	// Dir is the on-disk path for the badger database. Empty uses an
	// in-memory database, suitable for single-process deployments that
	// don't need the cache to survive a restart.
	Dir string
}

// Open opens (or creates) the badger database backing the cache.
func Open(opts Options) (*badger.DB, error) {
	badgerOpts := badger.DefaultOptions(opts.Dir)
	badgerOpts.Logger = nil
	if opts.Dir == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("cache: open badger db: %w", err)
	}
	return db, nil
}

// NewSeedCache wraps an already-open badger database as a read-through
// cache in front of loader.
func NewSeedCache(db *badger.DB, loader SeedLoader) *SeedCache {
	return &SeedCache{db: db, loader: loader}
}

// LoadSeed returns the seed, from cache if present, otherwise from the
// loader with the result cached for next time.
func (c *SeedCache) LoadSeed(ctx context.Context, seedID string) (*models.Seed, error) {
	if seed, ok := c.get(seedID); ok {
		return seed, nil
	}

	seed, err := c.loader.LoadSeed(ctx, seedID)
	if err != nil {
		return nil, err
	}

	c.set(seedID, seed)
	return seed, nil
}

func (c *SeedCache) get(seedID string) (*models.Seed, bool) {
	var seed models.Seed
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(seedKeyPrefix + seedID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &seed)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return nil, false
		}
		return nil, false
	}
	return &seed, true
}

func (c *SeedCache) set(seedID string, seed *models.Seed) {
	data, err := json.Marshal(seed)
	if err != nil {
		return
	}
	_ = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(seedKeyPrefix+seedID), data)
	})
}
