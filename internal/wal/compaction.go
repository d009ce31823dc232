// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package wal

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Compactor removes confirmed entries and runs value log GC.
type Compactor struct {
	wal *BadgerWAL
}

// NewCompactor creates a compactor for w.
func NewCompactor(w *BadgerWAL) *Compactor {
	return &Compactor{wal: w}
}

// Serve implements suture.Service.
func (c *Compactor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.wal.config.CompactInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := c.Compact(ctx); err != nil {
				c.wal.logger.Error().Err(err).Msg("WAL compaction failed")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (c *Compactor) String() string { return "wal-compactor" }

// Compact deletes every confirmed entry and returns how many were removed.
// Pending entries expire through their BadgerDB TTL.
func (c *Compactor) Compact(ctx context.Context) (int, error) {
	if err := c.wal.checkOpen(); err != nil {
		return 0, err
	}
	start := time.Now()

	var keys [][]byte
	err := c.wal.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(prefixConfirmed)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	wb := c.wal.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := wb.Delete(k); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}

	if !c.wal.config.InMemory {
		if err := c.wal.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
			c.wal.logger.Warn().Err(err).Msg("WAL value log GC failed")
		}
	}

	c.wal.mu.Lock()
	c.wal.lastCompaction = time.Now()
	c.wal.mu.Unlock()

	if len(keys) > 0 {
		c.wal.logger.Info().Int("removed", len(keys)).Dur("duration", time.Since(start)).Msg("WAL compaction removed entries")
	}
	return len(keys), nil
}
