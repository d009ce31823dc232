// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package wal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/respira/internal/logging"
	"github.com/tomtom215/respira/internal/metrics"
)

// Errors returned by the WAL.
var (
	ErrWALClosed     = errors.New("wal is closed")
	ErrEntryNotFound = errors.New("wal entry not found")
	ErrNilPayload    = errors.New("wal payload is nil")
	ErrEmptyEntryID  = errors.New("wal entry id is empty")
)

const (
	prefixPending   = "pending:"
	prefixConfirmed = "confirmed:"
)

// Entry is a single WAL record.
type Entry struct {
	ID            string          `json:"id"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
	Attempts      int             `json:"attempts"`
	LastAttemptAt time.Time       `json:"last_attempt_at,omitempty"`
	LastError     string          `json:"last_error,omitempty"`
	ConfirmedAt   *time.Time      `json:"confirmed_at,omitempty"`
}

// UnmarshalPayload decodes the payload into v.
func (e *Entry) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Stats are WAL counters for status reporting.
type Stats struct {
	Pending        int64     `json:"pending"`
	TotalWrites    int64     `json:"total_writes"`
	TotalConfirms  int64     `json:"total_confirms"`
	TotalRetries   int64     `json:"total_retries"`
	LastCompaction time.Time `json:"last_compaction"`
}

// BadgerWAL is a WAL stored in BadgerDB.
type BadgerWAL struct {
	db     *badger.DB
	config Config
	logger zerolog.Logger

	totalWrites   atomic.Int64
	totalConfirms atomic.Int64
	totalRetries  atomic.Int64

	mu             sync.RWMutex
	closed         bool
	lastCompaction time.Time

	// claims holds entry IDs currently owned by a writer or a replay.
	claims sync.Map
}

// Open opens or creates the WAL described by cfg.
func Open(cfg Config) (*BadgerWAL, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid WAL config: %w", err)
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithSyncWrites(cfg.SyncWrites).
		WithInMemory(cfg.InMemory).
		WithNumCompactors(2).
		WithLogger(nil)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	w := &BadgerWAL{
		db:             db,
		config:         cfg,
		logger:         logging.WithComponent("wal"),
		lastCompaction: time.Now(),
	}
	pending, err := w.countPending()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	metrics.WALPending.Set(float64(pending))

	w.logger.Info().
		Str("path", cfg.Path).
		Bool("sync_writes", cfg.SyncWrites).
		Int64("pending", pending).
		Msg("WAL opened")
	return w, nil
}

// Config returns the WAL configuration.
func (w *BadgerWAL) Config() Config {
	return w.config
}

func (w *BadgerWAL) checkOpen() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWALClosed
	}
	return nil
}

// Write persists payload as a new pending entry and returns its ID. The
// entry is claimed by the caller until Confirm or Release.
func (w *BadgerWAL) Write(ctx context.Context, payload any) (string, error) {
	if err := w.checkOpen(); err != nil {
		return "", err
	}
	if payload == nil {
		return "", ErrNilPayload
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	entry := Entry{
		ID:        uuid.NewString(),
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(&entry)
	if err != nil {
		return "", fmt.Errorf("marshal entry: %w", err)
	}

	w.claims.Store(entry.ID, time.Now())
	err = w.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(prefixPending+entry.ID), data).WithTTL(w.config.EntryTTL))
	})
	if err != nil {
		w.claims.Delete(entry.ID)
		return "", fmt.Errorf("write to BadgerDB: %w", err)
	}

	w.totalWrites.Add(1)
	metrics.WALWrites.Inc()
	metrics.WALPending.Inc()
	return entry.ID, nil
}

// TryClaim claims id for processing. It returns false if another goroutine
// already holds it.
func (w *BadgerWAL) TryClaim(id string) bool {
	_, loaded := w.claims.LoadOrStore(id, time.Now())
	return !loaded
}

// Release drops a claim without confirming the entry.
func (w *BadgerWAL) Release(id string) {
	w.claims.Delete(id)
}

// Confirm moves a pending entry to the confirmed prefix and releases its claim.
func (w *BadgerWAL) Confirm(ctx context.Context, id string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	if id == "" {
		return ErrEmptyEntryID
	}
	defer w.claims.Delete(id)

	err := w.db.Update(func(txn *badger.Txn) error {
		entry, err := getEntry(txn, prefixPending+id)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		entry.ConfirmedAt = &now
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal confirmed entry: %w", err)
		}
		if err := txn.Set([]byte(prefixConfirmed+id), data); err != nil {
			return fmt.Errorf("set confirmed entry: %w", err)
		}
		return txn.Delete([]byte(prefixPending + id))
	})
	if err != nil {
		return err
	}

	w.totalConfirms.Add(1)
	metrics.WALConfirms.Inc()
	metrics.WALPending.Dec()
	return nil
}

// RecordAttempt stores a failed replay attempt on a pending entry.
func (w *BadgerWAL) RecordAttempt(ctx context.Context, id string, cause error) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	w.totalRetries.Add(1)

	return w.db.Update(func(txn *badger.Txn) error {
		entry, err := getEntry(txn, prefixPending+id)
		if err != nil {
			return err
		}
		entry.Attempts++
		entry.LastAttemptAt = time.Now().UTC()
		if cause != nil {
			entry.LastError = cause.Error()
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		// Keep the original expiry window.
		ttl := w.config.EntryTTL - time.Since(entry.CreatedAt)
		if ttl <= 0 {
			ttl = time.Second
		}
		return txn.SetEntry(badger.NewEntry([]byte(prefixPending+id), data).WithTTL(ttl))
	})
}

// Delete removes a pending entry without confirming it.
func (w *BadgerWAL) Delete(ctx context.Context, id string) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	defer w.claims.Delete(id)

	err := w.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(prefixPending + id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrEntryNotFound
			}
			return err
		}
		return txn.Delete([]byte(prefixPending + id))
	})
	if err == nil {
		metrics.WALPending.Dec()
	}
	return err
}

// GetPending returns all unconfirmed entries ordered by key.
func (w *BadgerWAL) GetPending(ctx context.Context) ([]*Entry, error) {
	if err := w.checkOpen(); err != nil {
		return nil, err
	}

	var entries []*Entry
	err := w.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			var entry Entry
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &entry) }); err != nil {
				w.logger.Warn().Err(err).Str("key", string(item.Key())).Msg("skipping undecodable WAL entry")
				continue
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate pending entries: %w", err)
	}
	return entries, nil
}

// Stats returns WAL counters.
func (w *BadgerWAL) Stats() Stats {
	pending, err := w.countPending()
	if err != nil {
		pending = -1
	}
	w.mu.RLock()
	last := w.lastCompaction
	w.mu.RUnlock()
	return Stats{
		Pending:        pending,
		TotalWrites:    w.totalWrites.Load(),
		TotalConfirms:  w.totalConfirms.Load(),
		TotalRetries:   w.totalRetries.Load(),
		LastCompaction: last,
	}
}

// Close closes the underlying database. Further calls fail with ErrWALClosed.
func (w *BadgerWAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	w.logger.Info().Msg("WAL closed")
	return nil
}

func (w *BadgerWAL) countPending() (int64, error) {
	var n int64
	err := w.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(prefixPending)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func getEntry(txn *badger.Txn, key string) (*Entry, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	var entry Entry
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &entry) }); err != nil {
		return nil, fmt.Errorf("unmarshal entry: %w", err)
	}
	return &entry, nil
}
