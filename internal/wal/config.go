// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package wal

import (
	"errors"
	"fmt"
	"time"
)

// Config configures the BadgerDB-backed WAL.
type Config struct {
	// Path is the BadgerDB directory.
	Path string

	// SyncWrites forces fsync on every write.
	SyncWrites bool

	// RetryInterval is the time between retry loop passes.
	RetryInterval time.Duration

	// MaxRetries is the number of failed replays after which an entry is dropped.
	MaxRetries int

	// RetryBackoff is the base of the exponential per-entry backoff.
	RetryBackoff time.Duration

	// CompactInterval is the time between compaction runs.
	CompactInterval time.Duration

	// EntryTTL bounds how long an unconfirmed entry is kept.
	EntryTTL time.Duration

	// InMemory runs BadgerDB without touching disk. Tests only.
	InMemory bool
}

// DefaultConfig returns production defaults rooted at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		SyncWrites:      true,
		RetryInterval:   30 * time.Second,
		MaxRetries:      20,
		RetryBackoff:    5 * time.Second,
		CompactInterval: time.Hour,
		EntryTTL:        7 * 24 * time.Hour,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Path == "" && !c.InMemory {
		errs = append(errs, errors.New("path is required"))
	}
	if c.RetryInterval <= 0 {
		errs = append(errs, fmt.Errorf("retry_interval must be positive, got %s", c.RetryInterval))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries))
	}
	if c.RetryBackoff < 0 {
		errs = append(errs, fmt.Errorf("retry_backoff must not be negative, got %s", c.RetryBackoff))
	}
	if c.CompactInterval <= 0 {
		errs = append(errs, fmt.Errorf("compact_interval must be positive, got %s", c.CompactInterval))
	}
	if c.EntryTTL <= 0 {
		errs = append(errs, fmt.Errorf("entry_ttl must be positive, got %s", c.EntryTTL))
	}
	return errors.Join(errs...)
}
