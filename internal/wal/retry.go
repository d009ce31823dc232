// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package wal

import (
	"context"
	"math"
	"time"

	"github.com/tomtom215/respira/internal/metrics"
)

// Publisher delivers a WAL entry to its destination.
type Publisher interface {
	PublishEntry(ctx context.Context, entry *Entry) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, entry *Entry) error

// PublishEntry implements Publisher.
func (f PublisherFunc) PublishEntry(ctx context.Context, entry *Entry) error {
	return f(ctx, entry)
}

// ReplayResult summarises one replay pass.
type ReplayResult struct {
	Pending    int
	Replayed   int
	Failed     int
	Expired    int
	MaxRetried int
	Skipped    int
}

const maxBackoff = 5 * time.Minute

// RetryLoop periodically replays pending entries. It runs as a supervised
// service; a replay pass also runs once at startup to recover entries left
// by a previous process.
type RetryLoop struct {
	wal       *BadgerWAL
	publisher Publisher
	now       func() time.Time
}

// NewRetryLoop creates a retry loop.
func NewRetryLoop(w *BadgerWAL, publisher Publisher) *RetryLoop {
	return &RetryLoop{wal: w, publisher: publisher, now: time.Now}
}

// Serve implements suture.Service.
func (r *RetryLoop) Serve(ctx context.Context) error {
	r.logResult(r.RunOnce(ctx), "WAL recovery complete")

	ticker := time.NewTicker(r.wal.config.RetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.logResult(r.RunOnce(ctx), "WAL retry complete")
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (r *RetryLoop) String() string { return "wal-retry" }

// RunOnce performs a single replay pass over pending entries.
func (r *RetryLoop) RunOnce(ctx context.Context) ReplayResult {
	var res ReplayResult
	entries, err := r.wal.GetPending(ctx)
	if err != nil {
		r.wal.logger.Error().Err(err).Msg("WAL retry: failed to list pending entries")
		return res
	}
	res.Pending = len(entries)

	for _, entry := range entries {
		if ctx.Err() != nil {
			return res
		}
		if !r.wal.TryClaim(entry.ID) {
			res.Skipped++
			continue
		}
		r.process(ctx, entry, &res)
	}
	return res
}

func (r *RetryLoop) process(ctx context.Context, entry *Entry, res *ReplayResult) {
	cfg := r.wal.config
	log := r.wal.logger.With().Str("entry_id", entry.ID).Int("attempts", entry.Attempts).Logger()

	switch {
	case r.now().Sub(entry.CreatedAt) > cfg.EntryTTL:
		log.Warn().Msg("WAL retry: entry expired, removing")
		r.drop(ctx, entry.ID)
		res.Expired++
		return
	case entry.Attempts >= cfg.MaxRetries:
		log.Error().Str("last_error", entry.LastError).Msg("WAL retry: entry exceeded max retries, removing")
		r.drop(ctx, entry.ID)
		res.MaxRetried++
		return
	case !entry.LastAttemptAt.IsZero() && r.now().Sub(entry.LastAttemptAt) < backoff(cfg.RetryBackoff, entry.Attempts):
		r.wal.Release(entry.ID)
		res.Skipped++
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := r.publisher.PublishEntry(pubCtx, entry)
	cancel()
	if err != nil {
		log.Warn().Err(err).Msg("WAL retry: replay failed")
		if uerr := r.wal.RecordAttempt(ctx, entry.ID, err); uerr != nil {
			log.Error().Err(uerr).Msg("WAL retry: failed to record attempt")
		}
		r.wal.Release(entry.ID)
		metrics.WALRetries.WithLabelValues(metrics.ResultError).Inc()
		res.Failed++
		return
	}
	if err := r.wal.Confirm(ctx, entry.ID); err != nil {
		log.Error().Err(err).Msg("WAL retry: failed to confirm entry")
		res.Failed++
		return
	}
	metrics.WALRetries.WithLabelValues(metrics.ResultSuccess).Inc()
	res.Replayed++
}

func (r *RetryLoop) drop(ctx context.Context, id string) {
	if err := r.wal.Delete(ctx, id); err != nil {
		r.wal.logger.Error().Err(err).Str("entry_id", id).Msg("WAL retry: failed to delete entry")
	}
	metrics.WALRetries.WithLabelValues(metrics.ResultSkipped).Inc()
}

func (r *RetryLoop) logResult(res ReplayResult, msg string) {
	if res.Pending == 0 {
		return
	}
	r.wal.logger.Info().
		Int("pending", res.Pending).
		Int("replayed", res.Replayed).
		Int("failed", res.Failed).
		Int("expired", res.Expired).
		Int("max_retried", res.MaxRetried).
		Int("skipped", res.Skipped).
		Msg(msg)
}

// backoff returns base * 2^attempts, capped at five minutes.
func backoff(base time.Duration, attempts int) time.Duration {
	if attempts > 50 {
		return maxBackoff
	}
	d := time.Duration(float64(base) * math.Pow(2, float64(attempts)))
	if d < 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}
