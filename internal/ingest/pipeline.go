// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

// Package ingest appends client-submitted sessions to the session log,
// optionally through the write-ahead log.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/respira/internal/logging"
	"github.com/tomtom215/respira/internal/mood"
	"github.com/tomtom215/respira/internal/wal"
)

// SessionAppender appends sessions to durable storage.
type SessionAppender interface {
	Append(ctx context.Context, sessions ...mood.Session) error
}

// Journal is the write-ahead log used in front of the appender.
type Journal interface {
	Write(ctx context.Context, payload any) (string, error)
	Confirm(ctx context.Context, id string) error
	Release(id string)
}

// Batch is the WAL payload for one ingest call.
type Batch struct {
	Sessions []mood.Session `json:"sessions"`
}

// Result reports what happened to an ingest call.
type Result struct {
	// Appended is the number of sessions written to the log.
	Appended int `json:"appended"`

	// Queued is set when the log append failed but the sessions are held in
	// the WAL for replay.
	Queued int `json:"queued,omitempty"`
}

// Pipeline validates sessions and appends them to the log.
type Pipeline struct {
	journal Journal
	log     SessionAppender
	logger  zerolog.Logger
}

// NewPipeline creates a pipeline. journal may be nil, in which case sessions
// are appended directly.
func NewPipeline(log SessionAppender, journal Journal) *Pipeline {
	return &Pipeline{
		journal: journal,
		log:     log,
		logger:  logging.WithComponent("ingest"),
	}
}

// Ingest validates every session and appends the batch. Any invalid session
// rejects the whole batch with a *mood.FormatError.
func (p *Pipeline) Ingest(ctx context.Context, sessions []mood.Session) (*Result, error) {
	if len(sessions) == 0 {
		return &Result{}, nil
	}
	for i, s := range sessions {
		if _, err := s.Example(); err != nil {
			var fe *mood.FormatError
			if errors.As(err, &fe) {
				fe.Field = fmt.Sprintf("sessions[%d].%s", i, fe.Field)
				return nil, fe
			}
			return nil, fmt.Errorf("session %d: %w", i, err)
		}
	}

	if p.journal == nil {
		if err := p.log.Append(ctx, sessions...); err != nil {
			return nil, &mood.PersistenceError{Op: "append", Err: err}
		}
		return &Result{Appended: len(sessions)}, nil
	}

	id, err := p.journal.Write(ctx, Batch{Sessions: sessions})
	if err != nil {
		return nil, &mood.PersistenceError{Op: "wal write", Err: err}
	}
	if err := p.log.Append(ctx, sessions...); err != nil {
		p.journal.Release(id)
		p.logger.Warn().Err(err).Str("entry_id", id).Int("sessions", len(sessions)).
			Msg("session log append failed, batch held in WAL for replay")
		return &Result{Queued: len(sessions)}, nil
	}
	if err := p.journal.Confirm(ctx, id); err != nil {
		// The sessions are in the log; an unconfirmed entry would be replayed
		// as a duplicate, so surface it loudly.
		p.logger.Error().Err(err).Str("entry_id", id).Msg("failed to confirm WAL entry")
	}
	return &Result{Appended: len(sessions)}, nil
}

// PublishEntry replays a WAL batch into the session log.
func (p *Pipeline) PublishEntry(ctx context.Context, entry *wal.Entry) error {
	var batch Batch
	if err := entry.UnmarshalPayload(&batch); err != nil {
		return fmt.Errorf("decode WAL batch %s: %w", entry.ID, err)
	}
	if err := p.log.Append(ctx, batch.Sessions...); err != nil {
		return err
	}
	p.logger.Info().Str("entry_id", entry.ID).Int("sessions", len(batch.Sessions)).Msg("replayed WAL batch")
	return nil
}
