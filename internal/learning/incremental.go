// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package learning

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/respira/internal/logging"
	"github.com/tomtom215/respira/internal/metrics"
	"github.com/tomtom215/respira/internal/mood"
	"github.com/tomtom215/respira/internal/mood/classifier"
	"github.com/tomtom215/respira/internal/mood/storage"
)

// minFlushLabels is the label diversity required before the buffer is flushed.
const minFlushLabels = 2

// BufferState is the incremental buffer's state.
type BufferState string

// Buffer states. Ready is transient: the next accumulate or flush call
// consumes it.
const (
	BufferEmpty        BufferState = "empty"
	BufferAccumulating BufferState = "accumulating"
	BufferReady        BufferState = "ready"
)

// FlushResult describes an incremental update attempt. Flushed is false when
// the buffer lacked label diversity; that is not an error.
type FlushResult struct {
	Flushed        bool             `json:"flushed"`
	Buffered       int              `json:"buffered"`
	DistinctLabels int              `json:"distinct_labels"`
	Bootstrapped   bool             `json:"bootstrapped"`
	Metadata       storage.Metadata `json:"metadata"`
}

// BufferStats is a snapshot of the buffer.
type BufferStats struct {
	State          BufferState `json:"state"`
	Size           int         `json:"size"`
	DistinctLabels int         `json:"distinct_labels"`
}

// IncrementalTrainer accumulates labeled examples and folds them into the
// current model with one online update per flush.
type IncrementalTrainer struct {
	store  ArtifactStore
	cfg    classifier.Config
	logger zerolog.Logger

	// mu guards buffer and makes every accumulate/flush sequence atomic.
	mu     sync.Mutex
	buffer []mood.LabeledExample
}

// NewIncrementalTrainer creates a trainer with an empty buffer. cfg is used
// only when a new model has to be bootstrapped.
func NewIncrementalTrainer(store ArtifactStore, cfg classifier.Config) *IncrementalTrainer {
	return &IncrementalTrainer{
		store:  store,
		cfg:    cfg,
		logger: logging.WithComponent("incremental_trainer"),
	}
}

// Accumulate appends examples to the buffer and returns the buffer size.
func (t *IncrementalTrainer) Accumulate(examples ...mood.LabeledExample) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buffer = append(t.buffer, examples...)
	metrics.BufferSize.Set(float64(len(t.buffer)))
	return len(t.buffer)
}

// TryFlush flushes the buffer if it holds at least two distinct labels.
func (t *IncrementalTrainer) TryFlush(ctx context.Context) (*FlushResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushLocked(ctx)
}

// Update accumulates examples and attempts a flush in one critical section.
func (t *IncrementalTrainer) Update(ctx context.Context, examples []mood.LabeledExample) (*FlushResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buffer = append(t.buffer, examples...)
	metrics.BufferSize.Set(float64(len(t.buffer)))
	return t.flushLocked(ctx)
}

// Stats returns a snapshot of the buffer.
func (t *IncrementalTrainer) Stats() BufferStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	distinct := mood.DistinctLabels(t.buffer)
	return BufferStats{State: bufferState(len(t.buffer), distinct), Size: len(t.buffer), DistinctLabels: distinct}
}

func bufferState(size, distinct int) BufferState {
	switch {
	case size == 0:
		return BufferEmpty
	case distinct >= minFlushLabels:
		return BufferReady
	default:
		return BufferAccumulating
	}
}

// flushLocked must be called with mu held. On any error the buffer is left
// untouched so the next call retries with the same examples.
func (t *IncrementalTrainer) flushLocked(ctx context.Context) (result *FlushResult, err error) {
	distinct := mood.DistinctLabels(t.buffer)
	result = &FlushResult{Buffered: len(t.buffer), DistinctLabels: distinct}
	if distinct < minFlushLabels {
		return result, nil
	}

	start := time.Now()
	defer func() {
		metrics.RecordTraining(storage.ModeIncremental, time.Since(start), err)
	}()

	model, previous, bootstrapped, err := t.loadOrBootstrap(ctx)
	if err != nil {
		return nil, err
	}

	X := make([][]float64, len(t.buffer))
	y := make([]int, len(t.buffer))
	for i, ex := range t.buffer {
		X[i] = ex.Features.Values()
		y[i] = int(ex.Label)
	}
	fit, err := model.PartialFit(ctx, X, y, nil)
	if err != nil {
		return nil, fmt.Errorf("online update: %w", err)
	}

	meta, err := t.store.Save(ctx, model, storage.Metadata{
		Mode:        storage.ModeIncremental,
		TrainedAt:   time.Now().UTC(),
		SampleCount: previous + len(t.buffer),
	})
	if err != nil {
		return nil, err
	}

	flushed := len(t.buffer)
	t.buffer = nil
	metrics.BufferSize.Set(0)
	metrics.ModelVersion.Set(float64(meta.Version))

	result.Flushed = true
	result.Bootstrapped = bootstrapped
	result.Metadata = meta
	t.logger.Info().
		Int("examples", flushed).
		Int("distinct_labels", distinct).
		Bool("bootstrapped", bootstrapped).
		Float64("loss", fit.Loss).
		Int("version", meta.Version).
		Msg("incremental update persisted")
	return result, nil
}

// loadOrBootstrap returns the current model, or a new online-capable model
// covering every label when none exists or the stored one has an
// incompatible schema.
func (t *IncrementalTrainer) loadOrBootstrap(ctx context.Context) (*classifier.MLP, int, bool, error) {
	art, err := t.store.Load(ctx)
	switch {
	case err == nil:
		return art.Model, art.Metadata.SampleCount, false, nil
	case errors.Is(err, mood.ErrModelNotFound):
	case errors.Is(err, mood.ErrSchemaMismatch):
		t.logger.Warn().Err(err).Msg("replacing model artifact with incompatible feature schema")
	default:
		return nil, 0, false, err
	}

	model, err := classifier.New(t.cfg, mood.NumFeatures, labelInts())
	if err != nil {
		return nil, 0, false, fmt.Errorf("bootstrap classifier: %w", err)
	}
	return model, 0, true, nil
}
