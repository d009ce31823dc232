// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package learning

import (
	"context"
	"sync"

	"github.com/tomtom215/respira/internal/mood"
)

// DirectRunner runs training inline on the caller's goroutine, one operation
// at a time. It suits the CLI and tests; servers use the background worker.
type DirectRunner struct {
	Batch       *BatchTrainer
	Incremental *IncrementalTrainer

	mu sync.Mutex
}

// RunBatch runs a full retrain.
func (r *DirectRunner) RunBatch(ctx context.Context) (*TrainReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Batch.Train(ctx)
}

// RunIncremental accumulates examples and attempts a flush.
func (r *DirectRunner) RunIncremental(ctx context.Context, examples []mood.LabeledExample) (*FlushResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Incremental.Update(ctx, examples)
}
