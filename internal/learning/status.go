// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package learning

import (
	"context"
	"errors"

	"github.com/tomtom215/respira/internal/mood"
	"github.com/tomtom215/respira/internal/mood/storage"
)

// ModelStatus describes the current artifact and the incremental buffer.
type ModelStatus struct {
	Available bool              `json:"available"`
	Metadata  *storage.Metadata `json:"metadata,omitempty"`
	Buffer    BufferStats       `json:"buffer"`
	Breaker   string            `json:"breaker,omitempty"`
}

// MetadataReader reads artifact metadata without decoding the model.
type MetadataReader interface {
	Metadata(ctx context.Context) (storage.Metadata, error)
}

// StatusReporter assembles ModelStatus.
type StatusReporter struct {
	Store       MetadataReader
	Incremental *IncrementalTrainer
	Predictor   *Predictor
}

// Status returns the model status. A missing artifact is reported as
// unavailable, not as an error.
func (r *StatusReporter) Status(ctx context.Context) (*ModelStatus, error) {
	status := &ModelStatus{}
	if r.Incremental != nil {
		status.Buffer = r.Incremental.Stats()
	}
	if r.Predictor != nil {
		status.Breaker = r.Predictor.BreakerState()
	}
	meta, err := r.Store.Metadata(ctx)
	switch {
	case err == nil:
		status.Available = true
		status.Metadata = &meta
	case errors.Is(err, mood.ErrModelNotFound):
	default:
		return nil, err
	}
	return status, nil
}
