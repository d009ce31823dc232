// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package learning

import (
	"context"
	"io/fs"

	"github.com/tomtom215/respira/internal/mood"
	"github.com/tomtom215/respira/internal/mood/classifier"
	"github.com/tomtom215/respira/internal/mood/storage"
)

// SessionSource reads the full session log. Rows that cannot be parsed are
// returned in skipped rather than failing the read.
type SessionSource interface {
	ReadAll(ctx context.Context) (sessions []mood.Session, skipped []error, err error)
}

// ArtifactStore persists the current model artifact.
type ArtifactStore interface {
	Save(ctx context.Context, model *classifier.MLP, meta storage.Metadata) (storage.Metadata, error)
	Load(ctx context.Context) (*storage.Artifact, error)
}

// ArtifactReader is the read side used by the predictor.
type ArtifactReader interface {
	Load(ctx context.Context) (*storage.Artifact, error)
	Stat() (fs.FileInfo, error)
}

// MoodPredictor predicts a mood label for a feature vector.
type MoodPredictor interface {
	Predict(ctx context.Context, fv mood.FeatureVector) (mood.Label, error)
}

// TrainingRunner executes training operations off the request path.
type TrainingRunner interface {
	RunBatch(ctx context.Context) (*TrainReport, error)
	RunIncremental(ctx context.Context, examples []mood.LabeledExample) (*FlushResult, error)
}
