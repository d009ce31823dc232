// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package learning

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/respira/internal/logging"
	"github.com/tomtom215/respira/internal/metrics"
	"github.com/tomtom215/respira/internal/mood"
	"github.com/tomtom215/respira/internal/mood/classifier"
	"github.com/tomtom215/respira/internal/mood/storage"
)

// TrainReport summarises a batch training run.
type TrainReport struct {
	Rows            int              `json:"rows"`
	Skipped         int              `json:"skipped"`
	BalancedRows    int              `json:"balanced_rows"`
	TrainRows       int              `json:"train_rows"`
	HoldoutRows     int              `json:"holdout_rows"`
	HoldoutAccuracy float64          `json:"holdout_accuracy"`
	Epochs          int              `json:"epochs"`
	Loss            float64          `json:"loss"`
	Converged       bool             `json:"converged"`
	Duration        time.Duration    `json:"duration"`
	Metadata        storage.Metadata `json:"metadata"`
}

// BatchConfig configures the batch trainer.
type BatchConfig struct {
	Classifier classifier.Config
	TestRatio  float64
}

// BatchTrainer performs full retrains from the session log.
type BatchTrainer struct {
	source   SessionSource
	store    ArtifactStore
	balancer *Balancer
	cfg      BatchConfig
	logger   zerolog.Logger
}

// NewBatchTrainer creates a batch trainer.
func NewBatchTrainer(source SessionSource, store ArtifactStore, balancer *Balancer, cfg BatchConfig) *BatchTrainer {
	return &BatchTrainer{
		source:   source,
		store:    store,
		balancer: balancer,
		cfg:      cfg,
		logger:   logging.WithComponent("batch_trainer"),
	}
}

// Train reads the whole log, balances it, fits a fresh classifier on the
// training partition and replaces the current artifact. Any incremental
// state in the previous artifact is discarded.
func (t *BatchTrainer) Train(ctx context.Context) (report *TrainReport, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordTraining(storage.ModeBatch, time.Since(start), err)
	}()

	sessions, rowErrs, err := t.source.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read session log: %w", err)
	}
	logSkipped(t.logger, "read_log", rowErrs)

	balanced, br, err := t.balancer.Balance(sessions)
	if err != nil {
		return nil, err
	}

	X := make([][]float64, len(balanced))
	y := make([]int, len(balanced))
	for i, ex := range balanced {
		X[i] = ex.Features.Values()
		y[i] = int(ex.Label)
	}

	rng := rand.New(rand.NewSource(t.cfg.Classifier.Seed)) //nolint:gosec // reproducible split
	trainIdx, testIdx := classifier.TrainTestSplit(len(X), t.cfg.TestRatio, rng)
	trainX, trainY := subset(X, y, trainIdx)
	testX, testY := subset(X, y, testIdx)

	model, err := classifier.New(t.cfg.Classifier, mood.NumFeatures, labelInts())
	if err != nil {
		return nil, fmt.Errorf("create classifier: %w", err)
	}
	fit, err := model.Fit(ctx, trainX, trainY, classifier.BalancedWeights(trainY))
	if err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}
	accuracy := model.Accuracy(testX, testY)

	meta, err := t.store.Save(ctx, model, storage.Metadata{
		Mode:        storage.ModeBatch,
		TrainedAt:   time.Now().UTC(),
		SampleCount: len(trainX),
		Accuracy:    accuracy,
	})
	if err != nil {
		return nil, err
	}

	report = &TrainReport{
		Rows:            br.InputRows,
		Skipped:         br.Skipped + len(rowErrs),
		BalancedRows:    br.OutputRows,
		TrainRows:       len(trainX),
		HoldoutRows:     len(testX),
		HoldoutAccuracy: accuracy,
		Epochs:          fit.Epochs,
		Loss:            fit.Loss,
		Converged:       fit.Converged,
		Duration:        time.Since(start),
		Metadata:        meta,
	}

	metrics.HoldoutAccuracy.Set(accuracy)
	metrics.ModelVersion.Set(float64(meta.Version))
	t.logger.Info().
		Int("rows", report.Rows).
		Int("balanced_rows", report.BalancedRows).
		Int("epochs", report.Epochs).
		Float64("holdout_accuracy", accuracy).
		Int("version", meta.Version).
		Dur("duration", report.Duration).
		Msg("batch training completed")
	return report, nil
}

func subset(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	sx := make([][]float64, len(idx))
	sy := make([]int, len(idx))
	for i, j := range idx {
		sx[i] = X[j]
		sy[i] = y[j]
	}
	return sx, sy
}

// labelInts returns every mood label as an int. Models always cover all five
// labels so a batch model can later receive online updates for any label.
func labelInts() []int {
	all := mood.AllLabels()
	out := make([]int, len(all))
	for i, l := range all {
		out[i] = int(l)
	}
	return out
}
