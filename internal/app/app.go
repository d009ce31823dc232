// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

// Package app builds the object graph shared by the server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/respira/internal/api"
	"github.com/tomtom215/respira/internal/config"
	"github.com/tomtom215/respira/internal/ingest"
	"github.com/tomtom215/respira/internal/learning"
	"github.com/tomtom215/respira/internal/logging"
	"github.com/tomtom215/respira/internal/mood/classifier"
	"github.com/tomtom215/respira/internal/mood/storage"
	"github.com/tomtom215/respira/internal/sessionlog"
	"github.com/tomtom215/respira/internal/wal"
)

// Options selects optional components.
type Options struct {
	// EnableWAL opens the ingest WAL when cfg.WAL.Enabled is also set.
	// The CLI leaves it off so it never contends for the server's BadgerDB lock.
	EnableWAL bool
}

// Components is the wired set of domain services.
type Components struct {
	Config      *config.Config
	Store       *storage.Store
	Log         *sessionlog.Log
	WAL         *wal.BadgerWAL
	Pipeline    *ingest.Pipeline
	Batch       *learning.BatchTrainer
	Incremental *learning.IncrementalTrainer
	Predictor   *learning.Predictor
	Synthesizer *learning.Synthesizer
	Status      *learning.StatusReporter
}

// New builds all components from cfg.
func New(cfg *config.Config, opts Options) (*Components, error) {
	store, err := storage.NewStore(cfg.Model.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("artifact store: %w", err)
	}
	log, err := sessionlog.Open(cfg.Dataset.LogPath)
	if err != nil {
		return nil, fmt.Errorf("session log: %w", err)
	}

	c := &Components{Config: cfg, Store: store, Log: log}

	var journal ingest.Journal
	if opts.EnableWAL && cfg.WAL.Enabled {
		w, err := wal.Open(WALConfig(cfg.WAL))
		if err != nil {
			return nil, fmt.Errorf("wal: %w", err)
		}
		c.WAL = w
		journal = w
	}
	c.Pipeline = ingest.NewPipeline(log, journal)

	clf := ClassifierConfig(cfg.Training)
	c.Batch = learning.NewBatchTrainer(log, store, learning.NewBalancer(cfg.Dataset.Seed), learning.BatchConfig{
		Classifier: clf,
		TestRatio:  cfg.Training.TestRatio,
	})
	c.Incremental = learning.NewIncrementalTrainer(store, clf)
	c.Predictor = learning.NewPredictor(store, learning.PredictorConfig{
		MaxFailures: cfg.Predictor.BreakerMaxFailures,
		Timeout:     cfg.Predictor.BreakerTimeout,
		CacheSize:   cfg.Predictor.CacheSize,
		CacheTTL:    cfg.Predictor.CacheTTL,
	})
	c.Synthesizer = learning.NewSynthesizer(c.Predictor, learning.WithConcurrency(cfg.Schedule.Concurrency))
	c.Status = &learning.StatusReporter{Store: store, Incremental: c.Incremental, Predictor: c.Predictor}

	logging.Info().
		Str("artifact", store.Path()).
		Str("session_log", log.Path()).
		Bool("wal", c.WAL != nil).
		Msg("Components initialized")
	return c, nil
}

// Thresholds returns the coordinator tier thresholds.
func (c *Components) Thresholds() learning.Thresholds {
	return learning.Thresholds{
		MinSessions:          c.Config.Tiers.MinSessions,
		IncrementalThreshold: c.Config.Tiers.IncrementalThreshold,
	}
}

// Coordinator builds a coordinator that trains through runner.
func (c *Components) Coordinator(runner learning.TrainingRunner) *learning.Coordinator {
	return learning.NewCoordinator(runner, c.Synthesizer, c.Thresholds())
}

// DirectRunner trains on the caller's goroutine.
func (c *Components) DirectRunner() *learning.DirectRunner {
	return &learning.DirectRunner{Batch: c.Batch, Incremental: c.Incremental}
}

// ReadinessChecks returns the checks served by /health/ready.
func (c *Components) ReadinessChecks() map[string]api.ReadinessCheck {
	checks := map[string]api.ReadinessCheck{
		"session_log": func(ctx context.Context) error {
			_, _, err := c.Log.ReadAll(ctx)
			return err
		},
	}
	if c.WAL != nil {
		checks["wal"] = func(ctx context.Context) error {
			_, err := c.WAL.GetPending(ctx)
			return err
		}
	}
	return checks
}

// Close releases the WAL.
func (c *Components) Close() error {
	var errs []error
	if c.WAL != nil {
		errs = append(errs, c.WAL.Close())
	}
	return errors.Join(errs...)
}

// ClassifierConfig maps training settings onto the classifier.
func ClassifierConfig(t config.TrainingConfig) classifier.Config {
	return classifier.Config{
		HiddenLayers: t.HiddenLayers,
		MaxIter:      t.MaxIter,
		LearningRate: t.LearningRate,
		BatchSize:    t.BatchSize,
		Seed:         t.Seed,
	}
}

// WALConfig maps WAL settings onto the wal package.
func WALConfig(w config.WALConfig) wal.Config {
	cfg := wal.DefaultConfig(w.Path)
	cfg.SyncWrites = w.SyncWrites
	if w.RetryInterval > 0 {
		cfg.RetryInterval = w.RetryInterval
	}
	if w.MaxRetries > 0 {
		cfg.MaxRetries = w.MaxRetries
	}
	if w.RetryBackoff > 0 {
		cfg.RetryBackoff = w.RetryBackoff
	}
	if w.CompactInterval > 0 {
		cfg.CompactInterval = w.CompactInterval
	}
	if w.EntryTTL > 0 {
		cfg.EntryTTL = w.EntryTTL
	}
	return cfg
}
