// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package config

import (
	"errors"
	"fmt"
	"strings"
)

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "warning": true,
	"error": true, "fatal": true, "panic": true, "disabled": true,
}

// Validate checks configuration values and returns every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.Timeout <= 0 {
		errs = append(errs, errors.New("server.timeout must be positive"))
	}
	if !c.Server.RateLimitDisabled && (c.Server.RateLimitRequests <= 0 || c.Server.RateLimitWindow <= 0) {
		errs = append(errs, errors.New("server.rate_limit_requests and server.rate_limit_window must be positive"))
	}
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			errs = append(errs, errors.New("server.cors_origins must not contain a wildcard"))
			break
		}
	}

	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level))
	}
	if f := strings.ToLower(c.Logging.Format); f != "json" && f != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	if c.Model.ArtifactPath == "" {
		errs = append(errs, errors.New("model.artifact_path is required"))
	}
	if c.Dataset.LogPath == "" {
		errs = append(errs, errors.New("dataset.log_path is required"))
	}

	errs = append(errs, c.Training.validate()...)

	if c.Tiers.MinSessions < 0 {
		errs = append(errs, errors.New("tiers.min_sessions must not be negative"))
	}
	if c.Tiers.IncrementalThreshold < c.Tiers.MinSessions {
		errs = append(errs, fmt.Errorf("tiers.incremental_threshold (%d) must be >= tiers.min_sessions (%d)",
			c.Tiers.IncrementalThreshold, c.Tiers.MinSessions))
	}

	if c.Schedule.Concurrency < 1 {
		errs = append(errs, errors.New("schedule.concurrency must be at least 1"))
	}
	if c.Predictor.BreakerMaxFailures == 0 {
		errs = append(errs, errors.New("predictor.breaker_max_failures must be at least 1"))
	}
	if c.Predictor.BreakerTimeout <= 0 {
		errs = append(errs, errors.New("predictor.breaker_timeout must be positive"))
	}
	if c.Predictor.CacheSize < 0 {
		errs = append(errs, errors.New("predictor.cache_size must not be negative"))
	}

	if c.WAL.Enabled {
		if c.WAL.Path == "" {
			errs = append(errs, errors.New("wal.path is required when the WAL is enabled"))
		}
		if c.WAL.RetryInterval <= 0 || c.WAL.CompactInterval <= 0 {
			errs = append(errs, errors.New("wal.retry_interval and wal.compact_interval must be positive"))
		}
		if c.WAL.MaxRetries < 1 {
			errs = append(errs, errors.New("wal.max_retries must be at least 1"))
		}
	}

	return errors.Join(errs...)
}

func (t *TrainingConfig) validate() []error {
	var errs []error
	if len(t.HiddenLayers) == 0 {
		errs = append(errs, errors.New("training.hidden_layers must list at least one layer"))
	}
	for _, n := range t.HiddenLayers {
		if n < 1 {
			errs = append(errs, fmt.Errorf("training.hidden_layers entries must be positive, got %d", n))
			break
		}
	}
	if t.MaxIter < 1 {
		errs = append(errs, errors.New("training.max_iter must be at least 1"))
	}
	if t.LearningRate <= 0 {
		errs = append(errs, errors.New("training.learning_rate must be positive"))
	}
	if t.BatchSize < 1 {
		errs = append(errs, errors.New("training.batch_size must be at least 1"))
	}
	if t.TestRatio < 0 || t.TestRatio >= 1 {
		errs = append(errs, fmt.Errorf("training.test_ratio must be in [0,1), got %v", t.TestRatio))
	}
	if t.Timeout <= 0 {
		errs = append(errs, errors.New("training.timeout must be positive"))
	}
	if t.RequestWait < 0 {
		errs = append(errs, errors.New("training.request_wait must not be negative"))
	}
	if t.QueueSize < 1 {
		errs = append(errs, errors.New("training.queue_size must be at least 1"))
	}
	if t.RetrainInterval < 0 {
		errs = append(errs, errors.New("training.retrain_interval must not be negative"))
	}
	return errs
}
