// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

// Package config loads Respira configuration from compiled defaults, an
// optional YAML file and environment variables, in that order of precedence.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Model     ModelConfig     `koanf:"model"`
	Dataset   DatasetConfig   `koanf:"dataset"`
	Training  TrainingConfig  `koanf:"training"`
	Tiers     TierConfig      `koanf:"tiers"`
	Schedule  ScheduleConfig  `koanf:"schedule"`
	Predictor PredictorConfig `koanf:"predictor"`
	WAL       WALConfig       `koanf:"wal"`
}

// ServerConfig configures the HTTP listener and its middleware.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// CORSOrigins is empty by default, which rejects all cross-origin requests.
	CORSOrigins []string `koanf:"cors_origins"`

	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ModelConfig locates the model artifact.
type ModelConfig struct {
	// ArtifactPath is the single well-known file holding the current model.
	ArtifactPath string `koanf:"artifact_path"`
}

// DatasetConfig locates the append-only session log.
type DatasetConfig struct {
	LogPath string `koanf:"log_path"`

	// Seed drives oversampling and the balanced-table shuffle.
	Seed int64 `koanf:"seed"`
}

// TrainingConfig configures the classifier and the background training worker.
type TrainingConfig struct {
	HiddenLayers []int   `koanf:"hidden_layers"`
	MaxIter      int     `koanf:"max_iter"`
	LearningRate float64 `koanf:"learning_rate"`
	BatchSize    int     `koanf:"batch_size"`
	TestRatio    float64 `koanf:"test_ratio"`
	Seed         int64   `koanf:"seed"`

	// Timeout bounds a single training job.
	Timeout time.Duration `koanf:"timeout"`

	// RequestWait is how long a request waits for its training job before
	// continuing with the current model.
	RequestWait time.Duration `koanf:"request_wait"`

	QueueSize int `koanf:"queue_size"`

	// RetrainInterval schedules periodic batch retrains. Zero disables it.
	RetrainInterval time.Duration `koanf:"retrain_interval"`
}

// TierConfig holds the session-count thresholds that select the trainer.
type TierConfig struct {
	MinSessions          int `koanf:"min_sessions"`
	IncrementalThreshold int `koanf:"incremental_threshold"`
}

// ScheduleConfig configures the schedule synthesizer.
type ScheduleConfig struct {
	Concurrency int `koanf:"concurrency"`
}

// PredictorConfig configures the circuit breaker around artifact loading.
type PredictorConfig struct {
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`

	// CacheSize and CacheTTL bound the memo of recent predictions.
	CacheSize int           `koanf:"cache_size"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`
}

// WALConfig configures the durable session ingest log.
type WALConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Path            string        `koanf:"path"`
	SyncWrites      bool          `koanf:"sync_writes"`
	RetryInterval   time.Duration `koanf:"retry_interval"`
	MaxRetries      int           `koanf:"max_retries"`
	RetryBackoff    time.Duration `koanf:"retry_backoff"`
	CompactInterval time.Duration `koanf:"compact_interval"`
	EntryTTL        time.Duration `koanf:"entry_ttl"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}

// Load reads configuration from defaults, file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
