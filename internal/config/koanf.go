// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/respira/config.yaml",
	"/etc/respira/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// Default returns the built-in configuration without file or environment overrides.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8000,
			Timeout:           30 * time.Second,
			CORSOrigins:       []string{},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Model: ModelConfig{
			ArtifactPath: "data/model.gob.gz",
		},
		Dataset: DatasetConfig{
			LogPath: "data/sessions.csv",
			Seed:    42,
		},
		Training: TrainingConfig{
			HiddenLayers: []int{16, 8},
			MaxIter:      500,
			LearningRate: 0.001,
			BatchSize:    200,
			TestRatio:    0.2,
			Seed:         42,
			Timeout:      2 * time.Minute,
			RequestWait:  5 * time.Second,
			QueueSize:    64,
		},
		Tiers: TierConfig{
			MinSessions:          5,
			IncrementalThreshold: 100,
		},
		Schedule: ScheduleConfig{
			Concurrency: 6,
		},
		Predictor: PredictorConfig{
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
			CacheSize:          4096,
			CacheTTL:           10 * time.Minute,
		},
		WAL: WALConfig{
			Enabled:         true,
			Path:            "data/wal",
			SyncWrites:      true,
			RetryInterval:   30 * time.Second,
			MaxRetries:      100,
			RetryBackoff:    5 * time.Second,
			CompactInterval: time.Hour,
			EntryTTL:        7 * 24 * time.Hour,
		},
	}
}

// sliceConfigPaths may arrive from the environment as comma-separated strings.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"training.hidden_layers",
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",
	"disable_rate_limit":  "server.rate_limit_disabled",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"model_path":       "model.artifact_path",
	"session_log_path": "dataset.log_path",
	"dataset_seed":     "dataset.seed",

	"train_hidden_layers":    "training.hidden_layers",
	"train_max_iter":         "training.max_iter",
	"train_learning_rate":    "training.learning_rate",
	"train_batch_size":       "training.batch_size",
	"train_test_ratio":       "training.test_ratio",
	"train_seed":             "training.seed",
	"train_timeout":          "training.timeout",
	"train_request_wait":     "training.request_wait",
	"train_queue_size":       "training.queue_size",
	"train_retrain_interval": "training.retrain_interval",

	"tier_min_sessions":          "tiers.min_sessions",
	"tier_incremental_threshold": "tiers.incremental_threshold",

	"schedule_concurrency": "schedule.concurrency",

	"predictor_breaker_max_failures": "predictor.breaker_max_failures",
	"predictor_breaker_timeout":      "predictor.breaker_timeout",
	"predictor_cache_size":           "predictor.cache_size",
	"predictor_cache_ttl":            "predictor.cache_ttl",

	"wal_enabled":          "wal.enabled",
	"wal_path":             "wal.path",
	"wal_sync_writes":      "wal.sync_writes",
	"wal_retry_interval":   "wal.retry_interval",
	"wal_max_retries":      "wal.max_retries",
	"wal_retry_backoff":    "wal.retry_backoff",
	"wal_compact_interval": "wal.compact_interval",
	"wal_entry_ttl":        "wal.entry_ttl",
}

// LoadWithKoanf layers defaults, the config file and the environment, then validates.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
