// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package learning

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/respira/internal/cache"
	"github.com/tomtom215/respira/internal/logging"
	"github.com/tomtom215/respira/internal/metrics"
	"github.com/tomtom215/respira/internal/mood"
	"github.com/tomtom215/respira/internal/mood/storage"
)

// PredictorConfig configures the artifact-loading circuit breaker.
type PredictorConfig struct {
	// MaxFailures is the number of consecutive load failures that open the breaker.
	MaxFailures uint32

	// Timeout is how long the breaker stays open before allowing a trial load.
	Timeout time.Duration

	// CacheSize bounds the memo of recent predictions per artifact.
	CacheSize int

	// CacheTTL expires memoized predictions.
	CacheTTL time.Duration
}

// DefaultPredictorConfig returns production defaults.
func DefaultPredictorConfig() PredictorConfig {
	return PredictorConfig{MaxFailures: 5, Timeout: 30 * time.Second, CacheSize: 4096, CacheTTL: 10 * time.Minute}
}

// predictionKey scopes a memoized prediction to the artifact that made it.
type predictionKey struct {
	checksum string
	fv       mood.FeatureVector
}

type cachedArtifact struct {
	artifact *storage.Artifact
	info     fs.FileInfo
}

// fresh reports whether the cached artifact still matches the file on disk.
// Saves replace the file by rename, so a new artifact is a different file.
func (c *cachedArtifact) fresh(info fs.FileInfo) bool {
	return c != nil && os.SameFile(c.info, info) &&
		c.info.ModTime().Equal(info.ModTime()) && c.info.Size() == info.Size()
}

// Predictor serves predictions from the current artifact. The decoded model
// is cached and reloaded when the artifact file changes.
type Predictor struct {
	store   ArtifactReader
	breaker *gobreaker.CircuitBreaker[*storage.Artifact]
	logger  zerolog.Logger

	current atomic.Pointer[cachedArtifact]
	loadMu  sync.Mutex
	memo    *cache.LRU[predictionKey, mood.Label]
}

// NewPredictor creates a predictor reading from store.
func NewPredictor(store ArtifactReader, cfg PredictorConfig) *Predictor {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = DefaultPredictorConfig().MaxFailures
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPredictorConfig().Timeout
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultPredictorConfig().CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultPredictorConfig().CacheTTL
	}
	p := &Predictor{
		store:  store,
		logger: logging.WithComponent("predictor"),
		memo:   cache.NewLRU[predictionKey, mood.Label](cfg.CacheSize, cfg.CacheTTL),
	}
	p.breaker = gobreaker.NewCircuitBreaker[*storage.Artifact](gobreaker.Settings{
		Name:        "model-loader",
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		// A missing artifact is an expected state before the first training run.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, mood.ErrModelNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("model loader circuit breaker state changed")
		},
	})
	return p
}

// Predict returns the argmax mood label for fv. It fails with
// mood.ErrModelNotFound until a training operation has persisted a model.
func (p *Predictor) Predict(ctx context.Context, fv mood.FeatureVector) (label mood.Label, err error) {
	defer func() { metrics.RecordPrediction(err) }()

	if err := fv.Validate(); err != nil {
		return 0, err
	}
	art, err := p.Current(ctx)
	if err != nil {
		return 0, err
	}
	key := predictionKey{checksum: art.Metadata.Checksum, fv: fv}
	if cached, ok := p.memo.Get(key); ok {
		return cached, nil
	}
	class, err := art.Model.Predict(fv.Values())
	if err != nil {
		return 0, fmt.Errorf("predict: %w", err)
	}
	label = mood.Label(class)
	if !label.Valid() {
		return 0, fmt.Errorf("predict: model produced invalid label %d", class)
	}
	p.memo.Add(key, label)
	return label, nil
}

// PredictInput normalises a raw input through the codec and predicts.
func (p *Predictor) PredictInput(ctx context.Context, in mood.PredictionInput) (mood.Label, error) {
	fv, err := in.Features()
	if err != nil {
		metrics.RecordPrediction(err)
		return 0, err
	}
	return p.Predict(ctx, fv)
}

// Current returns the current artifact, reloading it if the file changed.
func (p *Predictor) Current(ctx context.Context) (*storage.Artifact, error) {
	info, err := p.store.Stat()
	if err != nil {
		return nil, err
	}
	if c := p.current.Load(); c.fresh(info) {
		return c.artifact, nil
	}

	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	if c := p.current.Load(); c.fresh(info) {
		return c.artifact, nil
	}

	art, err := p.breaker.Execute(func() (*storage.Artifact, error) {
		return p.store.Load(ctx)
	})
	if err != nil {
		metrics.ModelLoads.WithLabelValues(metrics.ResultError).Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("model loader unavailable: %w", err)
		}
		return nil, err
	}
	metrics.ModelLoads.WithLabelValues(metrics.ResultSuccess).Inc()

	p.current.Store(&cachedArtifact{artifact: art, info: info})
	p.memo.Purge()
	p.logger.Debug().
		Int("version", art.Metadata.Version).
		Str("mode", art.Metadata.Mode).
		Msg("model artifact loaded")
	return art, nil
}

// BreakerState reports the loader circuit breaker state.
func (p *Predictor) BreakerState() string {
	return p.breaker.State().String()
}
