// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/respira/internal/learning"
	"github.com/tomtom215/respira/internal/logging"
	"github.com/tomtom215/respira/internal/metrics"
	"github.com/tomtom215/respira/internal/mood"
	"github.com/tomtom215/respira/internal/mood/storage"
)

// BatchTrainer performs a full retrain from the session log.
type BatchTrainer interface {
	Train(ctx context.Context) (*learning.TrainReport, error)
}

// IncrementalUpdater buffers examples and updates the stored model.
type IncrementalUpdater interface {
	Update(ctx context.Context, examples []mood.LabeledExample) (*learning.FlushResult, error)
}

// Notifier is told about the outcome of every training job.
type Notifier interface {
	ModelUpdated(meta storage.Metadata)
	TrainingFailed(kind string, err error)
}

// WorkerOption configures a TrainingWorker.
type WorkerOption func(*TrainingWorker)

// WithNotifier publishes job outcomes to n.
func WithNotifier(n Notifier) WorkerOption {
	return func(w *TrainingWorker) { w.notifier = n }
}

// TrainingWorkerConfig controls the training queue.
type TrainingWorkerConfig struct {
	// QueueSize is the number of jobs that may wait for the worker.
	QueueSize int

	// JobTimeout bounds a single training job.
	JobTimeout time.Duration

	// RequestWait is how long a caller waits for its job before receiving
	// learning.ErrTrainingPending. The job still runs.
	RequestWait time.Duration

	// RetrainInterval schedules periodic batch retrains. Zero disables them.
	RetrainInterval time.Duration
}

// DefaultTrainingWorkerConfig returns the defaults used by the server.
func DefaultTrainingWorkerConfig() TrainingWorkerConfig {
	return TrainingWorkerConfig{
		QueueSize:   16,
		JobTimeout:  5 * time.Minute,
		RequestWait: 10 * time.Second,
	}
}

type jobKind string

const (
	jobBatch       jobKind = "batch"
	jobIncremental jobKind = "incremental"
)

// trainingJob is completed exactly once; done is closed after the result
// fields are set so any number of callers can wait on it.
type trainingJob struct {
	kind     jobKind
	examples []mood.LabeledExample
	corrID   string

	report *learning.TrainReport
	flush  *learning.FlushResult
	err    error
	done   chan struct{}
}

func newJob(kind jobKind, examples []mood.LabeledExample, corrID string) *trainingJob {
	return &trainingJob{kind: kind, examples: examples, corrID: corrID, done: make(chan struct{})}
}

// TrainingWorker serializes training on a single goroutine. It implements
// learning.TrainingRunner for the coordinator and the model endpoints.
//
// Concurrent batch requests coalesce: while a batch job is queued and not
// yet started, further RunBatch calls wait on the same job.
type TrainingWorker struct {
	batch       BatchTrainer
	incremental IncrementalUpdater
	cfg         TrainingWorkerConfig
	notifier    Notifier

	queue chan *trainingJob

	mu           sync.Mutex
	pendingBatch *trainingJob
}

var _ learning.TrainingRunner = (*TrainingWorker)(nil)

// NewTrainingWorker creates a worker. Zero config fields take defaults.
func NewTrainingWorker(batch BatchTrainer, incremental IncrementalUpdater, cfg TrainingWorkerConfig, opts ...WorkerOption) *TrainingWorker {
	def := DefaultTrainingWorkerConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}
	if cfg.RequestWait <= 0 {
		cfg.RequestWait = def.RequestWait
	}
	w := &TrainingWorker{
		batch:       batch,
		incremental: incremental,
		cfg:         cfg,
		queue:       make(chan *trainingJob, cfg.QueueSize),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RunBatch queues a full retrain, joining one that is already queued.
func (w *TrainingWorker) RunBatch(ctx context.Context) (*learning.TrainReport, error) {
	w.mu.Lock()
	job := w.pendingBatch
	if job == nil {
		job = newJob(jobBatch, nil, logging.CorrelationIDFromContext(ctx))
		if !w.tryEnqueue(job) {
			w.mu.Unlock()
			return nil, learning.ErrTrainingBusy
		}
		w.pendingBatch = job
	}
	w.mu.Unlock()

	if err := w.wait(ctx, job); err != nil {
		return nil, err
	}
	return job.report, job.err
}

// RunIncremental queues examples for the incremental trainer.
func (w *TrainingWorker) RunIncremental(ctx context.Context, examples []mood.LabeledExample) (*learning.FlushResult, error) {
	job := newJob(jobIncremental, examples, logging.CorrelationIDFromContext(ctx))
	if !w.tryEnqueue(job) {
		return nil, learning.ErrTrainingBusy
	}
	if err := w.wait(ctx, job); err != nil {
		return nil, err
	}
	return job.flush, job.err
}

// QueueDepth reports the number of jobs waiting for the worker.
func (w *TrainingWorker) QueueDepth() int { return len(w.queue) }

func (w *TrainingWorker) tryEnqueue(job *trainingJob) bool {
	select {
	case w.queue <- job:
		metrics.TrainingQueueDepth.Set(float64(len(w.queue)))
		return true
	default:
		return false
	}
}

func (w *TrainingWorker) wait(ctx context.Context, job *trainingJob) error {
	timer := time.NewTimer(w.cfg.RequestWait)
	defer timer.Stop()
	select {
	case <-job.done:
		return nil
	case <-timer.C:
		return learning.ErrTrainingPending
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve implements suture.Service.
func (w *TrainingWorker) Serve(ctx context.Context) error {
	var tick <-chan time.Time
	if w.cfg.RetrainInterval > 0 {
		ticker := time.NewTicker(w.cfg.RetrainInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-w.queue:
			metrics.TrainingQueueDepth.Set(float64(len(w.queue)))
			w.run(ctx, job)
		case <-tick:
			w.mu.Lock()
			queued := w.pendingBatch != nil
			w.mu.Unlock()
			if !queued {
				w.run(ctx, newJob(jobBatch, nil, logging.GenerateCorrelationID()))
			}
		}
	}
}

func (w *TrainingWorker) run(parent context.Context, job *trainingJob) {
	if job.kind == jobBatch {
		w.mu.Lock()
		if w.pendingBatch == job {
			w.pendingBatch = nil
		}
		w.mu.Unlock()
	}

	corrID := job.corrID
	if corrID == "" {
		corrID = logging.GenerateCorrelationID()
	}
	ctx, cancel := context.WithTimeout(logging.ContextWithCorrelationID(parent, corrID), w.cfg.JobTimeout)
	defer cancel()
	defer close(job.done)

	start := time.Now()
	w.execute(ctx, job)

	event := logging.Ctx(ctx).Debug()
	if job.err != nil {
		event = logging.Ctx(ctx).Warn().Err(job.err)
	}
	event.Str("kind", string(job.kind)).Dur("duration", time.Since(start)).Msg("Training job finished")
	w.notify(job)
}

func (w *TrainingWorker) execute(ctx context.Context, job *trainingJob) {
	defer func() {
		if r := recover(); r != nil {
			job.err = fmt.Errorf("training %s panicked: %v", job.kind, r)
			logging.Ctx(ctx).Error().Str("kind", string(job.kind)).Interface("panic", r).Msg("Training job panicked")
		}
	}()
	switch job.kind {
	case jobBatch:
		job.report, job.err = w.batch.Train(ctx)
	case jobIncremental:
		job.flush, job.err = w.incremental.Update(ctx, job.examples)
	}
}

func (w *TrainingWorker) notify(job *trainingJob) {
	if w.notifier == nil {
		return
	}
	switch {
	case job.err != nil:
		w.notifier.TrainingFailed(string(job.kind), job.err)
	case job.report != nil:
		w.notifier.ModelUpdated(job.report.Metadata)
	case job.flush != nil && job.flush.Flushed:
		w.notifier.ModelUpdated(job.flush.Metadata)
	}
}

func (w *TrainingWorker) String() string { return "training-worker" }
