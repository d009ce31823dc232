// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/respira/internal/learning"
	"github.com/tomtom215/respira/internal/mood"
	"github.com/tomtom215/respira/internal/mood/storage"
)

type fakeBatch struct {
	calls atomic.Int32
	err   error
	panic bool
}

func (f *fakeBatch) Train(context.Context) (*learning.TrainReport, error) {
	f.calls.Add(1)
	if f.panic {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	report := &learning.TrainReport{}
	report.Metadata.Version = int(f.calls.Load())
	return report, nil
}

type fakeIncremental struct {
	mu   sync.Mutex
	seen int
}

func (f *fakeIncremental) Update(_ context.Context, examples []mood.LabeledExample) (*learning.FlushResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen += len(examples)
	return &learning.FlushResult{Flushed: true, Buffered: len(examples)}, nil
}

func startWorker(t *testing.T, w *TrainingWorker) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestTrainingWorkerRunsJobs(t *testing.T) {
	batch := &fakeBatch{}
	inc := &fakeIncremental{}
	w := NewTrainingWorker(batch, inc, TrainingWorkerConfig{RequestWait: 5 * time.Second})
	startWorker(t, w)

	report, err := w.RunBatch(context.Background())
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if report.Metadata.Version != 1 {
		t.Errorf("report version = %d, want 1", report.Metadata.Version)
	}

	examples := []mood.LabeledExample{{Label: 2}, {Label: 4}}
	flush, err := w.RunIncremental(context.Background(), examples)
	if err != nil {
		t.Fatalf("RunIncremental: %v", err)
	}
	if !flush.Flushed || flush.Buffered != 2 {
		t.Errorf("flush = %+v, want flushed with 2 buffered", flush)
	}
}

func TestTrainingWorkerPropagatesErrors(t *testing.T) {
	want := mood.ErrEmptyDataset
	w := NewTrainingWorker(&fakeBatch{err: want}, &fakeIncremental{}, TrainingWorkerConfig{RequestWait: 5 * time.Second})
	startWorker(t, w)

	if _, err := w.RunBatch(context.Background()); !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
}

func TestTrainingWorkerRecoversPanics(t *testing.T) {
	w := NewTrainingWorker(&fakeBatch{panic: true}, &fakeIncremental{}, TrainingWorkerConfig{RequestWait: 5 * time.Second})
	startWorker(t, w)

	_, err := w.RunBatch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Fatalf("err = %v, want panic error", err)
	}
	// The worker keeps serving.
	if _, err := w.RunIncremental(context.Background(), nil); err != nil {
		t.Errorf("RunIncremental after panic: %v", err)
	}
}

func TestTrainingWorkerCoalescesBatch(t *testing.T) {
	batch := &fakeBatch{}
	w := NewTrainingWorker(batch, &fakeIncremental{}, TrainingWorkerConfig{RequestWait: 10 * time.Millisecond})

	for i := 0; i < 3; i++ {
		if _, err := w.RunBatch(context.Background()); !errors.Is(err, learning.ErrTrainingPending) {
			t.Fatalf("call %d: err = %v, want ErrTrainingPending", i, err)
		}
	}
	if got := w.QueueDepth(); got != 1 {
		t.Fatalf("queue depth = %d, want 1", got)
	}

	startWorker(t, w)
	deadline := time.Now().Add(5 * time.Second)
	for w.QueueDepth() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	if got := batch.calls.Load(); got != 1 {
		t.Errorf("Train called %d times, want 1", got)
	}
}

func TestTrainingWorkerQueueFull(t *testing.T) {
	inc := &fakeIncremental{}
	w := NewTrainingWorker(&fakeBatch{}, inc, TrainingWorkerConfig{QueueSize: 1, RequestWait: 10 * time.Millisecond})

	ex := []mood.LabeledExample{{Label: mood.NeutralLabel}}
	if _, err := w.RunIncremental(context.Background(), ex); !errors.Is(err, learning.ErrTrainingPending) {
		t.Fatalf("first: err = %v, want ErrTrainingPending", err)
	}
	if _, err := w.RunIncremental(context.Background(), ex); !errors.Is(err, learning.ErrTrainingBusy) {
		t.Fatalf("second: err = %v, want ErrTrainingBusy", err)
	}
	if _, err := w.RunBatch(context.Background()); !errors.Is(err, learning.ErrTrainingBusy) {
		t.Fatalf("batch: err = %v, want ErrTrainingBusy", err)
	}

	startWorker(t, w)
	deadline := time.Now().Add(5 * time.Second)
	for {
		inc.mu.Lock()
		seen := inc.seen
		inc.mu.Unlock()
		if seen == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("queued examples were not processed, seen = %d", seen)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTrainingWorkerCallerCancel(t *testing.T) {
	w := NewTrainingWorker(&fakeBatch{}, &fakeIncremental{}, TrainingWorkerConfig{RequestWait: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.RunBatch(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestTrainingWorkerPeriodicRetrain(t *testing.T) {
	batch := &fakeBatch{}
	w := NewTrainingWorker(batch, &fakeIncremental{}, TrainingWorkerConfig{RetrainInterval: 10 * time.Millisecond})
	startWorker(t, w)

	deadline := time.Now().Add(5 * time.Second)
	for batch.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if batch.calls.Load() < 2 {
		t.Errorf("periodic retrain ran %d times, want >= 2", batch.calls.Load())
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	updates  []int
	failures []string
}

func (n *recordingNotifier) ModelUpdated(meta storage.Metadata) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, meta.Version)
}

func (n *recordingNotifier) TrainingFailed(kind string, _ error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, kind)
}

func TestTrainingWorkerNotifies(t *testing.T) {
	notifier := &recordingNotifier{}
	batch := &fakeBatch{}
	w := NewTrainingWorker(batch, &fakeIncremental{}, TrainingWorkerConfig{RequestWait: 5 * time.Second}, WithNotifier(notifier))
	startWorker(t, w)

	if _, err := w.RunBatch(context.Background()); err != nil {
		t.Fatal(err)
	}
	batch.err = errors.New("disk full")
	if _, err := w.RunBatch(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.updates) != 1 || notifier.updates[0] != 1 {
		t.Errorf("updates = %v, want [1]", notifier.updates)
	}
	if len(notifier.failures) != 1 || notifier.failures[0] != "batch" {
		t.Errorf("failures = %v, want [batch]", notifier.failures)
	}
}
