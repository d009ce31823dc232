// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package learning

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/respira/internal/mood"
	"github.com/tomtom215/respira/internal/sessionlog"
)

type fakeRunner struct {
	batchCalls       int
	incrementalCalls int
	lastExamples     []mood.LabeledExample
	err              error
}

func (f *fakeRunner) RunBatch(context.Context) (*TrainReport, error) {
	f.batchCalls++
	return &TrainReport{}, f.err
}

func (f *fakeRunner) RunIncremental(_ context.Context, examples []mood.LabeledExample) (*FlushResult, error) {
	f.incrementalCalls++
	f.lastExamples = examples
	return &FlushResult{}, f.err
}

func newTestCoordinator(runner TrainingRunner) *Coordinator {
	synth := NewSynthesizer(&scriptedPredictor{}, WithClock(func() time.Time { return wednesday }))
	return NewCoordinator(runner, synth, DefaultThresholds())
}

func TestThresholdsTierFor(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()
	tests := []struct {
		n    int
		want Tier
	}{
		{0, TierInsufficient},
		{4, TierInsufficient},
		{5, TierLearning},
		{99, TierLearning},
		{100, TierIncremental},
		{5000, TierIncremental},
	}
	for _, tt := range tests {
		if got := th.TierFor(tt.n); got != tt.want {
			t.Errorf("TierFor(%d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}

func TestRecommendTiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		sessions        int
		wantTier        Tier
		wantAdvisory    string
		wantBatch       int
		wantIncremental int
		wantEntries     int
	}{
		{"insufficient", 3, TierInsufficient, AdvisoryNeedMoreData, 0, 0, 3},
		{"learning", 10, TierLearning, AdvisoryStillLearning, 1, 0, 3},
		{"incremental", 120, TierIncremental, "", 0, 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runner := &fakeRunner{}
			rec, err := newTestCoordinator(runner).Recommend(context.Background(), makeSessions(tt.sessions))
			if err != nil {
				t.Fatalf("Recommend: %v", err)
			}
			if rec.Tier != tt.wantTier || rec.Advisory != tt.wantAdvisory {
				t.Errorf("tier=%s advisory=%q", rec.Tier, rec.Advisory)
			}
			if rec.Schedule == nil || len(rec.Schedule) != tt.wantEntries {
				t.Errorf("schedule = %#v, want %d entries", rec.Schedule, tt.wantEntries)
			}
			if runner.batchCalls != tt.wantBatch || runner.incrementalCalls != tt.wantIncremental {
				t.Errorf("batch=%d incremental=%d", runner.batchCalls, runner.incrementalCalls)
			}
			if tt.wantIncremental > 0 && len(runner.lastExamples) != tt.sessions {
				t.Errorf("incremental got %d examples, want %d", len(runner.lastExamples), tt.sessions)
			}
		})
	}
}

func TestRecommendTrainingErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	pending := &fakeRunner{err: ErrTrainingPending}
	rec, err := newTestCoordinator(pending).Recommend(ctx, makeSessions(10))
	if err != nil {
		t.Fatalf("pending training should not fail the request: %v", err)
	}
	if len(rec.Schedule) < MinScheduleEntries {
		t.Errorf("schedule = %+v", rec.Schedule)
	}

	empty := &fakeRunner{err: mood.ErrEmptyDataset}
	if _, err := newTestCoordinator(empty).Recommend(ctx, makeSessions(10)); !errors.Is(err, mood.ErrEmptyDataset) {
		t.Errorf("expected ErrEmptyDataset, got %v", err)
	}

	persist := &fakeRunner{err: &mood.PersistenceError{Op: "save", Err: errors.New("disk full")}}
	if _, err := newTestCoordinator(persist).Recommend(ctx, makeSessions(150)); !mood.IsPersistenceError(err) {
		t.Errorf("expected PersistenceError, got %v", err)
	}
}

// The learning tier retrains from the session log and the schedule is then
// served by the freshly persisted model.
func TestRecommendEndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	log, err := sessionlog.Open(filepath.Join(dir, "sessions.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if err := log.Append(ctx, makeSessions(30)...); err != nil {
		t.Fatal(err)
	}

	store := newTestStore(t)
	runner := &DirectRunner{
		Batch:       NewBatchTrainer(log, store, NewBalancer(42), BatchConfig{Classifier: fastConfig(), TestRatio: 0.2}),
		Incremental: NewIncrementalTrainer(store, fastConfig()),
	}
	predictor := NewPredictor(store, DefaultPredictorConfig())
	coord := NewCoordinator(runner, NewSynthesizer(predictor), DefaultThresholds())

	rec, err := coord.Recommend(ctx, makeSessions(10))
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(rec.Schedule) != len(CandidateFractions) {
		t.Errorf("trained model should answer every candidate, got %+v", rec.Schedule)
	}
	for i, e := range rec.Schedule {
		if e.HourFraction != CandidateFractions[i] {
			t.Errorf("entry %d fraction %v, want %v", i, e.HourFraction, CandidateFractions[i])
		}
	}

	rec, err = coord.Recommend(ctx, makeSessions(120))
	if err != nil {
		t.Fatalf("incremental Recommend: %v", err)
	}
	if rec.Advisory != "" {
		t.Errorf("incremental tier should not advise, got %q", rec.Advisory)
	}
	meta, err := store.Metadata(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Version != 2 {
		t.Errorf("version = %d, want 2 after batch then incremental", meta.Version)
	}
}

// Three sessions and no model: no training runs and the neutral schedule is
// served alongside the need-more-data advisory.
func TestRecommendFewSessionsWithoutModel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log, err := sessionlog.Open(filepath.Join(t.TempDir(), "sessions.csv"))
	if err != nil {
		t.Fatal(err)
	}
	store := newTestStore(t)
	runner := &DirectRunner{
		Batch:       NewBatchTrainer(log, store, NewBalancer(42), BatchConfig{Classifier: fastConfig(), TestRatio: 0.2}),
		Incremental: NewIncrementalTrainer(store, fastConfig()),
	}
	coord := NewCoordinator(runner, NewSynthesizer(NewPredictor(store, DefaultPredictorConfig())), DefaultThresholds())

	sessions := []mood.Session{
		{DurationSeconds: 120, TechniqueID: 1, Mood: 4, Hour: "07:30", Day: "2024-01-01"},
		{DurationSeconds: 150, TechniqueID: 1, Mood: 5, Hour: "12:00", Day: "2024-01-02"},
		{DurationSeconds: 90, TechniqueID: 1, Mood: 3, Hour: "21:15", Day: "2024-01-03"},
	}
	rec, err := coord.Recommend(ctx, sessions)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Tier != TierInsufficient || rec.Advisory != AdvisoryNeedMoreData {
		t.Errorf("tier=%s advisory=%q", rec.Tier, rec.Advisory)
	}
	if len(rec.Schedule) < MinScheduleEntries {
		t.Fatalf("schedule = %+v, want at least %d entries", rec.Schedule, MinScheduleEntries)
	}
	for i, e := range rec.Schedule {
		if e.HourFraction != NeutralFractions[i] || e.Mood != float64(mood.NeutralLabel) {
			t.Errorf("entry %d = %+v, want neutral at %v", i, e, NeutralFractions[i])
		}
	}
	if _, err := store.Metadata(ctx); !errors.Is(err, mood.ErrModelNotFound) {
		t.Errorf("no model should be trained, Metadata err = %v", err)
	}
}
