// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package learning

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/respira/internal/mood"
)

// scriptedPredictor answers by hour and records the vectors it saw.
type scriptedPredictor struct {
	mu      sync.Mutex
	answers map[float64]mood.Label
	seen    []mood.FeatureVector
}

func (s *scriptedPredictor) Predict(_ context.Context, fv mood.FeatureVector) (mood.Label, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, fv)
	for fraction, label := range s.answers {
		if math.Abs(fraction*24-fv.Hour) < 1e-9 {
			return label, nil
		}
	}
	return 0, mood.ErrModelNotFound
}

// 2024-01-03 is a Wednesday.
var wednesday = time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)

func threeSessions() []mood.Session {
	return []mood.Session{
		{DurationSeconds: 120, TechniqueID: 1, Mood: 4, Hour: "07:00", Day: "0"},
		{DurationSeconds: 150, TechniqueID: 1, Mood: 5, Hour: "08:00", Day: "1"},
		{DurationSeconds: 90, TechniqueID: 1, Mood: 3, Hour: "21:00", Day: "2"},
	}
}

func fractions(entries []mood.ScheduleEntry) []float64 {
	out := make([]float64, len(entries))
	for i, e := range entries {
		out[i] = e.HourFraction
	}
	return out
}

func TestSynthesizeEmptySessions(t *testing.T) {
	t.Parallel()

	s := NewSynthesizer(&scriptedPredictor{})
	got := s.Synthesize(context.Background(), nil)
	if len(got) != 1 || got[0] != (mood.ScheduleEntry{HourFraction: 0.5, Mood: 3}) {
		t.Fatalf("got %+v, want [{0.5 3}]", got)
	}
}

func TestSynthesizeBackfill(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		answers   map[float64]mood.Label
		wantFracs []float64
		wantMoods []float64
	}{
		{
			name:      "all predictions fail",
			answers:   nil,
			wantFracs: []float64{0.25, 0.5, 0.75},
			wantMoods: []float64{3, 3, 3},
		},
		{
			name:      "only midday succeeds",
			answers:   map[float64]mood.Label{0.5: 5},
			wantFracs: []float64{0.25, 0.5, 0.75},
			wantMoods: []float64{3, 5, 3},
		},
		{
			name:      "edges succeed",
			answers:   map[float64]mood.Label{0.08: 2, 0.99: 4},
			wantFracs: []float64{0.08, 0.25, 0.99},
			wantMoods: []float64{2, 3, 4},
		},
		{
			name:      "all succeed",
			answers:   map[float64]mood.Label{0.08: 1, 0.25: 2, 0.5: 3, 0.75: 4, 0.85: 5, 0.99: 1},
			wantFracs: []float64{0.08, 0.25, 0.5, 0.75, 0.85, 0.99},
			wantMoods: []float64{1, 2, 3, 4, 5, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := NewSynthesizer(&scriptedPredictor{answers: tt.answers}, WithClock(func() time.Time { return wednesday }))
			got := s.Synthesize(context.Background(), threeSessions())
			if len(got) != len(tt.wantFracs) {
				t.Fatalf("got %+v", got)
			}
			for i := range got {
				if got[i].HourFraction != tt.wantFracs[i] || got[i].Mood != tt.wantMoods[i] {
					t.Errorf("entry %d = %+v, want {%v %v}", i, got[i], tt.wantFracs[i], tt.wantMoods[i])
				}
			}
		})
	}
}

func TestSynthesizeFeatureVectors(t *testing.T) {
	t.Parallel()

	pred := &scriptedPredictor{}
	s := NewSynthesizer(pred, WithClock(func() time.Time { return wednesday }), WithConcurrency(2))
	sessions := []mood.Session{
		{DurationSeconds: 30, TechniqueID: 2},
		{DurationSeconds: 40, TechniqueID: 7},
		{DurationSeconds: 20, TechniqueID: 7},
	}
	s.Synthesize(context.Background(), sessions)

	if len(pred.seen) != len(CandidateFractions) {
		t.Fatalf("predictor called %d times, want %d", len(pred.seen), len(CandidateFractions))
	}
	for _, fv := range pred.seen {
		if fv.DurationSeconds != MinAvgDuration {
			t.Errorf("duration = %v, want floor of %v", fv.DurationSeconds, MinAvgDuration)
		}
		if fv.TechniqueID != 7 {
			t.Errorf("technique = %d, want most common 7", fv.TechniqueID)
		}
		if fv.Weekday != 2 {
			t.Errorf("weekday = %d, want Wednesday (2)", fv.Weekday)
		}
	}
}

func TestSummarizeTechniqueTie(t *testing.T) {
	t.Parallel()

	got := Summarize([]mood.Session{
		{DurationSeconds: 200, TechniqueID: 4},
		{DurationSeconds: 100, TechniqueID: 9},
	}, wednesday)
	if got.Technique != 4 || got.AvgDuration != 150 {
		t.Errorf("summary = %+v, want technique 4 and avg 150", got)
	}
}

// With no trained model every candidate fails, yet the schedule still
// carries at least three entries drawn from the allowed fractions.
func TestSynthesizeWithoutModelEndToEnd(t *testing.T) {
	t.Parallel()

	s := NewSynthesizer(NewPredictor(newTestStore(t), DefaultPredictorConfig()))
	got := s.Synthesize(context.Background(), threeSessions())
	if len(got) < MinScheduleEntries {
		t.Fatalf("got %d entries, want at least %d", len(got), MinScheduleEntries)
	}
	allowed := map[float64]bool{}
	for _, f := range CandidateFractions {
		allowed[f] = true
	}
	for _, e := range got {
		if !allowed[e.HourFraction] {
			t.Errorf("fraction %v not in candidate set", e.HourFraction)
		}
		if e.Mood < 1 || e.Mood > 5 {
			t.Errorf("mood %v out of range", e.Mood)
		}
	}
}
