// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package learning

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/tomtom215/respira/internal/mood"
	"github.com/tomtom215/respira/internal/mood/classifier"
	"github.com/tomtom215/respira/internal/mood/storage"
)

// fastConfig keeps training fast in tests.
func fastConfig() classifier.Config {
	return classifier.Config{HiddenLayers: []int{16, 8}, MaxIter: 40, LearningRate: 0.01, BatchSize: 16, Seed: 1}
}

type fakeSource struct {
	sessions []mood.Session
	skipped  []error
	err      error
}

func (f *fakeSource) ReadAll(context.Context) ([]mood.Session, []error, error) {
	return f.sessions, f.skipped, f.err
}

// makeSessions builds n well-formed sessions cycling through moods 1..5.
func makeSessions(n int) []mood.Session {
	sessions := make([]mood.Session, n)
	for i := range sessions {
		sessions[i] = mood.Session{
			DurationSeconds: float64(60 + 15*(i%10)),
			TechniqueID:     i % 3,
			Mood:            1 + i%5,
			Hour:            fmt.Sprintf("%02d:%02d", (6+i)%24, (i*7)%60),
			Day:             fmt.Sprint(i % 7),
		}
	}
	return sessions
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.NewStore(filepath.Join(t.TempDir(), "model.gob.gz"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func example(label mood.Label, hour float64) mood.LabeledExample {
	return mood.LabeledExample{
		Features: mood.FeatureVector{DurationSeconds: 120, TechniqueID: 1, Hour: hour, Weekday: 2},
		Label:    label,
	}
}
