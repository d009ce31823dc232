// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package learning

import (
	"errors"
	"testing"

	"github.com/tomtom215/respira/internal/mood"
)

func TestBalanceEmpty(t *testing.T) {
	t.Parallel()

	if _, _, err := NewBalancer(42).Balance(nil); !errors.Is(err, mood.ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestBalanceEqualisesLabels(t *testing.T) {
	t.Parallel()

	sessions := []mood.Session{
		{DurationSeconds: 60, TechniqueID: 1, Mood: 1, Hour: "07:00", Day: "0"},
		{DurationSeconds: 70, TechniqueID: 1, Mood: 1, Hour: "08:00", Day: "1"},
		{DurationSeconds: 80, TechniqueID: 1, Mood: 1, Hour: "09:00", Day: "2"},
		{DurationSeconds: 90, TechniqueID: 2, Mood: 4, Hour: "19:30", Day: "2024-01-01"},
		{DurationSeconds: 95, TechniqueID: 2, Mood: 5, Hour: "20.5", Day: "5"},
		{DurationSeconds: 99, TechniqueID: 2, Mood: 5, Hour: "21:00", Day: "6"},
	}

	balanced, report, err := NewBalancer(42).Balance(sessions)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if report.MaxSize != 3 {
		t.Errorf("max size = %d, want 3", report.MaxSize)
	}

	counts := make(map[mood.Label]int)
	for _, ex := range balanced {
		counts[ex.Label]++
	}
	if len(counts) != 3 {
		t.Fatalf("labels present = %v, want exactly 1, 4 and 5", counts)
	}
	for label, n := range counts {
		if n != report.MaxSize {
			t.Errorf("label %d has %d rows, want %d", label, n, report.MaxSize)
		}
	}
	if len(balanced) != 9 || report.OutputRows != 9 {
		t.Errorf("output rows = %d, want 9", len(balanced))
	}
}

func TestBalanceIsReproducible(t *testing.T) {
	t.Parallel()

	sessions := makeSessions(23)
	a, _, err := NewBalancer(7).Balance(sessions)
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := NewBalancer(7).Balance(sessions)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("row %d differs between runs with the same seed", i)
		}
	}
}

func TestBalanceSkipsMalformedRows(t *testing.T) {
	t.Parallel()

	sessions := []mood.Session{
		{DurationSeconds: 60, TechniqueID: 1, Mood: 2, Hour: "seven", Day: "0"},
		{DurationSeconds: 60, TechniqueID: 1, Mood: 2, Hour: "07:00", Day: "someday"},
		{DurationSeconds: 60, TechniqueID: 1, Mood: 3, Hour: "07:00", Day: "0"},
	}
	balanced, report, err := NewBalancer(1).Balance(sessions)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if report.Skipped != 2 || len(balanced) != 1 {
		t.Errorf("skipped=%d rows=%d, want 2 and 1", report.Skipped, len(balanced))
	}

	_, _, err = NewBalancer(1).Balance(sessions[:2])
	if !errors.Is(err, mood.ErrEmptyDataset) {
		t.Errorf("all-malformed log should be empty, got %v", err)
	}
}
