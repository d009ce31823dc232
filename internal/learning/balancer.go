// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package learning

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/rs/zerolog"

	"github.com/tomtom215/respira/internal/logging"
	"github.com/tomtom215/respira/internal/metrics"
	"github.com/tomtom215/respira/internal/mood"
)

// maxSkipSamples bounds how many skip reasons are logged per operation.
const maxSkipSamples = 5

// BalanceReport describes a balancing run.
type BalanceReport struct {
	InputRows   int
	Skipped     int
	ClassCounts map[mood.Label]int
	MaxSize     int
	OutputRows  int
}

// Balancer equalises per-label row counts by oversampling with replacement.
type Balancer struct {
	seed   int64
	logger zerolog.Logger
}

// NewBalancer creates a balancer whose sampling and shuffle are driven by seed.
func NewBalancer(seed int64) *Balancer {
	return &Balancer{
		seed:   seed,
		logger: logging.WithComponent("balancer"),
	}
}

// Balance converts sessions to examples, drops rows the codec rejects, and
// oversamples every label present up to the largest label count. The result
// is shuffled deterministically. It returns mood.ErrEmptyDataset when there
// are no rows or none survive conversion.
func (b *Balancer) Balance(sessions []mood.Session) ([]mood.LabeledExample, BalanceReport, error) {
	report := BalanceReport{InputRows: len(sessions), ClassCounts: make(map[mood.Label]int)}
	if len(sessions) == 0 {
		return nil, report, mood.ErrEmptyDataset
	}

	examples, skipped := ConvertSessions(sessions)
	report.Skipped = len(skipped)
	logSkipped(b.logger, "balance", skipped)
	if len(examples) == 0 {
		return nil, report, fmt.Errorf("%w: all %d rows were malformed", mood.ErrEmptyDataset, len(sessions))
	}

	partitions := make(map[mood.Label][]mood.LabeledExample)
	for _, ex := range examples {
		partitions[ex.Label] = append(partitions[ex.Label], ex)
	}
	present := make([]mood.Label, 0, len(partitions))
	for label, rows := range partitions {
		present = append(present, label)
		report.ClassCounts[label] = len(rows)
		if len(rows) > report.MaxSize {
			report.MaxSize = len(rows)
		}
	}
	sort.Slice(present, func(i, j int) bool { return present[i] < present[j] })

	rng := rand.New(rand.NewSource(b.seed)) //nolint:gosec // reproducible sampling
	balanced := make([]mood.LabeledExample, 0, report.MaxSize*len(present))
	for _, label := range present {
		rows := partitions[label]
		for i := 0; i < report.MaxSize; i++ {
			balanced = append(balanced, rows[rng.Intn(len(rows))])
		}
	}
	rng.Shuffle(len(balanced), func(i, j int) { balanced[i], balanced[j] = balanced[j], balanced[i] })

	report.OutputRows = len(balanced)
	b.logger.Debug().
		Int("input_rows", report.InputRows).
		Int("skipped", report.Skipped).
		Int("labels", len(present)).
		Int("max_size", report.MaxSize).
		Msg("dataset balanced")
	return balanced, report, nil
}

// ConvertSessions runs every session through the codec, returning the
// examples that converted and the errors for those that did not.
func ConvertSessions(sessions []mood.Session) ([]mood.LabeledExample, []error) {
	examples := make([]mood.LabeledExample, 0, len(sessions))
	var skipped []error
	for i, s := range sessions {
		ex, err := s.Example()
		if err != nil {
			skipped = append(skipped, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		examples = append(examples, ex)
	}
	return examples, skipped
}

// logSkipped emits one aggregated warning for an operation's skipped records.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func logSkipped(logger zerolog.Logger, op string, skipped []error) {
	if len(skipped) == 0 {
		return
	}
	metrics.TrainingSkippedRecords.Add(float64(len(skipped)))
	samples := make([]string, 0, maxSkipSamples)
	for i := 0; i < len(skipped) && i < maxSkipSamples; i++ {
		samples = append(samples, skipped[i].Error())
	}
	logger.Warn().
		Str("operation", op).
		Int("skipped", len(skipped)).
		Strs("reasons", samples).
		Msg("skipped malformed records")
}
