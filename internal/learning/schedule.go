// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package learning

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/respira/internal/logging"
	"github.com/tomtom215/respira/internal/metrics"
	"github.com/tomtom215/respira/internal/mood"
)

// CandidateFractions are the times of day (as fractions of a day) swept by the synthesizer.
var CandidateFractions = []float64{0.08, 0.25, 0.5, 0.75, 0.85, 0.99}

// NeutralFractions back-fill the schedule when too few predictions succeed.
var NeutralFractions = []float64{0.25, 0.5, 0.75}

// Schedule shape constants.
const (
	MinScheduleEntries = 3
	MinAvgDuration     = 60.0
	DefaultFraction    = 0.5
)

// SessionSummary holds the aggregates used to build candidate feature vectors.
type SessionSummary struct {
	AvgDuration float64
	Technique   int
	Weekday     int
}

// Summarize computes max(60, mean duration), the most common technique
// (ties go to the one seen first) and the weekday of now.
func Summarize(sessions []mood.Session, now time.Time) SessionSummary {
	var total float64
	counts := make(map[int]int)
	order := make([]int, 0)
	for _, s := range sessions {
		total += s.DurationSeconds
		if counts[s.TechniqueID] == 0 {
			order = append(order, s.TechniqueID)
		}
		counts[s.TechniqueID]++
	}

	summary := SessionSummary{AvgDuration: MinAvgDuration, Weekday: mood.WeekdayIndex(now)}
	if len(sessions) == 0 {
		return summary
	}
	if avg := total / float64(len(sessions)); avg > MinAvgDuration {
		summary.AvgDuration = avg
	}
	best := order[0]
	for _, id := range order[1:] {
		if counts[id] > counts[best] {
			best = id
		}
	}
	summary.Technique = best
	return summary
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithClock overrides the time source used for the current weekday.
func WithClock(now func() time.Time) SynthesizerOption {
	return func(s *Synthesizer) { s.now = now }
}

// WithConcurrency bounds concurrent predictor calls per request.
func WithConcurrency(n int) SynthesizerOption {
	return func(s *Synthesizer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// Synthesizer builds time-of-day recommendations from the predictor.
type Synthesizer struct {
	predictor   MoodPredictor
	now         func() time.Time
	concurrency int
	logger      zerolog.Logger
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(predictor MoodPredictor, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		predictor:   predictor,
		now:         time.Now,
		concurrency: len(CandidateFractions),
		logger:      logging.WithComponent("synthesizer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize returns schedule entries ordered by time of day. An empty
// session list yields the single neutral midday entry. Otherwise every
// candidate is predicted independently; failed candidates are dropped and
// neutral entries are added until at least three entries exist.
func (s *Synthesizer) Synthesize(ctx context.Context, sessions []mood.Session) []mood.ScheduleEntry {
	if len(sessions) == 0 {
		return []mood.ScheduleEntry{{HourFraction: DefaultFraction, Mood: float64(mood.NeutralLabel)}}
	}

	summary := Summarize(sessions, s.now())
	predicted := make([]*mood.ScheduleEntry, len(CandidateFractions))
	failures := make([]error, len(CandidateFractions))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, fraction := range CandidateFractions {
		g.Go(func() error {
			fv, err := mood.NewFeatureVector(summary.AvgDuration, summary.Technique,
				mood.HourFromDayFraction(fraction), summary.Weekday)
			if err == nil {
				var label mood.Label
				label, err = s.predictor.Predict(ctx, fv)
				if err == nil {
					predicted[i] = &mood.ScheduleEntry{HourFraction: fraction, Mood: float64(label)}
				}
			}
			failures[i] = err
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers record failures per candidate and never return an error

	entries := make([]mood.ScheduleEntry, 0, len(CandidateFractions))
	failed := 0
	var firstErr error
	for i, e := range predicted {
		if e != nil {
			entries = append(entries, *e)
			continue
		}
		failed++
		if firstErr == nil {
			firstErr = failures[i]
		}
	}
	if failed > 0 {
		s.logger.Debug().Err(firstErr).Int("failed", failed).Msg("candidate predictions skipped")
	}

	entries = backfill(entries)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].HourFraction < entries[j].HourFraction })
	return entries
}

func backfill(entries []mood.ScheduleEntry) []mood.ScheduleEntry {
	added := 0
	for _, f := range NeutralFractions {
		if len(entries) >= MinScheduleEntries {
			break
		}
		if hasFraction(entries, f) {
			continue
		}
		entries = append(entries, mood.ScheduleEntry{HourFraction: f, Mood: float64(mood.NeutralLabel)})
		added++
	}
	if added > 0 {
		metrics.ScheduleBackfills.Add(float64(added))
	}
	return entries
}

func hasFraction(entries []mood.ScheduleEntry, f float64) bool {
	for _, e := range entries {
		if e.HourFraction == f {
			return true
		}
	}
	return false
}
