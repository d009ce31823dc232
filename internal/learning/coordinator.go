// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package learning

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/respira/internal/logging"
	"github.com/tomtom215/respira/internal/metrics"
	"github.com/tomtom215/respira/internal/mood"
)

// Advisory messages returned alongside recommendations.
const (
	AdvisoryNeedMoreData  = "We are still learning about you. Log how you feel and complete at least one session a day."
	AdvisoryStillLearning = "We are still learning about you. The model is still adjusting to your patterns."
)

// ErrTrainingPending is returned by a TrainingRunner when the caller stopped
// waiting but the job is still running in the background.
var ErrTrainingPending = errors.New("training still running")

// ErrTrainingBusy is returned by a TrainingRunner that could not accept the
// job. The request proceeds with the current artifact.
var ErrTrainingBusy = errors.New("training queue full")

// deferred reports whether err means the training job did not complete in
// this request but the request may still be served.
func deferred(err error) bool {
	return errors.Is(err, ErrTrainingPending) || errors.Is(err, ErrTrainingBusy)
}

// Tier identifies which training path a request took.
type Tier string

// Tiers, selected by session count.
const (
	TierInsufficient Tier = "insufficient"
	TierLearning     Tier = "learning"
	TierIncremental  Tier = "incremental"
)

// Thresholds select the tier from the number of sessions.
type Thresholds struct {
	MinSessions          int
	IncrementalThreshold int
}

// DefaultThresholds returns 5 and 100.
func DefaultThresholds() Thresholds {
	return Thresholds{MinSessions: 5, IncrementalThreshold: 100}
}

// TierFor returns the tier for n sessions.
func (t Thresholds) TierFor(n int) Tier {
	switch {
	case n < t.MinSessions:
		return TierInsufficient
	case n < t.IncrementalThreshold:
		return TierLearning
	default:
		return TierIncremental
	}
}

// Recommendation is the schedule response. Schedule is never nil.
type Recommendation struct {
	Schedule []mood.ScheduleEntry `json:"schedule"`
	Advisory string               `json:"advisory,omitempty"`
	Tier     Tier                 `json:"tier"`
}

// Coordinator runs the tier-appropriate trainer and builds the schedule.
type Coordinator struct {
	runner     TrainingRunner
	synth      *Synthesizer
	thresholds Thresholds
}

// NewCoordinator creates a coordinator.
func NewCoordinator(runner TrainingRunner, synth *Synthesizer, thresholds Thresholds) *Coordinator {
	return &Coordinator{runner: runner, synth: synth, thresholds: thresholds}
}

// Recommend applies the three-tier policy to a user's sessions:
//   - fewer than MinSessions: no training, schedule from the current artifact, need-more-data advisory
//   - fewer than IncrementalThreshold: batch retrain, schedule, still-learning advisory
//   - otherwise: incremental update with the sessions, schedule, no advisory
//
// Training and persistence errors are returned to the caller. A training job
// that outlives the runner's wait does not fail the request; the schedule is
// built from the artifact currently on disk.
func (c *Coordinator) Recommend(ctx context.Context, sessions []mood.Session) (rec *Recommendation, err error) {
	tier := c.thresholds.TierFor(len(sessions))
	defer func() { metrics.RecordScheduleRequest(string(tier), err) }()

	log := logging.Ctx(ctx).With().Str("component", "coordinator").Str("tier", string(tier)).Int("sessions", len(sessions)).Logger()

	switch tier {
	case TierInsufficient:
		return &Recommendation{Schedule: c.synth.Synthesize(ctx, sessions), Advisory: AdvisoryNeedMoreData, Tier: tier}, nil

	case TierLearning:
		if _, err := c.runner.RunBatch(ctx); err != nil {
			if !deferred(err) {
				return nil, fmt.Errorf("batch training: %w", err)
			}
			log.Info().Err(err).Msg("batch training deferred")
		}
		return &Recommendation{Schedule: c.synth.Synthesize(ctx, sessions), Advisory: AdvisoryStillLearning, Tier: tier}, nil

	default:
		examples, skipped := ConvertSessions(sessions)
		logSkipped(log, "incremental_update", skipped)
		if len(examples) > 0 {
			if _, err := c.runner.RunIncremental(ctx, examples); err != nil {
				if !deferred(err) {
					return nil, fmt.Errorf("incremental training: %w", err)
				}
				log.Info().Err(err).Msg("incremental update deferred")
			}
		}
		return &Recommendation{Schedule: c.synth.Synthesize(ctx, sessions), Tier: tier}, nil
	}
}
