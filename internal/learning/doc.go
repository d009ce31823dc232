// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

// Package learning implements the mood learning pipeline.
//
// # Components
//
//   - Balancer: oversamples the session log so every mood label present has
//     as many rows as the most frequent one.
//   - BatchTrainer: full retrain from the balanced log, used while a user has
//     fewer sessions than the incremental threshold.
//   - IncrementalTrainer: buffers labeled examples and applies one online
//     update once at least two distinct labels are buffered.
//   - Predictor: loads the current artifact (cached, behind a circuit breaker)
//     and returns the argmax mood label.
//   - Synthesizer: sweeps fixed candidate times of day through the predictor
//     and backfills neutral entries.
//   - Coordinator: picks the training tier from the session count and builds
//     the recommendation.
//
// # Concurrency
//
// Training is CPU bound and must run off the request path. Coordinator hands
// training to a TrainingRunner; the production runner is the background
// training service, DirectRunner runs inline and is meant for the CLI and
// tests. Either way at most one training operation touches the artifact at a
// time. The IncrementalTrainer guards its buffer with its own mutex so the
// check-diversity-then-clear sequence is atomic however it is called.
package learning
