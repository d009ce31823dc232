// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

var (
	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respira_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "respira_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "respira_api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	// Training metrics
	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respira_training_runs_total",
			Help: "Training operations by mode (batch, incremental) and result",
		},
		[]string{"mode", "result"},
	)

	TrainingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "respira_training_duration_seconds",
			Help:    "Duration of training operations in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"mode"},
	)

	TrainingSkippedRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "respira_training_skipped_records_total",
			Help: "Log records skipped because they could not be converted to features",
		},
	)

	HoldoutAccuracy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "respira_model_holdout_accuracy",
			Help: "Held-out accuracy of the most recent batch training run",
		},
	)

	ModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "respira_model_version",
			Help: "Version of the most recently persisted model artifact",
		},
	)

	BufferSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "respira_incremental_buffer_examples",
			Help: "Examples waiting in the incremental training buffer",
		},
	)

	TrainingQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "respira_training_queue_depth",
			Help: "Training jobs waiting for the background worker",
		},
	)

	// Prediction metrics
	Predictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respira_predictions_total",
			Help: "Predictor calls by result",
		},
		[]string{"result"},
	)

	ModelLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respira_model_loads_total",
			Help: "Artifact loads performed by the predictor by result",
		},
		[]string{"result"},
	)

	ScheduleBackfills = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "respira_schedule_backfill_entries_total",
			Help: "Neutral entries added because too few candidate predictions succeeded",
		},
	)

	ScheduleRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respira_schedule_requests_total",
			Help: "Schedule requests by tier (insufficient, learning, incremental) and result",
		},
		[]string{"tier", "result"},
	)

	// WAL metrics
	WALWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "respira_wal_writes_total",
			Help: "Sessions written to the ingest WAL",
		},
	)

	WALConfirms = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "respira_wal_confirms_total",
			Help: "WAL entries confirmed after reaching the session log",
		},
	)

	WALRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respira_wal_retries_total",
			Help: "WAL replay attempts by result",
		},
		[]string{"result"},
	)

	WALPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "respira_wal_pending_entries",
			Help: "Unconfirmed WAL entries",
		},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordTraining records one training operation.
func RecordTraining(mode string, duration time.Duration, err error) {
	TrainingDuration.WithLabelValues(mode).Observe(duration.Seconds())
	TrainingRuns.WithLabelValues(mode, resultLabel(err)).Inc()
}

// RecordPrediction records one predictor call.
func RecordPrediction(err error) {
	Predictions.WithLabelValues(resultLabel(err)).Inc()
}

// RecordScheduleRequest records a schedule request outcome for a tier.
func RecordScheduleRequest(tier string, err error) {
	ScheduleRequests.WithLabelValues(tier, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
