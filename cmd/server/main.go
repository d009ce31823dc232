// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

// Package main is the entry point for the Respira API server.
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, config.yaml, then environment (Koanf v2)
//  2. Logging: zerolog, bridged to slog for the supervisor
//  3. Components: artifact store, session log, WAL, trainers, predictor
//  4. Supervisor tree: WAL retry and compaction, training worker, HTTP server
//     and the model event hub
//
// SIGINT and SIGTERM cancel the root context; the supervisor then stops
// every service within its shutdown timeout.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/respira/internal/api"
	"github.com/tomtom215/respira/internal/app"
	"github.com/tomtom215/respira/internal/config"
	"github.com/tomtom215/respira/internal/logging"
	"github.com/tomtom215/respira/internal/supervisor"
	"github.com/tomtom215/respira/internal/supervisor/services"
	"github.com/tomtom215/respira/internal/wal"
	ws "github.com/tomtom215/respira/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("artifact", cfg.Model.ArtifactPath).
		Str("session_log", cfg.Dataset.LogPath).
		Bool("wal", cfg.WAL.Enabled).
		Msg("Starting Respira")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
	logging.Info().Msg("Server stopped")
}

func run(cfg *config.Config) error {
	components, err := app.New(cfg, app.Options{EnableWAL: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := components.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing components")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.Timeout,
	})

	if components.WAL != nil {
		tree.AddDataService(wal.NewRetryLoop(components.WAL, components.Pipeline))
		tree.AddDataService(wal.NewCompactor(components.WAL))
	}

	hub := ws.NewHub()
	tree.AddAPIService(hub)

	worker := services.NewTrainingWorker(components.Batch, components.Incremental, services.TrainingWorkerConfig{
		QueueSize:       cfg.Training.QueueSize,
		JobTimeout:      cfg.Training.Timeout,
		RequestWait:     cfg.Training.RequestWait,
		RetrainInterval: cfg.Training.RetrainInterval,
	}, services.WithNotifier(hub))
	tree.AddWorkerService(worker)

	handler := api.NewHandler(api.Dependencies{
		Recommender: components.Coordinator(worker),
		Predictor:   components.Predictor,
		Ingester:    components.Pipeline,
		Status:      components.Status,
		Retrainer:   worker,
		Checks:      components.ReadinessChecks(),

		Events:         hub,
		AllowedOrigins: cfg.Server.CORSOrigins,
	})
	router := api.NewRouter(handler, api.RouterConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		RateLimitRequests:  cfg.Server.RateLimitRequests,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
		RateLimitDisabled:  cfg.Server.RateLimitDisabled,
		RequestTimeout:     cfg.Server.Timeout,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		// Training requests may wait for the worker beyond the API timeout.
		WriteTimeout: cfg.Server.Timeout + cfg.Training.RequestWait,
		IdleTimeout:  2 * time.Minute,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))

	logging.Info().Str("addr", server.Addr).Msg("Supervisor tree starting")
	err = tree.Serve(ctx)
	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
