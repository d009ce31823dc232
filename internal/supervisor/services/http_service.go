// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/respira/internal/logging"
)

const defaultShutdownTimeout = 10 * time.Second

// HTTPServer is the subset of *http.Server the service drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs the API server in the supervisor's api layer.
// Cancellation drains in-flight requests, including callers parked on a
// training job, for at most the drain timeout.
type HTTPServerService struct {
	server HTTPServer
	drain  time.Duration
	logger zerolog.Logger
}

// NewHTTPServerService wraps server. A non-positive drain timeout means 10s.
func NewHTTPServerService(server HTTPServer, drain time.Duration) *HTTPServerService {
	if drain <= 0 {
		drain = defaultShutdownTimeout
	}
	return &HTTPServerService{
		server: server,
		drain:  drain,
		logger: logging.WithComponent("http_server"),
	}
}

// Serve implements suture.Service. It returns the listener error, the
// shutdown error, or ctx.Err() after a clean drain.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	stopped := make(chan struct{})
	var g errgroup.Group

	g.Go(func() error {
		defer close(stopped)
		err := h.server.ListenAndServe()
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	})

	g.Go(func() error {
		select {
		case <-stopped:
			return nil
		case <-ctx.Done():
		}
		h.logger.Info().Dur("drain", h.drain).Msg("Draining HTTP requests")
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.drain)
		defer cancel()
		if err := h.server.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		h.logger.Error().Err(err).Msg("HTTP server stopped with error")
		return err
	}
	return ctx.Err()
}

func (h *HTTPServerService) String() string { return "http-server" }
