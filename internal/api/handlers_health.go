// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package api

import (
	"context"
	"net/http"
	"time"
)

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status string            `json:"status"`
	Uptime float64           `json:"uptime_seconds"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthLive handles GET /api/v1/health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(HealthStatus{Status: "alive", Uptime: time.Since(h.startTime).Seconds()})
}

// HealthReady handles GET /api/v1/health/ready. It returns 503 if any
// readiness check fails.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := HealthStatus{Status: "ready", Uptime: time.Since(h.startTime).Seconds(), Checks: map[string]string{}}
	code := http.StatusOK
	for name, check := range h.deps.Checks {
		if err := check(ctx); err != nil {
			status.Checks[name] = err.Error()
			status.Status = "not_ready"
			code = http.StatusServiceUnavailable
			continue
		}
		status.Checks[name] = "ok"
	}
	NewResponseWriter(w, r).WithStatus(code, status)
}
