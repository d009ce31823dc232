// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/respira/internal/learning"
)

// ModelStatus handles GET /api/v1/model.
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.deps.Status.Status(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(status)
}

// TrainModel handles POST /api/v1/model/train. It returns 202 when the
// retrain is still running after the worker's wait window.
func (h *Handler) TrainModel(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.Retrainer.RunBatch(r.Context())
	switch {
	case errors.Is(err, learning.ErrTrainingPending):
		NewResponseWriter(w, r).WithStatus(http.StatusAccepted, map[string]string{"message": "training started"})
	case err != nil:
		respondError(w, r, err)
	default:
		NewResponseWriter(w, r).Success(report)
	}
}
