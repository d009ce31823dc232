// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package api

import (
	"net/http"

	"github.com/tomtom215/respira/internal/mood"
)

// PredictMood handles POST /api/v1/mood.
func (h *Handler) PredictMood(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	label, err := h.deps.Predictor.PredictInput(r.Context(), mood.PredictionInput{
		DurationSeconds: req.DurationSeconds,
		TechniqueID:     req.TechniqueID,
		Hour:            string(req.Hour),
		Day:             string(req.Day),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(PredictResponse{PredictedMood: int(label)})
}

// IngestSessions handles POST /api/v1/sessions.
func (h *Handler) IngestSessions(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := h.deps.Ingester.Ingest(r.Context(), toSessions(req.Sessions))
	if err != nil {
		respondError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Queued > 0 {
		status = http.StatusAccepted
	}
	NewResponseWriter(w, r).WithStatus(status, res)
}
