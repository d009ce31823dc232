// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package api

import (
	"net/http"

	"github.com/tomtom215/respira/internal/logging"
	"github.com/tomtom215/respira/internal/mood"
)

// Schedule handles POST /api/v1/schedule.
//
// The response always carries a schedule array; failures return it empty
// with an error string and the mapped status code.
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.scheduleError(w, r, err)
		return
	}

	rec, err := h.deps.Recommender.Recommend(r.Context(), toSessions(req.Sessions))
	if err != nil {
		h.scheduleError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("tier", string(rec.Tier)).
		Int("sessions", len(req.Sessions)).
		Int("entries", len(rec.Schedule)).
		Msg("schedule generated")

	writeJSON(w, http.StatusOK, ScheduleResponse{
		Schedule: rec.Schedule,
		Advisory: rec.Advisory,
		Tier:     string(rec.Tier),
	})
}

func (h *Handler) scheduleError(w http.ResponseWriter, r *http.Request, err error) {
	status, _, message := classify(err)
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Msg("schedule request failed")
	}
	writeJSON(w, status, ScheduleResponse{Schedule: []mood.ScheduleEntry{}, Error: message})
}
