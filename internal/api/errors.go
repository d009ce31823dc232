// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/respira/internal/learning"
	"github.com/tomtom215/respira/internal/logging"
	"github.com/tomtom215/respira/internal/mood"
	"github.com/tomtom215/respira/internal/validation"
)

// classify maps a domain error to an HTTP status, error code and client message.
func classify(err error) (status int, code, message string) {
	var fe *mood.FormatError
	var ve *validation.RequestValidationError
	var bre badRequestError
	switch {
	case errors.As(err, &bre):
		return http.StatusBadRequest, ErrCodeBadRequest, bre.Error()
	case errors.As(err, &ve):
		api := ve.ToAPIError()
		return http.StatusBadRequest, api.Code, api.Message
	case errors.As(err, &fe):
		return http.StatusBadRequest, ErrCodeValidation, fe.Error()
	case errors.Is(err, mood.ErrModelNotFound):
		return http.StatusNotFound, ErrCodeModelNotFound, "no trained model yet; submit sessions and train first"
	case errors.Is(err, mood.ErrEmptyDataset):
		return http.StatusConflict, ErrCodeEmptyDataset, "the session log has no usable rows"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "model temporarily unavailable"
	case errors.Is(err, learning.ErrTrainingBusy):
		return http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "training queue is full; retry later"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "request timed out"
	case mood.IsPersistenceError(err):
		return http.StatusInternalServerError, ErrCodeInternalError, "model storage failed"
	default:
		return http.StatusInternalServerError, ErrCodeInternalError, "internal error"
	}
}

// respondError writes err as an enveloped error response, logging server-side failures.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	var ve *validation.RequestValidationError
	if errors.As(err, &ve) {
		NewResponseWriter(w, r).ErrorWithDetails(status, code, message, ve.ToAPIError().Details)
		return
	}
	NewResponseWriter(w, r).Error(status, code, message)
}
