// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/respira/internal/ingest"
	"github.com/tomtom215/respira/internal/learning"
	"github.com/tomtom215/respira/internal/mood"
	"github.com/tomtom215/respira/internal/validation"
	ws "github.com/tomtom215/respira/internal/websocket"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 8 << 20

// Recommender builds a schedule for a user's sessions.
type Recommender interface {
	Recommend(ctx context.Context, sessions []mood.Session) (*learning.Recommendation, error)
}

// Predictor predicts a single mood label.
type Predictor interface {
	PredictInput(ctx context.Context, in mood.PredictionInput) (mood.Label, error)
}

// Ingester appends sessions to the log.
type Ingester interface {
	Ingest(ctx context.Context, sessions []mood.Session) (*ingest.Result, error)
}

// StatusProvider reports the model status.
type StatusProvider interface {
	Status(ctx context.Context) (*learning.ModelStatus, error)
}

// Retrainer forces a batch retrain.
type Retrainer interface {
	RunBatch(ctx context.Context) (*learning.TrainReport, error)
}

// EventStream attaches websocket clients to the model event hub.
type EventStream interface {
	Attach(conn *websocket.Conn) *ws.Client
}

// ReadinessCheck returns an error when a dependency is not ready.
type ReadinessCheck func(ctx context.Context) error

// Dependencies wires the handler to the service components.
type Dependencies struct {
	Recommender Recommender
	Predictor   Predictor
	Ingester    Ingester
	Status      StatusProvider
	Retrainer   Retrainer
	Checks      map[string]ReadinessCheck

	// Events streams model updates over websocket. Nil disables the endpoint.
	Events EventStream
	// AllowedOrigins lists websocket origins; "*" allows any.
	AllowedOrigins []string
}

// Handler serves the HTTP API.
type Handler struct {
	deps      Dependencies
	startTime time.Time
}

// NewHandler creates a handler.
func NewHandler(deps Dependencies) *Handler {
	return &Handler{deps: deps, startTime: time.Now()}
}

// decodeAndValidate reads a JSON body into dst and validates it.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errBadRequest("request body is empty")
		}
		return errBadRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		return verr
	}
	return nil
}

type badRequestError string

func (e badRequestError) Error() string { return string(e) }

func errBadRequest(msg string) error { return badRequestError(msg) }
