// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package api

import (
	"github.com/tomtom215/respira/internal/mood"
)

// SessionDTO is one session as submitted by a client.
type SessionDTO struct {
	DurationSeconds float64       `json:"duration_seconds" validate:"gte=0"`
	TechniqueID     int           `json:"technique_id" validate:"gte=0"`
	Mood            int           `json:"mood" validate:"min=1,max=5"`
	Hour            mood.TimeText `json:"hour" validate:"required,hourofday"`
	Day             mood.TimeText `json:"day" validate:"required,dayref"`
}

// Session converts the DTO to the domain record.
func (s SessionDTO) Session() mood.Session {
	return mood.Session{
		DurationSeconds: s.DurationSeconds,
		TechniqueID:     s.TechniqueID,
		Mood:            s.Mood,
		Hour:            string(s.Hour),
		Day:             string(s.Day),
	}
}

func toSessions(dtos []SessionDTO) []mood.Session {
	out := make([]mood.Session, len(dtos))
	for i, d := range dtos {
		out[i] = d.Session()
	}
	return out
}

// ScheduleRequest is the body of POST /api/v1/schedule.
type ScheduleRequest struct {
	Sessions []SessionDTO `json:"sessions" validate:"max=100000,dive"`
}

// ScheduleResponse is the body returned by POST /api/v1/schedule.
// Schedule is always present, empty on error.
type ScheduleResponse struct {
	Schedule []mood.ScheduleEntry `json:"schedule"`
	Advisory string               `json:"advisory,omitempty"`
	Error    string               `json:"error,omitempty"`
	Tier     string               `json:"tier,omitempty"`
}

// IngestRequest is the body of POST /api/v1/sessions.
type IngestRequest struct {
	Sessions []SessionDTO `json:"sessions" validate:"required,min=1,max=1000,dive"`
}

// PredictRequest is the body of POST /api/v1/mood. Hour and Day accept
// JSON strings or numbers.
type PredictRequest struct {
	DurationSeconds float64       `json:"duration_seconds" validate:"gte=0"`
	TechniqueID     int           `json:"technique_id" validate:"gte=0"`
	Hour            mood.TimeText `json:"hour" validate:"required,hourofday"`
	Day             mood.TimeText `json:"day" validate:"required,dayref"`
}

// PredictResponse is the body of a successful mood prediction.
type PredictResponse struct {
	PredictedMood int `json:"predicted_mood"`
}
