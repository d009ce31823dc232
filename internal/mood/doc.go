// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

// Package mood defines the shared vocabulary of the learning pipeline: session
// records, the feature vector every producer and consumer agrees on, mood
// labels, schedule entries, the error taxonomy and the time/date codec.
//
// # Feature Schema
//
// A FeatureVector is the ordered tuple
//
//	(duration_seconds, technique_id, hour, weekday)
//
// where hour is a fractional hour of day in [0,24) and weekday is 0 for Monday
// through 6 for Sunday. FeatureSchemaVersion is embedded in every persisted
// model artifact and checked on load, so a change to this layout must bump it.
//
// # Errors
//
// Callers match errors with errors.Is and errors.As:
//
//	var fe *mood.FormatError
//	switch {
//	case errors.As(err, &fe):          // malformed hour or date, skip the record
//	case errors.Is(err, mood.ErrEmptyDataset):
//	case errors.Is(err, mood.ErrModelNotFound):
//	}
package mood
