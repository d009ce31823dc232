// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package mood

import (
	"fmt"
	"math"
)

// FeatureSchemaVersion identifies the FeatureVector layout.
const FeatureSchemaVersion = 1

// FeatureNames lists the feature columns in vector order.
var FeatureNames = []string{"duration_seconds", "technique_id", "hour", "weekday"}

// NumFeatures is the length of FeatureVector.Values.
const NumFeatures = 4

// Label is an ordinal post-session mood rating; higher is more positive.
type Label int

// Mood label bounds.
const (
	MinLabel     Label = 1
	MaxLabel     Label = 5
	NeutralLabel Label = 3
)

// AllLabels returns every valid label in ascending order.
func AllLabels() []Label {
	labels := make([]Label, 0, MaxLabel-MinLabel+1)
	for l := MinLabel; l <= MaxLabel; l++ {
		labels = append(labels, l)
	}
	return labels
}

// Valid reports whether l is within [MinLabel, MaxLabel].
func (l Label) Valid() bool {
	return l >= MinLabel && l <= MaxLabel
}

// ParseLabel validates an integer mood rating.
func ParseLabel(v int) (Label, error) {
	l := Label(v)
	if !l.Valid() {
		return 0, &FormatError{Field: "mood", Input: fmt.Sprint(v), Reason: "must be between 1 and 5"}
	}
	return l, nil
}

// Session is one logged practice session as it arrives from the log or a client.
// Hour is "HH:MM" or a numeric hour; Day is an ISO date or a weekday index.
type Session struct {
	DurationSeconds float64 `json:"duration_seconds"`
	TechniqueID     int     `json:"technique_id"`
	Mood            int     `json:"mood"`
	Hour            string  `json:"hour"`
	Day             string  `json:"day"`
}

// Example converts the session to a labeled training example through the codec.
func (s Session) Example() (LabeledExample, error) {
	label, err := ParseLabel(s.Mood)
	if err != nil {
		return LabeledExample{}, err
	}
	hour, err := ParseHour(s.Hour)
	if err != nil {
		return LabeledExample{}, err
	}
	weekday, err := ParseWeekday(s.Day)
	if err != nil {
		return LabeledExample{}, err
	}
	fv, err := NewFeatureVector(s.DurationSeconds, s.TechniqueID, hour, weekday)
	if err != nil {
		return LabeledExample{}, err
	}
	return LabeledExample{Features: fv, Label: label}, nil
}

// FeatureVector is the validated model input shared by trainers, the
// predictor and the schedule synthesizer.
type FeatureVector struct {
	DurationSeconds float64
	TechniqueID     int
	Hour            float64
	Weekday         int
}

// NewFeatureVector validates and builds a feature vector.
func NewFeatureVector(durationSeconds float64, techniqueID int, hour float64, weekday int) (FeatureVector, error) {
	fv := FeatureVector{
		DurationSeconds: durationSeconds,
		TechniqueID:     techniqueID,
		Hour:            hour,
		Weekday:         weekday,
	}
	if err := fv.Validate(); err != nil {
		return FeatureVector{}, err
	}
	return fv, nil
}

// Validate checks value ranges.
func (f FeatureVector) Validate() error {
	if math.IsNaN(f.DurationSeconds) || math.IsInf(f.DurationSeconds, 0) || f.DurationSeconds < 0 {
		return &FormatError{Field: "duration_seconds", Input: fmt.Sprint(f.DurationSeconds), Reason: "must be a non-negative number"}
	}
	if math.IsNaN(f.Hour) || f.Hour < 0 || f.Hour >= 24 {
		return &FormatError{Field: "hour", Input: fmt.Sprint(f.Hour), Reason: "must be in [0,24)"}
	}
	if f.Weekday < 0 || f.Weekday > 6 {
		return &FormatError{Field: "weekday", Input: fmt.Sprint(f.Weekday), Reason: "must be in [0,6]"}
	}
	return nil
}

// Values returns the vector in schema order.
func (f FeatureVector) Values() []float64 {
	return []float64{f.DurationSeconds, float64(f.TechniqueID), f.Hour, float64(f.Weekday)}
}

// LabeledExample pairs a feature vector with its observed mood.
type LabeledExample struct {
	Features FeatureVector
	Label    Label
}

// ScheduleEntry is a recommended time of day with its predicted (or assumed) mood.
type ScheduleEntry struct {
	// HourFraction is the fraction of the day in [0,1).
	HourFraction float64 `json:"hour_fraction"`
	Mood         float64 `json:"mood"`
}

// DistinctLabels counts the distinct labels among examples.
func DistinctLabels(examples []LabeledExample) int {
	seen := make(map[Label]struct{}, MaxLabel)
	for _, ex := range examples {
		seen[ex.Label] = struct{}{}
	}
	return len(seen)
}

// PredictionInput is a single prediction request before codec normalisation.
// Hour is "HH:MM" or a numeric hour; Day is a weekday index or an ISO date.
type PredictionInput struct {
	DurationSeconds float64
	TechniqueID     int
	Hour            string
	Day             string
}

// Features normalises the input through the codec.
func (in PredictionInput) Features() (FeatureVector, error) {
	hour, err := ParseHour(in.Hour)
	if err != nil {
		return FeatureVector{}, err
	}
	weekday, err := ParseWeekday(in.Day)
	if err != nil {
		return FeatureVector{}, err
	}
	return NewFeatureVector(in.DurationSeconds, in.TechniqueID, hour, weekday)
}
