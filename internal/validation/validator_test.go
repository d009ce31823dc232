// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package validation

import (
	"strings"
	"testing"
)

type testSession struct {
	DurationSeconds float64 `json:"duration_seconds" validate:"gte=0"`
	Mood            int     `json:"mood" validate:"min=1,max=5"`
	Hour            string  `json:"hour" validate:"required,hourofday"`
	Day             string  `json:"day" validate:"required,dayref"`
}

type testRequest struct {
	Sessions []testSession `json:"sessions" validate:"max=3,dive"`
}

func TestValidateStructValid(t *testing.T) {
	t.Parallel()

	req := testRequest{Sessions: []testSession{
		{DurationSeconds: 60, Mood: 3, Hour: "07:30", Day: "2024-01-01"},
		{DurationSeconds: 0, Mood: 5, Hour: "23.5", Day: "6"},
	}}
	if err := ValidateStruct(&req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateStructErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		session   testSession
		wantField string
		wantTag   string
	}{
		{"negative duration", testSession{DurationSeconds: -1, Mood: 3, Hour: "07:00", Day: "1"}, "sessions[0].duration_seconds", "gte"},
		{"mood too high", testSession{Mood: 6, Hour: "07:00", Day: "1"}, "sessions[0].mood", "max"},
		{"missing hour", testSession{Mood: 3, Day: "1"}, "sessions[0].hour", "required"},
		{"bad hour", testSession{Mood: 3, Hour: "25:00", Day: "1"}, "sessions[0].hour", "hourofday"},
		{"bad day", testSession{Mood: 3, Hour: "07:00", Day: "someday"}, "sessions[0].day", "dayref"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateStruct(&testRequest{Sessions: []testSession{tt.session}})
			if err == nil {
				t.Fatal("expected validation error")
			}
			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("got %d errors: %v", len(errs), err)
			}
			if errs[0].Field() != tt.wantField || errs[0].Tag() != tt.wantTag {
				t.Errorf("field=%q tag=%q", errs[0].Field(), errs[0].Tag())
			}
			api := err.ToAPIError()
			if api.Code != "VALIDATION_ERROR" || api.Details["field"] != tt.wantField {
				t.Errorf("api error = %+v", api)
			}
		})
	}
}

func TestValidateStructMultipleErrors(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&testRequest{Sessions: []testSession{{Mood: 0, Hour: "x", Day: "9"}}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if n := len(err.Errors()); n != 3 {
		t.Fatalf("got %d errors, want 3: %v", n, err)
	}
	api := err.ToAPIError()
	if _, ok := api.Details["fields"]; !ok {
		t.Error("multiple errors should be listed under fields")
	}
	if !strings.Contains(api.Message, "sessions[0].mood must be at least 1") {
		t.Errorf("message = %q", api.Message)
	}
}

func TestValidateStructTooMany(t *testing.T) {
	t.Parallel()

	s := testSession{Mood: 3, Hour: "07:00", Day: "1"}
	err := ValidateStruct(&testRequest{Sessions: []testSession{s, s, s, s}})
	if err == nil || err.Errors()[0].Tag() != "max" {
		t.Fatalf("expected max error, got %v", err)
	}
	if got := err.Errors()[0].Error(); got != "sessions must contain at most 3 items" {
		t.Errorf("message = %q", got)
	}
}
