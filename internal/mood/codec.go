// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package mood

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// HourFractionFromString parses "HH:MM" and returns H + M/60.
func HourFractionFromString(s string) (float64, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, &FormatError{Field: "hour", Input: s, Reason: "expected HH:MM"}
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, &FormatError{Field: "hour", Input: s, Reason: "hour must be 00-23"}
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, &FormatError{Field: "hour", Input: s, Reason: "minute must be 00-59"}
	}
	return float64(h) + float64(m)/60, nil
}

// WeekdayFromDate parses an ISO calendar date and returns its weekday index, Monday = 0.
func WeekdayFromDate(s string) (int, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(isoDate, s)
	if err != nil {
		return 0, &FormatError{Field: "date", Input: s, Reason: "expected YYYY-MM-DD"}
	}
	return WeekdayIndex(t), nil
}

// WeekdayIndex maps t's weekday to Monday = 0 ... Sunday = 6.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// ParseHour accepts "HH:MM" or a numeric hour of day in [0,24).
func ParseHour(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		return HourFractionFromString(s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < 0 || v >= 24 {
		return 0, &FormatError{Field: "hour", Input: s, Reason: "expected HH:MM or a number in [0,24)"}
	}
	return v, nil
}

// ParseWeekday accepts a weekday index 0-6 or an ISO date.
func ParseWeekday(s string) (int, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		if v < 0 || v > 6 {
			return 0, &FormatError{Field: "weekday", Input: s, Reason: "must be in [0,6]"}
		}
		return v, nil
	}
	return WeekdayFromDate(s)
}

// HourFromDayFraction converts a fraction of the day in [0,1) to an hour in [0,24).
func HourFromDayFraction(f float64) float64 {
	return f * 24
}
