// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package mood

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// TimeText holds an hour or day reference in its textual form. In JSON it
// may be written as a string ("07:30", "2024-01-01") or as a number (7.5, 0);
// numbers keep their literal text so ParseHour and ParseWeekday see them
// unchanged. null leaves the value empty.
type TimeText string

// UnmarshalJSON implements json.Unmarshaler.
func (t *TimeText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = TimeText(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("time reference must be a string or a number, got %s", data)
	}
	*t = TimeText(data)
	return nil
}

// UnmarshalJSON accepts hour and day as strings or numbers.
func (s *Session) UnmarshalJSON(data []byte) error {
	var raw struct {
		DurationSeconds float64  `json:"duration_seconds"`
		TechniqueID     int      `json:"technique_id"`
		Mood            int      `json:"mood"`
		Hour            TimeText `json:"hour"`
		Day             TimeText `json:"day"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Session{
		DurationSeconds: raw.DurationSeconds,
		TechniqueID:     raw.TechniqueID,
		Mood:            raw.Mood,
		Hour:            string(raw.Hour),
		Day:             string(raw.Day),
	}
	return nil
}
