// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

// Package sessionlog reads and appends the session log: a header-less CSV file
// with the fixed column order
//
//	duration_seconds, technique_id, mood_label, hour, weekday_or_date
//
// Rows are immutable once appended. Hour and day columns are kept as written;
// converting them to features is the caller's job.
package sessionlog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/tomtom215/respira/internal/mood"
)

const numColumns = 5

// RowError describes a row that could not be parsed.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Log is the append-only session log at a file path.
type Log struct {
	path string
	mu   sync.Mutex
}

// Open returns a Log for path, creating its directory. The file itself is
// created on first append.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create session log directory: %w", err)
	}
	return &Log{path: path}, nil
}

// Path returns the log location.
func (l *Log) Path() string {
	return l.path
}

// ReadAll returns every well-formed row. Rows with the wrong column count or
// non-numeric duration, technique or mood are returned as RowErrors and
// skipped. A missing file is an empty log.
func (l *Log) ReadAll(ctx context.Context) ([]mood.Session, []error, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open session log: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // close after read is not actionable

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.ReuseRecord = true

	var (
		sessions []mood.Session
		skipped  []error
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				skipped = append(skipped, &RowError{Line: pe.Line, Err: pe.Err})
				continue
			}
			return nil, nil, fmt.Errorf("read session log: %w", err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		s, err := parseRecord(record)
		if err != nil {
			line, _ := r.FieldPos(0)
			skipped = append(skipped, &RowError{Line: line, Err: err})
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, skipped, nil
}

func parseRecord(record []string) (mood.Session, error) {
	if len(record) != numColumns {
		return mood.Session{}, fmt.Errorf("expected %d columns, got %d", numColumns, len(record))
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
	if err != nil {
		return mood.Session{}, &mood.FormatError{Field: "duration_seconds", Input: record[0], Reason: "not a number"}
	}
	technique, err := strconv.Atoi(strings.TrimSpace(record[1]))
	if err != nil {
		return mood.Session{}, &mood.FormatError{Field: "technique_id", Input: record[1], Reason: "not an integer"}
	}
	label, err := parseInt(record[2])
	if err != nil {
		return mood.Session{}, &mood.FormatError{Field: "mood", Input: record[2], Reason: "not an integer"}
	}
	return mood.Session{
		DurationSeconds: duration,
		TechniqueID:     technique,
		Mood:            label,
		Hour:            strings.TrimSpace(record[3]),
		Day:             strings.TrimSpace(record[4]),
	}, nil
}

// parseInt accepts "4" and "4.0"; some producers write labels as floats.
func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}

// Append writes sessions to the end of the log and syncs the file.
func (l *Log) Append(ctx context.Context, sessions ...mood.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open session log for append: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // Sync below reports write failures

	w := csv.NewWriter(f)
	for _, s := range sessions {
		if err := w.Write(formatRecord(s)); err != nil {
			return fmt.Errorf("append session: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush session log: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync session log: %w", err)
	}
	return nil
}

func formatRecord(s mood.Session) []string {
	return []string{
		strconv.FormatFloat(s.DurationSeconds, 'f', -1, 64),
		strconv.Itoa(s.TechniqueID),
		strconv.Itoa(s.Mood),
		s.Hour,
		s.Day,
	}
}
