// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package mood

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDataset is returned when balancing or batch training sees no usable rows.
	ErrEmptyDataset = errors.New("dataset is empty")

	// ErrModelNotFound is returned when no model artifact has been persisted yet.
	ErrModelNotFound = errors.New("model artifact not found")

	// ErrSchemaMismatch is returned when an artifact was written for a different feature layout.
	ErrSchemaMismatch = errors.New("model artifact feature schema mismatch")
)

// FormatError reports malformed hour, date or label input for a single record.
type FormatError struct {
	Field  string
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Input, e.Reason)
}

// PersistenceError wraps a failure to read or write the model artifact.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("model artifact %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsFormatError reports whether err carries a *FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsPersistenceError reports whether err carries a *PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
