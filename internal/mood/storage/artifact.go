// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

// Package storage persists the current mood model artifact.
//
// # Storage Format
//
// The artifact is a single gob-encoded file holding Metadata and the
// gzip-compressed gob encoding of the classifier. Metadata carries the
// feature-schema version and a SHA-256 checksum of the uncompressed model,
// both verified on load.
//
// # Thread Safety
//
// Writes are serialised and replace the file atomically: the new artifact is
// written to a temporary file in the same directory, synced, then renamed over
// the old one. Readers never take a lock and always observe either the old or
// the new artifact in full.
package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tomtom215/respira/internal/mood"
	"github.com/tomtom215/respira/internal/mood/classifier"
)

// Training modes recorded in Metadata.Mode.
const (
	ModeBatch       = "batch"
	ModeIncremental = "incremental"
)

// ErrChecksumMismatch is wrapped in a PersistenceError when the stored model is corrupt.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Metadata describes a stored artifact.
type Metadata struct {
	SchemaVersion int       `json:"schema_version"`
	FeatureNames  []string  `json:"feature_names"`
	Mode          string    `json:"mode"`
	Version       int       `json:"version"`
	TrainedAt     time.Time `json:"trained_at"`
	SavedAt       time.Time `json:"saved_at"`
	SampleCount   int       `json:"sample_count"`
	Accuracy      float64   `json:"holdout_accuracy,omitempty"`
	Checksum      string    `json:"checksum"`
	SizeBytes     int64     `json:"size_bytes"`
}

// Artifact is a loaded model with its metadata.
type Artifact struct {
	Metadata Metadata
	Model    *classifier.MLP
}

// storedFile is the on-disk layout.
type storedFile struct {
	Metadata       Metadata
	CompressedData []byte
}

// Store reads and atomically replaces the artifact at one path.
type Store struct {
	path string

	// mu serialises writers only.
	mu sync.Mutex
}

// NewStore returns a store for the artifact at path, creating its directory.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, &mood.PersistenceError{Op: "mkdir", Path: path, Err: err}
	}
	return &Store{path: path}, nil
}

// Path returns the artifact location.
func (s *Store) Path() string {
	return s.path
}

// Stat returns file info for the current artifact, or ErrModelNotFound.
func (s *Store) Stat() (fs.FileInfo, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, mood.ErrModelNotFound
	}
	if err != nil {
		return nil, &mood.PersistenceError{Op: "stat", Path: s.path, Err: err}
	}
	return info, nil
}

// Save replaces the current artifact with model. SchemaVersion, FeatureNames,
// Version, SavedAt, Checksum and SizeBytes are filled in by the store; Version
// is one more than the artifact being replaced.
//
//nolint:gocritic // meta passed by value is acceptable for this write operation
func (s *Store) Save(ctx context.Context, model *classifier.MLP, meta Metadata) (Metadata, error) {
	if model == nil {
		return Metadata{}, &mood.PersistenceError{Op: "save", Path: s.path, Err: errors.New("nil model")}
	}
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(model); err != nil {
		return Metadata{}, &mood.PersistenceError{Op: "encode", Path: s.path, Err: err}
	}
	hash := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return Metadata{}, &mood.PersistenceError{Op: "compress", Path: s.path, Err: err}
	}
	if err := gzw.Close(); err != nil {
		return Metadata{}, &mood.PersistenceError{Op: "compress", Path: s.path, Err: err}
	}

	previous := 0
	if current, err := s.readFile(); err == nil {
		previous = current.Metadata.Version
	}

	meta.SchemaVersion = mood.FeatureSchemaVersion
	meta.FeatureNames = append([]string(nil), mood.FeatureNames...)
	meta.Version = previous + 1
	meta.SavedAt = time.Now().UTC()
	if meta.TrainedAt.IsZero() {
		meta.TrainedAt = meta.SavedAt
	}
	meta.Checksum = hex.EncodeToString(hash[:])
	meta.SizeBytes = int64(compressed.Len())

	if err := s.writeAtomic(storedFile{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

func (s *Store) writeAtomic(sf storedFile) (err error) {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return &mood.PersistenceError{Op: "create", Path: s.path, Err: err}
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()        //nolint:errcheck // already failing
			_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		}
	}()

	if err = gob.NewEncoder(tmp).Encode(sf); err != nil {
		return &mood.PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	if err = tmp.Sync(); err != nil {
		return &mood.PersistenceError{Op: "sync", Path: s.path, Err: err}
	}
	if err = tmp.Close(); err != nil {
		return &mood.PersistenceError{Op: "close", Path: s.path, Err: err}
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return &mood.PersistenceError{Op: "rename", Path: s.path, Err: err}
	}
	return nil
}

// Load reads, verifies and decodes the current artifact. It returns
// ErrModelNotFound when nothing has been saved and ErrSchemaMismatch when the
// artifact was written for a different feature layout.
func (s *Store) Load(ctx context.Context) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sf, err := s.readFile()
	if err != nil {
		return nil, err
	}
	if sf.Metadata.SchemaVersion != mood.FeatureSchemaVersion {
		return nil, fmt.Errorf("%w: artifact has version %d, expected %d",
			mood.ErrSchemaMismatch, sf.Metadata.SchemaVersion, mood.FeatureSchemaVersion)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, &mood.PersistenceError{Op: "decompress", Path: s.path, Err: err}
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, &mood.PersistenceError{Op: "decompress", Path: s.path, Err: err}
	}
	hash := sha256.Sum256(raw)
	if got := hex.EncodeToString(hash[:]); got != sf.Metadata.Checksum {
		return nil, &mood.PersistenceError{Op: "verify", Path: s.path,
			Err: fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, sf.Metadata.Checksum, got)}
	}

	model := &classifier.MLP{}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(model); err != nil {
		return nil, &mood.PersistenceError{Op: "decode", Path: s.path, Err: err}
	}
	if model.NumFeatures() != mood.NumFeatures {
		return nil, fmt.Errorf("%w: model expects %d features, expected %d",
			mood.ErrSchemaMismatch, model.NumFeatures(), mood.NumFeatures)
	}
	return &Artifact{Metadata: sf.Metadata, Model: model}, nil
}

// Metadata returns the current artifact's metadata without decoding the model.
func (s *Store) Metadata(ctx context.Context) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}
	sf, err := s.readFile()
	if err != nil {
		return Metadata{}, err
	}
	return sf.Metadata, nil
}

func (s *Store) readFile() (*storedFile, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, mood.ErrModelNotFound
	}
	if err != nil {
		return nil, &mood.PersistenceError{Op: "open", Path: s.path, Err: err}
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // close after read is not actionable

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, &mood.PersistenceError{Op: "read", Path: s.path, Err: err}
	}
	return &sf, nil
}
