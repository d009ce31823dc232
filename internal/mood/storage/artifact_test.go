// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package storage

import (
	"context"
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tomtom215/respira/internal/mood"
	"github.com/tomtom215/respira/internal/mood/classifier"
)

func newModel(t *testing.T) *classifier.MLP {
	t.Helper()
	m, err := classifier.New(classifier.DefaultConfig(), mood.NumFeatures, []int{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "models", "model.gob.gz"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	if _, err := s.Load(context.Background()); !errors.Is(err, mood.ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound, got %v", err)
	}
	if _, err := s.Stat(); !errors.Is(err, mood.ErrModelNotFound) {
		t.Fatalf("expected ErrModelNotFound from Stat, got %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(t)
	model := newModel(t)

	meta, err := s.Save(ctx, model, Metadata{Mode: ModeBatch, SampleCount: 12})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if meta.Version != 1 || meta.SchemaVersion != mood.FeatureSchemaVersion || meta.Checksum == "" {
		t.Errorf("unexpected metadata: %+v", meta)
	}

	art, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if art.Metadata.Mode != ModeBatch || art.Metadata.SampleCount != 12 {
		t.Errorf("metadata not preserved: %+v", art.Metadata)
	}
	x := []float64{120, 1, 7.5, 0}
	want, _ := model.Predict(x)
	got, err := art.Model.Predict(x)
	if err != nil || got != want {
		t.Errorf("loaded model predicts %d (%v), want %d", got, err, want)
	}

	meta2, err := s.Save(ctx, model, Metadata{Mode: ModeIncremental})
	if err != nil {
		t.Fatal(err)
	}
	if meta2.Version != 2 {
		t.Errorf("version = %d, want 2", meta2.Version)
	}

	entries, _ := os.ReadDir(filepath.Dir(s.Path()))
	if len(entries) != 1 {
		t.Errorf("expected only the artifact in its directory, found %d entries", len(entries))
	}
}

func TestLoadRejectsSchemaMismatch(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	writeStored(t, s.Path(), storedFile{Metadata: Metadata{SchemaVersion: mood.FeatureSchemaVersion + 1}})

	if _, err := s.Load(context.Background()); !errors.Is(err, mood.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestLoadRejectsTamperedChecksum(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(t)
	if _, err := s.Save(ctx, newModel(t), Metadata{Mode: ModeBatch}); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()
	sf.Metadata.Checksum = "deadbeef"
	writeStored(t, s.Path(), sf)

	_, err = s.Load(ctx)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
	if !mood.IsPersistenceError(err) {
		t.Error("checksum failure should be a PersistenceError")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	if err := os.WriteFile(s.Path(), []byte("not a model"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(context.Background()); !mood.IsPersistenceError(err) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}

func TestConcurrentSaveAndLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStore(t)
	model := newModel(t)
	if _, err := s.Save(ctx, model, Metadata{Mode: ModeBatch}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := s.Save(ctx, model, Metadata{Mode: ModeIncremental}); err != nil {
				t.Errorf("Save: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := s.Load(ctx); err != nil {
				t.Errorf("Load observed a partial artifact: %v", err)
			}
		}()
	}
	wg.Wait()

	meta, err := s.Metadata(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Version != 5 {
		t.Errorf("version = %d, want 5", meta.Version)
	}
}

func writeStored(t *testing.T, path string, sf storedFile) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(sf); err != nil {
		t.Fatal(err)
	}
}
