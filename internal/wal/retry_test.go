// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package wal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingPublisher struct {
	mu   sync.Mutex
	got  []string
	fail error
}

func (p *recordingPublisher) PublishEntry(_ context.Context, e *Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.got = append(p.got, e.ID)
	return nil
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{20, maxBackoff},
		{80, maxBackoff},
	}
	for _, tt := range tests {
		if got := backoff(time.Second, tt.attempts); got != tt.want {
			t.Errorf("backoff(%d) = %s, want %s", tt.attempts, got, tt.want)
		}
	}
}

func TestRetryReplaysPendingEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	w := openTestWAL(t, testConfig(t))
	id, err := w.Write(ctx, testPayload{Mood: 5})
	if err != nil {
		t.Fatal(err)
	}

	pub := &recordingPublisher{}
	loop := NewRetryLoop(w, pub)

	// Still claimed by the writer.
	res := loop.RunOnce(ctx)
	if res.Skipped != 1 || len(pub.got) != 0 {
		t.Fatalf("in-flight entry should be skipped, got %+v", res)
	}

	w.Release(id)
	res = loop.RunOnce(ctx)
	if res.Replayed != 1 || len(pub.got) != 1 || pub.got[0] != id {
		t.Fatalf("result %+v published %v", res, pub.got)
	}
	if pending, _ := w.GetPending(ctx); len(pending) != 0 {
		t.Error("replayed entry should be confirmed")
	}
}

func TestRetryDropsAfterMaxRetries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig(t)
	w := openTestWAL(t, cfg)
	id, err := w.Write(ctx, testPayload{})
	if err != nil {
		t.Fatal(err)
	}
	w.Release(id)

	pub := &recordingPublisher{fail: errors.New("log unavailable")}
	loop := NewRetryLoop(w, pub)
	clock := time.Now()
	loop.now = func() time.Time { return clock }

	for i := 0; i < cfg.MaxRetries; i++ {
		clock = clock.Add(time.Minute)
		if res := loop.RunOnce(ctx); res.Failed != 1 {
			t.Fatalf("attempt %d: %+v", i, res)
		}
	}
	clock = clock.Add(time.Minute)
	if res := loop.RunOnce(ctx); res.MaxRetried != 1 {
		t.Fatalf("expected entry to be dropped, got %+v", res)
	}
	if pending, _ := w.GetPending(ctx); len(pending) != 0 {
		t.Error("dropped entry still pending")
	}
}

func TestRetryRespectsBackoff(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig(t)
	cfg.RetryBackoff = time.Hour
	w := openTestWAL(t, cfg)
	id, err := w.Write(ctx, testPayload{})
	if err != nil {
		t.Fatal(err)
	}
	w.Release(id)

	pub := &recordingPublisher{fail: errors.New("boom")}
	loop := NewRetryLoop(w, pub)
	if res := loop.RunOnce(ctx); res.Failed != 1 {
		t.Fatalf("first attempt: %+v", res)
	}
	if res := loop.RunOnce(ctx); res.Skipped != 1 {
		t.Fatalf("entry inside backoff window should be skipped, got %+v", res)
	}
}

func TestRetryServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	w := openTestWAL(t, testConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewRetryLoop(w, &recordingPublisher{}).Serve(ctx) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
