// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/respira/internal/mood/storage"
)

// newTestServer upgrades every request and attaches it to hub.
func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Attach(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func runHub(t *testing.T, hub *Hub) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestHubBroadcastsModelUpdates(t *testing.T) {
	hub := NewHub()
	runHub(t, hub)
	srv := newTestServer(t, hub)

	a := dial(t, srv)
	b := dial(t, srv)
	waitForClients(t, hub, 2)

	hub.ModelUpdated(storage.Metadata{Version: 3, Mode: storage.ModeBatch, SampleCount: 40})

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		if msg["type"] != MessageTypeModelUpdated {
			t.Errorf("type = %v, want %s", msg["type"], MessageTypeModelUpdated)
		}
		data, _ := msg["data"].(map[string]any)
		if data["version"] != float64(3) || data["mode"] != storage.ModeBatch {
			t.Errorf("data = %v", data)
		}
	}
}

func TestHubTrainingFailed(t *testing.T) {
	hub := NewHub()
	runHub(t, hub)
	conn := dial(t, newTestServer(t, hub))
	waitForClients(t, hub, 1)

	hub.TrainingFailed("batch", errors.New("disk full"))

	msg := readMessage(t, conn)
	data, _ := msg["data"].(map[string]any)
	if msg["type"] != MessageTypeTrainingFailed || data["error"] != "disk full" {
		t.Errorf("message = %v", msg)
	}
}

func TestClientPingPong(t *testing.T) {
	hub := NewHub()
	runHub(t, hub)
	conn := dial(t, newTestServer(t, hub))
	waitForClients(t, hub, 1)

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatal(err)
	}
	if msg := readMessage(t, conn); msg["type"] != MessageTypePong {
		t.Errorf("type = %v, want pong", msg["type"])
	}
}

func TestClientDisconnectDetaches(t *testing.T) {
	hub := NewHub()
	runHub(t, hub)
	conn := dial(t, newTestServer(t, hub))
	waitForClients(t, hub, 1)

	_ = conn.Close()
	waitForClients(t, hub, 0)
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	cancel := runHub(t, hub)
	conn := dial(t, newTestServer(t, hub))
	waitForClients(t, hub, 1)

	cancel()
	waitForClients(t, hub, 0)

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to be closed after hub shutdown")
	}
}

func TestBroadcastDropsWhenFull(t *testing.T) {
	hub := NewHub()
	for i := 0; i < cap(hub.broadcast); i++ {
		if !hub.Broadcast(MessageTypePing, nil) {
			t.Fatalf("broadcast %d dropped before buffer was full", i)
		}
	}
	if hub.Broadcast(MessageTypePing, nil) {
		t.Error("broadcast on a full buffer should report false")
	}
}
