// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/respira/internal/logging"
	"github.com/tomtom215/respira/internal/mood/storage"
)

// Message types.
const (
	MessageTypeModelUpdated   = "model_updated"
	MessageTypeTrainingFailed = "training_failed"
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
)

// Message is the envelope written to clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ModelUpdate is the payload of a model_updated message.
type ModelUpdate struct {
	Version         int       `json:"version"`
	Mode            string    `json:"mode"`
	TrainedAt       time.Time `json:"trained_at"`
	SampleCount     int       `json:"sample_count"`
	HoldoutAccuracy float64   `json:"holdout_accuracy,omitempty"`
}

// TrainingFailure is the payload of a training_failed message.
type TrainingFailure struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// Hub tracks attached clients and broadcasts messages to them.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*Client]struct{}
	broadcast chan Message
	logger    zerolog.Logger
}

// NewHub creates a hub. Broadcasts are buffered until Serve drains them.
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		broadcast: make(chan Message, 256),
		logger:    logging.WithComponent("websocket-hub"),
	}
}

// Attach registers conn as a client and starts its pumps.
func (h *Hub) Attach(conn *websocket.Conn) *Client {
	c := newClient(h, conn)
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Uint64("client", c.id).Int("total_clients", total).Msg("websocket client connected")
	c.start()
	return c
}

// detach removes c and closes its send channel. Safe to call repeatedly.
func (h *Hub) detach(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.logger.Debug().Uint64("client", c.id).Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// sendTo delivers msg to a single attached client without blocking.
// send is only closed under h.mu, so holding the read lock makes the send safe.
func (h *Hub) sendTo(c *Client, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// ClientCount returns the number of attached clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues a message for every client. It reports false when the
// broadcast buffer is full and the message was dropped.
func (h *Hub) Broadcast(msgType string, data any) bool {
	select {
	case h.broadcast <- Message{Type: msgType, Data: data}:
		return true
	default:
		h.logger.Warn().Str("message_type", msgType).Msg("broadcast channel full, dropping message")
		return false
	}
}

// ModelUpdated announces a newly persisted artifact.
func (h *Hub) ModelUpdated(meta storage.Metadata) {
	h.Broadcast(MessageTypeModelUpdated, ModelUpdate{
		Version:         meta.Version,
		Mode:            meta.Mode,
		TrainedAt:       meta.TrainedAt,
		SampleCount:     meta.SampleCount,
		HoldoutAccuracy: meta.Accuracy,
	})
}

// TrainingFailed announces a failed training run.
func (h *Hub) TrainingFailed(kind string, err error) {
	h.Broadcast(MessageTypeTrainingFailed, TrainingFailure{Kind: kind, Error: err.Error()})
}

// Serve implements suture.Service. On cancellation every client is closed.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			n := h.closeAll()
			h.logger.Info().Int("clients_closed", n).Msg("websocket hub stopped")
			return ctx.Err()
		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) String() string { return "websocket-hub" }

// sortedClients returns clients in connection order. Callers hold h.mu.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	return clients
}

func (h *Hub) fanOut(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.sortedClients() {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			close(c.send)
			h.logger.Warn().Uint64("client", c.id).Msg("websocket client too slow, dropped")
		}
	}
}

func (h *Hub) closeAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.sortedClients()
	for _, c := range clients {
		delete(h.clients, c)
		close(c.send)
	}
	return len(clients)
}
