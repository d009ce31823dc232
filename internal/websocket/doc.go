// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

/*
Package websocket streams model lifecycle events to connected clients.

The Hub runs as a supervised service and fans each broadcast out to every
attached Client. Each Client owns two goroutines: a write pump that forwards
messages and sends keepalive pings, and a read pump that answers application
pings and detects disconnects.

Message types:

  - model_updated: a training run persisted a new artifact (ModelUpdate)
  - training_failed: a training run returned an error (TrainingFailure)
  - ping / pong: application-level keepalive

Slow clients whose send buffer fills up are dropped rather than blocking
the broadcast.
*/
package websocket
