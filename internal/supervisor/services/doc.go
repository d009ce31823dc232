// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

/*
Package services adapts Respira's long-running components to suture.Service.

  - HTTPServerService wraps *http.Server (ListenAndServe plus graceful Shutdown)
  - TrainingWorker runs batch and incremental training off the request path

The WAL retry loop and compactor in internal/wal implement suture.Service
directly and are added to the data layer without a wrapper.
*/
package services
