// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

/*
Package wal provides a durable write-ahead log for session ingestion, backed
by BadgerDB.

Sessions submitted over the API are written to the WAL before they are
appended to the CSV session log. Once the append succeeds the entry is
confirmed. If the process crashes in between, or the append fails, the entry
stays pending and is replayed by the RetryLoop through a Publisher.

Keys:

	pending:<id>    unconfirmed entry (JSON)
	confirmed:<id>  confirmed entry awaiting compaction

Entries returned by Write are claimed by the writer until Confirm or Release,
so the retry loop never replays an entry that is still in flight.
*/
package wal
