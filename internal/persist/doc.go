// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package persist provides the local persistence gateway.
//
// State lives in two independent string-keyed slots of a SQLite database:
// one for the conversation collection, one for the global memory list. Each
// slot holds a JSON array; timestamps are serialized as RFC 3339 strings and
// parsed back to instants on load.
//
// Missing or malformed slot data is treated as absent, never as a fatal
// error: Load operations return a nil collection and the caller starts
// fresh. Save failures are surfaced as errors so call sites can log and
// degrade to no-ops.
package persist
