// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package generate talks to the local inference server and drives the
// lifecycle of a single generation turn.
//
// The Client wraps the HTTP surface: a health check, a non-streaming
// generate call, and a streaming call that decodes newline-delimited JSON
// fragments. The Controller sits above it and owns the turn state machine
// (Idle, Requesting, Streaming, and the settled states Completed, Cancelled
// and Failed), including memory-preamble injection, incremental formatting
// of the trailing message, continuation-context bookkeeping, and
// cancellation.
package generate
