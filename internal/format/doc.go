// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package format converts a lightweight markup subset (bold, italic, inline
// code, strikethrough, newlines) into a small tagged display markup, and
// renders that markup to terminal styling through an explicit allow-list.
//
// Format is a single-pass transformation and is NOT idempotent: running it
// over text that already contains display markup may double-convert. Callers
// must apply it exactly once per content value - during streaming, to the
// whole accumulated buffer at each step, never to individual deltas.
package format
