// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea model for the gbho chat interface.
//
// The layout is a conversation sidebar next to a scrollable message viewport,
// with a single-line input and a status bar underneath. Generation runs
// outside the Bubble Tea loop; the controller pushes TurnEventMsg values into
// the program, and the model repaints the trailing assistant bubble as
// fragments arrive.
package chat
