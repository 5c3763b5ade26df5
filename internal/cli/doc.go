// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the plain-terminal chat REPL used when stdout is
// not a TTY or when --plain is passed. It shares the store, memory cache,
// and generation controller with the TUI; only the presentation differs.
package cli
