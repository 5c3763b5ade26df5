// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across the application:
// display-width-aware string shaping for the TUI and crash-safe file
// writing for exports.
package util
