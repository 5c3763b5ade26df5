// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides shared UI components for the gbho TUI:
// non-blocking toast notifications and the welcome screen shown when no
// conversation has any messages yet.
package components
