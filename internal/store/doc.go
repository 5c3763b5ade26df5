// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the in-memory conversation state shared between the
// UI and the generation controller.
//
// The Store owns the conversation list, the active conversation selection,
// and the waiting flag that gates concurrent turns. Every mutation persists
// the full conversation list through the configured gateway; persistence
// failures are logged and the in-memory state stays authoritative for the
// rest of the session.
package store
