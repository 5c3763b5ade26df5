// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// and global memories.
//
// # Key Types
//
//   - Message: a single chat message (user or assistant)
//   - Conversation: an ordered message history plus the server continuation
//     context carried between generation turns
//   - MemoryItem: a snippet of user text remembered across conversations
//
// Messages are immutable once appended, with one exception: the trailing
// assistant message of a conversation is mutated in place while a response
// is streaming.
package model
