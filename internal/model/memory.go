// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// and global memories.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// MEMORY ITEM TYPE
// =============================================================================

// MemoryItem is a snippet of user text captured with the remember tag.
// Memories are global to the user and independent of any conversation.
type MemoryItem struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMemoryItem creates a new memory item with a generated ID and the
// current time.
func NewMemoryItem(content string) *MemoryItem {
	return &MemoryItem{
		ID:        uuid.NewString(),
		Content:   content,
		Timestamp: time.Now(),
	}
}
