// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// and global memories.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/gbho-tui/internal/util"
)

// DefaultTitle is the placeholder title for conversations that have not been
// renamed yet.
const DefaultTitle = "New conversation"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds an ordered chat history plus the opaque continuation
// context returned by the inference server.
//
// Invariants: Messages ordering is chronological and stable; Context always
// reflects the most recent successfully-received (or explicitly saved) server
// continuation state, never a half-applied partial.
type Conversation struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	LastMessageTime time.Time  `json:"lastMessageTime"`
	Messages        []*Message `json:"messages"`

	// Context is opaque to the client; it is threaded back to the server on
	// the next generation request so the model remembers prior turns.
	Context []int `json:"context,omitempty"`
}

// NewConversation creates a new empty conversation with a generated ID and
// the default placeholder title.
func NewConversation() *Conversation {
	return &Conversation{
		ID:              uuid.NewString(),
		Title:           DefaultTitle,
		LastMessageTime: time.Now(),
		Messages:        make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE ACCESS
// =============================================================================

// LastMessage returns the most recent message, or nil if empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// MessageByID returns a message by its ID, or nil when unknown.
func (c *Conversation) MessageByID(id string) *Message {
	for _, msg := range c.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// =============================================================================
// PRESENTATION HELPERS
// =============================================================================

// Preview returns a short single-line preview from the first user message,
// for the sidebar list.
func (c *Conversation) Preview(maxLen int) string {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			line := util.FirstLine(strings.TrimSpace(msg.Content))
			line = strings.TrimSuffix(line, "\r")
			runes := []rune(line)
			if len(runes) > maxLen && maxLen > 3 {
				return util.TruncateRunes(line, maxLen-3) + "..."
			}
			return line
		}
	}
	return ""
}

// Clone creates a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	clone := &Conversation{
		ID:              c.ID,
		Title:           c.Title,
		LastMessageTime: c.LastMessageTime,
		Messages:        make([]*Message, len(c.Messages)),
	}
	if c.Context != nil {
		clone.Context = append([]int(nil), c.Context...)
	}
	for i, msg := range c.Messages {
		msgCopy := *msg
		clone.Messages[i] = &msgCopy
	}
	return clone
}
