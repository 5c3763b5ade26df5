// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"log"
	"sync"
	"time"

	"github.com/jeranaias/gbho-tui/internal/memory"
	"github.com/jeranaias/gbho-tui/internal/model"
)

// StreamMarker is appended to the trailing assistant message while a
// response is still arriving.
const StreamMarker = "▌"

// Gateway persists the conversation list. persist.Gateway satisfies it.
type Gateway interface {
	LoadConversations() ([]*model.Conversation, error)
	SaveConversations([]*model.Conversation) error
}

// =============================================================================
// STORE
// =============================================================================

// Store is the single source of truth for conversation state.
// All methods are safe for concurrent use.
type Store struct {
	mu sync.Mutex

	conversations []*model.Conversation
	activeID      string
	waiting       bool

	gw       Gateway
	memories *memory.Cache
}

// New creates a store backed by the given gateway and memory cache.
// The memory cache may be nil, in which case #remember extraction still
// strips triggers from user messages but the spans are discarded.
func New(gw Gateway, memories *memory.Cache) *Store {
	return &Store{gw: gw, memories: memories}
}

// Load replaces the conversation list with the persisted one. A missing or
// unreadable snapshot yields an empty list. The most recent conversation
// becomes active.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs, err := s.gw.LoadConversations()
	if err != nil {
		log.Printf("store: load conversations: %v", err)
		convs = nil
	}
	s.conversations = convs
	s.activeID = ""
	if len(convs) > 0 {
		s.activeID = convs[0].ID
	}
}

// persistLocked writes the current list through the gateway.
// Callers must hold s.mu.
func (s *Store) persistLocked() {
	if err := s.gw.SaveConversations(s.conversations); err != nil {
		log.Printf("store: save conversations: %v", err)
	}
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

// NewConversation creates an empty conversation, inserts it at the front of
// the list, makes it active, and clears the waiting flag. Returns a snapshot
// of the new conversation.
func (s *Store) NewConversation() *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := model.NewConversation()
	s.conversations = append([]*model.Conversation{conv}, s.conversations...)
	s.activeID = conv.ID
	s.waiting = false
	s.persistLocked()
	return conv.Clone()
}

// Delete removes the conversation with the given ID. Deleting the active
// conversation promotes the new front of the list; deleting the last
// conversation leaves no active selection. Unknown IDs are ignored.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return
	}
	s.conversations = append(s.conversations[:idx], s.conversations[idx+1:]...)
	if s.activeID == id {
		s.activeID = ""
		if len(s.conversations) > 0 {
			s.activeID = s.conversations[0].ID
		}
	}
	s.persistLocked()
}

// Rename sets the title of the conversation with the given ID.
// Unknown IDs and empty titles are ignored.
func (s *Store) Rename(id, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if title == "" {
		return
	}
	if conv := s.findLocked(id); conv != nil {
		conv.Title = title
		s.persistLocked()
	}
}

// SetActive switches the active conversation. Unknown IDs are ignored.
func (s *Store) SetActive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(id) != nil {
		s.activeID = id
	}
}

// Active returns a deep snapshot of the active conversation, or nil when
// none is selected. Accessors never hand out live pointers: a turn goroutine
// may be mutating the trailing message at any moment, so readers get copies.
func (s *Store) Active() *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.findLocked(s.activeID)
	if conv == nil {
		return nil
	}
	return conv.Clone()
}

// Conversation returns a deep snapshot of the conversation with the given
// ID, or nil when it does not exist.
func (s *Store) Conversation(id string) *model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.findLocked(id)
	if conv == nil {
		return nil
	}
	return conv.Clone()
}

// ActiveID returns the ID of the active conversation ("" when none).
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Conversations returns deep snapshots of the list in display order.
func (s *Store) Conversations() []*model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Conversation, len(s.conversations))
	for i, conv := range s.conversations {
		out[i] = conv.Clone()
	}
	return out
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// =============================================================================
// MESSAGES
// =============================================================================

// AddUserMessage appends a user message to the active conversation.
// Any #remember spans are extracted into the memory cache and the cleaned
// text is what gets stored. Returns a snapshot of the stored message, or
// nil when no conversation is active.
func (s *Store) AddUserMessage(content string) *model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(s.activeID)
	if conv == nil {
		return nil
	}

	cleaned, spans := memory.Extract(content)
	if s.memories != nil {
		for _, span := range spans {
			s.memories.Add(span)
		}
	}

	msg := model.NewUserMessage(cleaned)
	conv.Messages = append(conv.Messages, msg)
	conv.LastMessageTime = time.Now()
	s.persistLocked()
	snap := *msg
	return &snap
}

// AddAssistantMessage appends an empty assistant placeholder to the active
// conversation and returns a snapshot of it, or nil when no conversation is
// active.
func (s *Store) AddAssistantMessage() *model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(s.activeID)
	if conv == nil {
		return nil
	}

	msg := model.NewAssistantMessage()
	conv.Messages = append(conv.Messages, msg)
	conv.LastMessageTime = time.Now()
	s.persistLocked()
	snap := *msg
	return &snap
}

// UpdateTurnMessage replaces the content of a specific message in a specific
// conversation. While streaming is true the stream marker is appended to the
// stored content. The update is a no-op when the conversation or message no
// longer exists, so a turn whose conversation was deleted mid-stream
// silently discards its output.
func (s *Store) UpdateTurnMessage(convID, msgID, content string, streaming bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(convID)
	if conv == nil {
		return
	}
	msg := conv.MessageByID(msgID)
	if msg == nil {
		return
	}
	if streaming {
		msg.Content = content + StreamMarker
	} else {
		msg.Content = content
	}
	conv.LastMessageTime = time.Now()
	s.persistLocked()
}

// SetContext replaces the stored generation context of a conversation.
// The server returns a full context with each completed response, so the
// slice is replaced rather than merged.
func (s *Store) SetContext(convID string, ctx []int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(convID)
	if conv == nil {
		return
	}
	conv.Context = ctx
	s.persistLocked()
}

// =============================================================================
// WAITING FLAG
// =============================================================================

// Waiting reports whether a generation turn is in flight.
func (s *Store) Waiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting
}

// SetWaiting sets the in-flight flag.
func (s *Store) SetWaiting(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiting = v
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) findLocked(id string) *model.Conversation {
	if id == "" {
		return nil
	}
	for _, c := range s.conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *Store) indexLocked(id string) int {
	for i, c := range s.conversations {
		if c.ID == id {
			return i
		}
	}
	return -1
}
