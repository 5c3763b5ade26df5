// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/gbho-tui/internal/memory"
	"github.com/jeranaias/gbho-tui/internal/model"
)

// fakeGateway records saves and serves a canned load result.
type fakeGateway struct {
	loaded  []*model.Conversation
	loadErr error
	saved   [][]*model.Conversation
	saveErr error
}

func (f *fakeGateway) LoadConversations() ([]*model.Conversation, error) {
	return f.loaded, f.loadErr
}

func (f *fakeGateway) SaveConversations(convs []*model.Conversation) error {
	f.saved = append(f.saved, convs)
	return f.saveErr
}

// fakeMemoryGateway satisfies memory.Gateway with no persistence.
type fakeMemoryGateway struct {
	items []*model.MemoryItem
}

func (f *fakeMemoryGateway) LoadMemories() ([]*model.MemoryItem, error) { return f.items, nil }
func (f *fakeMemoryGateway) SaveMemories(items []*model.MemoryItem) error {
	f.items = items
	return nil
}
func (f *fakeMemoryGateway) RemoveMemory(id string) error { return nil }
func (f *fakeMemoryGateway) ClearMemories() error         { return nil }

func newTestStore() (*Store, *fakeGateway) {
	gw := &fakeGateway{}
	return New(gw, memory.NewCache(&fakeMemoryGateway{})), gw
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestNewConversation_FrontInsertAndActivate(t *testing.T) {
	s, gw := newTestStore()

	first := s.NewConversation()
	second := s.NewConversation()

	convs := s.Conversations()
	require.Len(t, convs, 2)
	assert.Equal(t, second.ID, convs[0].ID, "newest conversation should be first")
	assert.Equal(t, first.ID, convs[1].ID)
	assert.Equal(t, second.ID, s.ActiveID())
	assert.Equal(t, model.DefaultTitle, second.Title)
	assert.NotEmpty(t, gw.saved, "each mutation should persist")
}

func TestNewConversation_ClearsWaiting(t *testing.T) {
	s, _ := newTestStore()
	s.SetWaiting(true)

	s.NewConversation()

	assert.False(t, s.Waiting())
}

func TestDelete_ActivePromotesFront(t *testing.T) {
	s, _ := newTestStore()
	first := s.NewConversation()
	second := s.NewConversation()

	s.Delete(second.ID)

	assert.Equal(t, first.ID, s.ActiveID())
	assert.Equal(t, 1, s.Len())
}

func TestDelete_LastLeavesNoActive(t *testing.T) {
	s, _ := newTestStore()
	conv := s.NewConversation()

	s.Delete(conv.ID)

	assert.Equal(t, "", s.ActiveID())
	assert.Nil(t, s.Active())
	assert.Equal(t, 0, s.Len())
}

func TestDelete_InactiveKeepsSelection(t *testing.T) {
	s, _ := newTestStore()
	first := s.NewConversation()
	second := s.NewConversation()

	s.Delete(first.ID)

	assert.Equal(t, second.ID, s.ActiveID())
}

func TestDelete_UnknownIsNoop(t *testing.T) {
	s, gw := newTestStore()
	s.NewConversation()
	saves := len(gw.saved)

	s.Delete("nope")

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, saves, len(gw.saved), "no-op should not persist")
}

func TestRename(t *testing.T) {
	s, _ := newTestStore()
	conv := s.NewConversation()

	s.Rename(conv.ID, "Trip planning")
	assert.Equal(t, "Trip planning", s.Active().Title)

	s.Rename(conv.ID, "")
	assert.Equal(t, "Trip planning", s.Active().Title, "empty title ignored")

	s.Rename("nope", "x") // must not panic
}

func TestLoad_ActivatesMostRecent(t *testing.T) {
	a := model.NewConversation()
	b := model.NewConversation()
	gw := &fakeGateway{loaded: []*model.Conversation{a, b}}
	s := New(gw, nil)

	s.Load()

	assert.Equal(t, a.ID, s.ActiveID())
	assert.Equal(t, 2, s.Len())
}

func TestLoad_ErrorYieldsEmpty(t *testing.T) {
	gw := &fakeGateway{loadErr: errors.New("corrupt")}
	s := New(gw, nil)

	s.Load()

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, "", s.ActiveID())
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestAddUserMessage_ExtractsMemories(t *testing.T) {
	s, _ := newTestStore()
	mgw := &fakeMemoryGateway{}
	s.memories = memory.NewCache(mgw)
	s.NewConversation()

	msg := s.AddUserMessage("Plan my day. #remember I get up at 6am")

	require.NotNil(t, msg)
	assert.Equal(t, "Plan my day. I get up at 6am", msg.Content,
		"the tag is stripped but the captured text stays in the message")
	require.Equal(t, 1, s.memories.Len())
	assert.Equal(t, "I get up at 6am", s.memories.Items()[0].Content)
}

func TestAddUserMessage_NoActiveConversation(t *testing.T) {
	s, _ := newTestStore()

	assert.Nil(t, s.AddUserMessage("hello"))
}

func TestAddAssistantMessage_Placeholder(t *testing.T) {
	s, _ := newTestStore()
	s.NewConversation()

	msg := s.AddAssistantMessage()

	require.NotNil(t, msg)
	assert.Equal(t, model.RoleAssistant, msg.Role)
	assert.True(t, msg.IsEmpty())
}

func TestUpdateTurnMessage_StreamMarker(t *testing.T) {
	s, _ := newTestStore()
	conv := s.NewConversation()
	msg := s.AddAssistantMessage()

	s.UpdateTurnMessage(conv.ID, msg.ID, "Hello", true)
	assert.Equal(t, "Hello"+StreamMarker, s.Conversation(conv.ID).MessageByID(msg.ID).Content)

	s.UpdateTurnMessage(conv.ID, msg.ID, "Hello there", false)
	assert.Equal(t, "Hello there", s.Conversation(conv.ID).MessageByID(msg.ID).Content)
}

func TestUpdateTurnMessage_SurvivesConversationSwitch(t *testing.T) {
	s, _ := newTestStore()
	first := s.NewConversation()
	msg := s.AddAssistantMessage()
	s.NewConversation()

	// The turn keeps writing into its own conversation even though the
	// user has switched away.
	s.UpdateTurnMessage(first.ID, msg.ID, "still here", false)

	assert.Equal(t, "still here", s.Conversation(first.ID).MessageByID(msg.ID).Content)
}

func TestUpdateTurnMessage_DeletedConversationIsNoop(t *testing.T) {
	s, _ := newTestStore()
	conv := s.NewConversation()
	msg := s.AddAssistantMessage()
	s.Delete(conv.ID)

	s.UpdateTurnMessage(conv.ID, msg.ID, "lost", true) // must not panic
}

func TestSetContext_Replaces(t *testing.T) {
	s, _ := newTestStore()
	conv := s.NewConversation()

	s.SetContext(conv.ID, []int{1, 2})
	s.SetContext(conv.ID, []int{9})

	assert.Equal(t, []int{9}, s.Conversation(conv.ID).Context, "context is replaced, not merged")
}

// =============================================================================
// SNAPSHOT ISOLATION
// =============================================================================

func TestAccessorsReturnSnapshots(t *testing.T) {
	s, _ := newTestStore()
	conv := s.NewConversation()
	msg := s.AddAssistantMessage()

	// A snapshot taken before a mutation keeps its old content, and
	// writing through a snapshot never reaches the store.
	before := s.Active()
	s.UpdateTurnMessage(conv.ID, msg.ID, "streamed text", true)

	assert.True(t, before.MessageByID(msg.ID).IsEmpty(),
		"earlier snapshot must not see later mutations")

	after := s.Active()
	after.MessageByID(msg.ID).Content = "tampered"
	after.Title = "tampered"
	assert.Equal(t, "streamed text"+StreamMarker, s.Conversation(conv.ID).MessageByID(msg.ID).Content)
	assert.Equal(t, model.DefaultTitle, s.Conversation(conv.ID).Title)

	list := s.Conversations()
	list[0].Title = "tampered again"
	assert.Equal(t, model.DefaultTitle, s.Conversation(conv.ID).Title)
}
