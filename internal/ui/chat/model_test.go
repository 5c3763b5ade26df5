// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/gbho-tui/internal/generate"
	"github.com/jeranaias/gbho-tui/internal/memory"
	"github.com/jeranaias/gbho-tui/internal/model"
	"github.com/jeranaias/gbho-tui/internal/store"
	"github.com/jeranaias/gbho-tui/internal/ui/styles"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

type nullGateway struct{}

func (nullGateway) LoadConversations() ([]*model.Conversation, error) { return nil, nil }
func (nullGateway) SaveConversations([]*model.Conversation) error     { return nil }
func (nullGateway) LoadMemories() ([]*model.MemoryItem, error)        { return nil, nil }
func (nullGateway) SaveMemories(items []*model.MemoryItem) error      { return nil }
func (nullGateway) RemoveMemory(id string) error                      { return nil }
func (nullGateway) ClearMemories() error                              { return nil }

func newTestModel(t *testing.T) Model {
	t.Helper()

	memories := memory.NewCache(nullGateway{})
	st := store.New(nullGateway{}, memories)
	client := generate.NewClient(generate.DefaultConfig())
	ctrl := generate.NewController(client, st, memories, nil)

	m := New(Options{
		Theme:       styles.NewTheme(),
		Store:       st,
		Controller:  ctrl,
		Client:      client,
		Memories:    memories,
		ModelName:   "gemma3:4b",
		ServerURL:   "http://127.0.0.1:11434",
		ShowSidebar: true,
	})

	// Give the model a realistic terminal size.
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model)
}

// =============================================================================
// TESTS
// =============================================================================

func TestViewShowsWelcomeWhenEmpty(t *testing.T) {
	m := newTestModel(t)
	m.store.NewConversation()
	m.refreshViewport()

	view := m.View()
	assert.Contains(t, view, "gbho")
	assert.Contains(t, view, "#remember")
}

func TestRenderMessagesShowsBothRoles(t *testing.T) {
	m := newTestModel(t)
	m.store.NewConversation()
	m.store.AddUserMessage("What is Go?")
	msg := m.store.AddAssistantMessage()
	m.store.UpdateTurnMessage(m.store.ActiveID(), msg.ID, "A programming language.", false)

	out := m.renderMessages()
	assert.Contains(t, out, "What is Go?")
	assert.Contains(t, out, "A programming language.")
}

func TestRenderMessagesKeepsStreamMarker(t *testing.T) {
	m := newTestModel(t)
	m.store.NewConversation()
	m.store.AddUserMessage("hello")
	msg := m.store.AddAssistantMessage()
	m.store.UpdateTurnMessage(m.store.ActiveID(), msg.ID, "partial answ", true)

	out := m.renderMessages()
	assert.Contains(t, out, store.StreamMarker)
}

func TestSwitchConversationClampsAtEnds(t *testing.T) {
	m := newTestModel(t)
	first := m.store.NewConversation()
	second := m.store.NewConversation()

	// Newest conversation sits at the front of the list and is active.
	require.Equal(t, second.ID, m.store.ActiveID())

	m.switchConversation(-1)
	assert.Equal(t, second.ID, m.store.ActiveID(), "moving before the first entry stays put")

	m.switchConversation(1)
	assert.Equal(t, first.ID, m.store.ActiveID())

	m.switchConversation(1)
	assert.Equal(t, first.ID, m.store.ActiveID(), "moving past the last entry stays put")
}

func TestFailedTurnRaisesToast(t *testing.T) {
	m := newTestModel(t)
	m.store.NewConversation()

	updated, _ := m.Update(TurnEventMsg{Event: generate.Event{
		State: generate.StateFailed,
		Err:   assert.AnError,
	}})
	m = updated.(Model)

	assert.True(t, m.HasToasts())
}

func TestDeleteConfirmFlow(t *testing.T) {
	m := newTestModel(t)
	conv := m.store.NewConversation()
	require.Equal(t, 1, m.store.Len())

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlX})
	m = updated.(Model)
	assert.Equal(t, modeConfirmDelete, m.mode)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	m = updated.(Model)
	assert.Equal(t, modeChat, m.mode)
	assert.Equal(t, 1, m.store.Len(), "declining keeps the conversation")

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlX})
	m = updated.(Model)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	m = updated.(Model)

	// Deleting the last conversation seeds a fresh empty one.
	require.Equal(t, 1, m.store.Len())
	require.NotNil(t, m.store.Active())
	assert.NotEqual(t, conv.ID, m.store.Active().ID)
	assert.True(t, m.store.Active().IsEmpty())
}

func TestRenameFlow(t *testing.T) {
	m := newTestModel(t)
	conv := m.store.NewConversation()

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	m = updated.(Model)
	require.Equal(t, modeRename, m.mode)

	m.renameInput.SetValue("Trip planning")
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	assert.Equal(t, modeChat, m.mode)
	assert.Equal(t, "Trip planning", m.store.Active().Title)
	_ = conv
}

func TestHelpOverlayListsBindings(t *testing.T) {
	m := newTestModel(t)
	m.mode = modeHelp

	view := m.View()
	assert.Contains(t, view, "Keyboard shortcuts")
	// Strip styling noise before asserting on hint text.
	assert.True(t, strings.Contains(view, "new conversation"))
}

func TestSidebarMarksActiveConversation(t *testing.T) {
	m := newTestModel(t)
	m.store.NewConversation()
	m.store.Rename(m.store.ActiveID(), "Groceries")

	sidebar := m.renderSidebar(20)
	assert.Contains(t, sidebar, "Groceries")
}
