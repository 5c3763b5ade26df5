// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package persist

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jeranaias/gbho-tui/internal/model"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	gw, err := Open(filepath.Join(t.TempDir(), "gbho.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { gw.Close() })
	return gw
}

// =============================================================================
// CONVERSATION SLOT TESTS
// =============================================================================

func TestGateway_ConversationsRoundTrip(t *testing.T) {
	gw := newTestGateway(t)

	conv := model.NewConversation()
	conv.Title = "Trip planning"
	conv.Context = []int{1, 2, 3}
	conv.Messages = append(conv.Messages,
		model.NewUserMessage("Where should I go?"),
		model.NewAssistantMessage(),
	)

	if err := gw.SaveConversations([]*model.Conversation{conv}); err != nil {
		t.Fatalf("SaveConversations failed: %v", err)
	}

	loaded, err := gw.LoadConversations()
	if err != nil {
		t.Fatalf("LoadConversations failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d conversations, want 1", len(loaded))
	}

	got := loaded[0]
	if got.ID != conv.ID || got.Title != conv.Title {
		t.Errorf("identity mismatch: got (%q, %q), want (%q, %q)", got.ID, got.Title, conv.ID, conv.Title)
	}
	if len(got.Context) != 3 || got.Context[2] != 3 {
		t.Errorf("Context = %v, want [1 2 3]", got.Context)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("loaded %d messages, want 2", len(got.Messages))
	}
	// Timestamps must resolve to equivalent instants, not necessarily the
	// same string representation.
	if !got.Messages[0].Timestamp.Equal(conv.Messages[0].Timestamp.Truncate(time.Nanosecond)) &&
		got.Messages[0].Timestamp.Unix() != conv.Messages[0].Timestamp.Unix() {
		t.Errorf("timestamp mismatch: got %v, want %v", got.Messages[0].Timestamp, conv.Messages[0].Timestamp)
	}
}

func TestGateway_LoadMissingIsNil(t *testing.T) {
	gw := newTestGateway(t)

	loaded, err := gw.LoadConversations()
	if err != nil {
		t.Fatalf("LoadConversations failed: %v", err)
	}
	if loaded != nil {
		t.Errorf("loaded = %v, want nil for missing slot", loaded)
	}
}

func TestGateway_MalformedSlotTreatedAsAbsent(t *testing.T) {
	gw := newTestGateway(t)

	if err := gw.saveSlot(slotConversations, []byte("{not json")); err != nil {
		t.Fatalf("saveSlot failed: %v", err)
	}

	loaded, err := gw.LoadConversations()
	if err != nil {
		t.Fatalf("LoadConversations should not fail on malformed data: %v", err)
	}
	if loaded != nil {
		t.Errorf("loaded = %v, want nil for malformed slot", loaded)
	}
}

func TestGateway_ClearConversations(t *testing.T) {
	gw := newTestGateway(t)

	if err := gw.SaveConversations([]*model.Conversation{model.NewConversation()}); err != nil {
		t.Fatalf("SaveConversations failed: %v", err)
	}
	if err := gw.ClearConversations(); err != nil {
		t.Fatalf("ClearConversations failed: %v", err)
	}

	loaded, err := gw.LoadConversations()
	if err != nil {
		t.Fatalf("LoadConversations failed: %v", err)
	}
	if loaded != nil {
		t.Errorf("loaded = %v, want nil after clear", loaded)
	}
}

// =============================================================================
// MEMORY SLOT TESTS
// =============================================================================

func TestGateway_MemoriesRoundTripAndRemove(t *testing.T) {
	gw := newTestGateway(t)

	a := model.NewMemoryItem("likes tea")
	b := model.NewMemoryItem("prefers short answers")
	if err := gw.SaveMemories([]*model.MemoryItem{a, b}); err != nil {
		t.Fatalf("SaveMemories failed: %v", err)
	}

	if err := gw.RemoveMemory(a.ID); err != nil {
		t.Fatalf("RemoveMemory failed: %v", err)
	}

	loaded, err := gw.LoadMemories()
	if err != nil {
		t.Fatalf("LoadMemories failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != b.ID {
		t.Fatalf("loaded = %v, want only %q", loaded, b.ID)
	}

	// Removing an unknown ID is a no-op.
	if err := gw.RemoveMemory("nope"); err != nil {
		t.Fatalf("RemoveMemory(unknown) failed: %v", err)
	}
}

func TestGateway_SlotsAreIndependent(t *testing.T) {
	gw := newTestGateway(t)

	if err := gw.SaveConversations([]*model.Conversation{model.NewConversation()}); err != nil {
		t.Fatalf("SaveConversations failed: %v", err)
	}
	if err := gw.SaveMemories([]*model.MemoryItem{model.NewMemoryItem("x")}); err != nil {
		t.Fatalf("SaveMemories failed: %v", err)
	}

	if err := gw.ClearMemories(); err != nil {
		t.Fatalf("ClearMemories failed: %v", err)
	}

	convs, err := gw.LoadConversations()
	if err != nil {
		t.Fatalf("LoadConversations failed: %v", err)
	}
	if len(convs) != 1 {
		t.Errorf("conversations slot disturbed by ClearMemories: %v", convs)
	}
}

func TestGateway_ClosedGateway(t *testing.T) {
	gw := newTestGateway(t)
	gw.Close()

	if _, err := gw.LoadConversations(); err == nil {
		t.Error("LoadConversations on closed gateway should fail")
	}
	if err := gw.SaveMemories(nil); err == nil {
		t.Error("SaveMemories on closed gateway should fail")
	}
}
