// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package persist provides the local persistence gateway.
package persist

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/gbho-tui/internal/model"
)

// Slot names. The two collections are independent; clearing one never
// touches the other.
const (
	slotConversations = "conversations"
	slotMemories      = "memories"
)

// ErrClosed is returned by operations on a closed gateway.
var ErrClosed = errors.New("persist: gateway is closed")

// =============================================================================
// GATEWAY
// =============================================================================

// Gateway is the key-value persistence layer for conversations and memories.
type Gateway struct {
	db *sql.DB
}

// Open creates (or opens) the database at path and ensures the schema.
func Open(path string) (*Gateway, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS slots (
			name       TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Gateway{db: db}, nil
}

// Close releases the underlying database handle.
func (g *Gateway) Close() error {
	if g.db == nil {
		return nil
	}
	err := g.db.Close()
	g.db = nil
	return err
}

// =============================================================================
// SLOT PRIMITIVES
// =============================================================================

// loadSlot reads a slot's raw JSON. Returns nil with no error when the slot
// does not exist.
func (g *Gateway) loadSlot(name string) ([]byte, error) {
	if g.db == nil {
		return nil, ErrClosed
	}

	var value string
	err := g.db.QueryRow(`SELECT value FROM slots WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

// saveSlot upserts a slot's raw JSON.
func (g *Gateway) saveSlot(name string, value []byte) error {
	if g.db == nil {
		return ErrClosed
	}

	_, err := g.db.Exec(
		`INSERT INTO slots (name, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name, string(value), time.Now().Format(time.RFC3339),
	)
	return err
}

// clearSlot removes a slot entirely.
func (g *Gateway) clearSlot(name string) error {
	if g.db == nil {
		return ErrClosed
	}
	_, err := g.db.Exec(`DELETE FROM slots WHERE name = ?`, name)
	return err
}

// =============================================================================
// CONVERSATIONS SLOT
// =============================================================================

// LoadConversations returns the persisted conversation collection, or nil
// when nothing is stored. Malformed data is logged and treated as absent.
func (g *Gateway) LoadConversations() ([]*model.Conversation, error) {
	raw, err := g.loadSlot(slotConversations)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var conversations []*model.Conversation
	if err := json.Unmarshal(raw, &conversations); err != nil {
		log.Printf("persist: malformed conversations slot, treating as absent: %v", err)
		return nil, nil
	}
	return conversations, nil
}

// SaveConversations replaces the persisted conversation collection.
func (g *Gateway) SaveConversations(conversations []*model.Conversation) error {
	raw, err := json.Marshal(conversations)
	if err != nil {
		return err
	}
	return g.saveSlot(slotConversations, raw)
}

// ClearConversations removes all persisted conversations.
func (g *Gateway) ClearConversations() error {
	return g.clearSlot(slotConversations)
}

// =============================================================================
// MEMORIES SLOT
// =============================================================================

// LoadMemories returns the persisted memory list, or nil when nothing is
// stored. Malformed data is logged and treated as absent.
func (g *Gateway) LoadMemories() ([]*model.MemoryItem, error) {
	raw, err := g.loadSlot(slotMemories)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var items []*model.MemoryItem
	if err := json.Unmarshal(raw, &items); err != nil {
		log.Printf("persist: malformed memories slot, treating as absent: %v", err)
		return nil, nil
	}
	return items, nil
}

// SaveMemories replaces the persisted memory list.
func (g *Gateway) SaveMemories(items []*model.MemoryItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return g.saveSlot(slotMemories, raw)
}

// RemoveMemory deletes one memory by ID from the persisted list.
// Unknown IDs are a no-op.
func (g *Gateway) RemoveMemory(id string) error {
	items, err := g.LoadMemories()
	if err != nil {
		return err
	}

	kept := items[:0]
	for _, item := range items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	return g.SaveMemories(kept)
}

// ClearMemories removes the whole memory list.
func (g *Gateway) ClearMemories() error {
	return g.clearSlot(slotMemories)
}
