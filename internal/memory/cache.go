// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package memory implements the remember-tag extraction scanner and the
// in-memory cache of global memories.
package memory

import (
	"log"
	"strings"
	"sync"

	"github.com/jeranaias/gbho-tui/internal/model"
)

// =============================================================================
// GATEWAY INTERFACE
// =============================================================================

// Gateway is the slice of the persistence gateway the cache needs.
type Gateway interface {
	LoadMemories() ([]*model.MemoryItem, error)
	SaveMemories(items []*model.MemoryItem) error
	RemoveMemory(id string) error
	ClearMemories() error
}

// =============================================================================
// MEMORY CACHE
// =============================================================================

// Cache holds the global memory list and keeps the gateway in sync.
// Persistence failures are logged and degrade to no-ops; the in-memory
// state stays authoritative for the session.
type Cache struct {
	mu    sync.Mutex
	gw    Gateway
	items []*model.MemoryItem
}

// NewCache creates a cache backed by the given gateway and loads the
// persisted memories. A load failure starts the cache empty.
func NewCache(gw Gateway) *Cache {
	c := &Cache{gw: gw}
	c.Reload()
	return c
}

// Reload replaces the cached list with the persisted one.
func (c *Cache) Reload() {
	items, err := c.gw.LoadMemories()
	if err != nil {
		log.Printf("memory: load failed, starting empty: %v", err)
		items = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
}

// Items returns a snapshot of the current memories, most recent last.
func (c *Cache) Items() []*model.MemoryItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*model.MemoryItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of stored memories.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Add stores a new memory and persists the updated list.
func (c *Cache) Add(content string) *model.MemoryItem {
	item := model.NewMemoryItem(content)

	c.mu.Lock()
	c.items = append(c.items, item)
	snapshot := make([]*model.MemoryItem, len(c.items))
	copy(snapshot, c.items)
	c.mu.Unlock()

	if err := c.gw.SaveMemories(snapshot); err != nil {
		log.Printf("memory: save failed: %v", err)
	}
	return item
}

// Remove deletes one memory by ID.
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	for i, item := range c.items {
		if item.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	if err := c.gw.RemoveMemory(id); err != nil {
		log.Printf("memory: remove failed: %v", err)
	}
}

// Clear deletes all memories.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()

	if err := c.gw.ClearMemories(); err != nil {
		log.Printf("memory: clear failed: %v", err)
	}
}

// =============================================================================
// PROMPT PREAMBLE
// =============================================================================

// Preamble serializes the memory contents into a contextual block to prepend
// before a user prompt. Returns "" when no memories exist.
func (c *Cache) Preamble() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Things the user has previously asked you to remember:\n")
	for _, item := range c.items {
		sb.WriteString("- ")
		sb.WriteString(item.Content)
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	return sb.String()
}
