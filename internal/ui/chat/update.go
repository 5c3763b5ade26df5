// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/gbho-tui/internal/generate"
	"github.com/jeranaias/gbho-tui/internal/model"
	"github.com/jeranaias/gbho-tui/internal/ui/components"
	"github.com/jeranaias/gbho-tui/internal/ui/styles"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TurnEventMsg:
		return m.handleTurnEvent(msg)

	case StreamTickMsg:
		return m.handleStreamTick()

	case ServerStatusMsg:
		m.reachable = msg.Reachable
		return m, healthTickCmd()

	case healthProbeMsg:
		return m, checkServerCmd(m.client)

	case ConfigReloadedMsg:
		return m.handleConfigReload(msg)

	case spinner.TickMsg:
		if m.store.Waiting() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case components.ToastTickMsg:
		if m.toasts != nil {
			m.toasts.TickToasts()
			if m.toasts.HasToasts() {
				return m, components.ToastTickCmd()
			}
		}
		return m, nil

	case components.ToastDismissMsg:
		if m.toasts != nil {
			m.toasts.RemoveToast(msg.ID)
		}
		return m, nil

	default:
		if m.mode == modeChat {
			var inputCmd tea.Cmd
			m.input, inputCmd = m.input.Update(msg)
			cmds = append(cmds, inputCmd)
		}

		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		cmds = append(cmds, vpCmd)

		return m, tea.Batch(cmds...)
	}
}

// =============================================================================
// GENERATION EVENT HANDLING
// =============================================================================

func (m Model) handleTurnEvent(msg TurnEventMsg) (tea.Model, tea.Cmd) {
	ev := msg.Event

	switch ev.State {
	case generate.StateRequesting:
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, tea.Batch(m.spinner.Tick, streamTickCmd())

	case generate.StateStreaming:
		// Repaint immediately when the limiter allows it; otherwise mark
		// dirty and let the tick flush it.
		if ev.ConvID == m.store.ActiveID() {
			if m.renderLimiter.Allow() {
				m.refreshViewport()
				m.viewport.GotoBottom()
				m.streamDirty = false
			} else {
				m.streamDirty = true
			}
		}
		return m, nil

	case generate.StateCompleted, generate.StateCancelled:
		m.streamDirty = false
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case generate.StateFailed:
		m.streamDirty = false
		m.refreshViewport()
		m.viewport.GotoBottom()
		if m.toasts != nil && ev.Err != nil {
			m.toasts.AddError(ev.Err.Error())
			return m, components.ToastTickCmd()
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if m.streamDirty {
		m.refreshViewport()
		m.viewport.GotoBottom()
		m.streamDirty = false
	}

	// Keep ticking only while a turn is in flight.
	if m.store.Waiting() {
		return m, streamTickCmd()
	}
	return m, nil
}

func (m Model) handleConfigReload(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Config == nil {
		return m, nil
	}

	m.modelName = msg.Config.Server.Model
	m.serverURL = msg.Config.Server.URL
	m.sidebarVisible = msg.Config.UI.ShowSidebar

	if m.toasts != nil {
		m.toasts.AddStatus("Configuration reloaded")
		return m, components.ToastTickCmd()
	}
	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Emergency exit works in every mode.
	if key.Matches(msg, m.keyMap.Quit) {
		m.controller.Stop()
		return m, tea.Quit
	}

	switch m.mode {
	case modeRename:
		return m.handleRenameKey(msg)
	case modeConfirmDelete:
		return m.handleConfirmDeleteKey(msg)
	case modeMemories:
		return m.handleMemoriesKey(msg)
	case modeHelp:
		return m.handleHelpKey(msg)
	}

	return m.handleChatKey(msg)
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyStr := msg.String()

	switch {
	case keyStr == "ctrl+c":
		if m.store.Waiting() {
			m.controller.Stop()
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Stop):
		if m.store.Waiting() {
			m.controller.Stop()
			return m, nil
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		if strings.TrimSpace(m.input.Value()) != "" {
			return m.submitInput()
		}
		return m, nil

	case key.Matches(msg, m.keyMap.NewConversation):
		m.store.NewConversation()
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keyMap.DeleteConversation):
		if m.store.Active() != nil {
			m.mode = modeConfirmDelete
		}
		return m, nil

	case key.Matches(msg, m.keyMap.RenameConversation):
		if conv := m.store.Active(); conv != nil {
			m.mode = modeRename
			m.renameInput.SetValue(conv.Title)
			m.renameInput.CursorEnd()
			m.renameInput.Focus()
			m.input.Blur()
			return m, textinput.Blink
		}
		return m, nil

	case key.Matches(msg, m.keyMap.PrevConversation):
		m.switchConversation(-1)
		return m, nil

	case key.Matches(msg, m.keyMap.NextConversation):
		m.switchConversation(1)
		return m, nil

	case key.Matches(msg, m.keyMap.ToggleSidebar):
		m.sidebarVisible = !m.sidebarVisible
		return m.handleResize(tea.WindowSizeMsg{Width: m.width, Height: m.height})

	case key.Matches(msg, m.keyMap.ToggleTheme):
		mode := "dark"
		if m.theme != nil && m.theme.IsDark {
			mode = "light"
		}
		m.theme = styles.NewThemeForBackground(mode)
		m.theme.SetSize(m.width, m.height)
		m.welcome.SetTheme(m.theme)
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keyMap.Memories):
		m.mode = modeMemories
		m.memoryIndex = 0
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keyMap.Help):
		if m.input.Value() == "" {
			m.mode = modeHelp
			return m, nil
		}

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.Up):
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keyMap.Down):
		m.viewport.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keyMap.Home):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keyMap.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeChat
		m.renameInput.Blur()
		m.input.Focus()
		return m, textinput.Blink

	case "enter":
		title := strings.TrimSpace(m.renameInput.Value())
		m.mode = modeChat
		m.renameInput.Blur()
		m.input.Focus()
		if title != "" {
			m.store.Rename(m.store.ActiveID(), title)
			m.toasts.AddStatus("Conversation renamed")
			return m, tea.Batch(textinput.Blink, components.ToastTickCmd())
		}
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		if m.store.Waiting() {
			m.controller.Stop()
		}
		m.store.Delete(m.store.ActiveID())
		if m.store.Len() == 0 {
			m.store.NewConversation()
		}
		m.mode = modeChat
		m.refreshViewport()
		m.toasts.AddStatus("Conversation deleted")
		return m, components.ToastTickCmd()

	case "n", "esc":
		m.mode = modeChat
		return m, nil
	}
	return m, nil
}

func (m Model) handleMemoriesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.memories.Items()

	switch msg.String() {
	case "esc", "q", "ctrl+g":
		m.mode = modeChat
		m.input.Focus()
		return m, textinput.Blink

	case "up", "k":
		if m.memoryIndex > 0 {
			m.memoryIndex--
		}
		return m, nil

	case "down", "j":
		if m.memoryIndex < len(items)-1 {
			m.memoryIndex++
		}
		return m, nil

	case "d", "x":
		if m.memoryIndex < len(items) {
			m.memories.Remove(items[m.memoryIndex].ID)
			if m.memoryIndex > 0 && m.memoryIndex >= len(items)-1 {
				m.memoryIndex--
			}
			m.toasts.AddStatus("Memory removed")
			return m, components.ToastTickCmd()
		}
		return m, nil

	case "C":
		if len(items) > 0 {
			m.memories.Clear()
			m.memoryIndex = 0
			m.toasts.AddStatus("All memories cleared")
			return m, components.ToastTickCmd()
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleHelpKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "?", "esc", "q", "enter":
		m.mode = modeChat
	}
	return m, nil
}

// =============================================================================
// INPUT SUBMISSION
// =============================================================================

func (m Model) submitInput() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.Reset()

	ctrl := m.controller
	// Ask cancels and drains any in-flight turn before starting the new one,
	// so it runs in a command rather than blocking the update loop.
	askCmd := func() tea.Msg {
		ctrl.Ask(input)
		return nil
	}

	m.refreshViewport()
	m.viewport.GotoBottom()

	return m, askCmd
}

// switchConversation moves the active selection by delta within the list.
func (m *Model) switchConversation(delta int) {
	conversations := m.store.Conversations()
	if len(conversations) == 0 {
		return
	}

	activeID := m.store.ActiveID()
	index := 0
	for i, conv := range conversations {
		if conv.ID == activeID {
			index = i
			break
		}
	}

	index += delta
	if index < 0 {
		index = 0
	}
	if index > len(conversations)-1 {
		index = len(conversations) - 1
	}

	m.store.SetActive(conversations[index].ID)
	m.refreshViewport()
	m.viewport.GotoBottom()
}

// activeConversation is a nil-safe accessor used by the renderers.
func (m *Model) activeConversation() *model.Conversation {
	if m.store == nil {
		return nil
	}
	return m.store.Active()
}
