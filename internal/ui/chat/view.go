// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/gbho-tui/internal/format"
	"github.com/jeranaias/gbho-tui/internal/model"
	"github.com/jeranaias/gbho-tui/internal/store"
	"github.com/jeranaias/gbho-tui/internal/ui/components"
	"github.com/jeranaias/gbho-tui/internal/util"
)

// =============================================================================
// MAIN VIEW
// =============================================================================

// renderChat renders the complete chat view.
// Layout: header (1 line) + [sidebar | messages viewport] + input + status bar.
func (m Model) renderChat() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	switch m.mode {
	case modeHelp:
		return m.renderHelpOverlay()
	case modeMemories:
		return m.renderMemoriesOverlay()
	}

	header := m.renderHeader()
	input := m.renderInput()
	status := m.renderStatusBar()

	messages := m.viewport.View()
	middle := messages
	if m.sidebarVisible {
		sidebar := m.renderSidebar(m.viewport.Height)
		middle = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, messages)
	}

	baseView := lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		middle,
		input,
		status,
	)

	switch m.mode {
	case modeRename:
		return m.overlayCentered(baseView, m.renderRenamePrompt())
	case modeConfirmDelete:
		return m.overlayCentered(baseView, m.renderConfirmDelete())
	}

	if m.HasToasts() {
		toastOverlay := components.RenderToastStack(m.toasts.GetToasts(), m.width, m.height)
		return m.overlayToasts(baseView, toastOverlay)
	}

	return baseView
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	title := "gbho"
	if conv := m.activeConversation(); conv != nil {
		title = conv.Title
	}

	left := m.theme.HeaderTitle.Render("gbho") + "  " +
		m.theme.HeaderSubtitle.Render(util.TruncateWidth(title, m.width/2))

	right := m.theme.HeaderSubtitle.Render(m.modelName)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}

	return m.theme.Header.Width(m.width).Render(
		left + strings.Repeat(" ", gap) + right,
	)
}

// =============================================================================
// SIDEBAR
// =============================================================================

// renderSidebar renders the conversation list column.
func (m Model) renderSidebar(height int) string {
	innerWidth := sidebarWidth - 4 // border + padding

	var b strings.Builder
	b.WriteString(m.theme.SidebarTitle.Render("Conversations"))
	b.WriteByte('\n')

	conversations := m.store.Conversations()
	activeID := m.store.ActiveID()

	if len(conversations) == 0 {
		b.WriteString(m.theme.SidebarHint.Render("No conversations yet"))
	}

	// Two rows per entry: title row and preview row.
	maxEntries := (height - 2) / 2
	if maxEntries < 1 {
		maxEntries = 1
	}

	for i, conv := range conversations {
		if i >= maxEntries {
			remaining := len(conversations) - maxEntries
			b.WriteString(m.theme.SidebarHint.Render(fmt.Sprintf("…and %d more", remaining)))
			break
		}

		title := util.FitWidth(conv.Title, innerWidth)
		if conv.ID == activeID {
			b.WriteString(m.theme.SidebarItemActive.Render(title))
		} else {
			b.WriteString(m.theme.SidebarItem.Render(title))
		}
		b.WriteByte('\n')

		preview := format.Strip(conv.Preview(80))
		b.WriteString(m.theme.SidebarItemPreview.Render(util.FitWidth(preview, innerWidth)))
		b.WriteByte('\n')
	}

	return m.theme.Sidebar.
		Width(sidebarWidth - 2).
		Height(height).
		MaxHeight(height).
		Render(b.String())
}

// =============================================================================
// MESSAGES
// =============================================================================

// renderMessages renders the active conversation's history as bubbles.
func (m *Model) renderMessages() string {
	conv := m.activeConversation()
	if conv == nil {
		return ""
	}

	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}

	bubbleWidth := width - 10
	if bubbleWidth < 20 {
		bubbleWidth = 20
	}

	var parts []string
	for _, msg := range conv.Messages {
		switch msg.Role {
		case model.RoleUser:
			parts = append(parts, m.renderUserMessage(msg, width, bubbleWidth))
		case model.RoleAssistant:
			parts = append(parts, m.renderAssistantMessage(msg, bubbleWidth))
		}
	}

	if m.store.Waiting() {
		if last := conv.LastMessage(); last != nil && last.Role == model.RoleAssistant && last.IsEmpty() {
			parts = append(parts, m.renderThinking())
		}
	}

	return strings.Join(parts, "\n\n")
}

func (m *Model) renderUserMessage(msg *model.Message, width, bubbleWidth int) string {
	label := m.theme.UserLabel.Render("You") + " " +
		m.theme.MessageTime.Render(msg.Timestamp.Format("15:04"))

	bubble := m.theme.UserBubble.MaxWidth(bubbleWidth).Render(msg.Content)

	return lipgloss.PlaceHorizontal(width, lipgloss.Right, label) + "\n" +
		lipgloss.PlaceHorizontal(width, lipgloss.Right, bubble)
}

func (m *Model) renderAssistantMessage(msg *model.Message, bubbleWidth int) string {
	if msg.IsEmpty() {
		// The streaming placeholder before the first fragment; the thinking
		// indicator is rendered separately.
		return ""
	}

	label := m.theme.AssistantLabel.Render(m.modelName) + " " +
		m.theme.MessageTime.Render(msg.Timestamp.Format("15:04"))

	content := format.Render(msg.Content, m.markupStyles)
	bubble := m.theme.AssistantBubble.MaxWidth(bubbleWidth).Render(content)

	return label + "\n" + bubble
}

func (m *Model) renderThinking() string {
	return m.theme.Spinner.Render(m.spinner.View()) + " " +
		m.theme.ThinkingText.Render("Waiting for "+m.modelName+"...")
}

// =============================================================================
// INPUT AREA
// =============================================================================

func (m Model) renderInput() string {
	inputLine := m.input.View()

	count := fmt.Sprintf("%d/%d", len(m.input.Value()), 4096)
	countLine := m.theme.CharCount.Width(m.width - 2).Render(count)

	return m.theme.InputContainer.Width(m.width).Render(inputLine + "\n" + countLine)
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	var left string
	if m.store.Waiting() {
		left = m.theme.StatusWaiting.Render("generating… Esc to stop")
	} else if m.reachable {
		left = m.theme.StatusReachable.Render("server up")
	} else {
		left = m.theme.StatusOffline.Render("server unreachable")
	}

	memCount := 0
	if m.memories != nil {
		memCount = m.memories.Len()
	}
	mid := m.theme.ShortcutDesc.Render(fmt.Sprintf("memories: %d", memCount))

	var hints []string
	for _, binding := range m.keyMap.ShortHelp() {
		help := binding.Help()
		hints = append(hints,
			m.theme.ShortcutKey.Render(help.Key)+" "+m.theme.ShortcutDesc.Render(help.Desc))
	}
	right := strings.Join(hints, "  ")

	content := left + "  " + mid
	gap := m.width - lipgloss.Width(content) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
		right = ""
	}

	return m.theme.StatusBar.Width(m.width).Render(
		content + strings.Repeat(" ", gap) + right,
	)
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m Model) renderRenamePrompt() string {
	body := m.theme.PromptTitle.Render("Rename conversation") + "\n\n" +
		m.renameInput.View() + "\n\n" +
		m.theme.ShortcutDesc.Render("Enter to save, Esc to cancel")
	return m.theme.PromptBox.Render(body)
}

func (m Model) renderConfirmDelete() string {
	title := ""
	if conv := m.activeConversation(); conv != nil {
		title = conv.Title
	}

	body := m.theme.PromptTitle.Render("Delete conversation?") + "\n\n" +
		util.TruncateWidth(title, 40) + "\n\n" +
		m.theme.ShortcutDesc.Render("y to delete, n to cancel")
	return m.theme.PromptBox.BorderForeground(m.theme.StatusOffline.GetForeground()).Render(body)
}

func (m Model) renderMemoriesOverlay() string {
	var b strings.Builder
	b.WriteString(m.theme.MemoryTitle.Render("Memories"))
	b.WriteString("\n\n")

	items := m.memories.Items()
	if len(items) == 0 {
		b.WriteString(m.theme.MemoryEmpty.Render("Nothing remembered yet.\nUse #remember in a message to save a fact."))
	}

	for i, item := range items {
		line := util.TruncateWidth(item.Content, m.width-12)
		if i == m.memoryIndex {
			b.WriteString(m.theme.MemoryItemSelected.Render("> " + line))
		} else {
			b.WriteString(m.theme.MemoryItem.Render("  " + line))
		}
		b.WriteByte('\n')
	}

	b.WriteString("\n")
	b.WriteString(m.theme.ShortcutDesc.Render("j/k move  d delete  C clear all  Esc close"))

	box := m.theme.MemoryPanel.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderHelpOverlay() string {
	var b strings.Builder
	b.WriteString(m.theme.HelpTitle.Render("Keyboard shortcuts"))
	b.WriteString("\n\n")

	sections := []string{"General", "Conversations", "Panels", "Scrolling"}
	for i, group := range m.keyMap.FullHelp() {
		if i < len(sections) {
			b.WriteString(m.theme.HelpSection.Render(sections[i]))
			b.WriteByte('\n')
		}
		for _, binding := range group {
			help := binding.Help()
			b.WriteString("  ")
			b.WriteString(m.theme.ShortcutKey.Render(util.PadWidth(help.Key, 10)))
			b.WriteString(m.theme.ShortcutDesc.Render(help.Desc))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	b.WriteString(m.theme.ShortcutDesc.Render("Messages stream into place; a trailing " +
		store.StreamMarker + " marks text still arriving."))

	box := m.theme.HelpBox.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// =============================================================================
// OVERLAY COMPOSITING
// =============================================================================

// overlayCentered draws a small box over the middle of the base view.
func (m Model) overlayCentered(baseView, box string) string {
	baseLines := strings.Split(baseView, "\n")
	boxLines := strings.Split(box, "\n")

	boxHeight := len(boxLines)
	boxWidth := 0
	for _, line := range boxLines {
		if w := lipgloss.Width(line); w > boxWidth {
			boxWidth = w
		}
	}

	startRow := (m.height - boxHeight) / 2
	if startRow < 0 {
		startRow = 0
	}
	startCol := (m.width - boxWidth) / 2
	if startCol < 0 {
		startCol = 0
	}

	result := make([]string, len(baseLines))
	for i, baseLine := range baseLines {
		boxLineIdx := i - startRow
		if boxLineIdx >= 0 && boxLineIdx < len(boxLines) {
			prefix := truncateToWidth(baseLine, startCol)
			if w := lipgloss.Width(prefix); w < startCol {
				prefix += strings.Repeat(" ", startCol-w)
			}
			result[i] = prefix + boxLines[boxLineIdx]
		} else {
			result[i] = baseLine
		}
	}

	return strings.Join(result, "\n")
}

// overlayToasts renders toasts on top of the base view in the bottom-right
// corner without blocking interaction.
func (m Model) overlayToasts(baseView, toastView string) string {
	baseLines := strings.Split(baseView, "\n")
	toastLines := strings.Split(toastView, "\n")

	toastHeight := len(toastLines)

	// Leave space for the status bar.
	startRow := m.height - toastHeight - 2
	if startRow < 0 {
		startRow = 0
	}

	result := make([]string, len(baseLines))
	for i, baseLine := range baseLines {
		toastLineIdx := i - startRow
		if toastLineIdx >= 0 && toastLineIdx < len(toastLines) {
			toastLine := toastLines[toastLineIdx]
			toastLineWidth := lipgloss.Width(toastLine)
			if toastLineWidth > 0 {
				cutPoint := m.width - toastLineWidth - 1
				if cutPoint < 0 {
					cutPoint = 0
				}
				baseLine = truncateToWidth(baseLine, cutPoint)
				if w := lipgloss.Width(baseLine); w < cutPoint {
					baseLine += strings.Repeat(" ", cutPoint-w)
				}
				result[i] = baseLine + toastLine
			} else {
				result[i] = baseLine
			}
		} else {
			result[i] = baseLine
		}
	}

	return strings.Join(result, "\n")
}

// truncateToWidth truncates a string to fit within a given visible width.
func truncateToWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}

	currentWidth := 0
	var result strings.Builder

	for _, r := range s {
		runeWidth := lipgloss.Width(string(r))
		if currentWidth+runeWidth > width {
			break
		}
		result.WriteRune(r)
		currentWidth += runeWidth
	}

	return result.String()
}
