// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/gbho-tui/internal/ui/styles"
)

// =============================================================================
// WELCOME SCREEN MODEL
// =============================================================================

// Welcome is the empty-conversation welcome screen. It fills the message
// viewport until the first message is sent.
type Welcome struct {
	version   string
	modelName string
	serverURL string

	width  int
	height int

	theme *styles.Theme
}

// NewWelcome creates a new welcome screen.
func NewWelcome(theme *styles.Theme) Welcome {
	return Welcome{
		version:   "dev",
		modelName: "gemma3:4b",
		serverURL: "http://127.0.0.1:11434",
		theme:     theme,
	}
}

// SetVersion sets the version string.
func (w *Welcome) SetVersion(version string) {
	w.version = version
}

// SetModelName sets the model name.
func (w *Welcome) SetModelName(name string) {
	w.modelName = name
}

// SetServerURL sets the inference server URL.
func (w *Welcome) SetServerURL(url string) {
	w.serverURL = url
}

// SetSize updates the dimensions.
// SetTheme swaps the active theme, e.g. after a dark/light toggle.
func (w *Welcome) SetTheme(theme *styles.Theme) {
	w.theme = theme
}

func (w *Welcome) SetSize(width, height int) {
	w.width = width
	w.height = height
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the welcome screen.
func (w Welcome) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (w Welcome) Update(msg tea.Msg) (Welcome, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w.width = msg.Width
		w.height = msg.Height
	}
	return w, nil
}

// View renders the welcome screen centered in the available area.
func (w Welcome) View() string {
	width := w.width
	if width == 0 {
		width = 80
	}
	height := w.height
	if height == 0 {
		height = 24
	}

	boxWidth := 56
	if width < 64 {
		boxWidth = width - 8
	}
	if boxWidth < 36 {
		boxWidth = 36
	}

	theme := w.theme
	if theme == nil {
		theme = styles.NewTheme()
	}

	title := theme.WelcomeTitle.Render("gbho " + w.version)
	body := theme.WelcomeBody.Render(
		"Model: " + w.modelName + "\n" +
			"Server: " + w.serverURL + "\n\n" +
			"Type a message and press Enter to start.\n" +
			"Use #remember in a message to save a fact\n" +
			"for every future conversation.",
	)
	hints := theme.ShortcutDesc.Render(
		theme.ShortcutKey.Render("ctrl+n") + " new  " +
			theme.ShortcutKey.Render("ctrl+b") + " sidebar  " +
			theme.ShortcutKey.Render("ctrl+g") + " memories  " +
			theme.ShortcutKey.Render("?") + " help",
	)

	box := theme.WelcomeBox.Width(boxWidth).Render(
		lipgloss.JoinVertical(lipgloss.Center, title, "", body, "", hints),
	)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
