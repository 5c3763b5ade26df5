// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	"github.com/jeranaias/gbho-tui/internal/format"
	"github.com/jeranaias/gbho-tui/internal/generate"
	"github.com/jeranaias/gbho-tui/internal/memory"
	"github.com/jeranaias/gbho-tui/internal/store"
	"github.com/jeranaias/gbho-tui/internal/ui/components"
	"github.com/jeranaias/gbho-tui/internal/ui/styles"
)

// =============================================================================
// UI MODE
// =============================================================================

// uiMode is the current interaction mode of the chat view.
type uiMode int

const (
	modeChat uiMode = iota // Normal typing and scrolling
	modeRename
	modeConfirmDelete
	modeMemories
	modeHelp
)

// sidebarWidth is the fixed column width of the conversation list.
const sidebarWidth = 28

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// Styling
	theme        *styles.Theme
	markupStyles format.StyleSet

	// Dimensions
	width  int
	height int

	// Domain state
	store      *store.Store
	controller *generate.Controller
	client     *generate.Client
	memories   *memory.Cache

	// Status display
	modelName string
	serverURL string
	reachable bool

	// UI components
	viewport    viewport.Model
	input       textinput.Model
	renameInput textinput.Model
	spinner     spinner.Model
	welcome     components.Welcome
	toasts      *components.ToastManager

	// Interaction state
	mode           uiMode
	sidebarVisible bool
	memoryIndex    int

	// Streaming repaint batching. Events can arrive faster than the terminal
	// can usefully repaint; the limiter gates immediate repaints and the
	// 30fps tick flushes whatever it skipped.
	streamDirty   bool
	renderLimiter *rate.Limiter

	keyMap KeyMap
}

// Options configures a new chat model.
type Options struct {
	Theme       *styles.Theme
	Store       *store.Store
	Controller  *generate.Controller
	Client      *generate.Client
	Memories    *memory.Cache
	ModelName   string
	ServerURL   string
	ShowSidebar bool
	Version     string
}

// New creates a new chat model.
func New(opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 4096
	ti.Focus()

	ri := textinput.New()
	ri.Prompt = ""
	ri.Placeholder = "Conversation title"
	ri.CharLimit = 120

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 30,
	}

	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}

	welcome := components.NewWelcome(theme)
	if opts.ModelName != "" {
		welcome.SetModelName(opts.ModelName)
	}
	if opts.ServerURL != "" {
		welcome.SetServerURL(opts.ServerURL)
	}
	if opts.Version != "" {
		welcome.SetVersion(opts.Version)
	}

	m := Model{
		theme:          theme,
		markupStyles:   format.DefaultStyles(),
		store:          opts.Store,
		controller:     opts.Controller,
		client:         opts.Client,
		memories:       opts.Memories,
		modelName:      opts.ModelName,
		serverURL:      opts.ServerURL,
		viewport:       vp,
		input:          ti,
		renameInput:    ri,
		spinner:        sp,
		welcome:        welcome,
		toasts:         components.NewToastManager(),
		sidebarVisible: opts.ShowSidebar,
		renderLimiter:  rate.NewLimiter(rate.Every(33*time.Millisecond), 1),
		keyMap:         DefaultKeyMap(),
	}

	m.refreshViewport()
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		checkServerCmd(m.client),
	)
}

// View renders the chat view.
func (m Model) View() string {
	return m.renderChat()
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	// Layout: header + viewport + input area + status bar. The constants are
	// conservative so the viewport is never too tall.
	const (
		headerHeight    = 1
		inputAreaHeight = 3
		statusBarHeight = 1
	)

	viewportHeight := m.height - headerHeight - inputAreaHeight - statusBarHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}

	viewportWidth := m.width
	if m.sidebarVisible {
		viewportWidth -= sidebarWidth
	}
	if viewportWidth < 1 {
		viewportWidth = 1
	}

	m.viewport.Width = viewportWidth
	m.viewport.Height = viewportHeight

	inputWidth := m.width - 8
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth

	m.welcome.SetSize(viewportWidth, viewportHeight)

	if m.theme != nil {
		m.theme.SetSize(m.width, m.height)
	}

	m.refreshViewport()

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, vpCmd
}

// =============================================================================
// VIEWPORT CONTENT
// =============================================================================

// refreshViewport re-renders the active conversation into the viewport.
func (m *Model) refreshViewport() {
	if m.store == nil {
		return
	}
	conv := m.store.Active()
	if conv == nil || conv.IsEmpty() {
		m.viewport.SetContent(m.welcome.View())
		return
	}
	m.viewport.SetContent(m.renderMessages())
}

// =============================================================================
// TOAST ACCESS
// =============================================================================

// HasToasts returns true if any toasts are visible.
func (m *Model) HasToasts() bool {
	return m.toasts != nil && m.toasts.HasToasts()
}
