// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Interactive chat REPL. Streamed fragments are printed as they arrive;
// slash commands manage conversations and memories.
//
// Interactive commands:
//   /help, /h           Show available commands
//   /new                Start a new conversation
//   /list, /ls          List conversations
//   /switch N           Switch to conversation N (from /list)
//   /rename TITLE       Rename the current conversation
//   /delete             Delete the current conversation
//   /memories           List remembered facts
//   /forget N|all       Remove memory N (from /memories), or every memory
//   /export [PATH]      Export the current conversation to a file
//   /quit, /q           Exit
//   Ctrl+C              Cancel current generation
//   Ctrl+D              Exit

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/gbho-tui/internal/config"
	"github.com/jeranaias/gbho-tui/internal/format"
	"github.com/jeranaias/gbho-tui/internal/generate"
	"github.com/jeranaias/gbho-tui/internal/memory"
	"github.com/jeranaias/gbho-tui/internal/store"
	"github.com/jeranaias/gbho-tui/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	commandStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)
)

// =============================================================================
// SESSION
// =============================================================================

// Session holds the state for an interactive REPL session.
type Session struct {
	Config   *config.Config
	Store    *store.Store
	Memories *memory.Cache
	Client   *generate.Client

	controller *generate.Controller
	reader     *LineReader

	// Set while a turn is printing so Completed knows whether anything
	// streamed already.
	printedDelta bool

	Quiet     bool
	StartTime time.Time
}

// NewSession creates a REPL session sharing the given domain state.
func NewSession(cfg *config.Config, st *store.Store, memories *memory.Cache, client *generate.Client) *Session {
	s := &Session{
		Config:    cfg,
		Store:     st,
		Memories:  memories,
		Client:    client,
		reader:    NewLineReader(),
		StartTime: time.Now(),
	}

	s.controller = generate.NewController(client, st, memories, s.handleEvent)
	s.controller.Streaming = cfg.Server.Streaming
	return s
}

// handleEvent prints generation progress to stdout as it happens.
func (s *Session) handleEvent(ev generate.Event) {
	switch ev.State {
	case generate.StateStreaming:
		s.printedDelta = true
		fmt.Print(ev.Delta)

	case generate.StateCompleted:
		if !s.printedDelta && ev.Content != "" {
			// Non-streaming turn: the whole reply arrives at settle time.
			fmt.Print(format.Strip(ev.Content))
		}
		fmt.Println()

	case generate.StateCancelled:
		fmt.Println()
		fmt.Fprintln(os.Stderr, warningStyle.Render("[Cancelled]"))

	case generate.StateFailed:
		fmt.Println()
		if !s.printedDelta && ev.Content != "" {
			fmt.Println(ev.Content)
		}
		if ev.Err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), ev.Err)
		}
	}
}

// =============================================================================
// RUN LOOP
// =============================================================================

// Run starts the interactive REPL and blocks until the user exits.
func Run(cfg *config.Config, st *store.Store, memories *memory.Cache, client *generate.Client) error {
	session := NewSession(cfg, st, memories, client)
	defer session.reader.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := client.CheckRunning(ctx)
	cancel()
	if err != nil {
		fmt.Fprintln(os.Stderr, warningStyle.Render("[!] inference server is not reachable; messages will fail until it is started"))
	}

	if !session.Quiet {
		session.printWelcome()
	}

	// First Ctrl+C cancels the in-flight generation rather than exiting.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		for range sigChan {
			session.controller.Stop()
		}
	}()

	for {
		input, err := session.reader.ReadInput(promptStyle.Render("gbho> "))
		if err != nil {
			if err == liner.ErrPromptAborted {
				fmt.Println()
				return nil
			}
			// EOF (Ctrl+D) or a terminal error.
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldContinue, err := session.handleSlashCommand(input)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
			}
			if !shouldContinue {
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		session.ask(input)
	}
}

// ask runs one turn and blocks until it settles.
func (s *Session) ask(input string) {
	s.printedDelta = false
	fmt.Println()
	s.controller.Ask(input)
	s.controller.Wait()
	fmt.Println()
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand dispatches a /command. The bool result is false when
// the REPL should exit.
func (s *Session) handleSlashCommand(input string) (bool, error) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "/help", "/h":
		s.printHelp()
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	case "/new":
		conv := s.Store.NewConversation()
		fmt.Println(infoStyle.Render("Started: " + conv.Title))
		return true, nil

	case "/list", "/ls":
		s.printConversations()
		return true, nil

	case "/switch":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /switch N")
		}
		return true, s.switchTo(args[0])

	case "/rename":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /rename TITLE")
		}
		title := strings.Join(args, " ")
		s.Store.Rename(s.Store.ActiveID(), title)
		fmt.Println(infoStyle.Render("Renamed to: " + title))
		return true, nil

	case "/delete":
		conv := s.Store.Active()
		if conv == nil {
			return true, fmt.Errorf("no active conversation")
		}
		s.controller.Stop()
		s.Store.Delete(conv.ID)
		fmt.Println(infoStyle.Render("Deleted: " + conv.Title))
		return true, nil

	case "/memories":
		s.printMemories()
		return true, nil

	case "/forget":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /forget N|all")
		}
		return true, s.forget(args[0])

	case "/export":
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		return true, s.exportActive(path)

	default:
		return true, fmt.Errorf("unknown command %s (try /help)", cmd)
	}
}

func (s *Session) switchTo(arg string) error {
	index, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("not a number: %s", arg)
	}

	conversations := s.Store.Conversations()
	if index < 1 || index > len(conversations) {
		return fmt.Errorf("no conversation %d (have %d)", index, len(conversations))
	}

	conv := conversations[index-1]
	s.Store.SetActive(conv.ID)
	fmt.Println(infoStyle.Render("Switched to: " + conv.Title))
	s.printHistory(conv.ID)
	return nil
}

func (s *Session) forget(arg string) error {
	if arg == "all" {
		s.Memories.Clear()
		fmt.Println(infoStyle.Render("All memories cleared"))
		return nil
	}

	index, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("not a number: %s", arg)
	}

	items := s.Memories.Items()
	if index < 1 || index > len(items) {
		return fmt.Errorf("no memory %d (have %d)", index, len(items))
	}

	s.Memories.Remove(items[index-1].ID)
	fmt.Println(infoStyle.Render("Forgot: " + items[index-1].Content))
	return nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func (s *Session) printWelcome() {
	fmt.Println(welcomeStyle.Render("gbho") + infoStyle.Render("  chat with "+s.Config.Server.Model))
	fmt.Println(infoStyle.Render("Type a message, /help for commands, Ctrl+D to exit."))
	fmt.Println()
}

func (s *Session) printHelp() {
	lines := [][2]string{
		{"/new", "start a new conversation"},
		{"/list", "list conversations"},
		{"/switch N", "switch to conversation N"},
		{"/rename TITLE", "rename the current conversation"},
		{"/delete", "delete the current conversation"},
		{"/memories", "list remembered facts"},
		{"/forget N|all", "remove memory N, or all"},
		{"/export [PATH]", "export the current conversation"},
		{"/quit", "exit"},
	}
	for _, l := range lines {
		fmt.Printf("  %s %s\n", commandStyle.Render(fmt.Sprintf("%-16s", l[0])), infoStyle.Render(l[1]))
	}
	fmt.Println(infoStyle.Render("  Prefix a fact with #remember to save it for every conversation."))
}

func (s *Session) printConversations() {
	conversations := s.Store.Conversations()
	if len(conversations) == 0 {
		fmt.Println(infoStyle.Render("No conversations yet."))
		return
	}

	activeID := s.Store.ActiveID()
	for i, conv := range conversations {
		marker := " "
		if conv.ID == activeID {
			marker = "*"
		}
		fmt.Printf("%s %2d. %s (%d messages)\n", marker, i+1, conv.Title, conv.MessageCount())
	}
}

func (s *Session) printMemories() {
	items := s.Memories.Items()
	if len(items) == 0 {
		fmt.Println(infoStyle.Render("Nothing remembered yet. Use #remember in a message."))
		return
	}

	for i, item := range items {
		fmt.Printf("  %2d. %s\n", i+1, item.Content)
	}
}

func (s *Session) printHistory(convID string) {
	conv := s.Store.Active()
	if conv == nil || conv.ID != convID {
		return
	}

	for _, msg := range conv.Messages {
		label := promptStyle.Render(msg.Role.DisplayName() + ":")
		fmt.Printf("%s %s\n", label, format.Strip(msg.Content))
	}
}
