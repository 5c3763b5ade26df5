// gbho TUI - a terminal chat client for a local inference server.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/jeranaias/gbho-tui/internal/cli"
	"github.com/jeranaias/gbho-tui/internal/config"
	"github.com/jeranaias/gbho-tui/internal/generate"
	"github.com/jeranaias/gbho-tui/internal/memory"
	"github.com/jeranaias/gbho-tui/internal/persist"
	"github.com/jeranaias/gbho-tui/internal/store"
	"github.com/jeranaias/gbho-tui/internal/ui/chat"
	"github.com/jeranaias/gbho-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.2.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		plainFlag   = flag.Bool("plain", false, "use the plain REPL instead of the TUI")
		modelFlag   = flag.String("model", "", "model name (overrides config)")
		urlFlag     = flag.String("url", "", "inference server URL (overrides config)")
		versionFlag = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("gbho %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *modelFlag != "" {
		cfg.Server.Model = *modelFlag
	}
	if *urlFlag != "" {
		cfg.Server.URL = *urlFlag
	}
	config.SetGlobal(cfg)

	if err := config.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Route log output to the data dir so it never corrupts the TUI screen.
	if dir, derr := config.Dir(); derr == nil {
		logPath := filepath.Join(dir, "gbho.log")
		if f, ferr := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); ferr == nil {
			defer f.Close()
			log.SetOutput(f)
		}
	}

	storagePath, err := cfg.StoragePath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "storage: %v\n", err)
		os.Exit(1)
	}

	gw, err := persist.Open(storagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storage: %v\n", err)
		os.Exit(1)
	}
	defer gw.Close()

	memories := memory.NewCache(gw)
	st := store.New(gw, memories)
	st.Load()
	if st.Len() == 0 {
		st.NewConversation()
	}

	client := generate.NewClient(&generate.ClientConfig{
		BaseURL: cfg.Server.URL,
		Timeout: time.Duration(cfg.Server.TimeoutSecs) * time.Second,
		Model:   cfg.Server.Model,
	})

	if *plainFlag || !term.IsTerminal(int(os.Stdout.Fd())) {
		if err := cli.Run(cfg, st, memories, client); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runTUI(cfg, st, memories, client); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runTUI wires the controller into a Bubble Tea program and blocks until
// the user quits.
func runTUI(cfg *config.Config, st *store.Store, memories *memory.Cache, client *generate.Client) error {
	theme := styles.NewThemeForBackground(cfg.UI.Theme)

	// The controller outlives any single Bubble Tea frame, and the program
	// does not exist yet when it is constructed; events go through a small
	// relay that is pointed at the program once it is running.
	var (
		sendMu sync.Mutex
		send   func(generate.Event)
	)
	notify := func(ev generate.Event) {
		sendMu.Lock()
		fn := send
		sendMu.Unlock()
		if fn != nil {
			fn(ev)
		}
	}

	ctrl := generate.NewController(client, st, memories, notify)
	ctrl.Streaming = cfg.Server.Streaming

	m := chat.New(chat.Options{
		Theme:       theme,
		Store:       st,
		Controller:  ctrl,
		Client:      client,
		Memories:    memories,
		ModelName:   cfg.Server.Model,
		ServerURL:   cfg.Server.URL,
		ShowSidebar: cfg.UI.ShowSidebar,
		Version:     Version,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())

	sendMu.Lock()
	send = func(ev generate.Event) {
		p.Send(chat.TurnEventMsg{Event: ev})
	}
	sendMu.Unlock()

	// Hot-reload the config file; edits show up without a restart.
	if path, err := config.Path(); err == nil {
		watcher, werr := config.NewWatcher(path, 500*time.Millisecond, func(reloaded *config.Config) {
			p.Send(chat.ConfigReloadedMsg{Config: reloaded})
		})
		if werr == nil {
			if werr = watcher.Watch(); werr != nil {
				log.Printf("config watcher: %v", werr)
			}
			defer watcher.Close()
		} else {
			log.Printf("config watcher: %v", werr)
		}
	}

	_, err := p.Run()

	// Settle any in-flight turn so its final store write lands before the
	// gateway closes.
	ctrl.Stop()
	ctrl.Wait()

	return err
}
