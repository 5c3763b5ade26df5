// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Bubble Tea messages for the chat view. Generation events originate outside
// the program loop (controller goroutines) and are injected with Program.Send.

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/gbho-tui/internal/config"
	"github.com/jeranaias/gbho-tui/internal/generate"
)

// =============================================================================
// GENERATION MESSAGES
// =============================================================================

// TurnEventMsg carries a generation controller event into the program.
type TurnEventMsg struct {
	Event generate.Event
}

// StreamTickMsg drives batched viewport repaints while a turn is streaming.
type StreamTickMsg struct {
	Time time.Time
}

// streamTickCmd schedules the next repaint tick at roughly 30fps.
func streamTickCmd() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}

// =============================================================================
// SERVER HEALTH MESSAGES
// =============================================================================

// ServerStatusMsg reports whether the inference server answered a health probe.
type ServerStatusMsg struct {
	Reachable bool
	Err       error
}

// healthCheckInterval is how often the server is re-probed.
const healthCheckInterval = 15 * time.Second

// checkServerCmd probes the inference server once.
func checkServerCmd(client *generate.Client) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return ServerStatusMsg{Reachable: false, Err: generate.ErrNotRunning}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := client.CheckRunning(ctx)
		return ServerStatusMsg{Reachable: err == nil, Err: err}
	}
}

// healthTickCmd schedules the next periodic health probe.
func healthTickCmd() tea.Cmd {
	return tea.Tick(healthCheckInterval, func(time.Time) tea.Msg {
		return healthProbeMsg{}
	})
}

// healthProbeMsg triggers the next probe from the update loop.
type healthProbeMsg struct{}

// =============================================================================
// CONFIG MESSAGES
// =============================================================================

// ConfigReloadedMsg is sent when the config file watcher picks up a change.
type ConfigReloadedMsg struct {
	Config *config.Config
}
