// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/gbho-tui/internal/format"
	"github.com/jeranaias/gbho-tui/internal/model"
	"github.com/jeranaias/gbho-tui/internal/util"
)

// exportActive writes the active conversation to a markdown file. An empty
// path derives a filename from the conversation title.
func (s *Session) exportActive(path string) error {
	conv := s.Store.Active()
	if conv == nil {
		return fmt.Errorf("no active conversation")
	}

	if path == "" {
		path = exportFilename(conv.Title)
	}

	content := renderExport(conv)
	if err := util.AtomicWriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Println(infoStyle.Render("Exported to " + path))
	return nil
}

// renderExport produces the markdown body for an exported conversation.
func renderExport(conv *model.Conversation) string {
	var b strings.Builder

	b.WriteString("# " + conv.Title + "\n\n")
	b.WriteString("Exported " + conv.LastMessageTime.Format("2006-01-02 15:04") + "\n\n")

	for _, msg := range conv.Messages {
		b.WriteString("## " + msg.Role.DisplayName() + "\n\n")
		b.WriteString(format.Strip(msg.Content))
		b.WriteString("\n\n")
	}

	return b.String()
}

// exportFilename derives a safe filename from a conversation title.
func exportFilename(title string) string {
	slug := strings.ToLower(title)
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "conversation"
	}
	return slug + ".md"
}
