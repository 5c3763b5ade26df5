// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package format converts a lightweight markup subset into display markup.
package format

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// STYLE SET
// =============================================================================

// StyleSet maps the allowed display tags onto terminal styles.
type StyleSet struct {
	Bold   lipgloss.Style
	Italic lipgloss.Style
	Code   lipgloss.Style
	Strike lipgloss.Style
}

// DefaultStyles returns a style set usable on any terminal.
func DefaultStyles() StyleSet {
	return StyleSet{
		Bold:   lipgloss.NewStyle().Bold(true),
		Italic: lipgloss.NewStyle().Italic(true),
		Code:   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "88", Dark: "216"}),
		Strike: lipgloss.NewStyle().Strikethrough(true),
	}
}

// =============================================================================
// ALLOW-LIST RENDERER
// =============================================================================

// The renderer recognizes exactly these tags. Anything else that looks like
// a tag is passed through as literal text, which keeps the rendering surface
// an explicit allow-list rather than general markup injection.
var openTags = map[string]bool{
	"<b>": true, "<i>": true, "<code>": true, "<s>": true,
}

var closeTags = map[string]string{
	"</b>": "<b>", "</i>": "<i>", "</code>": "<code>", "</s>": "<s>",
}

// Render converts tagged display markup produced by Format into styled
// terminal text. Unknown tags are rendered literally; unclosed tags style
// the remainder of the text.
func Render(markup string, styles StyleSet) string {
	var out strings.Builder
	var text strings.Builder
	var stack []string

	flush := func() {
		if text.Len() == 0 {
			return
		}
		out.WriteString(applyStack(text.String(), stack, styles))
		text.Reset()
	}

	for i := 0; i < len(markup); {
		if markup[i] != '<' {
			j := strings.IndexByte(markup[i:], '<')
			if j < 0 {
				text.WriteString(markup[i:])
				break
			}
			text.WriteString(markup[i : i+j])
			i += j
			continue
		}

		end := strings.IndexByte(markup[i:], '>')
		if end < 0 {
			text.WriteString(markup[i:])
			break
		}
		tag := markup[i : i+end+1]

		switch {
		case tag == "<br>":
			flush()
			out.WriteByte('\n')
		case openTags[tag]:
			flush()
			stack = append(stack, tag)
		case closeTags[tag] != "":
			flush()
			stack = popTag(stack, closeTags[tag])
		default:
			// Not on the allow-list: literal text.
			text.WriteString(tag)
		}
		i += end + 1
	}

	flush()
	return out.String()
}

// Strip converts tagged display markup back to plain text, for contexts
// without terminal styling (the plain REPL, log lines).
func Strip(markup string) string {
	return Render(markup, StyleSet{})
}

// applyStack styles a text run with every tag currently open.
func applyStack(text string, stack []string, styles StyleSet) string {
	for i := len(stack) - 1; i >= 0; i-- {
		switch stack[i] {
		case "<b>":
			text = styles.Bold.Render(text)
		case "<i>":
			text = styles.Italic.Render(text)
		case "<code>":
			text = styles.Code.Render(text)
		case "<s>":
			text = styles.Strike.Render(text)
		}
	}
	return text
}

// popTag removes the innermost occurrence of tag from the stack.
func popTag(stack []string, tag string) []string {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == tag {
			return append(stack[:i], stack[i+1:]...)
		}
	}
	return stack
}
