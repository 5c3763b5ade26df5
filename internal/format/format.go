// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package format converts a lightweight markup subset into display markup.
package format

import "regexp"

// =============================================================================
// MARKUP PATTERNS
// =============================================================================

// The replacement order is load-bearing: bold before italic so that "**x**"
// is not consumed as two italic markers, newline before code so code spans
// never swallow a line break marker.
var (
	boldPattern    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicPattern  = regexp.MustCompile(`\*(.*?)\*`)
	underPattern   = regexp.MustCompile(`_(.*?)_`)
	newlinePattern = regexp.MustCompile(`\n`)
	codePattern    = regexp.MustCompile("`(.+?)`")
	strikePattern  = regexp.MustCompile(`~~(.*?)~~`)
)

// =============================================================================
// FORMAT
// =============================================================================

// Format converts the supported markup subset in text into tagged display
// markup understood by Render.
//
// Pre-existing tags in the input are not escaped; the output is only ever
// handed to the allow-list renderer, which ignores everything outside the
// five known tags.
func Format(text string) string {
	out := boldPattern.ReplaceAllString(text, "<b>${1}</b>")
	out = italicPattern.ReplaceAllString(out, "<i>${1}</i>")
	out = underPattern.ReplaceAllString(out, "<i>${1}</i>")
	out = newlinePattern.ReplaceAllString(out, "<br>")
	out = codePattern.ReplaceAllString(out, "<code>${1}</code>")
	out = strikePattern.ReplaceAllString(out, "<s>${1}</s>")
	return out
}
