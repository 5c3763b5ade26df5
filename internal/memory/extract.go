// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package memory implements the remember-tag extraction scanner and the
// in-memory cache of global memories.
package memory

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Trigger is the literal tag that starts a memory-worthy span.
const Trigger = "#remember"

// =============================================================================
// EXTRACTION
// =============================================================================

// Extract scans raw user text for remember tags. It returns the cleaned
// message (tags removed, captured text kept in place) and the captured span
// contents, whitespace-trimmed and NFC-normalized, in order of appearance.
//
// An explicit scan is used instead of pattern matching: spans may be
// adjacent, and each span is delimited only by the next tag or the end of
// the string. Zero matches returns the input unchanged.
func Extract(raw string) (string, []string) {
	if !strings.Contains(raw, Trigger) {
		return raw, nil
	}

	var cleaned strings.Builder
	var captured []string

	rest := raw
	for {
		idx := strings.Index(rest, Trigger)
		if idx < 0 {
			cleaned.WriteString(rest)
			break
		}

		cleaned.WriteString(rest[:idx])
		rest = rest[idx+len(Trigger):]
		// Drop the whitespace that separated the tag from its span so the
		// cleaned message does not keep a double gap.
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)

		span := rest
		if next := strings.Index(rest, Trigger); next >= 0 {
			span = rest[:next]
		}
		if trimmed := strings.TrimSpace(span); trimmed != "" {
			captured = append(captured, norm.NFC.String(trimmed))
		}
	}

	clean := cleaned.String()
	// A message that opens with the tag gets one extra leading strip. The
	// scan above already consumed it, so this is normally a no-op; the
	// double-strip is idempotent by construction.
	if strings.HasPrefix(strings.TrimSpace(raw), Trigger) {
		clean = strings.TrimPrefix(clean, Trigger)
		clean = strings.TrimLeftFunc(clean, unicode.IsSpace)
	}
	return clean, captured
}
