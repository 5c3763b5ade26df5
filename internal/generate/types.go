// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

// =============================================================================
// WIRE TYPES
// =============================================================================

// Request is the body of a POST to /api/generate.
type Request struct {
	// Model is the target model identifier.
	Model string `json:"model"`

	// Prompt is the effective prompt, memory preamble included.
	Prompt string `json:"prompt"`

	// Stream selects newline-delimited JSON output.
	Stream bool `json:"stream"`

	// Context is the opaque continuation state from the previous turn.
	// An empty slice serializes as [] so the server sees a fresh start.
	Context []int `json:"context"`
}

// Fragment is one decoded unit of server output. In streaming mode each
// NDJSON line parses into one Fragment; in non-streaming mode the whole
// body is a single Fragment.
type Fragment struct {
	// Response is the incremental text fragment (the whole response when
	// non-streaming).
	Response string `json:"response"`

	// Context is the updated continuation state. In practice the server
	// only sends it on the terminal fragment.
	Context []int `json:"context,omitempty"`

	// Done marks the terminal fragment of a stream.
	Done bool `json:"done"`
}

// serverError is the JSON error body some endpoints return on non-200.
type serverError struct {
	Error string `json:"error"`
}
