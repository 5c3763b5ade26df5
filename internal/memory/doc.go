// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package memory implements the remember-tag extraction scanner and the
// in-memory cache of global memories.
//
// A user message may carry one or more "#remember" tags; each tag starts a
// span that runs to the next tag or the end of the message. Extract captures
// those spans as memory contents and removes the literal tags from the
// message while keeping the span text in place.
//
// The Cache holds the current memory list, persists changes through the
// persistence gateway, and serializes the list into a preamble block that
// the generation controller prepends to prompts.
package memory
