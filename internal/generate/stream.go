// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamCallback is called for each fragment received during streaming,
// synchronously and in arrival order.
type StreamCallback func(frag Fragment)

// StreamReader handles line-by-line JSON parsing of streaming responses.
type StreamReader struct {
	reader *bufio.Reader
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	lastContext []int
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader: bufio.NewReader(r),
	}
}

// Process reads the stream and calls the callback for each fragment.
// Blocks until the stream is complete or the context is cancelled.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			frag, err := s.readFragment()
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}

			if frag != nil {
				callback(*frag)
				if frag.Done {
					return nil
				}
			}
		}
	}
}

// readFragment reads and parses a single line from the stream.
// Empty lines and malformed lines yield (nil, nil); the stream continues.
func (s *StreamReader) readFragment() (*Fragment, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return nil, io.EOF
		}
		// Try to process the last line even on EOF
		if len(line) == 0 {
			return nil, err
		}
	}

	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, nil
	}

	var frag Fragment
	if err := json.Unmarshal(line, &frag); err != nil {
		// A malformed fragment does not kill the whole response.
		log.Printf("generate: skipping malformed fragment: %v", err)
		return nil, nil
	}

	if frag.Response != "" {
		s.accumulator.WriteString(frag.Response)
	}
	if frag.Context != nil {
		s.lastContext = frag.Context
	}

	return &frag, nil
}

// Accumulated returns all text received so far.
func (s *StreamReader) Accumulated() string {
	return s.accumulator.String()
}

// LastContext returns the most recent continuation context seen on the
// stream, or nil if none arrived.
func (s *StreamReader) LastContext() []int {
	return s.lastContext
}
