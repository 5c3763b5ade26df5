// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/gbho-tui/internal/model"
	"github.com/jeranaias/gbho-tui/internal/store"
)

// nullGateway satisfies store.Gateway with no persistence.
type nullGateway struct{}

func (nullGateway) LoadConversations() ([]*model.Conversation, error) { return nil, nil }
func (nullGateway) SaveConversations([]*model.Conversation) error     { return nil }

// collector gathers turn events on a channel so tests can synchronize with
// the turn goroutine.
type collector struct {
	events chan Event
}

func newCollector() *collector {
	return &collector{events: make(chan Event, 64)}
}

func (c *collector) notify(ev Event) {
	c.events <- ev
}

// waitFor blocks until an event with the given state arrives.
func (c *collector) waitFor(t *testing.T, state State) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-c.events:
			if ev.State == state {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %v", state)
		}
	}
}

// waitForStreamed blocks until n StateStreaming events have arrived.
func (c *collector) waitForStreamed(t *testing.T, n int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	seen := 0
	for seen < n {
		select {
		case ev := <-c.events:
			if ev.State == StateStreaming {
				seen++
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %d streaming events (saw %d)", n, seen)
		}
	}
}

func ndjsonServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		for _, line := range lines {
			if _, err := w.Write([]byte(line + "\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestController(t *testing.T, baseURL string) (*Controller, *store.Store, *collector) {
	t.Helper()
	st := store.New(nullGateway{}, nil)
	col := newCollector()
	client := NewClient(&ClientConfig{BaseURL: baseURL})
	return NewController(client, st, nil, col.notify), st, col
}

// =============================================================================
// STREAMING RECONCILIATION
// =============================================================================

func TestController_StreamingReconciliation(t *testing.T) {
	srv := ndjsonServer(t,
		`{"response":"Hel"}`,
		`{"response":"lo"}`,
		`{"response":"!","context":[7],"done":true}`,
	)
	ctrl, st, col := newTestController(t, srv.URL)

	ctrl.Ask("hi there")
	ev := col.waitFor(t, StateCompleted)
	ctrl.Wait()

	assert.Equal(t, "Hello!", ev.Content)

	conv := st.Active()
	require.NotNil(t, conv)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "hi there", conv.Messages[0].Content)
	assert.Equal(t, "Hello!", conv.Messages[1].Content,
		"final content should carry no stream marker")
	assert.Equal(t, []int{7}, conv.Context)
	assert.False(t, st.Waiting())
}

func TestController_FormatsAccumulatedBuffer(t *testing.T) {
	srv := ndjsonServer(t,
		`{"response":"**bo"}`,
		`{"response":"ld**","done":true}`,
	)
	ctrl, st, col := newTestController(t, srv.URL)

	ctrl.Ask("hi")
	ev := col.waitFor(t, StateCompleted)
	ctrl.Wait()

	// The bold span closes only once both fragments are in the buffer, so
	// formatting must run over the whole accumulation, not the delta.
	assert.Equal(t, "<b>bold</b>", ev.Content)
	assert.Equal(t, "<b>bold</b>", st.Active().Messages[1].Content)
}

func TestController_MarkerWhileStreaming(t *testing.T) {
	srv := ndjsonServer(t,
		`{"response":"Hi","done":true}`,
	)
	ctrl, st, col := newTestController(t, srv.URL)

	var marked bool
	ctrl.notify = func(ev Event) {
		if ev.State == StateStreaming {
			conv := st.Conversations()[0]
			if strings.HasSuffix(conv.Messages[1].Content, store.StreamMarker) {
				marked = true
			}
		}
		col.notify(ev)
	}

	ctrl.Ask("hi")
	col.waitFor(t, StateCompleted)
	ctrl.Wait()

	assert.True(t, marked, "trailing message should carry the stream marker mid-stream")
	assert.False(t, strings.HasSuffix(st.Active().Messages[1].Content, store.StreamMarker))
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestController_CancelMidStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte(`{"response":"par","context":[3]}` + "\n"))
		w.Write([]byte(`{"response":"tial"}` + "\n"))
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctrl, st, col := newTestController(t, srv.URL)

	ctrl.Ask("hi")
	col.waitForStreamed(t, 2)

	ctrl.Stop()
	ev := col.waitFor(t, StateCancelled)
	ctrl.Wait()

	assert.True(t, strings.HasSuffix(ev.Content, CancelSuffix))
	conv := st.Active()
	content := conv.Messages[1].Content
	assert.True(t, strings.HasSuffix(content, CancelSuffix),
		"content = %q should end with the stopped suffix", content)
	assert.False(t, strings.Contains(content, store.StreamMarker))
	assert.Contains(t, content, "partial")
	assert.Equal(t, []int{3}, conv.Context,
		"context from the last applied fragment must survive cancellation")
	assert.False(t, st.Waiting())
}

func TestController_StopWhenIdleIsNoop(t *testing.T) {
	ctrl, _, _ := newTestController(t, "http://127.0.0.1:1")
	ctrl.Stop() // must not panic
}

// =============================================================================
// CONCURRENT-TURN RECONCILIATION
// =============================================================================

func TestController_ConversationSwitchIsolation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte(`{"response":"slow "}` + "\n"))
		flusher.Flush()
		<-release
		w.Write([]byte(`{"response":"answer","context":[9],"done":true}` + "\n"))
		flusher.Flush()
	}))
	defer srv.Close()

	ctrl, st, col := newTestController(t, srv.URL)

	ctrl.Ask("question for A")
	col.waitForStreamed(t, 1)
	convAID := st.ActiveID()

	// User switches away while A's stream is still open.
	convBID := st.NewConversation().ID
	close(release)

	col.waitFor(t, StateCompleted)
	ctrl.Wait()

	convA := st.Conversation(convAID)
	require.NotNil(t, convA)
	assert.Equal(t, "slow answer", convA.Messages[1].Content)
	assert.Equal(t, []int{9}, convA.Context, "completion must land on the originating conversation")

	convB := st.Conversation(convBID)
	require.NotNil(t, convB)
	assert.Empty(t, convB.Messages, "the newly active conversation must stay untouched")
	assert.Nil(t, convB.Context)
}

func TestController_NewAskCancelsPrevious(t *testing.T) {
	var served atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		if served.CompareAndSwap(false, true) {
			w.Write([]byte(`{"response":"never ends"}` + "\n"))
			flusher.Flush()
			<-r.Context().Done()
			return
		}
		w.Write([]byte(`{"response":"second","done":true}` + "\n"))
		flusher.Flush()
	}))
	defer srv.Close()

	ctrl, st, col := newTestController(t, srv.URL)

	ctrl.Ask("first")
	col.waitForStreamed(t, 1)

	ctrl.Ask("second")

	// The superseded turn is a user-initiated replacement, so it settles
	// as cancelled, never as failed.
	cancelled := col.waitFor(t, StateCancelled)
	assert.True(t, strings.HasSuffix(cancelled.Content, CancelSuffix))

	col.waitFor(t, StateCompleted)
	ctrl.Wait()

	conv := st.Active()
	require.Len(t, conv.Messages, 4)
	assert.Contains(t, conv.Messages[1].Content, "never ends")
	assert.True(t, strings.HasSuffix(conv.Messages[1].Content, CancelSuffix),
		"replaced turn keeps its partial text with the stopped suffix")
	assert.Equal(t, "second", conv.Messages[3].Content)
	assert.False(t, st.Waiting())
}

func TestController_ConcurrentAsks(t *testing.T) {
	srv := ndjsonServer(t, `{"response":"ok","done":true}`)
	ctrl, st, _ := newTestController(t, srv.URL)

	const callers = 4
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctrl.Ask("ping")
		}()
	}
	wg.Wait()
	ctrl.Wait()

	// Each submit lands a user message and an assistant reply; serialized
	// turns never lose or interleave a pair.
	conv := st.Active()
	require.NotNil(t, conv)
	assert.Len(t, conv.Messages, 2*callers)
	assert.False(t, st.Waiting())
}

// =============================================================================
// FAILURE
// =============================================================================

func TestController_FailureBeforeAnyBytes(t *testing.T) {
	ctrl, st, col := newTestController(t, "http://127.0.0.1:1")

	ctrl.Ask("hi")
	ev := col.waitFor(t, StateFailed)
	ctrl.Wait()

	assert.Error(t, ev.Err)
	assert.Equal(t, failureMessage, st.Active().Messages[1].Content)
	assert.False(t, st.Waiting())
}

func TestController_ServerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctrl, st, col := newTestController(t, srv.URL)

	ctrl.Ask("hi")
	col.waitFor(t, StateFailed)
	ctrl.Wait()

	assert.Equal(t, failureMessage, st.Active().Messages[1].Content)
	assert.False(t, st.Waiting())
}

// =============================================================================
// NON-STREAMING MODE
// =============================================================================

func TestController_NonStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"whole answer","context":[5],"done":true}`))
	}))
	defer srv.Close()

	ctrl, st, col := newTestController(t, srv.URL)
	ctrl.Streaming = false

	ctrl.Ask("hi")
	ev := col.waitFor(t, StateCompleted)
	ctrl.Wait()

	assert.Equal(t, "whole answer", ev.Content)
	assert.Equal(t, "whole answer", st.Active().Messages[1].Content)
	assert.Equal(t, []int{5}, st.Active().Context)
}
