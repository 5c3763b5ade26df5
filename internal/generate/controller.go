// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/jeranaias/gbho-tui/internal/format"
	"github.com/jeranaias/gbho-tui/internal/memory"
	"github.com/jeranaias/gbho-tui/internal/store"
)

// =============================================================================
// TURN STATES
// =============================================================================

// State is the lifecycle state of a generation turn.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateStreaming
	StateCompleted
	StateCancelled
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CancelSuffix replaces the stream marker when a turn is stopped.
const CancelSuffix = "(stopped)"

// failureMessage substitutes for the assistant message when a turn fails
// before any server output arrived.
const failureMessage = "Something went wrong. Is the inference server running?"

// Event describes a state change or content update of the current turn.
// Events fire on the turn goroutine; handlers must be quick or hand off.
type Event struct {
	ConvID string
	MsgID  string
	State  State

	// Delta is the raw text added by the latest fragment.
	Delta string

	// Content is the formatted accumulated buffer.
	Content string

	// Err is set on StateFailed.
	Err error
}

// Notify receives turn events. May be nil.
type Notify func(Event)

// =============================================================================
// TURN
// =============================================================================

// turn holds the mutable state of one generation cycle. The conversation
// and message IDs are captured when the turn starts; every write targets
// those IDs so a slow stream can never touch a conversation the user
// switched to later.
type turn struct {
	mu sync.Mutex

	convID string
	msgID  string

	buffer         strings.Builder
	workingContext []int
	received       bool
	cancelled      bool
}

func (t *turn) apply(frag Fragment) (content string, delta string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.received = true
	t.buffer.WriteString(frag.Response)
	if frag.Context != nil {
		// The server sends a complete context, so replace, never merge.
		t.workingContext = frag.Context
	}
	return t.buffer.String(), frag.Response
}

func (t *turn) snapshot() (content string, workingContext []int, received, cancelled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buffer.String(), t.workingContext, t.received, t.cancelled
}

func (t *turn) markCancelled() (workingContext []int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = true
	return t.workingContext
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller orchestrates generation turns against the inference server.
// It is safe for concurrent use; at most one turn runs at a time, and
// starting a new turn cancels the previous one.
type Controller struct {
	client   *Client
	store    *store.Store
	memories *memory.Cache
	notify   Notify

	// Streaming selects NDJSON streaming; when false each turn is a
	// single non-streaming request.
	Streaming bool

	cancelMgr *cancelManager
	wg        sync.WaitGroup

	// askMu serializes Ask with itself and with Wait, so two submits can
	// never race on the WaitGroup or start overlapping turns.
	askMu sync.Mutex

	mu      sync.Mutex
	current *turn
}

// NewController creates a controller. The memory cache and notify callback
// may be nil.
func NewController(client *Client, st *store.Store, memories *memory.Cache, notify Notify) *Controller {
	return &Controller{
		client:    client,
		store:     st,
		memories:  memories,
		notify:    notify,
		Streaming: true,
		cancelMgr: newCancelManager(),
	}
}

func (c *Controller) emit(ev Event) {
	if c.notify != nil {
		c.notify(ev)
	}
}

// Ask starts a generation turn for the given user input. The input is
// appended to the active conversation (memory triggers stripped), an empty
// assistant placeholder follows it, and a background goroutine streams the
// response into that placeholder. If a previous turn is still running it is
// cancelled first and Ask blocks until it has settled.
func (c *Controller) Ask(input string) {
	c.askMu.Lock()
	defer c.askMu.Unlock()

	// Only one turn at a time: a new ask supersedes the previous turn,
	// which settles as cancelled (it is a user-initiated replacement,
	// not a failure). Wait for its terminal transition so store writes
	// never interleave between turns.
	c.Stop()
	c.wg.Wait()

	if c.store.Active() == nil {
		c.store.NewConversation()
	}

	userMsg := c.store.AddUserMessage(input)
	if userMsg == nil {
		return
	}
	placeholder := c.store.AddAssistantMessage()
	if placeholder == nil {
		return
	}

	conv := c.store.Active()
	t := &turn{
		convID:         conv.ID,
		msgID:          placeholder.ID,
		workingContext: conv.Context,
	}

	prompt := userMsg.Content
	if c.memories != nil {
		prompt = c.memories.Preamble() + prompt
	}

	c.mu.Lock()
	c.current = t
	c.mu.Unlock()

	c.store.SetWaiting(true)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelMgr.set(cancel)

	c.wg.Add(1)
	go c.run(ctx, cancel, t, prompt, conv.Context)
}

// Stop cancels the in-flight turn, if any. The working continuation
// context accumulated so far is persisted first so the next turn can
// resume coherently.
func (c *Controller) Stop() {
	c.mu.Lock()
	t := c.current
	c.mu.Unlock()
	if t == nil {
		return
	}

	workingContext := t.markCancelled()
	if workingContext != nil {
		c.store.SetContext(t.convID, workingContext)
	}
	c.cancelMgr.cancel()
}

// Wait blocks until the current turn, if any, has settled.
func (c *Controller) Wait() {
	c.askMu.Lock()
	defer c.askMu.Unlock()
	c.wg.Wait()
}

// =============================================================================
// TURN EXECUTION
// =============================================================================

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, t *turn, prompt string, turnContext []int) {
	// Waiting must clear on every terminal path, including panics in
	// fragment handling.
	defer func() {
		cancel()
		c.mu.Lock()
		if c.current == t {
			c.current = nil
		}
		c.mu.Unlock()
		c.store.SetWaiting(false)
		c.wg.Done()
	}()

	c.emit(Event{ConvID: t.convID, MsgID: t.msgID, State: StateRequesting})

	var err error
	if c.Streaming {
		err = c.client.GenerateStream(ctx, prompt, turnContext, func(frag Fragment) {
			content, delta := t.apply(frag)
			formatted := format.Format(content)
			c.store.UpdateTurnMessage(t.convID, t.msgID, formatted, true)
			c.emit(Event{
				ConvID:  t.convID,
				MsgID:   t.msgID,
				State:   StateStreaming,
				Delta:   delta,
				Content: formatted,
			})
		})
	} else {
		var frag *Fragment
		frag, err = c.client.Generate(ctx, prompt, turnContext)
		if err == nil {
			t.apply(*frag)
		}
	}

	c.settle(t, err)
}

// settle applies the terminal transition for a turn.
func (c *Controller) settle(t *turn, err error) {
	content, workingContext, received, cancelled := t.snapshot()
	formatted := format.Format(content)

	switch {
	case cancelled:
		final := formatted
		if final != "" {
			final += " " + CancelSuffix
		} else {
			final = CancelSuffix
		}
		c.store.UpdateTurnMessage(t.convID, t.msgID, final, false)
		if workingContext != nil {
			c.store.SetContext(t.convID, workingContext)
		}
		c.emit(Event{ConvID: t.convID, MsgID: t.msgID, State: StateCancelled, Content: final})

	case err != nil:
		log.Printf("generate: turn failed: %v", err)
		if !received {
			c.store.UpdateTurnMessage(t.convID, t.msgID, failureMessage, false)
			formatted = failureMessage
		} else {
			// Soft failure: keep the partial text and context.
			c.store.UpdateTurnMessage(t.convID, t.msgID, formatted, false)
			if workingContext != nil {
				c.store.SetContext(t.convID, workingContext)
			}
		}
		c.emit(Event{ConvID: t.convID, MsgID: t.msgID, State: StateFailed, Content: formatted, Err: err})

	default:
		c.store.UpdateTurnMessage(t.convID, t.msgID, formatted, false)
		if workingContext != nil {
			c.store.SetContext(t.convID, workingContext)
		}
		c.emit(Event{ConvID: t.convID, MsgID: t.msgID, State: StateCompleted, Content: formatted})
	}
}
