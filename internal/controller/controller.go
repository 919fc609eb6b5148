// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

// Package controller owns the conversation state machine. It accepts user
// submissions, picks a transport strategy, applies streaming events in
// arrival order, and keeps the transcript store and display in step. All
// state lives on the Controller instance; there are no package globals.
package controller

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/cheshirecat-tools/chat-tui/internal/format"
	"github.com/cheshirecat-tools/chat-tui/internal/history"
	"github.com/cheshirecat-tools/chat-tui/internal/host"
	"github.com/cheshirecat-tools/chat-tui/internal/model"
	"github.com/cheshirecat-tools/chat-tui/internal/sanitize"
	"github.com/cheshirecat-tools/chat-tui/internal/transport"
)

// ErrBusy is returned when a submission arrives while a reply is already
// in flight. Submissions are serialized, never interleaved.
var ErrBusy = errors.New("a reply is already in flight")

// reinforcementMarker introduces the reinforcement block in outgoing text.
const reinforcementMarker = "#IMPORTANT"

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Sender is the request/response transport strategy.
type Sender interface {
	Send(ctx context.Context, text, userID string) (*transport.Payload, error)
}

// Streamer is the streaming transport strategy.
type Streamer interface {
	Connect() error
	Close() error
	Send(text, userID string) error
	State() transport.SocketState
	SetHandler(func(transport.SocketEvent))
}

// Options configures a Controller.
type Options struct {
	// Streaming selects Strategy B when a connection is open; Strategy A
	// remains the fallback either way.
	Streaming bool

	// Configured is false when no endpoint is set; submissions then
	// short-circuit to an error entry without touching the network.
	Configured bool

	// UserID identifies this client on the wire.
	UserID string

	// ContextEnabled fetches page context through the relay before
	// composing the outgoing text.
	ContextEnabled bool
	ContentID      string
	ContentURL     string

	// ReinforcementEnabled appends ReinforcementText under the marker.
	ReinforcementEnabled bool
	ReinforcementText    string

	// Links controls related-link augmentation of replies.
	Links format.LinkOptions

	// WelcomeMessage is the greeting (and relay-failure fallback).
	WelcomeMessage string

	// Logger receives debug output; nil discards it.
	Logger *log.Logger
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller drives one conversation. Safe for concurrent use; overlapping
// submissions are rejected with ErrBusy rather than interleaved.
type Controller struct {
	opts    Options
	sender  Sender
	socket  Streamer
	relay   *host.Relay
	store   *history.Store
	display Display
	logger  *log.Logger

	mu        sync.Mutex
	state     State
	accum     strings.Builder
	justEnded bool // previous reply finished as a stream
}

// New creates a controller and registers it as the socket event handler.
// socket and relay may be nil when the corresponding feature is off.
func New(opts Options, sender Sender, socket Streamer, relay *host.Relay, store *history.Store, display Display) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	c := &Controller{
		opts:    opts,
		sender:  sender,
		socket:  socket,
		relay:   relay,
		store:   store,
		display: display,
		logger:  logger,
	}
	if socket != nil {
		socket.SetHandler(c.HandleSocketEvent)
	}
	return c
}

// State returns the current conversation state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UpdateOptions applies changed feature toggles, typically from a config
// reload. Transport and identity fields must not change after creation.
func (c *Controller) UpdateOptions(fn func(*Options)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.opts)
}

// =============================================================================
// STARTUP & REPLAY
// =============================================================================

// Start replays the stored transcript, or greets an empty one. Replay uses
// the same rendering path as live messages with persistence suppressed, so
// starting twice never duplicates storage.
func (c *Controller) Start(ctx context.Context) {
	transcript := c.store.Load()
	if transcript.IsEmpty() {
		c.showWelcome(ctx)
		return
	}
	for _, msg := range transcript.Messages {
		c.render(msg)
	}
	c.display.ScrollToLatest()
}

// NewConversation clears the transcript and greets the user afresh.
func (c *Controller) NewConversation(ctx context.Context) error {
	c.mu.Lock()
	c.finalizeStreamLocked()
	c.state = Idle
	c.mu.Unlock()

	if err := c.store.Clear(); err != nil {
		return err
	}
	c.display.Reset()
	c.showWelcome(ctx)
	return nil
}

func (c *Controller) showWelcome(ctx context.Context) {
	welcome := c.opts.WelcomeMessage
	if c.relay != nil && c.relay.Configured() {
		welcome = c.relay.Welcome(ctx, welcome)
	}
	// The greeting is ephemeral: shown, never persisted, so it does not
	// replay as a stored bot message.
	c.display.AppendBot(sanitize.Clean(welcome))
	c.display.ScrollToLatest()
}

// render displays a stored message without persisting it.
func (c *Controller) render(msg model.Message) {
	switch msg.Role {
	case model.RoleUser:
		c.display.AppendUser(sanitize.EncodeText(msg.Text))
	case model.RoleBot:
		// Bot text is persisted post-format; sanitize again on the way
		// out in case the stored file was edited.
		c.display.AppendBot(sanitize.Clean(msg.Text))
	case model.RoleError:
		c.display.AppendError(sanitize.EncodeText(msg.Text))
	}
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Submit sends one user message and blocks until it is dispatched (and,
// for the request/response strategy, until the reply is handled). Empty
// or whitespace-only input is a silent no-op. A submission while a reply
// is in flight returns ErrBusy.
func (c *Controller) Submit(ctx context.Context, input string) error {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = Sending
	c.justEnded = false
	c.mu.Unlock()

	// Optimistic display and persistence of the user's own message.
	c.display.AppendUser(sanitize.EncodeText(text))
	c.display.ShowLoader()
	c.display.SetSendEnabled(false)
	c.display.ScrollToLatest()
	if err := c.store.Append(model.NewUserMessage(text)); err != nil {
		c.logger.Printf("persist user message: %v", err)
	}

	if !c.opts.Configured {
		c.fail("chat endpoint is not configured")
		return nil
	}

	outgoing := c.compose(ctx, text)

	if c.opts.Streaming && c.socket != nil && c.socket.State() == transport.SocketOpen {
		// Transition before Send: the reader goroutine may deliver the
		// first token while Send is still on the stack, and a late write
		// to state here would clobber Streaming and drop that token.
		c.mu.Lock()
		c.state = AwaitingReply
		c.mu.Unlock()
		if err := c.socket.Send(outgoing, c.opts.UserID); err != nil {
			c.logger.Printf("socket send failed, falling back: %v", err)
			c.sendHTTP(ctx, outgoing)
		}
		return nil
	}

	c.sendHTTP(ctx, outgoing)
	return nil
}

// compose builds the outgoing text: message, then optional context block,
// then optional reinforcement block, in that fixed order.
func (c *Controller) compose(ctx context.Context, text string) string {
	c.mu.Lock()
	opts := c.opts
	c.mu.Unlock()

	out := text
	if opts.ContextEnabled && c.relay != nil {
		if info := c.relay.Context(ctx, opts.ContentID, opts.ContentURL); info != "" {
			out += "\n\n" + info
		}
	}
	if opts.ReinforcementEnabled && opts.ReinforcementText != "" {
		out += "\n\n" + reinforcementMarker + "\n" + opts.ReinforcementText + "\n"
	}
	return out
}

// sendHTTP runs the request/response strategy to completion.
func (c *Controller) sendHTTP(ctx context.Context, outgoing string) {
	c.mu.Lock()
	c.state = AwaitingReply
	c.mu.Unlock()

	payload, err := c.sender.Send(ctx, outgoing, c.opts.UserID)
	if err != nil {
		c.fail(err.Error())
		return
	}
	c.completeReply(payload)
}

// fail converts any failure into exactly one error-role entry and returns
// the conversation to Idle with the loader gone.
func (c *Controller) fail(reason string) {
	c.mu.Lock()
	c.finalizeStreamLocked()
	c.state = Idle
	c.mu.Unlock()

	c.display.HideLoader()
	c.display.SetSendEnabled(true)
	c.display.AppendError(sanitize.EncodeText(reason))
	c.display.ScrollToLatest()
	if err := c.store.Append(model.NewErrorMessage(reason)); err != nil {
		c.logger.Printf("persist error message: %v", err)
	}
}

// completeReply handles a full, non-streamed reply payload.
func (c *Controller) completeReply(payload *transport.Payload) {
	c.mu.Lock()
	c.state = Idle
	links := c.opts.Links
	c.mu.Unlock()

	content := format.Reply(payload, links)
	markup := sanitize.WithLineBreaks(sanitize.Clean(content))

	c.display.HideLoader()
	c.display.SetSendEnabled(true)
	c.display.AppendBot(markup)
	c.display.ScrollToLatest()
	if err := c.store.Append(model.NewBotMessage(content)); err != nil {
		c.logger.Printf("persist bot message: %v", err)
	}
}

// =============================================================================
// STREAMING EVENTS
// =============================================================================

// HandleSocketEvent applies one streaming event. Events must arrive in
// order; each token concatenates onto the shared accumulator.
func (c *Controller) HandleSocketEvent(ev transport.SocketEvent) {
	switch ev.Kind {
	case transport.EventToken:
		c.applyToken(ev.Token)
	case transport.EventReply:
		c.applyReply(ev.Payload)
	case transport.EventError:
		reason := "streaming connection error"
		if ev.Err != nil {
			reason = ev.Err.Error()
		}
		c.fail(reason)
	case transport.EventClosed:
		c.mu.Lock()
		prev := c.state
		c.finalizeStreamLocked()
		c.state = Idle
		c.mu.Unlock()
		switch prev {
		case Idle:
			// Nothing in flight.
		case Streaming:
			c.display.HideLoader()
			c.display.SetSendEnabled(true)
		default:
			// The connection ended with a submission still unanswered;
			// the loader must never outlive the connection.
			c.fail("connection closed before a reply arrived")
		}
	}
}

// applyToken appends one token to the in-progress reply. The first token
// opens the bot slot and re-enables input.
func (c *Controller) applyToken(token string) {
	c.mu.Lock()
	if c.state != Streaming {
		c.state = Streaming
		c.accum.Reset()
		c.mu.Unlock()
		c.display.HideLoader()
		c.display.BeginBotSlot()
		c.display.SetSendEnabled(true)
		c.mu.Lock()
	}
	c.accum.WriteString(token)
	current := c.accum.String()
	c.mu.Unlock()

	c.display.UpdateBotSlot(sanitize.WithLineBreaks(sanitize.Clean(current)))
	c.display.ScrollToLatest()
}

// applyReply handles a completion payload. When a stream is active this
// finalizes it (appending related links); the full payload itself is not
// displayed again, since its text already arrived token by token. With no
// stream active it is a complete non-streamed reply.
func (c *Controller) applyReply(payload *transport.Payload) {
	c.mu.Lock()
	if c.state == Streaming {
		if payload != nil && payload.IsObject() {
			if links := format.RelatedLinks(payload.MemoryItems(), c.opts.Links); links != "" {
				c.accum.WriteString(links)
				current := c.accum.String()
				c.mu.Unlock()
				c.display.UpdateBotSlot(sanitize.WithLineBreaks(sanitize.Clean(current)))
				c.mu.Lock()
			}
		}
		c.finalizeStreamLocked()
		c.state = Idle
		c.mu.Unlock()

		c.display.HideLoader()
		c.display.SetSendEnabled(true)
		c.display.ScrollToLatest()
		return
	}
	if c.justEnded {
		// Legacy servers send a full payload right after the token
		// stream for the same reply; display it only once.
		c.justEnded = false
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.completeReply(payload)
}

// finalizeStreamLocked flushes the accumulator into one persisted bot
// message. Partial content is kept, never discarded. Caller holds c.mu.
func (c *Controller) finalizeStreamLocked() {
	if c.state != Streaming {
		return
	}
	content := c.accum.String()
	c.accum.Reset()
	c.justEnded = true
	if content == "" {
		return
	}
	if err := c.store.Append(model.NewBotMessage(content)); err != nil {
		c.logger.Printf("persist streamed message: %v", err)
	}
}

// =============================================================================
// SHUTDOWN
// =============================================================================

// CloseStream finalizes any in-flight stream and closes the streaming
// connection. Called when the widget closes; accumulated content is
// flushed, not discarded.
func (c *Controller) CloseStream() {
	c.mu.Lock()
	c.finalizeStreamLocked()
	c.state = Idle
	c.mu.Unlock()

	if c.socket != nil {
		if err := c.socket.Close(); err != nil {
			c.logger.Printf("close socket: %v", err)
		}
	}
}

// OpenStream connects the streaming transport if streaming is configured.
// Idempotent: opening while connected is a no-op.
func (c *Controller) OpenStream() {
	c.mu.Lock()
	streaming := c.opts.Streaming
	c.mu.Unlock()
	if !streaming || c.socket == nil {
		return
	}
	if err := c.socket.Connect(); err != nil {
		c.logger.Printf("streaming connect failed, will fall back to http: %v", err)
	}
}
