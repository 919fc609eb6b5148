// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

package transport

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// =============================================================================
// SOCKET STATE
// =============================================================================

// SocketState tracks the streaming connection lifecycle.
type SocketState int

const (
	SocketDisconnected SocketState = iota
	SocketConnecting
	SocketOpen
	SocketClosed
	SocketErrored
)

func (s SocketState) String() string {
	switch s {
	case SocketDisconnected:
		return "disconnected"
	case SocketConnecting:
		return "connecting"
	case SocketOpen:
		return "open"
	case SocketClosed:
		return "closed"
	case SocketErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// =============================================================================
// SOCKET EVENTS
// =============================================================================

// EventKind discriminates socket events delivered to the handler.
type EventKind int

const (
	// EventToken carries one incremental fragment of an in-progress reply.
	EventToken EventKind = iota

	// EventReply carries the complete reply payload.
	EventReply

	// EventError reports a connection or protocol failure.
	EventError

	// EventClosed reports that the connection ended.
	EventClosed
)

// SocketEvent is one occurrence on the streaming connection. Events for a
// single connection are delivered sequentially, in arrival order.
type SocketEvent struct {
	Kind    EventKind
	Token   string
	Payload *Payload
	Err     error
}

// =============================================================================
// SOCKET (STRATEGY B - STREAMING)
// =============================================================================

// Socket is a persistent streaming connection to the Cheshire Cat service.
// Connect and Close are idempotent; events arrive on the handler from a
// single reader goroutine.
type Socket struct {
	url     string
	dialer  *websocket.Dialer
	handler func(SocketEvent)

	mu      sync.Mutex
	conn    *websocket.Conn
	state   SocketState
	writeMu sync.Mutex
}

// NewSocket creates a streaming client for the given WebSocket URL.
// The handler must be set before Connect.
func NewSocket(socketURL string) *Socket {
	return &Socket{
		url: socketURL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		state: SocketDisconnected,
	}
}

// SetHandler installs the event callback. Must be called before Connect.
func (s *Socket) SetHandler(handler func(SocketEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// State returns the current connection state.
func (s *Socket) State() SocketState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect opens the connection and starts the read loop. Calling Connect
// while already connecting or open is a no-op, so repeated open gestures
// never stack connections.
func (s *Socket) Connect() error {
	s.mu.Lock()
	if s.url == "" {
		s.mu.Unlock()
		return ErrNotConfigured
	}
	if s.state == SocketConnecting || s.state == SocketOpen {
		s.mu.Unlock()
		return nil
	}
	s.state = SocketConnecting
	handler := s.handler
	s.mu.Unlock()

	conn, _, err := s.dialer.Dial(s.url, nil)
	if err != nil {
		s.mu.Lock()
		s.state = SocketErrored
		s.mu.Unlock()
		clientErr := &ClientError{Type: ErrTypeNetwork, Message: "streaming connection failed", Cause: err}
		if handler != nil {
			handler(SocketEvent{Kind: EventError, Err: clientErr})
		}
		return clientErr
	}

	s.mu.Lock()
	s.conn = conn
	s.state = SocketOpen
	s.mu.Unlock()

	go s.readLoop(conn)
	return nil
}

// Send delivers one user message over the open connection. The reply
// arrives later through the handler, never as a return value.
func (s *Socket) Send(text, userID string) error {
	s.mu.Lock()
	conn := s.conn
	open := s.state == SocketOpen
	s.mu.Unlock()
	if !open || conn == nil {
		return ErrSocketNotOpen
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.WriteJSON(OutboundMessage{Text: text, UserID: userID}); err != nil {
		return &ClientError{Type: ErrTypeNetwork, Message: "failed to send message", Cause: err}
	}
	return nil
}

// Close shuts the connection down. Safe to call in any state.
func (s *Socket) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	if s.state == SocketOpen || s.state == SocketConnecting {
		s.state = SocketClosed
	}
	s.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// readLoop pumps inbound messages into events until the connection ends.
func (s *Socket) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			deliberate := s.conn == nil // Close already ran
			if !deliberate {
				s.conn = nil
				s.state = SocketErrored
			}
			handler := s.handler
			s.mu.Unlock()

			if handler == nil {
				return
			}
			if deliberate || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				handler(SocketEvent{Kind: EventClosed})
			} else {
				handler(SocketEvent{Kind: EventError, Err: &ClientError{
					Type: ErrTypeNetwork, Message: "streaming connection lost", Cause: err,
				}})
			}
			return
		}

		s.mu.Lock()
		handler := s.handler
		s.mu.Unlock()
		if handler == nil {
			continue
		}

		payload, perr := ParsePayload(data)
		if perr != nil {
			// A malformed frame poisons one reply, not the connection.
			handler(SocketEvent{Kind: EventError, Err: perr})
			continue
		}
		switch payload.Type() {
		case "chat_token":
			handler(SocketEvent{Kind: EventToken, Token: payload.TokenContent(), Payload: payload})
		default:
			// "chat" and untyped payloads both complete the reply.
			handler(SocketEvent{Kind: EventReply, Payload: payload})
		}
	}
}

// =============================================================================
// URL DERIVATION
// =============================================================================

// DeriveSocketURL computes the streaming endpoint. An explicit override is
// used verbatim; otherwise the URL is derived from the API base by swapping
// the scheme to ws(s) and appending the ws path. The auth token rides as a
// query parameter because WebSocket handshakes cannot carry custom headers
// from every client.
func DeriveSocketURL(baseURL, override, token string) string {
	socketURL := override
	if socketURL == "" {
		if baseURL == "" {
			return ""
		}
		derived := baseURL
		switch {
		case strings.HasPrefix(derived, "https://"):
			derived = "wss://" + strings.TrimPrefix(derived, "https://")
		case strings.HasPrefix(derived, "http://"):
			derived = "ws://" + strings.TrimPrefix(derived, "http://")
		}
		if !strings.HasSuffix(derived, "/") {
			derived += "/"
		}
		socketURL = derived + "ws"
	}
	if token != "" {
		sep := "?"
		if strings.Contains(socketURL, "?") {
			sep = "&"
		}
		socketURL += sep + "token=" + url.QueryEscape(token)
	}
	return socketURL
}
