// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// =============================================================================
// HTTP CLIENT TESTS
// =============================================================================

func TestClientSend_Success(t *testing.T) {
	var gotBody OutboundMessage
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/message" {
			t.Errorf("path = %s, want /message", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"Hello there"}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, AuthToken: "secret"})
	payload, err := client.Send(context.Background(), "hi", "user-1")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotBody.Text != "hi" || gotBody.UserID != "user-1" {
		t.Errorf("request body = %+v", gotBody)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if text, ok := payload.Field("text"); !ok || text != "Hello there" {
		t.Errorf("payload text = %q, %v", text, ok)
	}
}

func TestClientSend_NoAuthHeaderWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected Authorization header %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`"ok"`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	payload, err := client.Send(context.Background(), "hi", "u")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if payload.Text() != "ok" {
		t.Errorf("payload text = %q", payload.Text())
	}
}

func TestClientSend_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	_, err := client.Send(context.Background(), "hi", "u")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !IsNetwork(err) {
		t.Errorf("error not categorized as network: %v", err)
	}
	if !strings.Contains(err.Error(), "Internal Server Error") {
		t.Errorf("error message lacks status text: %v", err)
	}
}

func TestClientSend_NotConfigured(t *testing.T) {
	client := NewClient(ClientConfig{})
	_, err := client.Send(context.Background(), "hi", "u")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
	if !IsConfiguration(err) {
		t.Errorf("error not categorized as configuration: %v", err)
	}
}

func TestClientSend_ConnectionRefused(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1", Timeout: 2 * time.Second})
	_, err := client.Send(context.Background(), "hi", "u")
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !IsNetwork(err) {
		t.Errorf("error not categorized as network: %v", err)
	}
}

func TestClientSend_TrailingSlashBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/message" {
			t.Errorf("path = %s, want /message", r.URL.Path)
		}
		w.Write([]byte(`"ok"`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL + "/"})
	if _, err := client.Send(context.Background(), "hi", "u"); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

// =============================================================================
// PAYLOAD TESTS
// =============================================================================

func mustParsePayload(t *testing.T, data string) *Payload {
	t.Helper()
	p, err := ParsePayload([]byte(data))
	if err != nil {
		t.Fatalf("ParsePayload(%s): %v", data, err)
	}
	return p
}

func TestParsePayload_Forms(t *testing.T) {
	obj := mustParsePayload(t, `{"type":"chat","text":"hi"}`)
	if !obj.IsObject() {
		t.Error("object payload not recognized")
	}
	if obj.Type() != "chat" {
		t.Errorf("Type() = %q", obj.Type())
	}

	str := mustParsePayload(t, `"plain reply"`)
	if str.IsObject() || str.Text() != "plain reply" {
		t.Errorf("string payload = %+v", str)
	}

	// Valid JSON that is neither object nor string keeps its serialized
	// form so the formatter's fallback can show it.
	arr := mustParsePayload(t, `[1,2]`)
	if arr.IsObject() || arr.Text() != "[1,2]" {
		t.Errorf("array payload = %+v", arr)
	}
}

func TestParsePayload_InvalidJSONIsProtocolError(t *testing.T) {
	for _, raw := range []string{`not json at all`, `{"broken json`, ``} {
		p, err := ParsePayload([]byte(raw))
		if err == nil {
			t.Fatalf("ParsePayload(%q) = %+v, want error", raw, p)
		}
		if !IsProtocol(err) {
			t.Errorf("ParsePayload(%q) error not categorized as protocol: %v", raw, err)
		}
	}
}

func TestPayloadField_SkipsNonStringAndEmpty(t *testing.T) {
	p := PayloadFromObject(map[string]any{
		"text":    "",
		"output":  42,
		"content": "real",
	})
	if _, ok := p.Field("text"); ok {
		t.Error("empty field reported present")
	}
	if _, ok := p.Field("output"); ok {
		t.Error("non-string field reported present")
	}
	if v, ok := p.Field("content"); !ok || v != "real" {
		t.Errorf("Field(content) = %q, %v", v, ok)
	}
}

func TestMemoryItems(t *testing.T) {
	p := mustParsePayload(t, `{
		"text": "answer",
		"why": {
			"memory": {
				"declarative": [
					{"score": 0.91, "metadata": {"origin": "WordPress", "url": "https://site.test/a", "title": "A", "wp_id": 42}},
					{"score": 0.5, "metadata": {"origin": "WordPress", "url": "https://site.test/b", "title": "B", "wp_id": "7"}},
					{"score": 0.95, "metadata": {"origin": "upload"}}
				]
			}
		}
	}`)

	items := p.MemoryItems()
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}
	if items[0].Score != 0.91 || items[0].ContentID != "42" || items[0].Title != "A" {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[1].ContentID != "7" {
		t.Errorf("items[1].ContentID = %q", items[1].ContentID)
	}
	if items[2].Origin != "upload" || items[2].URL != "" {
		t.Errorf("items[2] = %+v", items[2])
	}
}

func TestMemoryItems_MissingSections(t *testing.T) {
	for _, raw := range []string{
		`{"text":"x"}`,
		`{"why":{}}`,
		`{"why":{"memory":{}}}`,
		`{"why":{"memory":{"declarative":"oops"}}}`,
	} {
		if items := mustParsePayload(t, raw).MemoryItems(); len(items) != 0 {
			t.Errorf("MemoryItems(%s) = %v, want empty", raw, items)
		}
	}
}

// =============================================================================
// SOCKET TESTS
// =============================================================================

var upgrader = websocket.Upgrader{}

// streamServer upgrades each connection and feeds inbound messages to fn.
func streamServer(t *testing.T, fn func(conn *websocket.Conn, msg OutboundMessage)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var msg OutboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			fn(conn, msg)
		}
	}))
}

func TestSocket_TokenStreamThenReply(t *testing.T) {
	srv := streamServer(t, func(conn *websocket.Conn, msg OutboundMessage) {
		conn.WriteJSON(map[string]any{"type": "chat_token", "content": "Hel"})
		conn.WriteJSON(map[string]any{"type": "chat_token", "content": "lo"})
		conn.WriteJSON(map[string]any{"type": "chat", "text": "Hello"})
	})
	defer srv.Close()

	events := make(chan SocketEvent, 8)
	sock := NewSocket("ws" + strings.TrimPrefix(srv.URL, "http"))
	sock.SetHandler(func(ev SocketEvent) { events <- ev })
	if err := sock.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer sock.Close()

	if err := sock.Send("hi", "user-1"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var tokens []string
	for {
		select {
		case ev := <-events:
			switch ev.Kind {
			case EventToken:
				tokens = append(tokens, ev.Token)
			case EventReply:
				if got := strings.Join(tokens, ""); got != "Hello" {
					t.Errorf("accumulated tokens = %q, want Hello", got)
				}
				if text, ok := ev.Payload.Field("text"); !ok || text != "Hello" {
					t.Errorf("reply text = %q, %v", text, ok)
				}
				return
			case EventError:
				t.Fatalf("unexpected error event: %v", ev.Err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for reply event")
		}
	}
}

func TestSocket_MalformedFrameEmitsProtocolError(t *testing.T) {
	srv := streamServer(t, func(conn *websocket.Conn, msg OutboundMessage) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"broken json`))
		conn.WriteJSON(map[string]any{"type": "chat", "text": "still here"})
	})
	defer srv.Close()

	events := make(chan SocketEvent, 8)
	sock := NewSocket("ws" + strings.TrimPrefix(srv.URL, "http"))
	sock.SetHandler(func(ev SocketEvent) { events <- ev })
	if err := sock.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer sock.Close()

	if err := sock.Send("hi", "u"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// First the protocol error for the garbage frame, then the connection
	// keeps working and delivers the next reply.
	select {
	case ev := <-events:
		if ev.Kind != EventError {
			t.Fatalf("first event kind = %v, want error", ev.Kind)
		}
		if !IsProtocol(ev.Err) {
			t.Errorf("error not categorized as protocol: %v", ev.Err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for error event")
	}
	select {
	case ev := <-events:
		if ev.Kind != EventReply {
			t.Fatalf("second event kind = %v, want reply", ev.Kind)
		}
		if text, ok := ev.Payload.Field("text"); !ok || text != "still here" {
			t.Errorf("reply text = %q, %v", text, ok)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reply event")
	}
}

func TestSocket_ConnectIdempotent(t *testing.T) {
	srv := streamServer(t, func(conn *websocket.Conn, msg OutboundMessage) {})
	defer srv.Close()

	sock := NewSocket("ws" + strings.TrimPrefix(srv.URL, "http"))
	sock.SetHandler(func(SocketEvent) {})
	if err := sock.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer sock.Close()

	if err := sock.Connect(); err != nil {
		t.Errorf("second Connect: %v", err)
	}
	if sock.State() != SocketOpen {
		t.Errorf("state = %v, want open", sock.State())
	}
}

func TestSocket_SendBeforeConnect(t *testing.T) {
	sock := NewSocket("ws://127.0.0.1:1/ws")
	if err := sock.Send("hi", "u"); !errors.Is(err, ErrSocketNotOpen) {
		t.Errorf("err = %v, want ErrSocketNotOpen", err)
	}
}

func TestSocket_ConnectFailure(t *testing.T) {
	var mu sync.Mutex
	var got []SocketEvent
	sock := NewSocket("ws://127.0.0.1:1/ws")
	sock.SetHandler(func(ev SocketEvent) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})

	err := sock.Connect()
	if err == nil {
		t.Fatal("expected dial failure")
	}
	if !IsNetwork(err) {
		t.Errorf("error not categorized as network: %v", err)
	}
	if sock.State() != SocketErrored {
		t.Errorf("state = %v, want errored", sock.State())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Kind != EventError {
		t.Errorf("events = %+v, want single error event", got)
	}
}

func TestSocket_CloseEmitsClosedEvent(t *testing.T) {
	srv := streamServer(t, func(conn *websocket.Conn, msg OutboundMessage) {})
	defer srv.Close()

	events := make(chan SocketEvent, 4)
	sock := NewSocket("ws" + strings.TrimPrefix(srv.URL, "http"))
	sock.SetHandler(func(ev SocketEvent) { events <- ev })
	if err := sock.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := sock.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Kind != EventClosed {
			t.Errorf("event kind = %v, want closed", ev.Kind)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for closed event")
	}
	if sock.State() != SocketClosed {
		t.Errorf("state = %v, want closed", sock.State())
	}

	// A second Close must not fail.
	if err := sock.Close(); err != nil {
		t.Errorf("repeated Close: %v", err)
	}
}

// =============================================================================
// URL DERIVATION TESTS
// =============================================================================

func TestDeriveSocketURL(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		override string
		token    string
		want     string
	}{
		{"http base", "http://cat.test:1865", "", "", "ws://cat.test:1865/ws"},
		{"https base", "https://cat.test", "", "", "wss://cat.test/ws"},
		{"trailing slash", "http://cat.test/", "", "", "ws://cat.test/ws"},
		{"with token", "http://cat.test", "", "s3cr3t", "ws://cat.test/ws?token=s3cr3t"},
		{"token escaping", "http://cat.test", "", "a b&c", "ws://cat.test/ws?token=a+b%26c"},
		{"override wins", "http://cat.test", "wss://other.test/socket", "", "wss://other.test/socket"},
		{"override with token", "", "wss://other.test/socket", "t", "wss://other.test/socket?token=t"},
		{"override with query", "", "wss://other.test/socket?v=2", "t", "wss://other.test/socket?v=2&token=t"},
		{"nothing configured", "", "", "t", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveSocketURL(tt.base, tt.override, tt.token); got != tt.want {
				t.Errorf("DeriveSocketURL(%q, %q, %q) = %q, want %q", tt.base, tt.override, tt.token, got, tt.want)
			}
		})
	}
}

// =============================================================================
// ERROR TAXONOMY TESTS
// =============================================================================

func TestClientError_Matching(t *testing.T) {
	wrapped := &ClientError{Type: ErrTypeConfiguration, Message: "chat endpoint is not configured", Cause: errors.New("inner")}
	if !errors.Is(wrapped, ErrNotConfigured) {
		t.Error("wrapped configuration error does not match sentinel")
	}

	var target *ClientError
	if !errors.As(wrapped, &target) || target.Type != ErrTypeConfiguration {
		t.Error("errors.As failed to extract ClientError")
	}

	other := &ClientError{Type: ErrTypeNetwork, Message: "x"}
	if errors.Is(other, ErrNotConfigured) {
		t.Error("network error matched configuration sentinel")
	}
}
