// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

// Package host talks to the hosting site's relay endpoint for the pieces
// of the conversation that live host-side: the welcome message, predefined
// quick replies, and page context. Every call degrades gracefully — a
// missing or failing relay yields fallbacks, never a broken chat.
package host

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// =============================================================================
// RELAY CLIENT
// =============================================================================

// Relay actions understood by the host endpoint.
const (
	actionContext      = "cheshire_get_context_information"
	actionWelcome      = "cheshire_get_welcome_message"
	actionQuickReplies = "cheshire_get_predefined_responses"
)

// Relay is a client for the host's relay endpoint. A zero URL means no
// relay is configured; calls then return their fallback values.
type Relay struct {
	url        string
	nonce      string
	httpClient *http.Client
}

// NewRelay creates a relay client. url may be empty.
func NewRelay(relayURL, nonce string) *Relay {
	return &Relay{
		url:   relayURL,
		nonce: nonce,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Configured reports whether a relay endpoint is set.
func (r *Relay) Configured() bool {
	return r.url != ""
}

// envelope is the relay's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// call posts a form-encoded action and decodes the response envelope.
func (r *Relay) call(ctx context.Context, action string, params url.Values) (json.RawMessage, bool) {
	if r.url == "" {
		return nil, false
	}

	form := url.Values{}
	form.Set("action", action)
	if r.nonce != "" {
		form.Set("nonce", r.nonce)
	}
	for key, vals := range params {
		for _, v := range vals {
			form.Add(key, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, false
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || !env.Success {
		return nil, false
	}
	return env.Data, true
}

// =============================================================================
// RELAY OPERATIONS
// =============================================================================

// Context fetches free-text context for the content the user is viewing.
// Any failure yields an empty context so the message still goes out.
func (r *Relay) Context(ctx context.Context, contentID, contentURL string) string {
	params := url.Values{}
	params.Set("page_id", contentID)
	params.Set("page_url", contentURL)

	data, ok := r.call(ctx, actionContext, params)
	if !ok {
		return ""
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return ""
	}
	return text
}

// Welcome fetches the greeting for a fresh conversation, returning
// fallback when the relay is absent or fails.
func (r *Relay) Welcome(ctx context.Context, fallback string) string {
	data, ok := r.call(ctx, actionWelcome, nil)
	if !ok {
		return fallback
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil || text == "" {
		return fallback
	}
	return text
}

// QuickReplies fetches the predefined replies rendered as clickable tags.
// Failures yield no tags.
func (r *Relay) QuickReplies(ctx context.Context, contentID string) []string {
	params := url.Values{}
	params.Set("page_id", contentID)

	data, ok := r.call(ctx, actionQuickReplies, params)
	if !ok {
		return nil
	}
	var replies []string
	if err := json.Unmarshal(data, &replies); err != nil {
		return nil
	}
	return replies
}
