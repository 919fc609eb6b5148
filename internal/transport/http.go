// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// OUTBOUND MESSAGE
// =============================================================================

// OutboundMessage is the wire form of one user message.
type OutboundMessage struct {
	Text   string `json:"text"`
	UserID string `json:"user_id"`
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration for the request/response strategy.
type ClientConfig struct {
	// BaseURL is the Cheshire Cat API base URL.
	BaseURL string

	// AuthToken is sent as a bearer token when non-empty.
	AuthToken string

	// Timeout for one message round-trip (default: 60s; replies wait on
	// model generation, so this is deliberately generous).
	Timeout time.Duration
}

// =============================================================================
// CLIENT (STRATEGY A - REQUEST/RESPONSE)
// =============================================================================

// Client sends one message and awaits one reply over HTTP. No connection
// state is kept between calls and failures are never retried; the caller
// decides what to surface.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

// NewClient creates a request/response client.
func NewClient(config ClientConfig) *Client {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Send delivers one message and returns the reply payload.
func (c *Client) Send(ctx context.Context, text, userID string) (*Payload, error) {
	if c.config.BaseURL == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(OutboundMessage{Text: text, UserID: userID})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeProtocol, Message: "failed to marshal message", Cause: err}
	}

	url := strings.TrimSuffix(c.config.BaseURL, "/") + "/message"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeNetwork, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &ClientError{Type: ErrTypeNetwork, Message: "Timeout"}
		}
		return nil, &ClientError{Type: ErrTypeNetwork, Message: "connection failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := http.StatusText(resp.StatusCode)
		if reason == "" {
			reason = "unknown"
		}
		return nil, &ClientError{Type: ErrTypeNetwork, Message: reason}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeNetwork, Message: "failed to read reply", Cause: err}
	}

	return ParsePayload(data)
}
