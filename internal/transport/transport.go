// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

// Package transport delivers messages to the Cheshire Cat service over one
// of two strategies: a request/response HTTP channel or a persistent
// streaming WebSocket. Both surface the same error taxonomy so the
// conversation controller can treat them uniformly.
package transport

import "errors"

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes transport errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConfiguration
	ErrTypeNetwork
	ErrTypeProtocol
	ErrTypeClosed
)

// ClientError represents an error from either transport strategy.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches ClientErrors by type, so sentinel comparisons with errors.Is
// work for wrapped instances carrying extra context.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Type == t.Type && (t.Message == "" || t.Message == e.Message)
}

// Sentinel errors for easy checking.
var (
	ErrNotConfigured = &ClientError{Type: ErrTypeConfiguration, Message: "chat endpoint is not configured"}
	ErrSocketNotOpen = &ClientError{Type: ErrTypeClosed, Message: "streaming connection is not open"}
)

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeConfiguration
	}
	return false
}

// IsNetwork reports whether err is a network-level failure.
func IsNetwork(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNetwork
	}
	return false
}

// IsProtocol reports whether err is a malformed-payload failure.
func IsProtocol(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeProtocol
	}
	return false
}
