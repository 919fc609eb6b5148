// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

// Package model contains the data structures for transcript messages.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the origin of a transcript message. It decides how the
// message text is treated before display: user and error text is always
// entity-encoded, bot text is sanitized markup.
type Role string

const (
	RoleUser  Role = "user"
	RoleBot   Role = "bot"
	RoleError Role = "error"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleBot, RoleError:
		return true
	}
	return false
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is one turn in the conversation. Messages are immutable once
// created; streaming replies accumulate in the controller and become a
// Message only when the stream finalizes.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds, ordering only
}

// NewMessage creates a message stamped with the current time.
func NewMessage(role Role, text string) Message {
	return Message{
		ID:        "msg_" + uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewUserMessage creates a user-role message.
func NewUserMessage(text string) Message {
	return NewMessage(RoleUser, text)
}

// NewBotMessage creates a bot-role message.
func NewBotMessage(text string) Message {
	return NewMessage(RoleBot, text)
}

// NewErrorMessage creates an error-role message.
func NewErrorMessage(text string) Message {
	return NewMessage(RoleError, text)
}

// IsEmpty returns true if the message carries no text.
func (m Message) IsEmpty() bool {
	return len(m.Text) == 0
}
