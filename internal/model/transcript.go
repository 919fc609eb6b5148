// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

// Package model contains the data structures for transcript messages.
package model

// MaxMessages is the maximum number of messages kept in a transcript.
// When exceeded, the oldest messages are pruned to bound storage growth.
const MaxMessages = 500

// =============================================================================
// TRANSCRIPT TYPE
// =============================================================================

// Transcript is the ordered history of exchanged messages for one client.
// Order equals chronological send/receive order; appends never reorder.
type Transcript struct {
	Messages []Message `json:"messages"`
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{Messages: make([]Message, 0)}
}

// Append adds a message to the end of the transcript and prunes the oldest
// entries once MaxMessages is exceeded.
func (t *Transcript) Append(msg Message) {
	t.Messages = append(t.Messages, msg)
	if excess := len(t.Messages) - MaxMessages; excess > 0 {
		t.Messages = append(t.Messages[:0:0], t.Messages[excess:]...)
	}
}

// Last returns the most recent message, or a zero Message if empty.
// Value receiver so the accessor works on transcripts returned by value.
func (t Transcript) Last() (Message, bool) {
	if len(t.Messages) == 0 {
		return Message{}, false
	}
	return t.Messages[len(t.Messages)-1], true
}

// Len returns the number of messages.
func (t Transcript) Len() int {
	return len(t.Messages)
}

// IsEmpty returns true if there are no messages.
func (t Transcript) IsEmpty() bool {
	return len(t.Messages) == 0
}

// Clear removes all messages.
func (t *Transcript) Clear() {
	t.Messages = make([]Message, 0)
}
