// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

package controller

// =============================================================================
// CONVERSATION STATES
// =============================================================================

// State is the conversation controller's phase. Transitions:
//
//	Idle -> Sending          on submit
//	Sending -> AwaitingReply after dispatch
//	AwaitingReply -> Streaming on the first token
//	AwaitingReply -> Idle    on a complete reply or error
//	Streaming -> Idle        on completion, error, or close
type State int

const (
	// Idle: no reply in flight.
	Idle State = iota

	// Sending: a submission is being composed and dispatched.
	Sending

	// AwaitingReply: dispatched, nothing received yet.
	AwaitingReply

	// Streaming: token events are accumulating into the open bot slot.
	Streaming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case AwaitingReply:
		return "awaiting-reply"
	case Streaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// =============================================================================
// DISPLAY ADAPTER
// =============================================================================

// Display is the controller's one-way view of the transcript UI. The
// controller decides what appears; the adapter decides how. All markup
// handed over is already sanitized.
type Display interface {
	// AppendUser adds a user entry.
	AppendUser(markup string)

	// AppendBot adds a complete bot entry.
	AppendBot(markup string)

	// AppendError adds an error entry.
	AppendError(markup string)

	// ShowLoader and HideLoader toggle the waiting indicator.
	ShowLoader()
	HideLoader()

	// BeginBotSlot opens an in-progress bot entry; UpdateBotSlot replaces
	// its content as tokens accumulate.
	BeginBotSlot()
	UpdateBotSlot(markup string)

	// SetSendEnabled toggles the send control.
	SetSendEnabled(enabled bool)

	// ScrollToLatest keeps the newest entry visible.
	ScrollToLatest()

	// Reset clears the transcript view for a new conversation.
	Reset()
}
