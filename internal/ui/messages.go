// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

// Package ui is the terminal widget shell: a Bubble Tea program wrapping
// the conversation controller with an open/closed visibility state that
// persists across runs.
//
// This file defines the Bubble Tea message types. Transcript updates
// originate on controller and transport goroutines and reach the program
// through these messages, which keeps all model mutation on the Bubble
// Tea loop.
package ui

import "github.com/cheshirecat-tools/chat-tui/internal/model"

// =============================================================================
// TRANSCRIPT MESSAGES
// =============================================================================

// appendEntryMsg adds one finished transcript entry.
type appendEntryMsg struct {
	role   model.Role
	markup string
}

// botSlotBeginMsg opens the in-progress bot entry.
type botSlotBeginMsg struct{}

// botSlotUpdateMsg replaces the in-progress bot entry's content.
type botSlotUpdateMsg struct {
	markup string
}

// resetTranscriptMsg clears the transcript view.
type resetTranscriptMsg struct{}

// scrollMsg scrolls the transcript to the newest entry.
type scrollMsg struct{}

// =============================================================================
// CONTROL MESSAGES
// =============================================================================

// loaderMsg toggles the waiting indicator.
type loaderMsg struct {
	visible bool
}

// sendEnabledMsg toggles the send control.
type sendEnabledMsg struct {
	enabled bool
}

// quickRepliesMsg delivers the predefined replies fetched from the host.
type quickRepliesMsg struct {
	replies []string
}

// submitDoneMsg reports the outcome of an asynchronous submission.
type submitDoneMsg struct {
	err error
}
