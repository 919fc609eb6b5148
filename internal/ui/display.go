// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cheshirecat-tools/chat-tui/internal/model"
)

// =============================================================================
// DISPLAY ADAPTER
// =============================================================================

// sender is the slice of *tea.Program the adapter needs.
type sender interface {
	Send(msg tea.Msg)
}

// Display translates controller display calls into Bubble Tea messages.
// Calls arrive on controller and transport goroutines; Send is safe for
// that. The program is attached after construction because the controller
// and the program depend on each other.
type Display struct {
	mu      sync.Mutex
	program sender
}

// NewDisplay creates an unattached display. Calls before Attach are
// dropped, which only happens before the program starts.
func NewDisplay() *Display {
	return &Display{}
}

// Attach binds the running program. Must be called before program.Run.
func (d *Display) Attach(program *tea.Program) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.program = program
}

func (d *Display) send(msg tea.Msg) {
	d.mu.Lock()
	program := d.program
	d.mu.Unlock()
	if program != nil {
		program.Send(msg)
	}
}

func (d *Display) AppendUser(markup string) {
	d.send(appendEntryMsg{role: model.RoleUser, markup: markup})
}

func (d *Display) AppendBot(markup string) {
	d.send(appendEntryMsg{role: model.RoleBot, markup: markup})
}

func (d *Display) AppendError(markup string) {
	d.send(appendEntryMsg{role: model.RoleError, markup: markup})
}

func (d *Display) ShowLoader() { d.send(loaderMsg{visible: true}) }
func (d *Display) HideLoader() { d.send(loaderMsg{visible: false}) }

func (d *Display) BeginBotSlot() { d.send(botSlotBeginMsg{}) }

func (d *Display) UpdateBotSlot(markup string) {
	d.send(botSlotUpdateMsg{markup: markup})
}

func (d *Display) SetSendEnabled(enabled bool) {
	d.send(sendEnabledMsg{enabled: enabled})
}

func (d *Display) ScrollToLatest() { d.send(scrollMsg{}) }

func (d *Display) Reset() { d.send(resetTranscriptMsg{}) }
