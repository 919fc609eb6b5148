// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

package ui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cheshirecat-tools/chat-tui/internal/controller"
	"github.com/cheshirecat-tools/chat-tui/internal/history"
	"github.com/cheshirecat-tools/chat-tui/internal/host"
	"github.com/cheshirecat-tools/chat-tui/internal/model"
)

// =============================================================================
// WIDGET MODEL
// =============================================================================

// entry is one rendered transcript line.
type entry struct {
	role   model.Role
	markup string
}

// Options configures the widget shell.
type Options struct {
	// DefaultOpen opens the widget when no state was persisted.
	DefaultOpen bool

	// ContentID scopes the quick-reply fetch.
	ContentID string
}

// Model is the Bubble Tea model for the chat widget.
type Model struct {
	opts   Options
	theme  *Theme
	keyMap KeyMap

	ctrl  *controller.Controller
	store *history.Store
	relay *host.Relay

	// Visibility state, persisted across runs
	open bool

	// Dimensions
	width  int
	height int

	// Components
	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model

	// Transcript
	entries    []entry
	slotActive bool
	slotMarkup string

	// Control state
	loader      bool
	sendEnabled bool
	statusMsg   string

	// Quick replies
	quickReplies []string
	quickIdx     int
}

// New creates the widget. The persisted visibility state wins over the
// configured default.
func New(ctrl *controller.Controller, store *history.Store, relay *host.Relay, opts Options) Model {
	open := opts.DefaultOpen
	if state, ok := store.WidgetState(); ok {
		open = state == history.StateOpen
	}

	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 2000
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		opts:        opts,
		theme:       NewTheme(),
		keyMap:      DefaultKeyMap(),
		ctrl:        ctrl,
		store:       store,
		relay:       relay,
		open:        open,
		viewport:    viewport.New(0, 0),
		input:       input,
		spin:        spin,
		sendEnabled: true,
		quickIdx:    -1,
	}
}

// Open reports the current visibility state.
func (m Model) Open() bool {
	return m.open
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		m.startCmd(),
		m.fetchQuickRepliesCmd(),
	}
	return tea.Batch(cmds...)
}

// startCmd replays the stored transcript and, if the widget starts open,
// brings up the streaming connection.
func (m Model) startCmd() tea.Cmd {
	ctrl, open := m.ctrl, m.open
	return func() tea.Msg {
		ctrl.Start(context.Background())
		if open {
			ctrl.OpenStream()
		}
		return nil
	}
}

func (m Model) fetchQuickRepliesCmd() tea.Cmd {
	relay, contentID := m.relay, m.opts.ContentID
	return func() tea.Msg {
		if relay == nil || !relay.Configured() {
			return nil
		}
		return quickRepliesMsg{replies: relay.QuickReplies(context.Background(), contentID)}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.rebuildViewport(true)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.loader {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case appendEntryMsg:
		m.foldSlot()
		m.entries = append(m.entries, entry{role: msg.role, markup: msg.markup})
		m.statusMsg = ""
		m.rebuildViewport(true)
		return m, nil

	case botSlotBeginMsg:
		m.foldSlot()
		m.slotActive = true
		m.slotMarkup = ""
		return m, nil

	case botSlotUpdateMsg:
		m.slotActive = true
		m.slotMarkup = msg.markup
		m.rebuildViewport(true)
		return m, nil

	case resetTranscriptMsg:
		m.entries = nil
		m.slotActive = false
		m.slotMarkup = ""
		m.rebuildViewport(true)
		return m, nil

	case scrollMsg:
		m.viewport.GotoBottom()
		return m, nil

	case loaderMsg:
		m.loader = msg.visible
		if m.loader {
			return m, m.spin.Tick
		}
		return m, nil

	case sendEnabledMsg:
		m.sendEnabled = msg.enabled
		return m, nil

	case quickRepliesMsg:
		m.quickReplies = msg.replies
		return m, nil

	case submitDoneMsg:
		if errors.Is(msg.err, controller.ErrBusy) {
			m.statusMsg = "Still waiting for the previous reply..."
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.keyMap
	switch {
	case key.Matches(msg, keys.Quit):
		m.persistState()
		m.ctrl.CloseStream()
		return m, tea.Quit

	case key.Matches(msg, keys.Toggle):
		return m.toggle()
	}

	if !m.open {
		// Any other key on the closed avatar bar opens the widget, the
		// same gesture as clicking the avatar.
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeyEnter {
			return m.toggle()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Submit):
		return m.submit()

	case key.Matches(msg, keys.NewConvo):
		ctrl := m.ctrl
		return m, func() tea.Msg {
			return submitDoneMsg{err: ctrl.NewConversation(context.Background())}
		}

	case key.Matches(msg, keys.QuickReply):
		if len(m.quickReplies) > 0 {
			m.quickIdx = (m.quickIdx + 1) % len(m.quickReplies)
			m.input.SetValue(m.quickReplies[m.quickIdx])
			m.input.CursorEnd()
		}
		return m, nil

	case key.Matches(msg, keys.ScrollUp):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, keys.ScrollDown):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, keys.PageUp):
		m.viewport.ViewUp()
		return m, nil
	case key.Matches(msg, keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// toggle flips visibility, persists it, and manages the streaming
// connection: open connects (idempotently), close finalizes any stream.
func (m Model) toggle() (tea.Model, tea.Cmd) {
	m.open = !m.open
	m.persistState()

	if m.open {
		ctrl := m.ctrl
		return m, func() tea.Msg {
			ctrl.OpenStream()
			return nil
		}
	}
	m.ctrl.CloseStream()
	return m, nil
}

// submit dispatches the input field's content through the controller.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if !m.sendEnabled {
		m.statusMsg = "Still waiting for the previous reply..."
		return m, nil
	}
	text := m.input.Value()
	m.input.Reset()
	m.quickIdx = -1

	ctrl := m.ctrl
	return m, func() tea.Msg {
		return submitDoneMsg{err: ctrl.Submit(context.Background(), text)}
	}
}

func (m *Model) persistState() {
	state := history.StateClosed
	if m.open {
		state = history.StateOpen
	}
	// Best effort; visibility is a convenience, not data.
	_ = m.store.SetWidgetState(state)
}

// foldSlot moves a finished in-progress entry into the transcript list.
func (m *Model) foldSlot() {
	if !m.slotActive {
		return
	}
	if m.slotMarkup != "" {
		m.entries = append(m.entries, entry{role: model.RoleBot, markup: m.slotMarkup})
	}
	m.slotActive = false
	m.slotMarkup = ""
}
