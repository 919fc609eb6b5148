// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/cheshirecat-tools/chat-tui/internal/model"
	"github.com/cheshirecat-tools/chat-tui/internal/util"
)

// =============================================================================
// LAYOUT
// =============================================================================

// chrome rows around the viewport: header, quick replies, input, status.
const chromeHeight = 6

func (m *Model) layout() {
	width := m.width - 2
	if width < 20 {
		width = 20
	}
	height := m.height - chromeHeight
	if height < 3 {
		height = 3
	}
	m.viewport.Width = width
	m.viewport.Height = height
	m.input.Width = width - 4
}

// rebuildViewport re-renders the transcript into the viewport.
func (m *Model) rebuildViewport(follow bool) {
	var sb strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(m.renderEntry(e))
	}
	if m.slotActive {
		if len(m.entries) > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(m.renderEntry(entry{role: model.RoleBot, markup: m.slotMarkup}))
	}
	m.viewport.SetContent(sb.String())
	if follow {
		m.viewport.GotoBottom()
	}
}

// renderEntry renders one transcript entry with its role prefix.
func (m *Model) renderEntry(e entry) string {
	switch e.role {
	case model.RoleUser:
		return m.theme.UserBubble.Render("You: ") + renderMarkup(m.theme, e.markup)
	case model.RoleError:
		return m.theme.ErrorBubble.Render("Error: " + renderMarkup(m.theme, e.markup))
	default:
		return m.renderBotBody(e.markup)
	}
}

// renderBotBody renders a bot entry. Markup-free bodies go through the
// markdown renderer for wrapping and typography; anything carrying markup
// uses the HTML renderer.
func (m *Model) renderBotBody(markup string) string {
	if !strings.Contains(markup, "<") {
		if rendered, err := m.renderMarkdown(markup); err == nil {
			return strings.TrimRight(rendered, "\n")
		}
	}
	return renderMarkup(m.theme, markup)
}

func (m *Model) renderMarkdown(text string) (string, error) {
	width := m.viewport.Width
	if width <= 0 {
		width = 78
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(text)
}

// =============================================================================
// VIEW
// =============================================================================

func (m Model) View() string {
	if !m.open {
		return m.theme.AvatarBar.Render("(=^.^=) Chat - press any key to open")
	}

	var sections []string
	sections = append(sections, m.theme.Header.Render("Cheshire Chat"))
	sections = append(sections, m.viewport.View())

	if row := m.quickReplyRow(); row != "" {
		sections = append(sections, row)
	}
	if m.loader {
		sections = append(sections, m.theme.Loader.Render(m.spin.View()+" thinking..."))
	}

	inputView := m.input.View()
	if !m.sendEnabled {
		inputView = m.theme.Loader.Render(inputView)
	}
	sections = append(sections, m.theme.InputContainer.Render(inputView))
	sections = append(sections, m.statusLine())

	return m.theme.App.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// quickReplyRow renders the predefined replies as tags, truncated to fit.
func (m Model) quickReplyRow() string {
	if len(m.quickReplies) == 0 {
		return ""
	}
	maxTag := 24
	tags := make([]string, 0, len(m.quickReplies))
	for i, reply := range m.quickReplies {
		tag := util.TruncateWidth(reply, maxTag)
		style := m.theme.QuickReplyTag
		if i == m.quickIdx {
			style = style.Bold(true)
		}
		tags = append(tags, style.Render(tag))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tags...)
}

func (m Model) statusLine() string {
	if m.statusMsg != "" {
		return m.theme.StatusBar.Render(m.statusMsg)
	}
	parts := []string{
		m.theme.ShortcutKey.Render("Enter") + m.theme.ShortcutDesc.Render(" send"),
		m.theme.ShortcutKey.Render("Tab") + m.theme.ShortcutDesc.Render(" quick replies"),
		m.theme.ShortcutKey.Render("C-n") + m.theme.ShortcutDesc.Render(" new conversation"),
		m.theme.ShortcutKey.Render("Esc") + m.theme.ShortcutDesc.Render(" close"),
		m.theme.ShortcutKey.Render("C-c") + m.theme.ShortcutDesc.Render(" quit"),
	}
	return m.theme.StatusBar.Render(strings.Join(parts, "  "))
}
