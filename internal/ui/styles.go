// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// THEME
// =============================================================================

// Theme holds the styled components for the widget.
type Theme struct {
	// Layout
	App    lipgloss.Style
	Header lipgloss.Style

	// Transcript bubbles
	UserBubble  lipgloss.Style
	BotBubble   lipgloss.Style
	ErrorBubble lipgloss.Style

	// Inline markup
	Bold   lipgloss.Style
	Italic lipgloss.Style
	Link   lipgloss.Style

	// Related links block
	LinkBlockTitle lipgloss.Style
	LinkTag        lipgloss.Style

	// Quick replies
	QuickReplyTag lipgloss.Style

	// Input area
	InputContainer lipgloss.Style
	Loader         lipgloss.Style

	// Status bar
	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// Closed-state avatar bar
	AvatarBar lipgloss.Style
}

// NewTheme builds the default theme with adaptive colors.
func NewTheme() *Theme {
	subtle := lipgloss.AdaptiveColor{Light: "#6b6b6b", Dark: "#9a9a9a"}
	accent := lipgloss.AdaptiveColor{Light: "#5f00af", Dark: "#af87ff"}
	errRed := lipgloss.AdaptiveColor{Light: "#af0000", Dark: "#ff5f5f"}

	return &Theme{
		App: lipgloss.NewStyle().Padding(0, 1),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true),

		UserBubble: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#005f87", Dark: "#5fd7ff"}),
		BotBubble:   lipgloss.NewStyle(),
		ErrorBubble: lipgloss.NewStyle().Foreground(errRed),

		Bold:   lipgloss.NewStyle().Bold(true),
		Italic: lipgloss.NewStyle().Italic(true),
		Link:   lipgloss.NewStyle().Foreground(accent).Underline(true),

		LinkBlockTitle: lipgloss.NewStyle().Bold(true).Foreground(subtle),
		LinkTag:        lipgloss.NewStyle().Foreground(accent),

		QuickReplyTag: lipgloss.NewStyle().
			Foreground(accent).
			BorderStyle(lipgloss.RoundedBorder()).
			Padding(0, 1),

		InputContainer: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true),
		Loader: lipgloss.NewStyle().Foreground(subtle),

		StatusBar:    lipgloss.NewStyle().Foreground(subtle),
		ShortcutKey:  lipgloss.NewStyle().Bold(true).Foreground(subtle),
		ShortcutDesc: lipgloss.NewStyle().Foreground(subtle),

		AvatarBar: lipgloss.NewStyle().
			Foreground(accent).
			BorderStyle(lipgloss.RoundedBorder()).
			Padding(0, 1),
	}
}
