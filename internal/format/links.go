// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

package format

import (
	"fmt"
	"strings"

	"github.com/cheshirecat-tools/chat-tui/internal/transport"
)

// =============================================================================
// RELATED LINKS
// =============================================================================

// DefaultMinLinkScore is the similarity threshold below which memory hits
// are not worth surfacing as links.
const DefaultMinLinkScore = 0.8

// DefaultLinkLabel titles the related-links block.
const DefaultLinkLabel = "Related links"

// LinkOptions controls related-link augmentation of bot replies.
type LinkOptions struct {
	// Enabled gates the whole feature. Off by default.
	Enabled bool

	// MinScore is the minimum similarity score for a hit to qualify
	// (default: DefaultMinLinkScore).
	MinScore float64

	// Label is the block title (default: DefaultLinkLabel).
	Label string

	// CurrentContentID suppresses the link pointing at the content the
	// user is already viewing. Empty disables suppression.
	CurrentContentID string
}

// RelatedLinks renders the link block for a reply's memory hits. Returns
// the empty string when the feature is off or no hit qualifies, so callers
// can append unconditionally; the block wrapper is never emitted empty.
func RelatedLinks(items []transport.MemoryItem, opts LinkOptions) string {
	if !opts.Enabled || len(items) == 0 {
		return ""
	}

	minScore := opts.MinScore
	if minScore == 0 {
		minScore = DefaultMinLinkScore
	}
	label := opts.Label
	if label == "" {
		label = DefaultLinkLabel
	}

	var qualified []transport.MemoryItem
	for _, item := range items {
		if opts.CurrentContentID != "" && item.ContentID == opts.CurrentContentID {
			continue
		}
		if item.Origin != "WordPress" || item.URL == "" || item.Title == "" {
			continue
		}
		if item.Score < minScore {
			continue
		}
		qualified = append(qualified, item)
	}
	if len(qualified) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<br><br><div class="cheshire-related-links" data-title="%s">`, label)
	for _, item := range qualified {
		fmt.Fprintf(&sb, `<span class="cheshire-related-links-tag"><a href="%s">%s</a></span>`, item.URL, item.Title)
	}
	sb.WriteString("</div>")
	return sb.String()
}
