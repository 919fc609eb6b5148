// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

// Package format turns raw service replies into display-ready markup. It is
// pure and stateless: every function maps input to output with no side
// effects, and none of them ever fails — bad input degrades to a fallback
// string instead.
package format

import (
	"regexp"
	"strings"

	"github.com/cheshirecat-tools/chat-tui/internal/transport"
)

// =============================================================================
// MARKUP CONVERSION
// =============================================================================

var (
	codeFence  = regexp.MustCompile("(?s)```(\\w*)\\n(.*?)\\n```")
	boldStars  = regexp.MustCompile(`\*\*(.*?)\*\*`)
	boldUnder  = regexp.MustCompile(`__(.*?)__`)
	italStars  = regexp.MustCompile(`\*(.*?)\*`)
	italUnder  = regexp.MustCompile(`_(.*?)_`)
)

// Reply renders a complete (non-streamed) reply: extract the primary text,
// append related links, then convert code fences and markdown emphasis.
func Reply(p *transport.Payload, links LinkOptions) string {
	content, _ := ExtractText(p)
	if p != nil && p.IsObject() {
		content += RelatedLinks(p.MemoryItems(), links)
	}
	return Markup(content)
}

// Markup converts fenced code blocks and markdown-style emphasis in
// content. Emphasis conversion is skipped when the content already carries
// HTML emphasis, so bot-authored markup is never double-converted.
func Markup(content string) string {
	content = codeFence.ReplaceAllString(content, `<pre><code class="language-$1">$2</code></pre>`)

	if !strings.Contains(content, "<strong>") && !strings.Contains(content, "<em>") {
		content = boldStars.ReplaceAllString(content, "<strong>$1</strong>")
		content = boldUnder.ReplaceAllString(content, "<strong>$1</strong>")
		content = italStars.ReplaceAllString(content, "<em>$1</em>")
		content = italUnder.ReplaceAllString(content, "<em>$1</em>")
	}
	return content
}
