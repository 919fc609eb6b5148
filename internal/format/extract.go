// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

package format

import (
	"github.com/cheshirecat-tools/chat-tui/internal/transport"
)

// =============================================================================
// CONTENT EXTRACTION
// =============================================================================

// extractionFields is the ordered preference list for pulling display text
// out of a structured reply. Service versions disagree on the field name,
// so each candidate is tried in priority order.
var extractionFields = []string{"text", "output", "content", "message", "response"}

// unparseableFallback is shown when a reply can neither be extracted nor
// re-serialized.
const unparseableFallback = "Unable to parse response."

// ExtractText pulls the primary display text from a reply. The second
// return reports whether a recognized field (or plain-string form) matched;
// false means the caller got a fallback representation instead.
func ExtractText(p *transport.Payload) (string, bool) {
	if p == nil {
		return "", false
	}
	if !p.IsObject() {
		return p.Text(), true
	}
	for _, field := range extractionFields {
		if v, ok := p.Field(field); ok {
			return v, true
		}
	}
	if s, ok := p.JSONString(); ok {
		return s, false
	}
	return unparseableFallback, false
}
