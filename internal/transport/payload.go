// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

package transport

import (
	"encoding/json"
)

// =============================================================================
// REPLY PAYLOAD
// =============================================================================

// Payload is one reply from the Cheshire Cat service. The service answers
// either with a bare string or with a JSON object whose shape varies by
// version, so the payload keeps the decoded generic form and offers typed
// accessors over it.
type Payload struct {
	object map[string]any // nil when the reply was a plain string
	text   string         // the plain-string form
}

// ParsePayload decodes raw reply bytes. A JSON object is kept as an
// object; a JSON string is unwrapped; other valid JSON keeps its
// serialized form as the text. Data that is not JSON at all is a protocol
// error, never displayable content.
func ParsePayload(data []byte) (*Payload, error) {
	if !json.Valid(data) {
		return nil, &ClientError{Type: ErrTypeProtocol, Message: "failed to process response"}
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err == nil {
		return &Payload{object: obj}, nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return &Payload{text: s}, nil
	}
	return &Payload{text: string(data)}, nil
}

// PayloadFromString wraps a plain string reply.
func PayloadFromString(s string) *Payload {
	return &Payload{text: s}
}

// PayloadFromObject wraps an already-decoded object reply.
func PayloadFromObject(m map[string]any) *Payload {
	return &Payload{object: m}
}

// IsObject reports whether the reply was a structured object.
func (p *Payload) IsObject() bool {
	return p.object != nil
}

// Text returns the plain-string form of a non-object reply.
func (p *Payload) Text() string {
	return p.text
}

// Field returns the string value of a top-level object field.
func (p *Payload) Field(name string) (string, bool) {
	if p.object == nil {
		return "", false
	}
	v, ok := p.object[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Type returns the inbound message discriminant ("chat_token", "chat", or
// empty for untyped payloads).
func (p *Payload) Type() string {
	s, _ := p.Field("type")
	return s
}

// TokenContent returns the incremental content of a chat_token message.
func (p *Payload) TokenContent() string {
	s, _ := p.Field("content")
	return s
}

// JSONString returns the serialized form of the whole object, for the
// formatter's fallback path. Returns false if serialization fails.
func (p *Payload) JSONString() (string, bool) {
	if p.object == nil {
		return "", false
	}
	data, err := json.Marshal(p.object)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// =============================================================================
// MEMORY SEARCH RESULTS
// =============================================================================

// MemoryItem is one declarative-memory search hit attached to a reply,
// used for related-link augmentation.
type MemoryItem struct {
	Score     float64
	Origin    string
	URL       string
	Title     string
	ContentID string
}

// MemoryItems extracts the declarative memory hits from the reply's
// why.memory.declarative section. Missing or oddly shaped sections yield
// an empty slice, never an error.
func (p *Payload) MemoryItems() []MemoryItem {
	why, ok := p.object["why"].(map[string]any)
	if !ok {
		return nil
	}
	memory, ok := why["memory"].(map[string]any)
	if !ok {
		return nil
	}
	declarative, ok := memory["declarative"].([]any)
	if !ok {
		return nil
	}

	items := make([]MemoryItem, 0, len(declarative))
	for _, raw := range declarative {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		item := MemoryItem{Score: asFloat(entry["score"])}
		if meta, ok := entry["metadata"].(map[string]any); ok {
			item.Origin = asString(meta["origin"])
			item.URL = asString(meta["url"])
			item.Title = asString(meta["title"])
			item.ContentID = asString(meta["wp_id"])
		}
		items = append(items, item)
	}
	return items
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		// Content ids arrive as JSON numbers from some service versions.
		return jsonNumber(s)
	}
	return ""
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

// jsonNumber formats a float the way encoding/json would, so numeric ids
// compare equal to their string configuration values.
func jsonNumber(f float64) string {
	data, _ := json.Marshal(f)
	return string(data)
}
