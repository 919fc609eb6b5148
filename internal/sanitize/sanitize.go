// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

// Package sanitize strips dangerous markup from bot-origin text before it
// reaches the transcript view.
//
// Two distinct treatments exist and must never be mixed up:
//   - bot text is HTML: it is sanitized, keeping safe markup;
//   - user and error text is never HTML: it is fully entity-encoded.
package sanitize

import (
	stdhtml "html"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// =============================================================================
// POLICY
// =============================================================================

// droppedElements are removed entirely, including their content.
var droppedElements = map[string]bool{
	"script": true,
	"iframe": true,
	"object": true,
	"embed":  true,
	"style":  true,
}

// javascriptURL matches javascript: URLs, case-insensitive, tolerating
// leading whitespace.
var javascriptURL = regexp.MustCompile(`(?i)^\s*javascript:`)

// =============================================================================
// SANITIZER
// =============================================================================

// Clean parses fragment as HTML, removes dangerous elements and attributes,
// and re-serializes the result. It never fails: unparseable input degrades
// to fully entity-encoded text.
func Clean(fragment string) string {
	if fragment == "" {
		return ""
	}

	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return stdhtml.EscapeString(fragment)
	}

	var sb strings.Builder
	for _, n := range nodes {
		if n = scrub(n); n == nil {
			continue
		}
		if err := html.Render(&sb, n); err != nil {
			return stdhtml.EscapeString(fragment)
		}
	}
	return sb.String()
}

// WithLineBreaks converts newlines in already-sanitized markup to <br>
// tags for transcript display.
func WithLineBreaks(markup string) string {
	return strings.ReplaceAll(markup, "\n", "<br>")
}

// EncodeText entity-encodes text so it can never be interpreted as markup.
// Applied to all user-origin and error-origin content.
func EncodeText(text string) string {
	return stdhtml.EscapeString(text)
}

// scrub walks the tree rooted at n, removing dangerous elements and
// attributes. Returns nil if n itself must be dropped.
func scrub(n *html.Node) *html.Node {
	if n.Type == html.ElementNode {
		if droppedElements[strings.ToLower(n.Data)] {
			return nil
		}
		n.Attr = filterAttrs(n.Attr)
	}

	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		if scrub(child) == nil {
			n.RemoveChild(child)
		}
		child = next
	}
	return n
}

// filterAttrs drops event handlers, javascript: URLs in href/src, form
// action overrides, and SVG xlink:href (usable for script execution).
func filterAttrs(attrs []html.Attribute) []html.Attribute {
	kept := attrs[:0]
	for _, a := range attrs {
		name := strings.ToLower(a.Key)
		if a.Namespace != "" {
			name = strings.ToLower(a.Namespace) + ":" + name
		}
		switch {
		case strings.HasPrefix(name, "on"):
		case (name == "href" || name == "src") && javascriptURL.MatchString(a.Val):
		case name == "formaction":
		case name == "xlink:href":
		default:
			kept = append(kept, a)
		}
	}
	return kept
}
