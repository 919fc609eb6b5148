// Copyright (c) 2025 Cheshire Chat Tools
// SPDX-License-Identifier: GPL-2.0-or-later

package ui

import (
	stdhtml "html"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// =============================================================================
// MARKUP RENDERING
// =============================================================================

// renderMarkup converts sanitized transcript markup into terminal text:
// inline emphasis becomes ANSI styling, code blocks get syntax
// highlighting, links show their target, and the related-links block
// renders as a titled list.
func renderMarkup(theme *Theme, markup string) string {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return stdhtml.UnescapeString(markup)
	}

	var sb strings.Builder
	for _, n := range nodes {
		renderNode(theme, &sb, n)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderNode(theme *Theme, sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
		return
	case html.ElementNode:
	default:
		return
	}

	switch n.Data {
	case "br":
		sb.WriteString("\n")
		return
	case "strong", "b":
		sb.WriteString(theme.Bold.Render(textContent(n)))
		return
	case "em", "i":
		sb.WriteString(theme.Italic.Render(textContent(n)))
		return
	case "pre":
		renderCodeBlock(sb, n)
		return
	case "a":
		renderLink(theme, sb, n)
		return
	case "div":
		if hasClass(n, "cheshire-related-links") {
			renderRelatedLinks(theme, sb, n)
			return
		}
	case "p":
		defer sb.WriteString("\n")
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		renderNode(theme, sb, child)
	}
}

// renderCodeBlock highlights a <pre><code class="language-X"> block.
func renderCodeBlock(sb *strings.Builder, pre *html.Node) {
	code := pre.FirstChild
	if code == nil || code.Data != "code" {
		sb.WriteString(textContent(pre))
		return
	}

	language := ""
	for _, a := range code.Attr {
		if a.Key == "class" && strings.HasPrefix(a.Val, "language-") {
			language = strings.TrimPrefix(a.Val, "language-")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(highlightCode(textContent(code), language))
	sb.WriteString("\n")
}

func renderLink(theme *Theme, sb *strings.Builder, a *html.Node) {
	href := ""
	for _, attr := range a.Attr {
		if attr.Key == "href" {
			href = attr.Val
		}
	}
	title := strings.TrimSpace(textContent(a))
	if title == "" {
		title = href
	}
	sb.WriteString(theme.Link.Render(title))
	if href != "" && href != title {
		sb.WriteString(" (" + href + ")")
	}
}

// renderRelatedLinks renders the link block as a titled list.
func renderRelatedLinks(theme *Theme, sb *strings.Builder, div *html.Node) {
	title := "Related links"
	for _, a := range div.Attr {
		if a.Key == "data-title" && a.Val != "" {
			title = a.Val
		}
	}

	sb.WriteString("\n")
	sb.WriteString(theme.LinkBlockTitle.Render(title + ":"))
	for child := div.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode || !hasClass(child, "cheshire-related-links-tag") {
			continue
		}
		sb.WriteString("\n  - ")
		for tag := child.FirstChild; tag != nil; tag = tag.NextSibling {
			renderNode(theme, sb, tag)
		}
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		if node.Type == html.ElementNode && node.Data == "br" {
			sb.WriteString("\n")
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return sb.String()
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// highlightCode applies chroma syntax highlighting for terminal output.
// Unknown languages are analysed; failures fall back to plain text.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
