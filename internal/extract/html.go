// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

// Package extract converts OneNote page HTML into plain text suitable for
// substring matching and answer grounding.
package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// skippedElements are elements whose text content never contributes to the
// extracted text.
var skippedElements = map[string]bool{
	"script": true,
	"style":  true,
	"head":   true,
	"title":  true,
}

// blockElements get a newline appended so headings and paragraphs don't run
// together in the extracted text.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "ul": true, "ol": true,
}

// Text extracts readable plain text from an HTML document. Malformed markup
// is tolerated; the tokenizer recovers the same way browsers do. Whitespace
// is collapsed per line and blank lines are dropped.
func Text(rawHTML string) string {
	if strings.TrimSpace(rawHTML) == "" {
		return ""
	}

	tokenizer := html.NewTokenizer(strings.NewReader(rawHTML))

	var sb strings.Builder
	var skipDepth int

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or unrecoverable garbage; either way we keep what
			// was extracted so far.
			return normalize(sb.String())

		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if skippedElements[tag] {
				skipDepth++
			}
			if blockElements[tag] {
				sb.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if skippedElements[tag] && skipDepth > 0 {
				skipDepth--
			}
			if blockElements[tag] {
				sb.WriteByte('\n')
			}

		case html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if blockElements[string(name)] {
				sb.WriteByte('\n')
			}

		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(tokenizer.Text())
			}
		}
	}
}

// normalize collapses intra-line whitespace and removes blank lines.
func normalize(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
