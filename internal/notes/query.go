// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package notes

import (
	"regexp"
	"strings"

	"github.com/noteqdev/noteq/internal/util"
)

// =============================================================================
// QUERY NORMALIZATION
// =============================================================================

// thoughtsPattern captures the subject of "my thoughts about X" style
// questions. The subject is used verbatim as the search term, so a query
// like "What were my thoughts about Robo-me?" searches for "Robo-me".
var thoughtsPattern = regexp.MustCompile(`(?i)(?:thoughts?|opinions?)\s+(?:about|on)\s+(.+)`)

// fillerPhrases are command wrappers stripped from search queries before
// they hit the title index.
var fillerPhrases = []string{
	"search for",
	"find me",
	"show me",
	"look for",
}

// punctReplacer strips terminal question/exclamation punctuation anywhere in
// the query.
var punctReplacer = strings.NewReplacer("?", "", "!", "")

// NormalizeQuery reduces a natural-language question to a search term.
//
// A "thoughts/opinions about X" question yields the captured subject
// verbatim. Otherwise filler phrases and a leading "about " are removed. If
// stripping leaves fewer than 3 characters, the original text (minus ?/!) is
// used instead so short queries like "Go" still search for something.
func NormalizeQuery(raw string) string {
	cleaned := strings.TrimSpace(punctReplacer.Replace(raw))

	if m := thoughtsPattern.FindStringSubmatch(cleaned); m != nil {
		return strings.TrimSpace(m[1])
	}

	term := strings.ToLower(cleaned)
	for _, phrase := range fillerPhrases {
		term = strings.ReplaceAll(term, phrase, " ")
	}
	term = util.CollapseWhitespace(term)
	term = strings.TrimPrefix(term, "about ")
	term = strings.TrimSpace(term)

	if len(term) < 3 {
		return cleaned
	}
	return term
}

// stopWords are question scaffolding removed for the content-words query
// variation. Nouns stay in; only grammatical filler goes.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"i": true, "my": true, "me": true, "mine": true,
	"what": true, "where": true, "when": true, "who": true, "how": true,
	"did": true, "do": true, "does": true,
	"is": true, "are": true, "was": true, "were": true,
	"about": true, "for": true, "on": true, "in": true, "of": true, "to": true,
	"show": true, "find": true, "search": true, "look": true,
	"please": true, "write": true, "wrote": true,
}

// QueryVariations returns fallback search terms to try when the primary
// search comes back sparse, most specific first:
//
//	1. the cleaned original (punctuation stripped)
//	2. the normalized term
//	3. content words only (original tokens minus stop words)
//	4. the last content word, often the most specific noun
//
// Duplicates and empty variants are dropped; order is preserved.
func QueryVariations(raw string) []string {
	cleaned := util.CollapseWhitespace(punctReplacer.Replace(raw))

	candidates := []string{cleaned, NormalizeQuery(raw)}

	var content []string
	for _, tok := range strings.Fields(strings.ToLower(cleaned)) {
		if !stopWords[tok] {
			content = append(content, tok)
		}
	}
	if len(content) > 0 {
		candidates = append(candidates, strings.Join(content, " "))
		candidates = append(candidates, content[len(content)-1])
	}

	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if c == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
