// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

// Package router decides whether a user utterance needs a data-fetch tool
// and, if so, which one with what parameters.
//
// Routing is keyword-heuristic substring matching. It is deliberately kept
// behind the Classifier interface so a model-driven router can replace it
// without touching the conversation core.
package router

import (
	"regexp"
	"strings"

	"github.com/noteqdev/noteq/internal/util"
)

// =============================================================================
// TOOL DIRECTIVES
// =============================================================================

// ToolKind names a retriever operation.
type ToolKind string

const (
	ToolSearch      ToolKind = "search"
	ToolRecentPages ToolKind = "recent_pages"
	ToolNotebooks   ToolKind = "notebooks"
)

// ToolDirective is the intent descriptor handed to the conversation core.
// It is consumed exactly once per turn.
type ToolDirective struct {
	Tool       ToolKind `json:"tool"`
	Query      string   `json:"query,omitempty"`
	MaxResults int      `json:"max_results,omitempty"`
	Limit      int      `json:"limit,omitempty"`
}

// Classifier maps raw user text to routing decisions. Implementations must
// be pure: same input, same output, no hidden state.
type Classifier interface {
	NeedsTool(text string) bool
	Classify(text string) ToolDirective
}

// =============================================================================
// KEYWORD CLASSIFIER
// =============================================================================

// Keyword categories. Matching is case-insensitive substring containment.
var (
	searchIndicators = []string{
		"search", "find", "look for", "show me",
		"what did i write", "notes about", "pages about", "content about",
	}
	recencyIndicators = []string{
		"recent", "lately", "recently", "last week",
		"yesterday", "latest", "most recent",
	}
	notebookIndicators = []string{
		"notebook", "notebooks", "list notebook",
		"show notebook", "what notebooks",
	}
)

// thoughtsPattern captures the subject of "thoughts/opinions about X"
// questions for use as the literal search term.
var thoughtsPattern = regexp.MustCompile(`(?i)(?:thoughts?|opinions?)\s+(?:about|on)\s+(.+)`)

// searchFillers are command wrappers removed when extracting the search
// term from a classified search query.
var searchFillers = []string{"search for", "find", "show me", "look for"}

var punctReplacer = strings.NewReplacer("?", "", "!", "")

// Keyword is the keyword-heuristic Classifier.
type Keyword struct{}

// NewKeyword returns the keyword classifier.
func NewKeyword() Keyword { return Keyword{} }

// NeedsTool reports whether the text calls for a data fetch. Categories are
// checked search first, then recency, then notebooks; any hit returns true.
func (Keyword) NeedsTool(text string) bool {
	lower := strings.ToLower(text)

	if containsAny(lower, searchIndicators) || thoughtsPattern.MatchString(text) {
		return true
	}
	if containsAny(lower, recencyIndicators) {
		return true
	}
	return containsAny(lower, notebookIndicators)
}

// Classify picks the tool for the text. Priority here is recency, then
// notebooks, then search as the default, which differs from NeedsTool's
// check order: a query mentioning both recency and notebooks routes to
// recent pages.
func (Keyword) Classify(text string) ToolDirective {
	lower := strings.ToLower(text)

	if containsAny(lower, recencyIndicators) {
		return ToolDirective{Tool: ToolRecentPages, Limit: 10}
	}
	if containsAny(lower, notebookIndicators) {
		return ToolDirective{Tool: ToolNotebooks}
	}
	return ToolDirective{
		Tool:       ToolSearch,
		Query:      extractSearchTerm(text),
		MaxResults: 10,
	}
}

// extractSearchTerm strips question scaffolding down to the thing to search
// for. When stripping leaves fewer than 3 characters, the original text with
// only ?/! removed is used instead.
func extractSearchTerm(text string) string {
	cleaned := strings.TrimSpace(punctReplacer.Replace(text))

	if m := thoughtsPattern.FindStringSubmatch(cleaned); m != nil {
		return strings.TrimSpace(m[1])
	}

	term := strings.ToLower(cleaned)
	for _, filler := range searchFillers {
		term = strings.ReplaceAll(term, filler, " ")
	}
	term = util.CollapseWhitespace(term)
	term = strings.TrimPrefix(term, "about ")
	term = strings.TrimSpace(term)

	if len(term) < 3 {
		return cleaned
	}
	return term
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
