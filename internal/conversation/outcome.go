// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package conversation

import (
	"fmt"
	"strings"

	"github.com/noteqdev/noteq/internal/notes"
	"github.com/noteqdev/noteq/internal/util"
)

// =============================================================================
// TOOL OUTCOMES
// =============================================================================

// A ToolOutcome is the typed result of one tool dispatch. Internally the
// machine branches on the concrete type; at the transcript boundary each
// outcome is encoded as a tagged plain-text assistant message so prompts and
// routing can inspect it without structured parsing.
type ToolOutcome interface {
	// Encode renders the outcome as a tagged transcript message.
	Encode() string
}

// Recognized transcript tags. Any other tag ending in "_ERROR:" is also
// treated as an error outcome.
const (
	TagSearchResults = "SEARCH_RESULTS:"
	TagNoResults     = "NO_RESULTS:"
	TagRecentPages   = "RECENT_PAGES:"
	TagNotebooks     = "NOTEBOOKS:"
	TagSearchError   = "SEARCH_ERROR:"

	errTagSuffix = "_ERROR:"
)

// contentExcerptLimit bounds how much page text flows into the synthesis
// context per page.
const contentExcerptLimit = 300

// SearchResults is a successful search with at least one page.
type SearchResults struct {
	Query string
	Pages []notes.Page
}

func (o SearchResults) Encode() string {
	var sb strings.Builder
	sb.WriteString(TagSearchResults)
	fmt.Fprintf(&sb, " Found %d pages for %q:\n", len(o.Pages), o.Query)
	for _, p := range o.Pages {
		writePageLine(&sb, p, true)
	}
	return sb.String()
}

// NoResults is a search that exhausted every strategy without a match.
type NoResults struct {
	Query string
}

func (o NoResults) Encode() string {
	return TagNoResults + " " + o.Query
}

// RecentPages is a recent-pages listing.
type RecentPages struct {
	Pages []notes.Page
}

func (o RecentPages) Encode() string {
	var sb strings.Builder
	sb.WriteString(TagRecentPages)
	fmt.Fprintf(&sb, " %d most recently modified pages:\n", len(o.Pages))
	for _, p := range o.Pages {
		writePageLine(&sb, p, false)
	}
	return sb.String()
}

// Notebooks is a notebook listing.
type Notebooks struct {
	Notebooks []notes.NotebookInfo
}

func (o Notebooks) Encode() string {
	var sb strings.Builder
	sb.WriteString(TagNotebooks)
	fmt.Fprintf(&sb, " %d notebooks:\n", len(o.Notebooks))
	for _, nb := range o.Notebooks {
		sb.WriteString("- " + nb.Name)
		if nb.IsDefault {
			sb.WriteString(" (default)")
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ToolError is a failed dispatch, surfaced verbatim without a generation
// call.
type ToolError struct {
	// Tag is the full error tag including the trailing colon, e.g.
	// "SEARCH_ERROR:".
	Tag     string
	Message string
}

func (o ToolError) Encode() string {
	tag := o.Tag
	if tag == "" {
		tag = TagSearchError
	}
	return tag + " " + o.Message
}

func writePageLine(sb *strings.Builder, p notes.Page, withContent bool) {
	fmt.Fprintf(sb, "- %s (notebook: %s, section: %s)", p.Title, p.NotebookName, p.SectionName)
	if !p.ModifiedAt.IsZero() {
		fmt.Fprintf(sb, ", modified %s", p.ModifiedAt.Format("2006-01-02"))
	}
	sb.WriteByte('\n')
	if withContent && p.TextContent != "" {
		fmt.Fprintf(sb, "  %s\n", util.TruncateRunes(util.CollapseWhitespace(p.TextContent), contentExcerptLimit))
	}
}

// =============================================================================
// TAG PARSING
// =============================================================================

// TagKind classifies a transcript message's tag.
type TagKind int

const (
	KindNone TagKind = iota
	KindSearchResults
	KindNoResults
	KindRecentPages
	KindNotebooks
	KindError
)

// ParseTag inspects a message and returns its tag kind and the payload after
// the tag. Untagged messages return KindNone.
func ParseTag(content string) (TagKind, string) {
	idx := strings.Index(content, ":")
	if idx < 0 {
		return KindNone, ""
	}
	tag := content[:idx+1]
	payload := strings.TrimSpace(content[idx+1:])

	switch tag {
	case TagSearchResults:
		return KindSearchResults, payload
	case TagNoResults:
		return KindNoResults, payload
	case TagRecentPages:
		return KindRecentPages, payload
	case TagNotebooks:
		return KindNotebooks, payload
	}
	if strings.HasSuffix(tag, errTagSuffix) && isTagToken(tag[:len(tag)-1]) {
		return KindError, payload
	}
	return KindNone, ""
}

// isTagToken reports whether s looks like a tag name: upper-case letters and
// underscores only. Keeps ordinary prose with colons from parsing as a tag.
func isTagToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && r != '_' {
			return false
		}
	}
	return true
}
