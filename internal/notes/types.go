// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package notes

import (
	"time"

	"github.com/noteqdev/noteq/internal/graph"
)

// =============================================================================
// DOMAIN TYPES
// =============================================================================

// Page is a note page with its location and, when fetched, its content.
type Page struct {
	ID         string
	Title      string
	CreatedAt  time.Time
	ModifiedAt time.Time

	// NotebookName and SectionName locate the page for answer attribution.
	// Either may be "Unknown" when the API omits the parent reference.
	NotebookName string
	SectionName  string

	// RawContent is the page HTML; TextContent is its extracted plain text.
	// Both are empty until content is fetched.
	RawContent  string
	TextContent string
}

// HasContent reports whether the page body has been fetched.
func (p *Page) HasContent() bool {
	return p.TextContent != ""
}

// NotebookInfo summarizes a notebook for listings.
type NotebookInfo struct {
	ID         string
	Name       string
	IsDefault  bool
	ModifiedAt time.Time
}

// SearchResult is the outcome of a retrieval run, including enough metadata
// to explain how the answer was found.
type SearchResult struct {
	Pages         []Page
	Query         string
	TotalCount    int
	ExecutionTime time.Duration
	APICallsMade  int

	// SearchMetadata records which strategies ran, e.g.
	// "title_search", "content_scan", "variation:project plan".
	SearchMetadata []string
}

// pageFromWire converts an API page, defaulting missing parents to "Unknown".
func pageFromWire(w graph.Page) Page {
	p := Page{
		ID:           w.ID,
		Title:        w.Title,
		CreatedAt:    w.CreatedDateTime,
		ModifiedAt:   w.LastModifiedDateTime,
		NotebookName: "Unknown",
		SectionName:  "Unknown",
	}
	if w.ParentNotebook != nil && w.ParentNotebook.DisplayName != "" {
		p.NotebookName = w.ParentNotebook.DisplayName
	}
	if w.ParentSection != nil && w.ParentSection.DisplayName != "" {
		p.SectionName = w.ParentSection.DisplayName
	}
	return p
}
