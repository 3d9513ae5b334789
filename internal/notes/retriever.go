// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

// Package notes implements note retrieval over the Graph client: keyword
// search with multi-strategy fallback, recent-page and notebook listings,
// and cached content fetching.
package notes

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/noteqdev/noteq/internal/auth"
	"github.com/noteqdev/noteq/internal/config"
	"github.com/noteqdev/noteq/internal/extract"
	"github.com/noteqdev/noteq/internal/graph"
)

// =============================================================================
// RETRIEVER INTERFACE
// =============================================================================

// Retriever is the data-fetch boundary consumed by the conversation core.
type Retriever interface {
	// SearchPages finds pages matching a natural-language query, falling
	// back through progressively looser strategies when results are sparse.
	SearchPages(ctx context.Context, query string, maxResults int) (*SearchResult, error)

	// RecentPages lists the most recently modified pages with content.
	RecentPages(ctx context.Context, limit int) ([]Page, error)

	// Notebooks lists all notebooks.
	Notebooks(ctx context.Context) ([]NotebookInfo, error)

	// PageByTitle finds a single page by title, exact match preferred.
	// Returns nil when nothing matches.
	PageByTitle(ctx context.Context, title string) (*Page, error)
}

// noteAPI is the slice of the Graph client the retriever uses.
type noteAPI interface {
	SearchPagesByTitle(ctx context.Context, query string, top int) ([]graph.Page, error)
	RecentPages(ctx context.Context, limit int) ([]graph.Page, error)
	PageContent(ctx context.Context, pageID string) (string, error)
	Notebooks(ctx context.Context) ([]graph.Notebook, error)
	Calls() int
}

// =============================================================================
// GRAPH RETRIEVER
// =============================================================================

const (
	// sparseThreshold is the result count below which fallback strategies
	// keep running.
	sparseThreshold = 3

	// apiResultCap is the hard per-request cap the API enforces.
	apiResultCap = 50

	contentCacheTTL = 5 * time.Minute
)

// GraphRetriever implements Retriever against the OneNote API. Page content
// is cached for a few minutes so fallback scans and answer grounding do not
// refetch the same pages within a session.
//
// A GraphRetriever is safe for concurrent use.
type GraphRetriever struct {
	api    noteAPI
	cfg    config.SearchConfig
	cache  *gocache.Cache
	logger *zap.Logger
}

// NewRetriever builds a GraphRetriever on top of a Graph client.
func NewRetriever(client *graph.Client, cfg *config.Config, logger *zap.Logger) *GraphRetriever {
	return newRetriever(client, cfg.Search, logger)
}

func newRetriever(api noteAPI, cfg config.SearchConfig, logger *zap.Logger) *GraphRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = 10
	}
	if cfg.ContentPrefetch == 0 {
		cfg.ContentPrefetch = 5
	}
	if cfg.FetchConcurrency == 0 {
		cfg.FetchConcurrency = 3
	}
	return &GraphRetriever{
		api:    api,
		cfg:    cfg,
		cache:  gocache.New(contentCacheTTL, 2*contentCacheTTL),
		logger: logger,
	}
}

// =============================================================================
// SEARCH
// =============================================================================

// SearchPages runs the multi-strategy search:
//
//	1. title substring search with the normalized query
//	2. content scan over recent pages when title hits are sparse
//	3. query variations, loosest last, until enough matches accumulate
//
// The first ContentPrefetch pages of the final set get their content fetched
// for answer grounding. Failures on individual content fetches are tolerated.
func (r *GraphRetriever) SearchPages(ctx context.Context, query string, maxResults int) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if maxResults <= 0 {
		maxResults = r.cfg.MaxResults
	}
	if maxResults > apiResultCap {
		maxResults = apiResultCap
	}

	start := time.Now()
	callsBefore := r.api.Calls()

	result := &SearchResult{Query: query}
	seen := make(map[string]bool)
	tried := make(map[string]bool)

	term := NormalizeQuery(query)
	if err := r.runStrategies(ctx, term, maxResults, result, seen, ""); err != nil {
		return nil, err
	}
	tried[strings.ToLower(term)] = true

	if len(result.Pages) == 0 {
		for _, variation := range QueryVariations(query) {
			if tried[strings.ToLower(variation)] {
				continue
			}
			tried[strings.ToLower(variation)] = true
			if err := r.runStrategies(ctx, variation, maxResults, result, seen, variation); err != nil {
				return nil, err
			}
			if len(result.Pages) >= sparseThreshold {
				break
			}
		}
	}

	if len(result.Pages) > maxResults {
		result.Pages = result.Pages[:maxResults]
	}

	r.prefetchContent(ctx, result.Pages)

	result.TotalCount = len(result.Pages)
	result.ExecutionTime = time.Since(start)
	result.APICallsMade = r.api.Calls() - callsBefore

	r.logger.Debug("search complete",
		zap.String("query", query),
		zap.Int("results", result.TotalCount),
		zap.Int("api_calls", result.APICallsMade),
		zap.Strings("strategies", result.SearchMetadata))
	return result, nil
}

// runStrategies executes the title search and, when results stay sparse, the
// content scan for one search term, merging matches into result.
func (r *GraphRetriever) runStrategies(ctx context.Context, term string, maxResults int, result *SearchResult, seen map[string]bool, variationLabel string) error {
	label := func(s string) string {
		if variationLabel != "" {
			return s + ":" + variationLabel
		}
		return s
	}

	result.SearchMetadata = append(result.SearchMetadata, label("title_search"))
	hits, err := r.api.SearchPagesByTitle(ctx, term, maxResults)
	if err != nil {
		return r.searchFailure("title search failed", err)
	}
	for _, w := range hits {
		if !seen[w.ID] {
			seen[w.ID] = true
			result.Pages = append(result.Pages, pageFromWire(w))
		}
	}

	if len(result.Pages) >= sparseThreshold {
		return nil
	}

	result.SearchMetadata = append(result.SearchMetadata, label("content_scan"))
	return r.contentScan(ctx, term, maxResults, result, seen)
}

// contentScan fetches recent pages and keeps those whose body text contains
// the term. Individual fetch failures skip the page.
func (r *GraphRetriever) contentScan(ctx context.Context, term string, maxResults int, result *SearchResult, seen map[string]bool) error {
	scanLimit := 2 * maxResults
	if scanLimit > apiResultCap {
		scanLimit = apiResultCap
	}

	recent, err := r.api.RecentPages(ctx, scanLimit)
	if err != nil {
		return r.searchFailure("recent-pages listing failed", err)
	}

	needle := strings.ToLower(term)
	matched := 0
	for _, w := range recent {
		if matched >= maxResults {
			break
		}
		if seen[w.ID] {
			continue
		}
		page := pageFromWire(w)
		if err := r.fetchContent(ctx, &page); err != nil {
			if authFailure(err) {
				return r.searchFailure("content fetch failed", err)
			}
			r.logger.Debug("skipping unreadable page",
				zap.String("page_id", page.ID), zap.Error(err))
			continue
		}
		if strings.Contains(strings.ToLower(page.TextContent), needle) {
			seen[page.ID] = true
			result.Pages = append(result.Pages, page)
			matched++
		}
	}
	return nil
}

func (r *GraphRetriever) searchFailure(msg string, err error) error {
	var apiErr *graph.APIError
	if errors.As(err, &apiErr) {
		return &SearchError{Message: msg, Status: apiErr.Status, Body: apiErr.Message, Cause: err}
	}
	return &SearchError{Message: msg, Cause: err}
}

func authFailure(err error) bool {
	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		return true
	}
	var apiErr *graph.APIError
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}

// =============================================================================
// LISTINGS
// =============================================================================

// RecentPages lists the latest pages and fetches content for each.
func (r *GraphRetriever) RecentPages(ctx context.Context, limit int) ([]Page, error) {
	if limit <= 0 {
		limit = r.cfg.RecentLimit
	}
	if limit > apiResultCap {
		limit = apiResultCap
	}

	wire, err := r.api.RecentPages(ctx, limit)
	if err != nil {
		return nil, r.searchFailure("recent-pages listing failed", err)
	}

	pages := make([]Page, 0, len(wire))
	for _, w := range wire {
		pages = append(pages, pageFromWire(w))
	}
	r.fetchContentAll(ctx, pages)
	return pages, nil
}

// Notebooks lists all notebooks.
func (r *GraphRetriever) Notebooks(ctx context.Context) ([]NotebookInfo, error) {
	wire, err := r.api.Notebooks(ctx)
	if err != nil {
		return nil, r.searchFailure("notebook listing failed", err)
	}

	infos := make([]NotebookInfo, 0, len(wire))
	for _, w := range wire {
		infos = append(infos, NotebookInfo{
			ID:         w.ID,
			Name:       w.DisplayName,
			IsDefault:  w.IsDefault,
			ModifiedAt: w.LastModifiedDateTime,
		})
	}
	return infos, nil
}

// PageByTitle finds one page by title. An exact case-insensitive title match
// wins; otherwise the first substring match is taken. Returns nil when no
// page matches. The returned page always has content.
func (r *GraphRetriever) PageByTitle(ctx context.Context, title string) (*Page, error) {
	hits, err := r.api.SearchPagesByTitle(ctx, title, 20)
	if err != nil {
		return nil, r.searchFailure("title lookup failed", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	want := strings.ToLower(strings.TrimSpace(title))
	chosen := hits[0]
	for _, w := range hits {
		if strings.ToLower(w.Title) == want {
			chosen = w
			break
		}
	}

	page := pageFromWire(chosen)
	if err := r.fetchContent(ctx, &page); err != nil {
		return nil, r.searchFailure("content fetch failed", err)
	}
	return &page, nil
}

// =============================================================================
// CONTENT FETCH
// =============================================================================

type cachedContent struct {
	raw  string
	text string
}

// fetchContent populates RawContent/TextContent, using the session cache.
func (r *GraphRetriever) fetchContent(ctx context.Context, page *Page) error {
	if page.HasContent() {
		return nil
	}
	if hit, ok := r.cache.Get(page.ID); ok {
		c := hit.(cachedContent)
		page.RawContent, page.TextContent = c.raw, c.text
		return nil
	}

	raw, err := r.api.PageContent(ctx, page.ID)
	if err != nil {
		return err
	}
	text := extract.Text(raw)
	page.RawContent, page.TextContent = raw, text
	r.cache.SetDefault(page.ID, cachedContent{raw: raw, text: text})
	return nil
}

// prefetchContent fetches content for the first few result pages.
func (r *GraphRetriever) prefetchContent(ctx context.Context, pages []Page) {
	n := r.cfg.ContentPrefetch
	if n > len(pages) {
		n = len(pages)
	}
	r.fetchContentAll(ctx, pages[:n])
}

// fetchContentAll fetches content for every page with bounded fan-out. All
// fetches are attempted; failures leave the page without content.
func (r *GraphRetriever) fetchContentAll(ctx context.Context, pages []Page) {
	sem := make(chan struct{}, r.cfg.FetchConcurrency)
	var wg sync.WaitGroup

	for i := range pages {
		if pages[i].HasContent() {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(p *Page) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := r.fetchContent(ctx, p); err != nil {
				r.logger.Debug("content fetch failed",
					zap.String("page_id", p.ID), zap.Error(err))
			}
		}(&pages[i])
	}
	wg.Wait()
}
