// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

// Package graph is the HTTP client for the Microsoft Graph OneNote API.
// All requests pass through a rate limiter that keeps noteq under the
// service's per-user throttling window.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noteqdev/noteq/internal/auth"
	"github.com/noteqdev/noteq/internal/config"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// APIError is a non-2xx response from the Graph API.
type APIError struct {
	Status  int
	Code    string
	Message string

	// retryAfter is the server-requested backoff on 429 responses; consumed
	// by the client's internal retry.
	retryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graph API error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("graph API error %d: %s", e.Status, e.Message)
}

// Throttled reports whether the service asked us to back off.
func (e *APIError) Throttled() bool {
	return e.Status == http.StatusTooManyRequests
}

// Unauthorized reports whether the access token was rejected.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the OneNote endpoints of Microsoft Graph.
//
// The Client is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authn      auth.Authenticator
	limiter    *limiter
	logger     *zap.Logger

	// calls counts requests actually sent, for SearchMetadata reporting.
	calls atomic.Int64
}

// NewClient builds a Graph client. The authenticator supplies bearer tokens
// per request so token refresh happens transparently mid-session.
func NewClient(cfg *config.Config, authn auth.Authenticator, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.Graph.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.Graph.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		authn:      authn,
		limiter:    newLimiter(),
		logger:     logger,
	}
}

// Calls returns the number of API requests sent so far.
func (c *Client) Calls() int {
	return int(c.calls.Load())
}

// PendingInWindow reports how many requests count against the current
// throttling window, for status output.
func (c *Client) PendingInWindow() int {
	return c.limiter.InFlight()
}

// =============================================================================
// ONENOTE OPERATIONS
// =============================================================================

// SearchPagesByTitle returns pages whose title contains the query, newest
// first. Matching is done server-side with an OData contains filter.
func (c *Client) SearchPagesByTitle(ctx context.Context, query string, top int) ([]Page, error) {
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf("contains(tolower(title),'%s')", escapeODataLiteral(strings.ToLower(query))))
	q.Set("$orderby", "lastModifiedDateTime desc")
	q.Set("$top", strconv.Itoa(top))
	q.Set("$expand", "parentSection,parentNotebook")

	var resp listResponse[Page]
	if err := c.getJSON(ctx, "/me/onenote/pages", q, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// RecentPages returns the most recently modified pages.
func (c *Client) RecentPages(ctx context.Context, limit int) ([]Page, error) {
	q := url.Values{}
	q.Set("$orderby", "lastModifiedDateTime desc")
	q.Set("$top", strconv.Itoa(limit))
	q.Set("$expand", "parentSection,parentNotebook")

	var resp listResponse[Page]
	if err := c.getJSON(ctx, "/me/onenote/pages", q, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// PageContent returns the raw HTML body of a page.
func (c *Client) PageContent(ctx context.Context, pageID string) (string, error) {
	body, err := c.get(ctx, "/me/onenote/pages/"+url.PathEscape(pageID)+"/content", nil)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("reading page content: %w", err)
	}
	return string(data), nil
}

// Notebooks returns all notebooks, alphabetical by display name.
func (c *Client) Notebooks(ctx context.Context) ([]Notebook, error) {
	q := url.Values{}
	q.Set("$orderby", "displayName")

	var resp listResponse[Notebook]
	if err := c.getJSON(ctx, "/me/onenote/notebooks", q, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// maxRetryAfter caps how long a single 429 retry will sleep; beyond this we
// surface the throttle to the caller instead of silently stalling.
const maxRetryAfter = 30 * time.Second

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("decoding graph response: %w", err)
	}
	return nil
}

// get issues a rate-limited GET, honoring one Retry-After pause on 429.
func (c *Client) get(ctx context.Context, path string, query url.Values) (io.ReadCloser, error) {
	body, err := c.doOnce(ctx, path, query)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Throttled() {
		delay := apiErr.retryAfter
		if delay > maxRetryAfter {
			return nil, err
		}
		c.logger.Warn("throttled by graph API, backing off",
			zap.Duration("retry_after", delay))
		if delay > 0 {
			if sleepErr := sleepCtx(ctx, delay); sleepErr != nil {
				return nil, sleepErr
			}
		}
		return c.doOnce(ctx, path, query)
	}
	return body, err
}

func (c *Client) doOnce(ctx context.Context, path string, query url.Values) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	token, err := c.authn.Token(ctx)
	if err != nil {
		return nil, err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building graph request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	c.calls.Add(1)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph request failed: %w", err)
	}
	c.logger.Debug("graph request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, c.errorFrom(resp)
	}
	return resp.Body, nil
}

// errorFrom builds an APIError from a non-2xx response, parsing the Graph
// error envelope when present.
func (c *Client) errorFrom(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	var envelope apiErrorBody
	if json.Unmarshal(data, &envelope) == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	if apiErr.Throttled() {
		// Missing or unparsable Retry-After falls back to a short pause.
		apiErr.retryAfter = 2 * time.Second
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			apiErr.retryAfter = time.Duration(secs) * time.Second
		}
	}
	return apiErr
}

// escapeODataLiteral doubles single quotes per OData string literal rules.
func escapeODataLiteral(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'')
		}
		out = append(out, s[i])
	}
	return string(out)
}
