// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package graph

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteqdev/noteq/internal/auth"
	"github.com/noteqdev/noteq/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Graph.BaseURL = srv.URL
	return NewClient(cfg, auth.Static("test-token"), nil)
}

func TestSearchPagesByTitle(t *testing.T) {
	var gotAuth, gotFilter string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotFilter = r.URL.Query().Get("$filter")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value":[
			{"id":"p1","title":"Meeting Notes","parentSection":{"displayName":"Work"},"parentNotebook":{"displayName":"Job"}},
			{"id":"p2","title":"Meeting Notes 2"}
		]}`))
	})

	pages, err := client.SearchPagesByTitle(context.Background(), "Meeting's", 10)
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "contains(tolower(title),'meeting''s')", gotFilter)
	require.Len(t, pages, 2)
	assert.Equal(t, "p1", pages[0].ID)
	assert.Equal(t, "Work", pages[0].ParentSection.DisplayName)
	assert.Nil(t, pages[1].ParentSection)
	assert.Equal(t, 1, client.Calls())
}

func TestEscapeODataLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"meeting notes", "meeting notes"},
		{"bob's plan", "bob''s plan"},
		{"it's bob's", "it''s bob''s"},
		{"'", "''"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeODataLiteral(tt.in))
	}
}

func TestSearchPagesByTitle_ApostropheQuery(t *testing.T) {
	var gotFilter string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("$filter")
		w.Write([]byte(`{"value":[{"id":"p1","title":"Bob's plan"}]}`))
	})

	pages, err := client.SearchPagesByTitle(context.Background(), "Bob's plan", 10)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	// Doubled quote per OData literal rules; odd quote counts make the
	// filter malformed and the service rejects the request.
	assert.Equal(t, "contains(tolower(title),'bob''s plan')", gotFilter)
}

func TestPageContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/onenote/pages/p1/content", r.URL.Path)
		w.Write([]byte("<html><body><p>hello</p></body></html>"))
	})

	content, err := client.PageContent(context.Background(), "p1")
	require.NoError(t, err)
	assert.Contains(t, content, "<p>hello</p>")
}

func TestNotebooks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/onenote/notebooks", r.URL.Path)
		w.Write([]byte(`{"value":[{"id":"n1","displayName":"Personal","isDefault":true}]}`))
	})

	nbs, err := client.Notebooks(context.Background())
	require.NoError(t, err)
	require.Len(t, nbs, 1)
	assert.Equal(t, "Personal", nbs[0].DisplayName)
	assert.True(t, nbs[0].IsDefault)
}

func TestAPIError_ParsesEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"itemNotFound","message":"no such page"}}`))
	})

	_, err := client.PageContent(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "itemNotFound", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "no such page")
}

func TestThrottle_RetriesOnceAfterRetryAfter(t *testing.T) {
	var requests int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"value":[]}`))
	})

	_, err := client.RecentPages(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
}

func TestThrottle_SecondFailureSurfaces(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.RecentPages(context.Background(), 5)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.Throttled())
}

func TestAuthFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not be sent without a token")
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Graph.BaseURL = srv.URL
	client := NewClient(cfg, auth.Static(""), nil)

	_, err := client.RecentPages(context.Background(), 5)
	assert.ErrorIs(t, err, auth.ErrNotLoggedIn)
}

func TestLimiter_WindowCapBlocks(t *testing.T) {
	l := newLimiter()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	l.now = func() time.Time { return now }

	for i := 0; i < windowRequests; i++ {
		assert.Equal(t, time.Duration(0), l.reserveWindow())
	}
	// Window is full; next caller must wait for the oldest entry to age out.
	wait := l.reserveWindow()
	assert.Equal(t, windowLength, wait)
	assert.Equal(t, windowRequests, l.InFlight())

	// After the window rolls past the oldest entries, room opens up again.
	now = base.Add(windowLength + time.Second)
	assert.Equal(t, time.Duration(0), l.reserveWindow())
	assert.Equal(t, 1, l.InFlight())
}

func TestLimiter_WaitHonorsCancellation(t *testing.T) {
	l := newLimiter()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	for i := 0; i < windowRequests; i++ {
		l.reserveWindow()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
