// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteqdev/noteq/internal/config"
)

func newTestOllama(t *testing.T, handler http.HandlerFunc) *Ollama {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.LLM.OllamaURL = srv.URL
	cfg.LLM.Model = "test-model"
	return NewOllama(cfg, nil)
}

func TestGenerate(t *testing.T) {
	gen := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		w.Write([]byte(`{"message":{"role":"assistant","content":"the answer"},"done":true}`))
	})

	text, err := gen.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "question"},
	})
	require.NoError(t, err)
	assert.Equal(t, "the answer", text)
}

func TestGenerate_ErrorEnvelope(t *testing.T) {
	gen := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"out of memory"}`))
	})

	_, err := gen.Generate(context.Background(), []Message{{Role: RoleUser, Content: "q"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
}

func TestGenerate_ModelNotFound(t *testing.T) {
	gen := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := gen.Generate(context.Background(), []Message{{Role: RoleUser, Content: "q"}})
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestGenerateStream(t *testing.T) {
	gen := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		lines := []string{
			`{"message":{"content":"Hello"},"done":false}`,
			`{"message":{"content":" world"},"done":false}`,
			`{"message":{"content":""},"done":true}`,
		}
		w.Write([]byte(strings.Join(lines, "\n") + "\n"))
	})

	var sb strings.Builder
	var sawDone bool
	for delta := range gen.GenerateStream(context.Background(), []Message{{Role: RoleUser, Content: "q"}}) {
		require.NoError(t, delta.Err)
		sb.WriteString(delta.Text)
		if delta.Done {
			sawDone = true
		}
	}
	assert.Equal(t, "Hello world", sb.String())
	assert.True(t, sawDone)
}

func TestGenerateStream_TransportErrorDelivered(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.OllamaURL = "http://127.0.0.1:1" // nothing listens here
	gen := NewOllama(cfg, nil)

	var last Delta
	for delta := range gen.GenerateStream(context.Background(), []Message{{Role: RoleUser, Content: "q"}}) {
		last = delta
	}
	require.Error(t, last.Err)
	assert.True(t, last.Done)
}

func TestStreamReader_SkipsMalformedLines(t *testing.T) {
	input := "not json\n" +
		`{"message":{"content":"ok"},"done":true}` + "\n"
	r := newStreamReader(strings.NewReader(input))

	// Malformed line is skipped.
	d, err := r.next()
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = r.next()
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "ok", d.Text)
	assert.True(t, d.Done)
}

func TestStreamReader_EOFYieldsDone(t *testing.T) {
	r := newStreamReader(strings.NewReader(`{"message":{"content":"partial"},"done":false}` + "\n"))

	d, err := r.next()
	require.NoError(t, err)
	assert.Equal(t, "partial", d.Text)

	d, err = r.next()
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.True(t, d.Done)
}
