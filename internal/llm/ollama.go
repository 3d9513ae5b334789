// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/noteqdev/noteq/internal/config"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "generation timed out"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
)

// =============================================================================
// OLLAMA GENERATOR
// =============================================================================

// Ollama implements Generator against a local Ollama server.
//
// The client is safe for concurrent use.
type Ollama struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOllama builds a generator from configuration.
func NewOllama(cfg *config.Config, logger *zap.Logger) *Ollama {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ollama{
		baseURL: cfg.LLM.OllamaURL,
		model:   cfg.LLM.Model,
		// Answer synthesis over retrieved context can take a while on
		// small local models.
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logger,
	}
}

// chatRequest is the /api/chat request body.
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// chatResponse is the non-streaming /api/chat response body.
type chatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

// ollamaError is the error envelope Ollama returns on failures.
type ollamaError struct {
	Error string `json:"error"`
}

// CheckRunning verifies the Ollama server is reachable.
func (o *Ollama) CheckRunning(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeUnknown, Message: "failed to create request", Cause: err}
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ErrNotRunning
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &ClientError{Type: ErrTypeNotRunning, Message: "unexpected status from Ollama: " + resp.Status}
	}
	return nil
}

// Generate implements Generator with a single blocking completion.
func (o *Ollama) Generate(ctx context.Context, messages []Message) (string, error) {
	body, err := o.doChat(ctx, messages, false)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var result chatResponse
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return result.Message.Content, nil
}

// GenerateStream implements Generator. The returned channel is closed when
// the stream ends; a transport failure arrives as a final Delta with Err.
func (o *Ollama) GenerateStream(ctx context.Context, messages []Message) <-chan Delta {
	ch := make(chan Delta)

	go func() {
		defer close(ch)

		body, err := o.doChat(ctx, messages, true)
		if err != nil {
			deliver(ctx, ch, Delta{Err: err, Done: true})
			return
		}
		defer body.Close()

		reader := newStreamReader(body)
		for {
			delta, err := reader.next()
			if err != nil {
				deliver(ctx, ch, Delta{Err: err, Done: true})
				return
			}
			if delta == nil {
				continue
			}
			if !deliver(ctx, ch, *delta) {
				return
			}
			if delta.Done {
				return
			}
		}
	}()

	return ch
}

func deliver(ctx context.Context, ch chan<- Delta, d Delta) bool {
	select {
	case ch <- d:
		return true
	case <-ctx.Done():
		return false
	}
}

// doChat posts to /api/chat and returns the response body on 200.
func (o *Ollama) doChat(ctx context.Context, messages []Message, stream bool) (io.ReadCloser, error) {
	payload, err := json.Marshal(chatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   stream,
	})
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	// Streaming responses outlive the default timeout; the context bounds
	// them instead.
	client := o.httpClient
	if stream {
		client = &http.Client{}
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, ErrTimeout
		}
		return nil, ErrNotRunning
	}
	o.logger.Debug("ollama request",
		zap.String("model", o.model),
		zap.Bool("stream", stream),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrModelNotFound
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var envelope ollamaError
		if json.NewDecoder(resp.Body).Decode(&envelope) == nil && envelope.Error != "" {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: envelope.Error}
		}
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "chat request failed: " + resp.Status}
	}
	return resp.Body, nil
}
