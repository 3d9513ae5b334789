// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

// Package stream exposes conversation processing as an ordered sequence of
// status, text, and error chunks that any presentation layer can consume.
package stream

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noteqdev/noteq/internal/auth"
	"github.com/noteqdev/noteq/internal/conversation"
)

// =============================================================================
// CHUNKS
// =============================================================================

// Kind is the chunk type.
type Kind string

const (
	KindStatus Kind = "status"
	KindText   Kind = "text"
	KindError  Kind = "error"
)

// Chunk is one unit of incremental output. Exactly one chunk per Process
// run has Final set, and nothing follows it.
type Chunk struct {
	Kind     Kind
	Content  string
	Final    bool
	Metadata map[string]string
}

// Status texts emitted while a query is processed.
const (
	statusProcessing        = "processing"
	statusSearching         = "searching"
	statusProcessingResults = "processing results"
)

// reauthGuidance is the fixed message for authentication failures.
const reauthGuidance = "Your session has expired or you are not signed in. Run 'noteq login' to re-authenticate."

// =============================================================================
// ADAPTER
// =============================================================================

// Adapter runs queries through the conversation machine and streams the
// progress. The transcript accumulates across calls, so one Adapter carries
// one multi-turn conversation.
type Adapter struct {
	machine *conversation.Machine
	logger  *zap.Logger

	mu         sync.Mutex
	transcript conversation.Transcript
}

// NewAdapter wraps a conversation machine.
func NewAdapter(machine *conversation.Machine, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		machine:    machine,
		logger:     logger,
		transcript: conversation.NewTranscript(),
	}
}

// Reset discards the accumulated transcript.
func (a *Adapter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transcript = conversation.NewTranscript()
}

// Transcript returns a snapshot of the accumulated conversation.
func (a *Adapter) Transcript() conversation.Transcript {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transcript
}

// Process runs one query and returns its chunk stream. The channel closes
// after the final chunk; abandoning it mid-stream is safe since processing
// is read-only.
func (a *Adapter) Process(ctx context.Context, query string) <-chan Chunk {
	ch := make(chan Chunk)

	go func() {
		defer close(ch)

		emit := func(c Chunk) bool {
			select {
			case ch <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit(status(statusProcessing)) {
			return
		}

		a.mu.Lock()
		snapshot := a.transcript
		a.mu.Unlock()

		onState := func(s conversation.State) {
			switch s {
			case conversation.StateToolDispatch:
				emit(status(statusSearching))
			case conversation.StateAwaitingToolResult:
				emit(status(statusProcessingResults))
			}
		}

		turn, err := a.machine.Run(ctx, snapshot, query, onState)
		if err != nil {
			a.logger.Warn("query failed", zap.Error(err))
			emit(a.errorChunk(err))
			return
		}

		a.mu.Lock()
		a.transcript = turn.Transcript
		a.mu.Unlock()

		// A directive-looking or empty answer means the machine finished
		// without a genuine final text; still terminate the stream.
		if !genuineAnswer(turn.Answer) {
			emit(Chunk{
				Kind:    KindError,
				Content: "no answer was produced, please try again",
				Final:   true,
			})
			return
		}

		emit(Chunk{
			Kind:     KindText,
			Content:  turn.Answer,
			Final:    true,
			Metadata: map[string]string{"from_tag": tagName(turn.FromTag)},
		})
	}()

	return ch
}

func (a *Adapter) errorChunk(err error) Chunk {
	content := "processing failed: " + err.Error()
	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		content = reauthGuidance
	}
	return Chunk{Kind: KindError, Content: content, Final: true}
}

// genuineAnswer distinguishes a final answer from a leaked tool directive,
// which is JSON and starts with "{".
func genuineAnswer(answer string) bool {
	trimmed := strings.TrimSpace(answer)
	return trimmed != "" && !strings.HasPrefix(trimmed, "{")
}

func status(text string) Chunk {
	return Chunk{Kind: KindStatus, Content: text}
}

func tagName(kind conversation.TagKind) string {
	switch kind {
	case conversation.KindSearchResults:
		return "search_results"
	case conversation.KindNoResults:
		return "no_results"
	case conversation.KindRecentPages:
		return "recent_pages"
	case conversation.KindNotebooks:
		return "notebooks"
	case conversation.KindError:
		return "error"
	}
	return "none"
}
