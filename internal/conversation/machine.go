// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

// Package conversation drives one query from user text to final answer: it
// routes the query, dispatches at most one tool call at a time, and
// synthesizes a grounded answer from the tool outcome.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noteqdev/noteq/internal/auth"
	"github.com/noteqdev/noteq/internal/llm"
	"github.com/noteqdev/noteq/internal/notes"
	"github.com/noteqdev/noteq/internal/router"
)

// =============================================================================
// STATES
// =============================================================================

// State is a phase of one conversation turn.
type State int

const (
	StateAwaitingInput State = iota
	StateRouting
	StateToolDispatch
	StateAwaitingToolResult
	StateAnswerSynthesis
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting_input"
	case StateRouting:
		return "routing"
	case StateToolDispatch:
		return "tool_dispatch"
	case StateAwaitingToolResult:
		return "awaiting_tool_result"
	case StateAnswerSynthesis:
		return "answer_synthesis"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	}
	return "unknown"
}

// =============================================================================
// MACHINE
// =============================================================================

// Machine is the conversation state machine. One Run handles one user
// message; the transcript accumulates across runs for multi-turn chat.
type Machine struct {
	classifier router.Classifier
	retriever  notes.Retriever
	generator  llm.Generator
	logger     *zap.Logger
}

// NewMachine wires the machine's collaborators.
func NewMachine(classifier router.Classifier, retriever notes.Retriever, generator llm.Generator, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		classifier: classifier,
		retriever:  retriever,
		generator:  generator,
		logger:     logger,
	}
}

// Turn is the result of one completed Run.
type Turn struct {
	Transcript Transcript
	Answer     string

	// FromTag records which tool-result tag fed answer synthesis;
	// KindNone means the answer was generated without a tool.
	FromTag TagKind
}

// maxRoutingLoops bounds the route-dispatch cycle. One tool call needs two
// passes through routing; anything beyond that is a stuck loop.
const maxRoutingLoops = 3

// Run processes one user message to completion. onState, when non-nil, is
// invoked on every state transition, in order.
//
// Tool failures become tagged error outcomes and flow through synthesis;
// authentication failures are returned to the caller instead, since no
// retry within the turn can succeed without a new login.
func (m *Machine) Run(ctx context.Context, t Transcript, userText string, onState func(State)) (Turn, error) {
	notify := func(s State) {
		m.logger.Debug("state transition", zap.Stringer("state", s))
		if onState != nil {
			onState(s)
		}
	}

	notify(StateAwaitingInput)
	t = t.Append(llm.RoleUser, userText).WithSystem(systemInstruction)

	for loop := 0; loop < maxRoutingLoops; loop++ {
		notify(StateRouting)

		// Only the newest assistant message counts: a completed tool
		// result routes straight to synthesis and is never re-dispatched.
		if last, ok := t.LastAssistant(); ok {
			if kind, payload := ParseTag(last.Content); kind != KindNone {
				return m.synthesize(ctx, t, userText, kind, payload, notify)
			}
		}

		if !m.classifier.NeedsTool(userText) {
			answer := m.generate(ctx, t.Messages())
			t = t.Append(llm.RoleAssistant, answer)
			notify(StateDone)
			return Turn{Transcript: t, Answer: answer, FromTag: KindNone}, nil
		}

		directive := m.classifier.Classify(userText)
		encoded, err := json.Marshal(directive)
		if err != nil {
			return m.softFail(t, err, notify)
		}
		t = t.Append(llm.RoleAssistant, string(encoded))

		notify(StateToolDispatch)
		outcome, err := m.dispatch(ctx, directive)
		if err != nil {
			notify(StateError)
			return Turn{Transcript: t}, err
		}

		notify(StateAwaitingToolResult)
		t = t.Append(llm.RoleAssistant, outcome.Encode())
	}

	return m.softFail(t, errors.New("tool routing did not converge"), notify)
}

// dispatch invokes the retriever operation named by the directive and wraps
// the result as a ToolOutcome. Non-auth failures become ToolError outcomes.
func (m *Machine) dispatch(ctx context.Context, d router.ToolDirective) (ToolOutcome, error) {
	switch d.Tool {
	case router.ToolSearch:
		result, err := m.retriever.SearchPages(ctx, d.Query, d.MaxResults)
		if err != nil {
			if isAuthFailure(err) {
				return nil, err
			}
			return ToolError{Tag: TagSearchError, Message: err.Error()}, nil
		}
		if len(result.Pages) == 0 {
			return NoResults{Query: d.Query}, nil
		}
		return SearchResults{Query: d.Query, Pages: result.Pages}, nil

	case router.ToolRecentPages:
		pages, err := m.retriever.RecentPages(ctx, d.Limit)
		if err != nil {
			if isAuthFailure(err) {
				return nil, err
			}
			return ToolError{Tag: "RECENT_PAGES_ERROR:", Message: err.Error()}, nil
		}
		return RecentPages{Pages: pages}, nil

	case router.ToolNotebooks:
		nbs, err := m.retriever.Notebooks(ctx)
		if err != nil {
			if isAuthFailure(err) {
				return nil, err
			}
			return ToolError{Tag: "NOTEBOOKS_ERROR:", Message: err.Error()}, nil
		}
		return Notebooks{Notebooks: nbs}, nil
	}
	return ToolError{Tag: TagSearchError, Message: fmt.Sprintf("unknown tool %q", d.Tool)}, nil
}

// synthesize produces the final answer for a completed tool result. Error
// tags skip generation and surface their payload verbatim.
func (m *Machine) synthesize(ctx context.Context, t Transcript, userText string, kind TagKind, payload string, notify func(State)) (Turn, error) {
	notify(StateAnswerSynthesis)

	var answer string
	switch kind {
	case KindError:
		answer = payload
	case KindSearchResults:
		answer = m.generateWithPrompt(ctx, t, groundedAnswerPrompt(userText, payload))
	case KindNoResults:
		answer = m.generateWithPrompt(ctx, t, noResultsPrompt(payload))
	case KindRecentPages, KindNotebooks:
		answer = m.generateWithPrompt(ctx, t, restatementPrompt(userText, payload))
	default:
		answer = payload
	}

	t = t.Append(llm.RoleAssistant, answer)
	notify(StateDone)
	return Turn{Transcript: t, Answer: answer, FromTag: kind}, nil
}

// generateWithPrompt runs the generator on the transcript plus one synthesis
// prompt.
func (m *Machine) generateWithPrompt(ctx context.Context, t Transcript, prompt string) string {
	msgs := append(t.Messages(), llm.Message{Role: llm.RoleUser, Content: prompt})
	return m.generate(ctx, msgs)
}

// generate calls the generator, downgrading failures to a soft error answer
// so one failed generation never kills the conversation.
func (m *Machine) generate(ctx context.Context, msgs []llm.Message) string {
	out, err := m.generator.Generate(ctx, msgs)
	if err != nil {
		m.logger.Warn("generation failed", zap.Error(err))
		return softFailMessage(err)
	}
	return out
}

// softFail closes the turn with an error-flavored answer instead of
// crashing; the transcript stays usable for the next turn.
func (m *Machine) softFail(t Transcript, err error, notify func(State)) (Turn, error) {
	m.logger.Warn("turn failed softly", zap.Error(err))
	answer := softFailMessage(err)
	t = t.Append(llm.RoleAssistant, answer)
	notify(StateDone)
	return Turn{Transcript: t, Answer: answer, FromTag: KindNone}, nil
}

func softFailMessage(err error) string {
	return fmt.Sprintf("I encountered an error: %v. Please try again.", err)
}

func isAuthFailure(err error) bool {
	var authErr *auth.AuthError
	return errors.As(err, &authErr)
}
