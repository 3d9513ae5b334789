// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package conversation

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteqdev/noteq/internal/auth"
	"github.com/noteqdev/noteq/internal/llm"
	"github.com/noteqdev/noteq/internal/notes"
	"github.com/noteqdev/noteq/internal/router"
)

// =============================================================================
// STUBS
// =============================================================================

// stubRetriever returns canned results and records invocations.
type stubRetriever struct {
	searchResult *notes.SearchResult
	searchErr    error
	recent       []notes.Page
	notebooks    []notes.NotebookInfo

	searchCalls int
}

func (s *stubRetriever) SearchPages(_ context.Context, query string, _ int) (*notes.SearchResult, error) {
	s.searchCalls++
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if s.searchResult != nil {
		return s.searchResult, nil
	}
	return &notes.SearchResult{Query: query}, nil
}

func (s *stubRetriever) RecentPages(context.Context, int) ([]notes.Page, error) {
	return s.recent, nil
}

func (s *stubRetriever) Notebooks(context.Context) ([]notes.NotebookInfo, error) {
	return s.notebooks, nil
}

func (s *stubRetriever) PageByTitle(context.Context, string) (*notes.Page, error) {
	return nil, nil
}

// echoGenerator returns the last message's content so tests can see exactly
// which prompt fed the answer.
type echoGenerator struct {
	calls   int
	prompts []string
}

func (g *echoGenerator) Generate(_ context.Context, msgs []llm.Message) (string, error) {
	g.calls++
	last := msgs[len(msgs)-1].Content
	g.prompts = append(g.prompts, last)
	return last, nil
}

func (g *echoGenerator) GenerateStream(ctx context.Context, msgs []llm.Message) <-chan llm.Delta {
	ch := make(chan llm.Delta, 1)
	text, _ := g.Generate(ctx, msgs)
	ch <- llm.Delta{Text: text, Done: true}
	close(ch)
	return ch
}

func meetingPages() []notes.Page {
	return []notes.Page{
		{ID: "a", Title: "Meeting Notes A", NotebookName: "Job", SectionName: "Standups", TextContent: "sprint review"},
		{ID: "b", Title: "Meeting Notes B", NotebookName: "Job", SectionName: "Planning", TextContent: "roadmap"},
	}
}

// =============================================================================
// TESTS
// =============================================================================

func TestRun_DirectAnswerWithoutTool(t *testing.T) {
	ret := &stubRetriever{}
	gen := &echoGenerator{}
	m := NewMachine(router.NewKeyword(), ret, gen, nil)

	turn, err := m.Run(context.Background(), NewTranscript(), "why is the sky blue", nil)
	require.NoError(t, err)

	assert.Equal(t, KindNone, turn.FromTag)
	assert.Equal(t, 0, ret.searchCalls)
	assert.Equal(t, 1, gen.calls)
	assert.NotEmpty(t, turn.Answer)

	// System instruction was prepended exactly once.
	msgs := turn.Transcript.Messages()
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
}

func TestRun_SearchDispatchAndGroundedSynthesis(t *testing.T) {
	ret := &stubRetriever{searchResult: &notes.SearchResult{Pages: meetingPages()}}
	gen := &echoGenerator{}
	m := NewMachine(router.NewKeyword(), ret, gen, nil)

	var states []State
	turn, err := m.Run(context.Background(), NewTranscript(), "find my meeting notes", func(s State) {
		states = append(states, s)
	})
	require.NoError(t, err)

	assert.Equal(t, KindSearchResults, turn.FromTag)
	assert.Equal(t, 1, ret.searchCalls)

	// The grounded answer carries titles with notebook/section attribution.
	assert.Contains(t, turn.Answer, "Meeting Notes A")
	assert.Contains(t, turn.Answer, "Meeting Notes B")
	assert.Contains(t, turn.Answer, "Job")
	assert.Contains(t, turn.Answer, "Standups")

	// The transcript shows the directive (JSON) and the tagged result.
	msgs := turn.Transcript.Messages()
	var sawDirective, sawTagged bool
	for _, msg := range msgs {
		if msg.Role != llm.RoleAssistant {
			continue
		}
		if strings.HasPrefix(msg.Content, "{") {
			sawDirective = true
		}
		if strings.HasPrefix(msg.Content, TagSearchResults) {
			sawTagged = true
		}
	}
	assert.True(t, sawDirective)
	assert.True(t, sawTagged)

	assert.Equal(t, []State{
		StateAwaitingInput, StateRouting, StateToolDispatch,
		StateAwaitingToolResult, StateRouting, StateAnswerSynthesis, StateDone,
	}, states)
}

func TestRun_NoResultsUsesEncouragementPrompt(t *testing.T) {
	ret := &stubRetriever{} // zero pages for every strategy
	gen := &echoGenerator{}
	m := NewMachine(router.NewKeyword(), ret, gen, nil)

	turn, err := m.Run(context.Background(), NewTranscript(), "find my meeting notes", nil)
	require.NoError(t, err)

	assert.Equal(t, KindNoResults, turn.FromTag)
	// The answer comes from the no-results prompt: encouraging, with
	// rephrasing suggestions, not a raw error.
	assert.Contains(t, turn.Answer, "encourage")
	assert.Contains(t, turn.Answer, "rephrasing")
	assert.NotContains(t, turn.Answer, "I encountered an error")
}

func TestRun_SearchErrorSurfacedVerbatimWithoutGeneration(t *testing.T) {
	ret := &stubRetriever{searchErr: &notes.SearchError{Message: "upstream exploded", Status: 503}}
	gen := &echoGenerator{}
	m := NewMachine(router.NewKeyword(), ret, gen, nil)

	turn, err := m.Run(context.Background(), NewTranscript(), "find my meeting notes", nil)
	require.NoError(t, err)

	assert.Equal(t, KindError, turn.FromTag)
	assert.Contains(t, turn.Answer, "upstream exploded")
	assert.Equal(t, 0, gen.calls, "error outcomes must not spend a generation call")
}

func TestRun_AuthFailurePropagates(t *testing.T) {
	ret := &stubRetriever{searchErr: &notes.SearchError{Message: "content fetch failed", Cause: auth.ErrNotLoggedIn}}
	gen := &echoGenerator{}
	m := NewMachine(router.NewKeyword(), ret, gen, nil)

	_, err := m.Run(context.Background(), NewTranscript(), "find my meeting notes", nil)
	assert.ErrorIs(t, err, auth.ErrNotLoggedIn)
	assert.Equal(t, 0, gen.calls)
}

func TestRun_ExistingTagRoutesToSynthesisWithoutRedispatch(t *testing.T) {
	ret := &stubRetriever{searchResult: &notes.SearchResult{Pages: meetingPages()}}
	gen := &echoGenerator{}
	m := NewMachine(router.NewKeyword(), ret, gen, nil)

	seeded := NewTranscript().
		Append(llm.RoleUser, "find my meeting notes").
		Append(llm.RoleAssistant, SearchResults{Query: "meeting notes", Pages: meetingPages()}.Encode())

	turn, err := m.Run(context.Background(), seeded, "find my meeting notes", nil)
	require.NoError(t, err)

	assert.Equal(t, KindSearchResults, turn.FromTag)
	assert.Equal(t, 0, ret.searchCalls, "completed tool result must not re-dispatch")
}

func TestRun_StaleTagShadowedByNewerAnswer(t *testing.T) {
	ret := &stubRetriever{}
	gen := &echoGenerator{}
	m := NewMachine(router.NewKeyword(), ret, gen, nil)

	// A finished earlier turn: tagged result followed by its plain answer.
	seeded := NewTranscript().
		Append(llm.RoleUser, "find my meeting notes").
		Append(llm.RoleAssistant, SearchResults{Query: "meeting notes", Pages: meetingPages()}.Encode()).
		Append(llm.RoleAssistant, "Here is what I found earlier.")

	// A new tool-free question must not resurrect the old tag.
	turn, err := m.Run(context.Background(), seeded, "thanks, that helps", nil)
	require.NoError(t, err)
	assert.Equal(t, KindNone, turn.FromTag)
	assert.Equal(t, 0, ret.searchCalls)
}

func TestRun_RecentAndNotebookRouting(t *testing.T) {
	ret := &stubRetriever{
		recent:    []notes.Page{{Title: "Daily Log", NotebookName: "Journal", SectionName: "2025"}},
		notebooks: []notes.NotebookInfo{{Name: "Personal", IsDefault: true}},
	}
	gen := &echoGenerator{}
	m := NewMachine(router.NewKeyword(), ret, gen, nil)

	turn, err := m.Run(context.Background(), NewTranscript(), "show me recent notes", nil)
	require.NoError(t, err)
	assert.Equal(t, KindRecentPages, turn.FromTag)
	assert.Contains(t, turn.Answer, "Daily Log")

	turn, err = m.Run(context.Background(), NewTranscript(), "list my notebooks", nil)
	require.NoError(t, err)
	assert.Equal(t, KindNotebooks, turn.FromTag)
	assert.Contains(t, turn.Answer, "Personal")
}

func TestTranscript_ValueSemantics(t *testing.T) {
	base := NewTranscript().Append(llm.RoleUser, "one")
	grown := base.Append(llm.RoleAssistant, "two")

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, grown.Len())

	// Appending to the base again must not leak into grown.
	other := base.Append(llm.RoleAssistant, "three")
	last, ok := grown.LastAssistant()
	require.True(t, ok)
	assert.Equal(t, "two", last.Content)
	last, ok = other.LastAssistant()
	require.True(t, ok)
	assert.Equal(t, "three", last.Content)
}

func TestTranscript_WithSystemIsIdempotent(t *testing.T) {
	tr := NewTranscript().Append(llm.RoleUser, "hi").WithSystem("instruction").WithSystem("instruction")

	count := 0
	for _, m := range tr.Messages() {
		if m.Role == llm.RoleSystem {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, llm.RoleSystem, tr.Messages()[0].Role)
}
