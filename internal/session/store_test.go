// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteqdev/noteq/internal/conversation"
	"github.com/noteqdev/noteq/internal/llm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleTranscript() conversation.Transcript {
	return conversation.NewTranscript().
		Append(llm.RoleSystem, "instruction").
		Append(llm.RoleUser, "find my meeting notes").
		Append(llm.RoleAssistant, "Here are your meeting notes.")
}

func TestSaveAndLoad(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.Save(ctx, "", sampleTranscript())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sampleTranscript().Messages(), loaded.Messages())
}

func TestSave_ExistingIDReplacesMessages(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.Save(ctx, "", sampleTranscript())
	require.NoError(t, err)

	grown := sampleTranscript().
		Append(llm.RoleUser, "anything else?").
		Append(llm.RoleAssistant, "That was everything.")
	sameID, err := store.Save(ctx, id, grown)
	require.NoError(t, err)
	assert.Equal(t, id, sameID)

	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Len())
}

func TestLoad_UnknownID(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.Save(ctx, "", sampleTranscript())
	require.NoError(t, err)
	second, err := store.Save(ctx, "", conversation.NewTranscript().
		Append(llm.RoleUser, "list my notebooks").
		Append(llm.RoleAssistant, "You have two notebooks."))
	require.NoError(t, err)

	summaries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	ids := []string{summaries[0].ID, summaries[1].ID}
	assert.Contains(t, ids, first)
	assert.Contains(t, ids, second)

	for _, sum := range summaries {
		assert.NotEmpty(t, sum.Title)
		assert.Greater(t, sum.Messages, 0)
	}
}

func TestList_TitleFromFirstUserMessage(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Save(ctx, "", sampleTranscript())
	require.NoError(t, err)

	summaries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "find my meeting notes", summaries[0].Title)
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.Save(ctx, "", sampleTranscript())
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Load(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, id), ErrNotFound)
}
