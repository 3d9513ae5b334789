// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

// Package session persists chat transcripts in a local SQLite database so
// conversations can be resumed across CLI invocations.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/noteqdev/noteq/internal/conversation"
	"github.com/noteqdev/noteq/internal/llm"
	"github.com/noteqdev/noteq/internal/util"
)

// ErrNotFound is returned when a conversation id does not exist.
var ErrNotFound = errors.New("conversation not found")

// titleLimit bounds how much of the first user message becomes the title.
const titleLimit = 60

// Summary describes one saved conversation for listings.
type Summary struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  int
}

// Store is the SQLite-backed conversation store.
type Store struct {
	db *sql.DB
}

// Open creates or opens the store at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying session schema: %w", err)
	}
	if _, err := db.Exec(
		`INSERT OR IGNORE INTO metadata(key, value) VALUES ('schema_version', ?)`,
		strconv.Itoa(SchemaVersion),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("recording schema version: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists a transcript. An empty id creates a new conversation and
// returns its generated id; a known id replaces that conversation's
// messages.
func (s *Store) Save(ctx context.Context, id string, t conversation.Transcript) (string, error) {
	msgs := t.Messages()
	now := time.Now().Unix()

	if id == "" {
		id = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("starting save: %w", err)
	}
	defer tx.Rollback()

	title := titleFor(msgs)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversations(id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, updated_at = excluded.updated_at`,
		id, title, now, now,
	); err != nil {
		return "", fmt.Errorf("saving conversation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return "", fmt.Errorf("clearing old messages: %w", err)
	}
	for i, m := range msgs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages(conversation_id, position, role, content)
			VALUES (?, ?, ?, ?)`,
			id, i, m.Role, m.Content,
		); err != nil {
			return "", fmt.Errorf("saving message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing save: %w", err)
	}
	return id, nil
}

// Load returns the transcript for a conversation id.
func (s *Store) Load(ctx context.Context, id string) (conversation.Transcript, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversations WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return conversation.Transcript{}, fmt.Errorf("looking up conversation: %w", err)
	}
	if exists == 0 {
		return conversation.Transcript{}, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content FROM messages
		WHERE conversation_id = ? ORDER BY position`, id)
	if err != nil {
		return conversation.Transcript{}, fmt.Errorf("loading messages: %w", err)
	}
	defer rows.Close()

	t := conversation.NewTranscript()
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return conversation.Transcript{}, fmt.Errorf("reading message: %w", err)
		}
		t = t.Append(role, content)
	}
	if err := rows.Err(); err != nil {
		return conversation.Transcript{}, fmt.Errorf("reading messages: %w", err)
	}
	return t, nil
}

// List returns saved conversations, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.created_at, c.updated_at, COUNT(m.id)
		FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id
		GROUP BY c.id
		ORDER BY c.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var created, updated int64
		if err := rows.Scan(&sum.ID, &sum.Title, &created, &updated, &sum.Messages); err != nil {
			return nil, fmt.Errorf("reading conversation row: %w", err)
		}
		sum.CreatedAt = time.Unix(created, 0)
		sum.UpdatedAt = time.Unix(updated, 0)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a conversation and its messages.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id)
	return err
}

// titleFor derives a listing title from the first user message.
func titleFor(msgs []llm.Message) string {
	for _, m := range msgs {
		if m.Role == llm.RoleUser {
			return util.TruncateRunes(util.FirstLine(m.Content), titleLimit)
		}
	}
	return "(empty conversation)"
}
