// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package session

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1
)

// SQLite schema for saved conversations
const schema = `
-- Metadata table for schema version
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Conversations: one row per saved session
CREATE TABLE IF NOT EXISTS conversations (
    id TEXT PRIMARY KEY,          -- UUID
    title TEXT NOT NULL,          -- first user message, truncated
    created_at INTEGER NOT NULL,  -- Unix timestamp
    updated_at INTEGER NOT NULL   -- Unix timestamp
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at);

-- Messages: ordered transcript entries per conversation
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id TEXT NOT NULL,
    position INTEGER NOT NULL,    -- order within the conversation
    role TEXT NOT NULL,           -- system, user, assistant
    content TEXT NOT NULL,
    FOREIGN KEY(conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, position);
`
