// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package conversation

import "github.com/noteqdev/noteq/internal/llm"

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is an append-only log of role-tagged messages. It has value
// semantics: Append returns a new Transcript and never mutates the receiver,
// so state-machine steps can hold snapshots safely.
type Transcript struct {
	messages []llm.Message
}

// NewTranscript returns an empty transcript.
func NewTranscript() Transcript {
	return Transcript{}
}

// Append returns a transcript extended with one message.
func (t Transcript) Append(role, content string) Transcript {
	out := make([]llm.Message, len(t.messages), len(t.messages)+1)
	copy(out, t.messages)
	return Transcript{messages: append(out, llm.Message{Role: role, Content: content})}
}

// WithSystem returns a transcript guaranteed to start with a system
// instruction. If one is already present anywhere, the transcript is
// returned unchanged.
func (t Transcript) WithSystem(instruction string) Transcript {
	for _, m := range t.messages {
		if m.Role == llm.RoleSystem {
			return t
		}
	}
	out := make([]llm.Message, 0, len(t.messages)+1)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: instruction})
	out = append(out, t.messages...)
	return Transcript{messages: out}
}

// Messages returns a copy of the message list.
func (t Transcript) Messages() []llm.Message {
	out := make([]llm.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages.
func (t Transcript) Len() int {
	return len(t.messages)
}

// LastAssistant returns the newest assistant message.
func (t Transcript) LastAssistant() (llm.Message, bool) {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == llm.RoleAssistant {
			return t.messages[i], true
		}
	}
	return llm.Message{}, false
}

// LastUser returns the newest user message.
func (t Transcript) LastUser() (llm.Message, bool) {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == llm.RoleUser {
			return t.messages[i], true
		}
	}
	return llm.Message{}, false
}
