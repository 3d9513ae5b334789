// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

// Package llm provides the answer-generation boundary and its Ollama
// implementation.
package llm

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry in a model conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator turns an ordered message list into generated text. The
// conversation core treats it as an opaque completion function.
type Generator interface {
	// Generate returns the complete response text.
	Generate(ctx context.Context, messages []Message) (string, error)

	// GenerateStream returns response text incrementally. The channel is
	// closed when generation finishes; errors are delivered as a final
	// chunk with Err set.
	GenerateStream(ctx context.Context, messages []Message) <-chan Delta
}

// Delta is one increment of streamed generation.
type Delta struct {
	Text string
	Done bool
	Err  error
}
