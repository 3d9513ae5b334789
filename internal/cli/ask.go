// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

// ask.go - One-shot question command.
//
// Command: ask
// Short:   Ask a single question about your notes
//
// Examples:
//   noteq ask "what did I write about the offsite?"
//   noteq ask find my meeting notes
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/noteqdev/noteq/internal/stream"
)

// HandleAsk answers one question and exits.
func HandleAsk(args Args) error {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return errors.New("usage: noteq ask <question>")
	}

	a, err := newApp(args)
	if err != nil {
		return err
	}
	defer a.close()

	return runQuery(context.Background(), a, query, args.Quiet)
}

// runQuery streams one query's chunks to the terminal. Status chunks go to
// stderr so piped stdout carries only the answer.
func runQuery(ctx context.Context, a *app, query string, quiet bool) error {
	for chunk := range a.adapter.Process(ctx, query) {
		switch chunk.Kind {
		case stream.KindStatus:
			if !quiet && IsStdoutTTY() {
				fmt.Fprintln(os.Stderr, statusStyle.Render("… "+chunk.Content))
			}
		case stream.KindText:
			displayAnswer(chunk.Content)
		case stream.KindError:
			fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+chunk.Content)
			if chunk.Final {
				return errors.New(chunk.Content)
			}
		}
	}
	return nil
}
