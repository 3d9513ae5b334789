// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

// sessions.go - Saved-conversation management.
//
// Command: sessions
// Subcommands:
//   list           List saved conversations (default)
//   show <id>      Print one conversation
//   delete <id>    Remove one conversation
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/noteqdev/noteq/internal/llm"
	"github.com/noteqdev/noteq/internal/session"
)

// HandleSessions dispatches the sessions subcommands.
func HandleSessions(args Args) error {
	path, err := sessionDBPath()
	if err != nil {
		return err
	}
	store, err := session.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	switch args.Subcommand {
	case "", "list":
		return listSessions(ctx, store)

	case "show":
		if len(args.Raw) == 0 {
			return errors.New("usage: noteq sessions show <id>")
		}
		return showSession(ctx, store, args.Raw[0])

	case "delete", "rm":
		if len(args.Raw) == 0 {
			return errors.New("usage: noteq sessions delete <id>")
		}
		if err := store.Delete(ctx, args.Raw[0]); err != nil {
			return err
		}
		fmt.Println("deleted", args.Raw[0])
		return nil
	}
	return fmt.Errorf("unknown sessions subcommand %q", args.Subcommand)
}

func listSessions(ctx context.Context, store *session.Store) error {
	summaries, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("no saved conversations")
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%d saved conversations", len(summaries))))
	for _, s := range summaries {
		fmt.Printf("%s  %s\n", s.ID, s.Title)
		fmt.Println(detailStyle.Render(fmt.Sprintf("  %d messages, updated %s",
			s.Messages, s.UpdatedAt.Format("2006-01-02 15:04"))))
	}
	return nil
}

func showSession(ctx context.Context, store *session.Store, id string) error {
	t, err := store.Load(ctx, id)
	if err != nil {
		return err
	}
	for _, m := range t.Messages() {
		if m.Role == llm.RoleSystem {
			continue
		}
		fmt.Printf("%s: %s\n", m.Role, m.Content)
	}
	return nil
}
