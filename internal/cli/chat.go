// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

// chat.go - Interactive chat command.
//
// Command: chat
// Short:   Start an interactive chat session
//
// Interactive commands (during chat):
//   /help, /h      Show available commands
//   /clear, /c     Clear the conversation
//   /save          Save the conversation to the session store
//   /history       Show the conversation so far
//   /quit, /q      Exit chat
//   Ctrl+D         Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/noteqdev/noteq/internal/config"
	"github.com/noteqdev/noteq/internal/llm"
	"github.com/noteqdev/noteq/internal/session"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// chatInput provides line editing and input history for the REPL.
type chatInput struct {
	line        *liner.State
	historyFile string
}

func newChatInput() *chatInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	in := &chatInput{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	in.loadHistory()
	return in
}

func (c *chatInput) loadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

func (c *chatInput) read(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

func (c *chatInput) close() {
	if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
		c.line.WriteHistory(f)
		f.Close()
	}
	c.line.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs the interactive REPL.
func HandleChat(args Args) error {
	a, err := newApp(args)
	if err != nil {
		return err
	}
	defer a.close()

	in := newChatInput()
	defer in.close()

	if !args.Quiet {
		fmt.Println(welcomeStyle.Render("noteq chat"))
		fmt.Println(detailStyle.Render("Ask about your notes. /help for commands, /quit to exit."))
		fmt.Println()
	}

	ctx := context.Background()
	var savedID string

	for {
		input, err := in.read(promptStyle.Render("you> "))
		if err != nil {
			// Ctrl+D or Ctrl+C ends the session.
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if quit := a.handleSlashCommand(ctx, input, &savedID); quit {
				return nil
			}
			continue
		}

		if err := runQuery(ctx, a, input, args.Quiet); err != nil {
			// The error was already printed; the REPL stays up.
			continue
		}
	}
}

// handleSlashCommand executes a /command, returning true on quit.
func (a *app) handleSlashCommand(ctx context.Context, input string, savedID *string) bool {
	cmd := strings.Fields(input)[0]

	switch cmd {
	case "/quit", "/q", "/exit":
		return true

	case "/help", "/h":
		fmt.Println("  /help      show this help")
		fmt.Println("  /clear     clear the conversation")
		fmt.Println("  /save      save the conversation")
		fmt.Println("  /history   show the conversation so far")
		fmt.Println("  /quit      exit chat")

	case "/clear", "/c":
		a.adapter.Reset()
		*savedID = ""
		fmt.Println(detailStyle.Render("conversation cleared"))

	case "/history":
		for _, m := range a.adapter.Transcript().Messages() {
			if m.Role == llm.RoleSystem {
				continue
			}
			fmt.Printf("%s: %s\n", m.Role, m.Content)
		}

	case "/save":
		path, err := sessionDBPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
			return false
		}
		store, err := session.Open(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
			return false
		}
		defer store.Close()

		id, err := store.Save(ctx, *savedID, a.adapter.Transcript())
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
			return false
		}
		*savedID = id
		fmt.Println(detailStyle.Render("saved as " + id))

	default:
		fmt.Println(detailStyle.Render("unknown command " + cmd + ", try /help"))
	}
	return false
}
