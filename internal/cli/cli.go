// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

// Package cli implements the noteq command line: argument parsing, command
// handlers, and terminal output.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command identifies a top-level noteq command.
type Command int

const (
	CmdAsk Command = iota
	CmdChat
	CmdRecent
	CmdNotebooks
	CmdLogin
	CmdLogout
	CmdStatus
	CmdSessions
	CmdVersion
	CmdHelp
)

// Args carries parsed command-line arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool

	// Command-specific
	Query      string
	Subcommand string
	Limit      int

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `noteq - ask questions about your OneNote notes

Usage:
  noteq ask <question>        Ask a one-shot question
  noteq chat                  Start an interactive chat session
  noteq recent [n]            Show the n most recently modified pages
  noteq notebooks             List your notebooks
  noteq login                 Sign in with a device code
  noteq logout                Remove the cached credential
  noteq status                Show sign-in and configuration status
  noteq sessions [list|show <id>|delete <id>]
                              Manage saved chat sessions
  noteq version               Print version information
  noteq help                  Show this help

Flags:
  -q, --quiet     Suppress status output
  -v, --verbose   Enable debug logging

Examples:
  noteq ask "what did I write about the offsite?"
  noteq recent 5
  noteq chat

Configuration lives in ~/.noteq/config.toml; NOTEQ_* environment
variables override it. Set NOTEQ_CLIENT_ID before the first login.

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("noteq version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses os.Args and returns the command and its arguments.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs is Parse with explicit arguments.
func ParseArgs(argv []string) (Command, Args) {
	var parsed Args
	var remaining []string

	for _, a := range argv {
		switch a {
		case "-q", "--quiet":
			parsed.Quiet = true
		case "-v", "--verbose":
			parsed.Verbose = true
		default:
			remaining = append(remaining, a)
		}
	}

	if len(remaining) == 0 {
		return CmdChat, parsed
	}

	first := remaining[0]
	cmd := strings.ToLower(first)
	remaining = remaining[1:]
	parsed.Raw = remaining

	switch cmd {
	case "ask":
		parsed.Query = strings.Join(remaining, " ")
		return CmdAsk, parsed

	case "chat":
		return CmdChat, parsed

	case "recent":
		if len(remaining) > 0 {
			fmt.Sscanf(remaining[0], "%d", &parsed.Limit)
		}
		return CmdRecent, parsed

	case "notebooks", "notebook":
		return CmdNotebooks, parsed

	case "login":
		return CmdLogin, parsed

	case "logout":
		return CmdLogout, parsed

	case "status", "s":
		return CmdStatus, parsed

	case "sessions", "session":
		if len(remaining) > 0 {
			parsed.Subcommand = remaining[0]
			parsed.Raw = remaining[1:]
		}
		return CmdSessions, parsed

	case "version", "--version":
		return CmdVersion, parsed

	case "help", "-h", "--help":
		return CmdHelp, parsed
	}

	// Unrecognized first token: treat the whole line as a question.
	parsed.Query = strings.Join(append([]string{first}, remaining...), " ")
	return CmdAsk, parsed
}
