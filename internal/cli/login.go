// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

// login.go - Sign-in, sign-out, and status commands.
package cli

import (
	"context"
	"fmt"
	"time"
)

// HandleLogin runs the interactive device-code sign-in.
func HandleLogin(args Args) error {
	a, err := newApp(args)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.authn.Login(context.Background()); err != nil {
		return err
	}
	fmt.Println("Signed in.")
	return nil
}

// HandleLogout removes the cached credential.
func HandleLogout(args Args) error {
	a, err := newApp(args)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.authn.Logout(); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

// HandleStatus reports sign-in state and the active configuration.
func HandleStatus(args Args) error {
	a, err := newApp(args)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Println(headerStyle.Render("noteq status"))

	loggedIn, expiry := a.authn.Status()
	switch {
	case !loggedIn:
		fmt.Println("  signed in:  no (run 'noteq login')")
	case expiry.Before(time.Now()):
		fmt.Printf("  signed in:  yes (token expired %s, will refresh on use)\n",
			expiry.Format("2006-01-02 15:04"))
	default:
		fmt.Printf("  signed in:  yes (token valid until %s)\n",
			expiry.Format("2006-01-02 15:04"))
	}

	fmt.Printf("  graph API:  %s\n", a.cfg.Graph.BaseURL)
	fmt.Printf("  model:      %s via %s\n", a.cfg.LLM.Model, a.cfg.LLM.OllamaURL)
	fmt.Printf("  rate usage: %d requests in the current window\n", a.graph.PendingInWindow())

	if err := a.generator.CheckRunning(context.Background()); err != nil {
		fmt.Println(errorStyle.Render("  ollama:     unreachable") + " (start it with: ollama serve)")
	} else {
		fmt.Println("  ollama:     running")
	}
	return nil
}
