// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package auth

import (
	"encoding/json"
	"errors"
	"os"

	"golang.org/x/oauth2"

	"github.com/noteqdev/noteq/internal/util"
)

// tokenCache persists an oauth2.Token as JSON. The file is written with 0600
// permissions and replaced atomically so a crash mid-write never leaves a
// truncated credential behind.
type tokenCache struct {
	path string
}

func newTokenCache(path string) *tokenCache {
	return &tokenCache{path: path}
}

func (c *tokenCache) load() (*oauth2.Token, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotLoggedIn
		}
		return nil, &AuthError{Type: ErrTypeCache, Message: "cannot read token cache", Cause: err}
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, &AuthError{Type: ErrTypeCache, Message: "token cache is corrupt, run 'noteq login' again", Cause: err}
	}
	return &tok, nil
}

func (c *tokenCache) save(tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return &AuthError{Type: ErrTypeCache, Message: "cannot encode token", Cause: err}
	}
	if err := util.AtomicWriteFile(c.path, data, 0600); err != nil {
		return &AuthError{Type: ErrTypeCache, Message: "cannot write token cache", Cause: err}
	}
	return nil
}

func (c *tokenCache) remove() error {
	err := os.Remove(c.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return &AuthError{Type: ErrTypeCache, Message: "cannot remove token cache", Cause: err}
	}
	return nil
}
