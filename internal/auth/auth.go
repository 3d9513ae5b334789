// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

// Package auth implements sign-in for the note-storage API using the OAuth2
// device-code flow. Tokens are cached on disk and refreshed silently; the
// interactive flow only runs on explicit login or when the refresh token has
// expired.
package auth

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/noteqdev/noteq/internal/config"
)

// =============================================================================
// AUTHENTICATOR INTERFACE
// =============================================================================

// Authenticator supplies bearer tokens for API requests.
//
// Implementations must be safe for concurrent use.
type Authenticator interface {
	// Token returns a currently valid access token, refreshing silently if
	// the cached one has expired. Returns ErrNotLoggedIn when no cached
	// credential exists.
	Token(ctx context.Context) (string, error)

	// ValidateToken reports whether the given token is still usable without
	// another Token call. Cheap local check, no network round trip.
	ValidateToken(token string) bool
}

// =============================================================================
// DEVICE-CODE AUTHENTICATOR
// =============================================================================

// DeviceAuthenticator performs the OAuth2 device-code flow against the
// Microsoft identity platform and caches the resulting token on disk.
type DeviceAuthenticator struct {
	oauth  *oauth2.Config
	cache  *tokenCache
	logger *zap.Logger
	prompt io.Writer
}

// New builds a DeviceAuthenticator from configuration. Interactive prompts
// (the verification URL and user code) are written to prompt; pass os.Stderr
// for CLI use.
func New(cfg *config.Config, logger *zap.Logger, prompt io.Writer) (*DeviceAuthenticator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prompt == nil {
		prompt = os.Stderr
	}

	cachePath := cfg.Auth.CachePath
	if cachePath == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return nil, &AuthError{Type: ErrTypeCache, Message: "cannot resolve token cache path", Cause: err}
		}
		cachePath = filepath.Join(dir, "token.json")
	}

	tenant := cfg.Auth.TenantID
	if tenant == "" {
		tenant = "common"
	}

	return &DeviceAuthenticator{
		oauth: &oauth2.Config{
			ClientID: cfg.Auth.ClientID,
			Scopes:   cfg.Auth.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:       fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/authorize", tenant),
				TokenURL:      fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenant),
				DeviceAuthURL: fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/devicecode", tenant),
			},
		},
		cache:  newTokenCache(cachePath),
		logger: logger,
		prompt: prompt,
	}, nil
}

// Login runs the interactive device-code flow and caches the token. The user
// is shown a verification URL and a short code; Login blocks until they
// complete the flow in a browser or ctx is cancelled.
func (a *DeviceAuthenticator) Login(ctx context.Context) error {
	if a.oauth.ClientID == "" {
		return ErrMissingClientID
	}

	resp, err := a.oauth.DeviceAuth(ctx)
	if err != nil {
		return &AuthError{Type: ErrTypeDeviceFlow, Message: "device authorization request failed", Cause: err}
	}

	fmt.Fprintf(a.prompt, "To sign in, open %s and enter the code %s\n",
		resp.VerificationURI, resp.UserCode)

	tok, err := a.oauth.DeviceAccessToken(ctx, resp)
	if err != nil {
		return &AuthError{Type: ErrTypeDeviceFlow, Message: "device sign-in failed", Cause: err}
	}

	if err := a.cache.save(tok); err != nil {
		return err
	}
	a.logger.Info("login complete", zap.Time("expires", tok.Expiry))
	return nil
}

// Token implements Authenticator. Expired access tokens are refreshed with
// the cached refresh token and the renewed token is written back to disk.
func (a *DeviceAuthenticator) Token(ctx context.Context) (string, error) {
	cached, err := a.cache.load()
	if err != nil {
		return "", err
	}

	if cached.Valid() {
		return cached.AccessToken, nil
	}

	a.logger.Debug("access token expired, refreshing")
	fresh, err := a.oauth.TokenSource(ctx, cached).Token()
	if err != nil {
		return "", &AuthError{Type: ErrTypeTokenExpired, Message: "token refresh failed, run 'noteq login' again", Cause: err}
	}

	if err := a.cache.save(fresh); err != nil {
		// The refreshed token still works for this process.
		a.logger.Warn("cannot persist refreshed token", zap.Error(err))
	}
	return fresh.AccessToken, nil
}

// ValidateToken implements Authenticator. A token is valid when it matches
// the cached credential and the credential has not expired; anything else
// (empty, unknown, or stale) needs a fresh Token call.
func (a *DeviceAuthenticator) ValidateToken(token string) bool {
	if token == "" {
		return false
	}
	cached, err := a.cache.load()
	if err != nil {
		return false
	}
	return cached.AccessToken == token && cached.Valid()
}

// Status reports whether a cached credential exists and when it expires.
func (a *DeviceAuthenticator) Status() (loggedIn bool, expiry time.Time) {
	tok, err := a.cache.load()
	if err != nil {
		return false, time.Time{}
	}
	return true, tok.Expiry
}

// Logout removes the cached credential.
func (a *DeviceAuthenticator) Logout() error {
	return a.cache.remove()
}

// =============================================================================
// STATIC AUTHENTICATOR
// =============================================================================

// Static returns an Authenticator that always yields the given token.
// Useful for tests and for environments that inject a token externally.
func Static(token string) Authenticator {
	return staticAuthenticator(token)
}

type staticAuthenticator string

func (s staticAuthenticator) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNotLoggedIn
	}
	return string(s), nil
}

func (s staticAuthenticator) ValidateToken(token string) bool {
	return token != "" && token == string(s)
}
