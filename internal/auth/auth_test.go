// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestTokenCache_RoundTrip(t *testing.T) {
	cache := newTokenCache(filepath.Join(t.TempDir(), "token.json"))

	saved := &oauth2.Token{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-def",
		Expiry:       time.Now().Add(time.Hour).Truncate(time.Second),
	}
	require.NoError(t, cache.save(saved))

	loaded, err := cache.load()
	require.NoError(t, err)
	assert.Equal(t, "access-abc", loaded.AccessToken)
	assert.Equal(t, "refresh-def", loaded.RefreshToken)
	assert.True(t, loaded.Valid())
}

func TestTokenCache_MissingFileIsNotLoggedIn(t *testing.T) {
	cache := newTokenCache(filepath.Join(t.TempDir(), "token.json"))

	_, err := cache.load()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestTokenCache_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := newTokenCache(path).load()
	require.Error(t, err)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, ErrTypeCache, authErr.Type)
}

func TestTokenCache_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	cache := newTokenCache(path)
	require.NoError(t, cache.save(&oauth2.Token{AccessToken: "x"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestTokenCache_Remove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	cache := newTokenCache(path)
	require.NoError(t, cache.save(&oauth2.Token{AccessToken: "x"}))

	require.NoError(t, cache.remove())
	// Removing an absent cache is not an error.
	require.NoError(t, cache.remove())

	_, err := cache.load()
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestStaticAuthenticator(t *testing.T) {
	tok, err := Static("fixed-token").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixed-token", tok)

	_, err = Static("").Token(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	assert.True(t, Static("fixed-token").ValidateToken("fixed-token"))
	assert.False(t, Static("fixed-token").ValidateToken("other"))
	assert.False(t, Static("").ValidateToken(""))
}

func TestDeviceAuthenticator_ValidateToken(t *testing.T) {
	cache := newTokenCache(filepath.Join(t.TempDir(), "token.json"))
	a := &DeviceAuthenticator{cache: cache}

	// Nothing cached yet.
	assert.False(t, a.ValidateToken("access-abc"))

	require.NoError(t, cache.save(&oauth2.Token{
		AccessToken: "access-abc",
		Expiry:      time.Now().Add(time.Hour),
	}))
	assert.True(t, a.ValidateToken("access-abc"))
	assert.False(t, a.ValidateToken("some-other-token"))
	assert.False(t, a.ValidateToken(""))

	// Expired credential fails validation even for the matching token.
	require.NoError(t, cache.save(&oauth2.Token{
		AccessToken: "access-abc",
		Expiry:      time.Now().Add(-time.Minute),
	}))
	assert.False(t, a.ValidateToken("access-abc"))
}

func TestAuthError_IsMatchesByType(t *testing.T) {
	wrapped := &AuthError{Type: ErrTypeNotLoggedIn, Message: "custom wording"}
	assert.ErrorIs(t, wrapped, ErrNotLoggedIn)
	assert.NotErrorIs(t, wrapped, ErrTokenExpired)
}
