// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package auth

// =============================================================================
// ERROR TYPES
// =============================================================================

// AuthError represents an authentication failure.
type AuthError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// Is matches any AuthError of the same Type, so callers can test against the
// sentinels below with errors.Is.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// ErrorType categorizes authentication errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotLoggedIn
	ErrTypeTokenExpired
	ErrTypeDeviceFlow
	ErrTypeCache
	ErrTypeMissingClientID
)

// Sentinel errors for easy checking.
var (
	ErrNotLoggedIn     = &AuthError{Type: ErrTypeNotLoggedIn, Message: "not logged in, run 'noteq login' first"}
	ErrTokenExpired    = &AuthError{Type: ErrTypeTokenExpired, Message: "session expired, run 'noteq login' again"}
	ErrMissingClientID = &AuthError{Type: ErrTypeMissingClientID, Message: "no client_id configured, set auth.client_id or NOTEQ_CLIENT_ID"}
)
