// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package notes

import "fmt"

// SearchError represents a retrieval failure. Status and Body carry the raw
// API response when the failure came from the transport.
type SearchError struct {
	Message string
	Status  int
	Body    string
	Cause   error
}

func (e *SearchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *SearchError) Unwrap() error {
	return e.Cause
}

// ErrEmptyQuery is returned by SearchPages for blank input.
var ErrEmptyQuery = &SearchError{Message: "search query is empty"}
