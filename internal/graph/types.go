// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package graph

import "time"

// =============================================================================
// WIRE TYPES
// =============================================================================

// Wire types mirror the Microsoft Graph OneNote JSON shapes. Only the fields
// noteq reads are declared.

// Page is a OneNote page as returned by /me/onenote/pages.
type Page struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	CreatedDateTime      time.Time `json:"createdDateTime"`
	LastModifiedDateTime time.Time `json:"lastModifiedDateTime"`
	ContentURL           string    `json:"contentUrl,omitempty"`

	ParentSection  *ParentRef `json:"parentSection,omitempty"`
	ParentNotebook *ParentRef `json:"parentNotebook,omitempty"`
}

// ParentRef identifies the section or notebook containing a page.
type ParentRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Notebook is a OneNote notebook as returned by /me/onenote/notebooks.
type Notebook struct {
	ID                   string    `json:"id"`
	DisplayName          string    `json:"displayName"`
	CreatedDateTime      time.Time `json:"createdDateTime"`
	LastModifiedDateTime time.Time `json:"lastModifiedDateTime"`
	IsDefault            bool      `json:"isDefault"`
}

// listResponse is the OData collection envelope.
type listResponse[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink,omitempty"`
}

// apiErrorBody is the Graph error envelope.
type apiErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
