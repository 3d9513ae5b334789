// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package extract

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple_paragraph",
			input:    "<html><body><p>Hello world</p></body></html>",
			expected: "Hello world",
		},
		{
			name:     "headings_and_paragraphs_separated",
			input:    "<h1>Meeting Notes</h1><p>Discussed roadmap</p>",
			expected: "Meeting Notes\nDiscussed roadmap",
		},
		{
			name:     "script_and_style_skipped",
			input:    "<style>p{color:red}</style><script>alert(1)</script><p>visible</p>",
			expected: "visible",
		},
		{
			name:     "title_skipped",
			input:    "<head><title>Page Title</title></head><body><p>body text</p></body>",
			expected: "body text",
		},
		{
			name:     "whitespace_collapsed",
			input:    "<p>a   lot\t of     space</p>",
			expected: "a lot of space",
		},
		{
			name:     "list_items_on_own_lines",
			input:    "<ul><li>one</li><li>two</li></ul>",
			expected: "one\ntwo",
		},
		{
			name:     "inline_tags_preserved_in_flow",
			input:    "<p>the <b>bold</b> word</p>",
			expected: "the bold word",
		},
		{
			name:     "empty_input",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace_only",
			input:    "   \n\t ",
			expected: "",
		},
		{
			name:     "malformed_html_tolerated",
			input:    "<p>unclosed <div>nested",
			expected: "unclosed\nnested",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.input); got != tt.expected {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
