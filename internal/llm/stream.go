// Copyright (c) 2025 The noteq Authors
// SPDX-License-Identifier: MIT

package llm

import (
	"bufio"
	"encoding/json"
	"io"
)

// =============================================================================
// STREAM READER
// =============================================================================

// streamReader parses Ollama's line-delimited JSON chat stream.
type streamReader struct {
	reader *bufio.Reader
}

func newStreamReader(r io.Reader) *streamReader {
	return &streamReader{reader: bufio.NewReader(r)}
}

// next reads one line and converts it to a Delta. A nil Delta with nil error
// means the line was empty or malformed and should be skipped. io.EOF before
// a done marker is mapped to a final Done delta so consumers always see one.
func (s *streamReader) next() (*Delta, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return &Delta{Done: true}, nil
		}
		if len(line) == 0 {
			return nil, err
		}
	}

	if len(line) <= 1 {
		return nil, nil
	}

	var response struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Done  bool   `json:"done"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		// Skip malformed lines rather than aborting the stream.
		return nil, nil
	}

	if response.Error != "" {
		return &Delta{Err: &ClientError{Type: ErrTypeInvalidResponse, Message: response.Error}, Done: true}, nil
	}
	return &Delta{Text: response.Message.Content, Done: response.Done}, nil
}
