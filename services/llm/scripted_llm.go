// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"sync"
)

// ScriptedClient is a test implementation of LLMClient that replays a fixed
// sequence of responses. Once the script is exhausted the last response is
// repeated.
//
// Thread Safety: Safe for concurrent use.
type ScriptedClient struct {
	// Responses to replay, in order.
	Responses []string

	// Err to return on every call (if set).
	Err error

	mu    sync.Mutex
	calls int
}

// Generate implements LLMClient.
func (s *ScriptedClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Err != nil {
		return "", s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Responses) == 0 {
		return "", nil
	}
	idx := s.calls
	if idx >= len(s.Responses) {
		idx = len(s.Responses) - 1
	}
	s.calls++
	return s.Responses[idx], nil
}

// Calls returns how many times Generate was invoked.
func (s *ScriptedClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
