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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedClientReplaysInOrder(t *testing.T) {
	client := &ScriptedClient{Responses: []string{"first", "second"}}
	ctx := context.Background()

	out, err := client.Generate(ctx, "p", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "first", out)

	out, err = client.Generate(ctx, "p", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "second", out)

	// Exhausted scripts repeat the last response.
	out, err = client.Generate(ctx, "p", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "second", out)

	assert.Equal(t, 3, client.Calls())
}

func TestScriptedClientError(t *testing.T) {
	wantErr := errors.New("backend down")
	client := &ScriptedClient{Err: wantErr}

	_, err := client.Generate(context.Background(), "p", GenerationParams{})
	assert.ErrorIs(t, err, wantErr)
}

func TestScriptedClientCancelledContext(t *testing.T) {
	client := &ScriptedClient{Responses: []string{"x"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Generate(ctx, "p", GenerationParams{})
	assert.Error(t, err)
	assert.Equal(t, 0, client.Calls())
}
