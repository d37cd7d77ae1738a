// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunIDRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		id   string
	}{
		{name: "nil context", ctx: nil, id: "run-1"},
		{name: "background context", ctx: context.Background(), id: "run-2"},
		{name: "empty id", ctx: context.Background(), id: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRunID(tt.ctx, tt.id) //nolint:staticcheck // nil ctx is part of the contract
			assert.Equal(t, tt.id, RunIDFromContext(ctx))
		})
	}
}

func TestRunIDFromContext_Missing(t *testing.T) {
	assert.Equal(t, "", RunIDFromContext(nil)) //nolint:staticcheck
	assert.Equal(t, "", RunIDFromContext(context.Background()))
}

func TestWithComponentFromContext_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "test"})
	t.Cleanup(func() { Configure(Config{}) })

	ctx := ContextWithRunID(context.Background(), "abc")
	l := WithComponentFromContext(ctx, "runner")
	l.Info().Str(FieldEvent, "unit.test").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "abc", entry[FieldRunID])
	assert.Equal(t, "runner", entry[FieldComponent])
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, "unit.test", entry[FieldEvent])
}

func TestConfigure_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "info", Format: "console", Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	logger := WithComponent("x")
	logger.Info().Msg("console line")
	assert.Contains(t, buf.String(), "console line")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
