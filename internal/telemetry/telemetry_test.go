// SPDX-License-Identifier: MIT

package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/standardise/internal/telemetry"
	"github.com/ManuGH/standardise/internal/telemetry/telemetrytest"
)

func TestStartSpan_NoopByDefault(t *testing.T) {
	_, span := telemetry.StartSpan(context.Background(), "noop")
	defer span.End()
	assert.False(t, span.IsRecording())
}

func TestEndSpan_RecordsStatus(t *testing.T) {
	rec := telemetrytest.RecordSpans(t)

	_, ok := telemetry.StartSpan(context.Background(), "ok", attribute.String(telemetry.StageKey, "rename"))
	telemetry.EndSpan(ok, nil)
	_, bad := telemetry.StartSpan(context.Background(), "bad")
	telemetry.EndSpan(bad, errors.New("boom"))

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "ok", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String(telemetry.StageKey, "rename"))
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "boom", spans[1].Status().Description)
	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "exception", spans[1].Events()[0].Name)
}

func TestRowAttributes(t *testing.T) {
	assert.Equal(t, []attribute.KeyValue{
		attribute.Int(telemetry.RowsInKey, 3),
		attribute.Int(telemetry.RowsOutKey, 2),
	}, telemetry.RowAttributes(3, 2))
}
