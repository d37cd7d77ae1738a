// SPDX-License-Identifier: MIT

// Package telemetry provides OpenTelemetry tracing helpers. Spans go to the
// global tracer provider, which is a no-op until a host process installs one.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer used across the module.
const InstrumentationName = "github.com/ManuGH/standardise"

// Span attribute keys.
const (
	RunIDKey   = "standardise.run_id"
	StageKey   = "standardise.stage"
	RowsInKey  = "standardise.rows_in"
	RowsOutKey = "standardise.rows_out"
	StatusKey  = "standardise.status"
)

// Tracer returns the module tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// StartSpan starts an internal span carrying attrs.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, sets its status and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// RowAttributes describes the table sizes around an operation.
func RowAttributes(in, out int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(RowsInKey, in),
		attribute.Int(RowsOutKey, out),
	}
}
