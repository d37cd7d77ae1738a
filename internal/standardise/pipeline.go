// SPDX-License-Identifier: MIT

// Package standardise implements the Standardise stage of the ETL pipeline:
// an ordered list of best-effort table transformations.
package standardise

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	xglog "github.com/ManuGH/standardise/internal/log"
	"github.com/ManuGH/standardise/internal/metrics"
	"github.com/ManuGH/standardise/internal/table"
	"github.com/ManuGH/standardise/internal/telemetry"
)

// ErrStagePanic wraps a panic recovered from a stage.
var ErrStagePanic = errors.New("stage panicked")

// Stage transforms a table. Implementations must not mutate their input:
// when a stage fails the pipeline carries on with the input table.
type Stage interface {
	Name() string
	Apply(ctx context.Context, t *table.Table) (*table.Table, error)
}

// Pipeline runs stages in order.
type Pipeline struct {
	Stages []Stage
}

// StageResult describes one stage execution.
type StageResult struct {
	Name     string
	Duration time.Duration
	RowsIn   int
	RowsOut  int
	Err      error
}

// Report summarises a pipeline run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	RowsIn     int
	RowsOut    int
	Duplicates int
	Stages     []StageResult
	// Err is set when the run stopped early, e.g. on context cancellation.
	Err error
}

// Failures lists "stage: error" for each failed stage.
func (r Report) Failures() []string {
	var out []string
	for _, s := range r.Stages {
		if s.Err != nil {
			out = append(out, fmt.Sprintf("%s: %v", s.Name, s.Err))
		}
	}
	return out
}

// Degraded reports whether at least one stage was skipped because it failed.
func (r Report) Degraded() bool {
	for _, s := range r.Stages {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Run executes every stage. A failing stage is logged and skipped; the table
// from before that stage flows into the next one.
func (p *Pipeline) Run(ctx context.Context, t *table.Table) (*table.Table, Report) {
	logger := xglog.WithComponentFromContext(ctx, "standardise")
	report := Report{
		RunID:     xglog.RunIDFromContext(ctx),
		StartedAt: time.Now().UTC(),
		RowsIn:    t.Len(),
	}
	ctx, runSpan := telemetry.StartSpan(ctx, "standardise.pipeline",
		attribute.String(telemetry.RunIDKey, report.RunID),
		attribute.Int(telemetry.RowsInKey, report.RowsIn))
	cur := t

	for _, stage := range p.Stages {
		if err := ctx.Err(); err != nil {
			report.Err = err
			logger.Warn().Err(err).Str(xglog.FieldEvent, "pipeline.cancelled").Msg("pipeline stopped before completion")
			break
		}

		stageCtx, span := telemetry.StartSpan(ctx, "standardise.stage."+stage.Name(),
			attribute.String(telemetry.RunIDKey, report.RunID),
			attribute.String(telemetry.StageKey, stage.Name()))
		start := time.Now()
		out, err := runStage(stageCtx, stage, cur)
		res := StageResult{
			Name:     stage.Name(),
			Duration: time.Since(start),
			RowsIn:   cur.Len(),
			RowsOut:  cur.Len(),
			Err:      err,
		}
		metrics.ObserveStage(stage.Name(), res.Duration.Seconds(), err != nil)

		if err != nil {
			logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "stage.failed").
				Str(xglog.FieldStage, stage.Name()).
				Msg("stage failed, continuing with previous table")
		} else {
			res.RowsOut = out.Len()
			cur = out
			logger.Debug().
				Str(xglog.FieldEvent, "stage.done").
				Str(xglog.FieldStage, stage.Name()).
				Dur("duration", res.Duration).
				Int(xglog.FieldRowsOut, res.RowsOut).
				Msg("stage complete")
		}
		if stage.Name() == dedupeName && err == nil {
			report.Duplicates += res.RowsIn - res.RowsOut
		}
		span.SetAttributes(telemetry.RowAttributes(res.RowsIn, res.RowsOut)...)
		telemetry.EndSpan(span, err)
		report.Stages = append(report.Stages, res)
	}

	report.RowsOut = cur.Len()
	report.FinishedAt = time.Now().UTC()
	runSpan.SetAttributes(
		attribute.Int(telemetry.RowsOutKey, report.RowsOut),
		attribute.Int("standardise.failed_stages", len(report.Failures())))
	telemetry.EndSpan(runSpan, report.Err)
	return cur, report
}

func runStage(ctx context.Context, stage Stage, t *table.Table) (out *table.Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ErrStagePanic, r)
		}
	}()
	out, err = stage.Apply(ctx, t)
	if err == nil && out == nil {
		err = fmt.Errorf("stage %s returned no table", stage.Name())
	}
	return out, err
}
