// SPDX-License-Identifier: MIT

// Package runner executes one standardisation run end to end:
// read, standardise, write, verify, record.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ManuGH/standardise/internal/config"
	"github.com/ManuGH/standardise/internal/dataio"
	xglog "github.com/ManuGH/standardise/internal/log"
	"github.com/ManuGH/standardise/internal/metrics"
	"github.com/ManuGH/standardise/internal/runstore"
	"github.com/ManuGH/standardise/internal/standardise"
	"github.com/ManuGH/standardise/internal/telemetry"
)

// Errors classifying a failed run.
var (
	ErrRead  = errors.New("read input")
	ErrWrite = errors.New("write output")
)

// Report describes a finished run.
type Report struct {
	standardise.Report
	Input   string
	Output  string
	Status  string
	// Written is set once the output dataset has been replaced.
	Written bool
}

// Runner carries the hooks a run needs. The zero value is not usable; call New.
type Runner struct {
	cfg   config.AppConfig
	now   func() time.Time
	newID func() string
	store *runstore.Store
}

// Option customises a Runner.
type Option func(*Runner)

// WithClock overrides the wall clock used for the run start time.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithStore records runs into an already open ledger instead of opening
// cfg.RunStore for every run.
func WithStore(s *runstore.Store) Option {
	return func(r *Runner) { r.store = s }
}

// New returns a Runner for cfg.
func New(cfg config.AppConfig, opts ...Option) *Runner {
	r := &Runner{
		cfg:   cfg,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes a single run with the default hooks.
func Run(ctx context.Context, cfg config.AppConfig) (Report, error) {
	return New(cfg).Run(ctx)
}

// Run reads the input, standardises it and writes the output. A read or
// write failure is returned; failing stages only degrade the run.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	runID := r.newID()
	ctx = xglog.ContextWithRunID(ctx, runID)
	logger := xglog.WithComponentFromContext(ctx, "runner")
	ctx, span := telemetry.StartSpan(ctx, "standardise.run",
		attribute.String(telemetry.RunIDKey, runID),
		attribute.String("standardise.input", r.cfg.Input.Path),
		attribute.String("standardise.output", r.cfg.Output.Path))

	startedAt := r.now().UTC()
	rep := Report{
		Report: standardise.Report{RunID: runID, StartedAt: startedAt},
		Input:  r.cfg.Input.Path,
		Output: r.cfg.Output.Path,
	}

	runErr := r.execute(ctx, startedAt, &rep)
	switch {
	case runErr != nil:
		rep.Status = runstore.StatusFailed
	case rep.Degraded():
		rep.Status = runstore.StatusDegraded
	default:
		rep.Status = runstore.StatusSuccess
	}
	rep.RunID = runID
	rep.StartedAt = startedAt
	rep.FinishedAt = time.Now().UTC()

	r.record(ctx, rep)
	r.observe(ctx, rep)
	span.SetAttributes(attribute.String(telemetry.StatusKey, rep.Status))
	telemetry.EndSpan(span, runErr)

	ev := logger.Info()
	if runErr != nil {
		ev = logger.Error().Err(runErr)
	} else if rep.Status == runstore.StatusDegraded {
		ev = logger.Warn().Strs("failures", rep.Failures())
	}
	ev.Str(xglog.FieldEvent, "run.finished").
		Str("status", rep.Status).
		Int(xglog.FieldRowsIn, rep.RowsIn).
		Int(xglog.FieldRowsOut, rep.RowsOut).
		Int(xglog.FieldDuplicates, rep.Duplicates).
		Dur("duration", rep.FinishedAt.Sub(startedAt)).
		Msg("standardise run finished")

	return rep, runErr
}

func (r *Runner) execute(ctx context.Context, startedAt time.Time, rep *Report) error {
	logger := xglog.WithComponentFromContext(ctx, "runner")

	pipeline, err := standardise.Build(r.cfg.Stages, func() time.Time { return startedAt })
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	in, err := DatasetFor(r.cfg.Input)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRead, err)
	}
	out, err := DatasetFor(r.cfg.Output)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	logger.Info().
		Str(xglog.FieldEvent, "run.start").
		Str(xglog.FieldInputPath, in.Path).
		Str(xglog.FieldOutputPath, out.Path).
		Msg("starting standardise run")

	src, err := dataio.Read(ctx, in)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRead, err)
	}

	result, stageReport := pipeline.Run(ctx, src)
	rep.Report = stageReport
	if stageReport.Err != nil {
		return stageReport.Err
	}

	if err := dataio.Write(ctx, out, result); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	rep.Written = true

	back, err := dataio.Read(ctx, out)
	if err != nil {
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "output.readback_failed").
			Str(xglog.FieldOutputPath, out.Path).
			Msg("could not read back output")
		return nil
	}
	logger.Info().
		Str(xglog.FieldEvent, "output.preview").
		Str(xglog.FieldOutputPath, out.Path).
		Int(xglog.FieldRowsOut, back.Len()).
		Msg("output written\n" + dataio.Preview(back, r.cfg.PreviewRows))
	return nil
}

func (r *Runner) record(ctx context.Context, rep Report) {
	logger := xglog.WithComponentFromContext(ctx, "runner")
	store := r.store
	if store == nil {
		if r.cfg.RunStore == "" {
			return
		}
		s, err := runstore.Open(r.cfg.RunStore)
		if err != nil {
			logger.Error().Err(err).Str(xglog.FieldEvent, "runstore.open_failed").Msg("could not open run ledger")
			return
		}
		defer func() { _ = s.Close() }()
		store = s
	}
	err := store.Record(ctx, runstore.Run{
		ID:         rep.RunID,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
		Input:      rep.Input,
		Output:     rep.Output,
		RowsIn:     rep.RowsIn,
		RowsOut:    rep.RowsOut,
		Duplicates: rep.Duplicates,
		Failures:   rep.Failures(),
		Status:     rep.Status,
	})
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "runstore.record_failed").Msg("could not record run")
	}
}

func (r *Runner) observe(ctx context.Context, rep Report) {
	written := 0
	if rep.Written {
		written = rep.RowsOut
	}
	metrics.RecordRows(rep.RowsIn, written)
	metrics.RecordDuplicates(rep.Duplicates)
	metrics.RecordRun(rep.Status, float64(rep.FinishedAt.Unix()))
	if r.cfg.MetricsTextfile == "" {
		return
	}
	if err := metrics.WriteTextfile(r.cfg.MetricsTextfile); err != nil {
		logger := xglog.WithComponentFromContext(ctx, "runner")
		logger.Error().Err(err).Str(xglog.FieldEvent, "metrics.textfile_failed").Msg("could not write metrics textfile")
	}
}

// DatasetFor converts a configured dataset into a dataio.Dataset.
func DatasetFor(dc config.DatasetConfig) (dataio.Dataset, error) {
	format, err := dc.ResolveFormat()
	if err != nil {
		return dataio.Dataset{}, err
	}
	ds := dataio.Dataset{Path: dc.Path, Format: format, Table: dc.Table}
	if dc.CSVDelimiter != "" {
		d, size := utf8.DecodeRuneInString(dc.CSVDelimiter)
		if size != len(dc.CSVDelimiter) {
			return dataio.Dataset{}, fmt.Errorf("csv delimiter %q must be a single character", dc.CSVDelimiter)
		}
		ds.Delimiter = d
	}
	return ds, nil
}
