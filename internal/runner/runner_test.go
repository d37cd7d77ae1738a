// SPDX-License-Identifier: MIT

package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/standardise/internal/config"
	"github.com/ManuGH/standardise/internal/dataio"
	"github.com/ManuGH/standardise/internal/metrics"
	"github.com/ManuGH/standardise/internal/runstore"
	"github.com/ManuGH/standardise/internal/table"
	"github.com/ManuGH/standardise/internal/telemetry"
	"github.com/ManuGH/standardise/internal/telemetry/telemetrytest"
)

var runStart = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func testConfig(t *testing.T, input string) config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "input.csv")
	require.NoError(t, os.WriteFile(in, []byte(input), 0o600))

	cfg := config.Defaults()
	cfg.Input = config.DatasetConfig{Path: in}
	cfg.Output = config.DatasetConfig{Path: filepath.Join(dir, "output.parquet")}
	cfg.RunStore = filepath.Join(dir, "runs.db")
	cfg.MetricsTextfile = filepath.Join(dir, "standardise.prom")
	cfg.Stages.DataSource = "CRM"
	return cfg
}

func TestRun_Success(t *testing.T) {
	cfg := testConfig(t, "Customer Name,Date Column,Note\n café ,2024-01-02,N/A\nCAFE,2024-01-02,NULL\nBo,bad,x\n")

	rep, err := New(cfg, WithClock(func() time.Time { return runStart })).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, runstore.StatusSuccess, rep.Status)
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 3, rep.RowsIn)
	assert.Equal(t, 2, rep.RowsOut)
	assert.Equal(t, 1, rep.Duplicates)

	out, err := dataio.Read(context.Background(), dataio.Dataset{Path: cfg.Output.Path})
	require.NoError(t, err)
	assert.Equal(t, []string{"customer_name", "date_column", "note", "standardise_timestamp", "data_source"}, out.ColumnNames())
	require.Equal(t, 2, out.Len())
	assert.Equal(t, "CAFE", out.Rows[0][0].AsString())
	assert.Equal(t, table.Timestamp, out.Columns[1].Type)
	assert.Equal(t, runStart, out.Rows[0][3].AsTime())
	assert.Equal(t, "X", out.Rows[1][2].AsString())

	store, err := runstore.Open(cfg.RunStore)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	runs, err := store.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, rep.RunID, runs[0].ID)
	assert.Equal(t, runstore.StatusSuccess, runs[0].Status)

	prom, err := os.ReadFile(cfg.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "standardise_runs_total")
}

func TestRun_DegradedWhenStageFails(t *testing.T) {
	cfg := testConfig(t, "First Name,first_name\na,b\n")

	rep, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, runstore.StatusDegraded, rep.Status)
	require.Len(t, rep.Failures(), 1)
	assert.Contains(t, rep.Failures()[0], "rename")

	out, err := dataio.Read(context.Background(), dataio.Dataset{Path: cfg.Output.Path})
	require.NoError(t, err)
	assert.Equal(t, "First Name", out.Columns[0].Name)
	assert.Equal(t, "A", out.Rows[0][0].AsString())
}

func TestRun_ReadFailure(t *testing.T) {
	cfg := testConfig(t, "a\n1\n")
	cfg.Input.Path = filepath.Join(t.TempDir(), "missing.csv")

	rep, err := Run(context.Background(), cfg)
	require.ErrorIs(t, err, ErrRead)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, runstore.StatusFailed, rep.Status)
	assert.NoFileExists(t, cfg.Output.Path)

	store, err := runstore.Open(cfg.RunStore)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	runs, err := store.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runstore.StatusFailed, runs[0].Status)
}

func TestRun_WriteFailure(t *testing.T) {
	cfg := testConfig(t, "a\n1\n")
	cfg.Output.Path = filepath.Join(t.TempDir(), "no", "such", "dir", "out.parquet")
	cfg.RunStore = ""

	before := counterValue(t, "standardise_rows_written_total")
	rep, err := Run(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrWrite)
	assert.False(t, rep.Written)
	assert.Equal(t, 1, rep.RowsOut)
	assert.Equal(t, before, counterValue(t, "standardise_rows_written_total"))
}

func TestRun_CountsWrittenRows(t *testing.T) {
	cfg := testConfig(t, "a\n1\n2\n")

	before := counterValue(t, "standardise_rows_written_total")
	rep, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, rep.Written)
	assert.Equal(t, before+2, counterValue(t, "standardise_rows_written_total"))
}

func TestRun_TracesRun(t *testing.T) {
	rec := telemetrytest.RecordSpans(t)
	cfg := testConfig(t, "a\n1\n")
	cfg.Input.Path = filepath.Join(t.TempDir(), "missing.csv")

	rep, err := Run(context.Background(), cfg)
	require.ErrorIs(t, err, ErrRead)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "standardise.run", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String(telemetry.RunIDKey, rep.RunID))
	assert.Contains(t, spans[0].Attributes(), attribute.String(telemetry.StatusKey, runstore.StatusFailed))
}

func counterValue(t *testing.T, name string) float64 {
	t.Helper()
	families, err := metrics.Registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			require.NotEmpty(t, mf.GetMetric())
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestRun_WithSharedStore(t *testing.T) {
	cfg := testConfig(t, "a\n1\n")
	store, err := runstore.Open(filepath.Join(t.TempDir(), "shared.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	r := New(cfg, WithStore(store))
	_, err = r.Run(context.Background())
	require.NoError(t, err)
	_, err = r.Run(context.Background())
	require.NoError(t, err)

	runs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.NoFileExists(t, cfg.RunStore)
}

func TestDatasetFor(t *testing.T) {
	ds, err := DatasetFor(config.DatasetConfig{Path: "x.txt", Format: "csv", CSVDelimiter: ";"})
	require.NoError(t, err)
	assert.Equal(t, dataio.FormatCSV, ds.Format)
	assert.Equal(t, ';', ds.Delimiter)

	_, err = DatasetFor(config.DatasetConfig{Path: "x.unknown"})
	assert.ErrorIs(t, err, dataio.ErrUnknownFormat)
}
