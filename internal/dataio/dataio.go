// SPDX-License-Identifier: MIT

package dataio

import (
	"context"
	"fmt"
	"io"

	xglog "github.com/ManuGH/standardise/internal/log"
	"github.com/ManuGH/standardise/internal/table"
	"github.com/google/renameio/v2"
)

// Dataset locates a table on disk.
type Dataset struct {
	Path   string
	Format Format // empty means DetectFormat(Path)
	Table  string // sqlite only
	// Delimiter is the CSV field separator; zero means ','.
	Delimiter rune
}

func (d Dataset) format() (Format, error) {
	if d.Format != "" {
		return d.Format, nil
	}
	return DetectFormat(d.Path)
}

// Read loads the dataset into memory.
func Read(ctx context.Context, ds Dataset) (*table.Table, error) {
	format, err := ds.format()
	if err != nil {
		return nil, err
	}
	logger := xglog.WithComponentFromContext(ctx, "dataio")
	logger.Debug().
		Str(xglog.FieldEvent, "dataset.read_start").
		Str(xglog.FieldPath, ds.Path).
		Str(xglog.FieldFormat, string(format)).
		Msg("reading dataset")

	var t *table.Table
	switch format {
	case FormatParquet:
		t, err = readParquetFile(ds.Path)
	case FormatCSV:
		t, err = readCSVFile(ds.Path, ds.Delimiter)
	case FormatJSONL:
		t, err = readJSONLFile(ds.Path)
	case FormatSQLite:
		t, err = readSQLite(ctx, ds.Path, ds.Table)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", format, ds.Path, err)
	}

	logger.Debug().
		Str(xglog.FieldEvent, "dataset.read_done").
		Int(xglog.FieldRowsIn, t.Len()).
		Int("columns", len(t.Columns)).
		Msg("dataset read")
	return t, nil
}

// Write stores t at the dataset location. File formats are written to a
// pending file and atomically renamed into place, so a failed write leaves
// any previous output untouched.
func Write(ctx context.Context, ds Dataset, t *table.Table) error {
	format, err := ds.format()
	if err != nil {
		return err
	}
	switch format {
	case FormatParquet:
		err = writeAtomically(ctx, ds.Path, func(w io.Writer) error { return writeParquet(w, t) })
	case FormatCSV:
		err = writeAtomically(ctx, ds.Path, func(w io.Writer) error { return writeCSV(w, t, ds.Delimiter) })
	case FormatJSONL:
		err = writeAtomically(ctx, ds.Path, func(w io.Writer) error { return writeJSONL(w, t) })
	case FormatSQLite:
		err = writeSQLite(ctx, ds.Path, ds.Table, t)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return fmt.Errorf("write %s %s: %w", format, ds.Path, err)
	}
	return nil
}

// writeAtomically uses renameio: temp file creation, fsync, atomic rename and
// cleanup on error.
func writeAtomically(ctx context.Context, path string, encode func(io.Writer) error) error {
	logger := xglog.FromContext(ctx)

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		// Cleanup is a no-op after a successful commit.
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending file")
		}
	}()

	if err := encode(pendingFile); err != nil {
		return err
	}

	// CloseAtomicallyReplace: fsync + rename (durable + atomic)
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace file: %w", err)
	}
	return nil
}
