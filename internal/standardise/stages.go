// SPDX-License-Identifier: MIT

package standardise

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	xglog "github.com/ManuGH/standardise/internal/log"
	"github.com/ManuGH/standardise/internal/normalize"
	"github.com/ManuGH/standardise/internal/table"
)

// Names of the metadata columns added by TagMetadata.
const (
	ColumnStandardiseTimestamp = "standardise_timestamp"
	ColumnDataSource           = "data_source"
)

const (
	renameName     = "rename"
	nullsName      = "nulls"
	timestampsName = "timestamps"
	stringsName    = "strings"
	dedupeName     = "dedupe"
	metadataName   = "metadata"
)

type stageFunc struct {
	name string
	fn   func(ctx context.Context, t *table.Table) (*table.Table, error)
}

func (s stageFunc) Name() string { return s.name }

func (s stageFunc) Apply(ctx context.Context, t *table.Table) (*table.Table, error) {
	return s.fn(ctx, t)
}

// RenameColumns converts every column name to snake_case. Two columns mapping
// to the same name is an error.
func RenameColumns() Stage {
	return stageFunc{name: renameName, fn: func(_ context.Context, t *table.Table) (*table.Table, error) {
		names := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			names[i] = normalize.SnakeCase(c.Name)
		}
		return t.Rename(names)
	}}
}

// NullifyTokens replaces every value whose text form equals one of tokens
// with NULL. Matching is exact and case-sensitive, on untrimmed text, across
// all columns.
func NullifyTokens(tokens []string) Stage {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return stageFunc{name: nullsName, fn: func(_ context.Context, t *table.Table) (*table.Table, error) {
		out := t.Clone()
		if len(set) == 0 {
			return out, nil
		}
		for _, row := range out.Rows {
			for j, v := range row {
				text, ok := v.Text()
				if !ok {
					continue
				}
				if _, hit := set[text]; hit {
					row[j] = table.Null()
				}
			}
		}
		return out, nil
	}}
}

// NormaliseTimestamps try-casts the named columns to Timestamp. Missing
// columns are skipped; values that do not parse become NULL. layouts extend
// DefaultTimestampLayouts and are tried after them.
func NormaliseTimestamps(columns, layouts []string) Stage {
	all := make([]string, 0, len(DefaultTimestampLayouts)+len(layouts))
	all = append(all, DefaultTimestampLayouts...)
	all = append(all, layouts...)

	return stageFunc{name: timestampsName, fn: func(ctx context.Context, t *table.Table) (*table.Table, error) {
		logger := xglog.WithComponentFromContext(ctx, "standardise")
		out := t
		for _, col := range columns {
			idx := out.Index(col)
			if idx < 0 {
				logger.Debug().
					Str(xglog.FieldEvent, "timestamps.column_missing").
					Str(xglog.FieldColumn, col).
					Msg("timestamp column not present, skipping")
				continue
			}
			if out.Columns[idx].Type == table.Timestamp {
				continue
			}
			failed := 0
			out = out.SetColumn(col, table.Timestamp, func(_ int, old table.Value) table.Value {
				if old.IsNull() {
					return old
				}
				if old.Kind() != table.String {
					failed++
					return table.Null()
				}
				ts, ok := parseTimestamp(old.AsString(), all)
				if !ok {
					failed++
					return table.Null()
				}
				return table.TimeValue(ts)
			})
			if failed > 0 {
				logger.Warn().
					Str(xglog.FieldEvent, "timestamps.unparsed").
					Str(xglog.FieldColumn, col).
					Int("unparsed", failed).
					Msg("values could not be cast to timestamp and were set to NULL")
			}
		}
		if out == t {
			out = t.Clone()
		}
		return out, nil
	}}
}

// StandardiseStrings trims, upper-cases and folds every string column.
// Columns are processed concurrently, at most concurrency at a time.
func StandardiseStrings(concurrency int) Stage {
	if concurrency < 1 {
		concurrency = 1
	}
	return stageFunc{name: stringsName, fn: func(ctx context.Context, t *table.Table) (*table.Table, error) {
		out := t.Clone()
		cols := out.ColumnsOfType(table.String)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for _, idx := range cols {
			g.Go(func() error {
				// Each goroutine owns one column index; rows are shared but
				// no two goroutines write the same cell.
				for i, row := range out.Rows {
					if i%1024 == 0 {
						if err := gctx.Err(); err != nil {
							return fmt.Errorf("column %s: %w", out.Columns[idx].Name, err)
						}
					}
					v := row[idx]
					if v.IsNull() {
						continue
					}
					row[idx] = table.Str(normalize.CleanString(v.AsString()))
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	}}
}

// Deduplicate removes exact duplicate rows, keeping the first occurrence in
// its original position. NULLs compare equal.
func Deduplicate() Stage {
	return stageFunc{name: dedupeName, fn: func(ctx context.Context, t *table.Table) (*table.Table, error) {
		out := &table.Table{
			Columns: append([]table.Column(nil), t.Columns...),
			Rows:    make([]table.Row, 0, len(t.Rows)),
		}
		seen := make(map[uint64][]int, len(t.Rows))
	rows:
		for _, row := range t.Rows {
			h := table.Fingerprint(row)
			for _, k := range seen[h] {
				if table.RowsEqual(out.Rows[k], row) {
					continue rows
				}
			}
			seen[h] = append(seen[h], len(out.Rows))
			out.Rows = append(out.Rows, append(table.Row(nil), row...))
		}

		if removed := len(t.Rows) - len(out.Rows); removed > 0 {
			logger := xglog.WithComponentFromContext(ctx, "standardise")
			logger.Info().
				Str(xglog.FieldEvent, "dedupe.removed").
				Int(xglog.FieldDuplicates, removed).
				Msg("removed duplicate rows")
		}
		return out, nil
	}}
}

// TagMetadata adds (or overwrites) the standardise_timestamp and data_source
// columns. The timestamp is taken once per stage run from now, in UTC and
// truncated to whole seconds.
func TagMetadata(now func() time.Time, source string) Stage {
	if now == nil {
		now = time.Now
	}
	return stageFunc{name: metadataName, fn: func(_ context.Context, t *table.Table) (*table.Table, error) {
		ts := table.TimeValue(now().UTC().Truncate(time.Second))
		src := table.Str(source)
		out := t.SetColumn(ColumnStandardiseTimestamp, table.Timestamp, func(int, table.Value) table.Value { return ts })
		out = out.SetColumn(ColumnDataSource, table.String, func(int, table.Value) table.Value { return src })
		return out, nil
	}}
}
