// SPDX-License-Identifier: MIT

package dataio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/standardise/internal/persistence/sqlite"
	"github.com/ManuGH/standardise/internal/table"
)

// ErrCorruptDatabase is returned when an input database fails its integrity check.
var ErrCorruptDatabase = errors.New("sqlite integrity check failed")

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// declaredType maps a declared SQLite column type to a table type. Exact type
// names go through table.ParseType; anything else follows the SQLite affinity
// rules, with BOOL and DATE/TIME checked first.
func declaredType(decl string) table.Type {
	if t, err := table.ParseType(decl); err == nil {
		return t
	}
	d := strings.ToUpper(decl)
	switch {
	case strings.Contains(d, "BOOL"):
		return table.Bool
	case strings.Contains(d, "DATE"), strings.Contains(d, "TIME"):
		return table.Timestamp
	case strings.Contains(d, "INT"):
		return table.Int
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"),
		strings.Contains(d, "NUMERIC"), strings.Contains(d, "DECIMAL"):
		return table.Float
	}
	return table.String
}

func sqliteDecl(t table.Type) string {
	switch t {
	case table.Int:
		return "INTEGER"
	case table.Float:
		return "REAL"
	case table.Bool:
		return "BOOLEAN"
	case table.Timestamp:
		return "TIMESTAMP"
	}
	return "TEXT"
}

func readSQLite(ctx context.Context, path, name string) (*table.Table, error) {
	if name == "" {
		return nil, fmt.Errorf("sqlite dataset requires a table name")
	}
	db, err := sqlite.OpenReadOnly(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	defer db.Close()

	issues, err := sqlite.VerifyIntegrity(ctx, db, "quick")
	if err != nil {
		return nil, err
	}
	if issues != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptDatabase, strings.Join(issues, "; "))
	}

	// #nosec G202 -- identifier is quoted and validated by config
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(name))
	if err != nil {
		return nil, fmt.Errorf("query table %q: %w", name, err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	cols := make([]table.Column, len(colTypes))
	for i, ct := range colTypes {
		cols[i] = table.Column{Name: ct.Name(), Type: declaredType(ct.DatabaseTypeName())}
	}

	var raw [][]any
	for rows.Next() {
		rec := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range rec {
			ptrs[i] = &rec[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		raw = append(raw, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// SQLite is dynamically typed: a column holding values that do not fit its
	// declared type is read as text instead.
	for i := range cols {
		for _, rec := range raw {
			if _, ok := sqliteValue(rec[i], cols[i].Type); !ok {
				cols[i].Type = table.String
				break
			}
		}
	}

	t, err := table.New(cols...)
	if err != nil {
		return nil, err
	}
	t.Rows = make([]table.Row, len(raw))
	for r, rec := range raw {
		row := make(table.Row, len(cols))
		for i := range cols {
			row[i], _ = sqliteValue(rec[i], cols[i].Type)
		}
		t.Rows[r] = row
	}
	return t, nil
}

var sqliteTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func sqliteValue(v any, typ table.Type) (table.Value, bool) {
	if v == nil {
		return table.Null(), true
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	switch typ {
	case table.Int:
		switch x := v.(type) {
		case int64:
			return table.IntValue(x), true
		case string:
			if i, err := strconv.ParseInt(x, 10, 64); err == nil {
				return table.IntValue(i), true
			}
		}
	case table.Float:
		switch x := v.(type) {
		case float64:
			return table.FloatValue(x), true
		case int64:
			return table.FloatValue(float64(x)), true
		}
	case table.Bool:
		switch x := v.(type) {
		case int64:
			if x == 0 || x == 1 {
				return table.BoolValue(x == 1), true
			}
		case bool:
			return table.BoolValue(x), true
		}
	case table.Timestamp:
		switch x := v.(type) {
		case time.Time:
			return table.TimeValue(x), true
		case string:
			for _, layout := range sqliteTimeLayouts {
				if ts, err := time.Parse(layout, x); err == nil {
					return table.TimeValue(ts), true
				}
			}
		}
	case table.String:
		switch x := v.(type) {
		case string:
			return table.Str(x), true
		case int64:
			return table.Str(strconv.FormatInt(x, 10)), true
		case float64:
			return table.Str(strconv.FormatFloat(x, 'g', -1, 64)), true
		case bool:
			return table.Str(strconv.FormatBool(x)), true
		case time.Time:
			return table.Str(x.UTC().Format(table.TimestampLayout)), true
		}
	}
	return table.Null(), false
}

// writeSQLite replaces the target table inside one transaction.
func writeSQLite(ctx context.Context, path, name string, t *table.Table) (err error) {
	if name == "" {
		return fmt.Errorf("sqlite dataset requires a table name")
	}
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	defs := make([]string, len(t.Columns))
	names := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = quoteIdent(c.Name)
		defs[i] = names[i] + " " + sqliteDecl(c.Type)
		marks[i] = "?"
	}

	if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(name)); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	// #nosec G202 -- identifiers are quoted
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	var stmt *sql.Stmt
	stmt, err = tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(name), strings.Join(names, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			args[i] = sqliteArg(v)
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
	}
	return tx.Commit()
}

func sqliteArg(v table.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case table.Int:
		return v.AsInt()
	case table.Float:
		return v.AsFloat()
	case table.Bool:
		if v.AsBool() {
			return int64(1)
		}
		return int64(0)
	case table.Timestamp:
		return v.AsTime().Format(table.TimestampLayout)
	}
	return v.AsString()
}
