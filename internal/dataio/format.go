// SPDX-License-Identifier: MIT

// Package dataio reads and writes tables in the file formats the Standardise
// stage accepts: Parquet, CSV, JSON Lines and SQLite tables.
package dataio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ManuGH/standardise/internal/normalize"
)

// Format identifies a dataset encoding.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
	FormatJSONL   Format = "jsonl"
	FormatSQLite  Format = "sqlite"
)

var (
	// ErrUnknownFormat is returned for format names or extensions that are not supported.
	ErrUnknownFormat = errors.New("unknown dataset format")
	// ErrUnsupportedSchema is returned for inputs whose schema cannot be flattened into a table.
	ErrUnsupportedSchema = errors.New("unsupported schema")
)

var extensions = map[string]Format{
	".parquet": FormatParquet,
	".pq":      FormatParquet,
	".csv":     FormatCSV,
	".jsonl":   FormatJSONL,
	".ndjson":  FormatJSONL,
	".db":      FormatSQLite,
	".sqlite":  FormatSQLite,
	".sqlite3": FormatSQLite,
}

// ParseFormat maps a user supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch normalize.Token(s) {
	case "parquet", "pq":
		return FormatParquet, nil
	case "csv":
		return FormatCSV, nil
	case "jsonl", "ndjson", "json":
		return FormatJSONL, nil
	case "sqlite", "sqlite3", "db":
		return FormatSQLite, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// DetectFormat infers the format from the path extension.
func DetectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: cannot detect format from extension %q", ErrUnknownFormat, ext)
}

// Extension returns the canonical file extension for f.
func (f Format) Extension() string {
	switch f {
	case FormatParquet:
		return ".parquet"
	case FormatCSV:
		return ".csv"
	case FormatJSONL:
		return ".jsonl"
	case FormatSQLite:
		return ".db"
	}
	return ""
}
