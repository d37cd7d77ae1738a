// SPDX-License-Identifier: MIT

package dataio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ManuGH/standardise/internal/table"
)

// CSV carries no type information: every column reads as a string and empty
// cells stay empty strings so the null-token stage decides what is missing.

func readCSVFile(path string, delim rune) (*table.Table, error) {
	// #nosec G304 -- dataset paths are provided by the operator
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readCSV(f, delim)
}

func readCSV(r io.Reader, delim rune) (*table.Table, error) {
	cr := csv.NewReader(r)
	if delim != 0 {
		cr.Comma = delim
	}

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header row", ErrUnsupportedSchema)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make([]table.Column, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		cols[i] = table.Column{Name: h, Type: table.String}
	}
	t, err := table.New(cols...)
	if err != nil {
		return nil, err
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(table.Row, len(rec))
		for i, cell := range rec {
			row[i] = table.Str(cell)
		}
		if err := t.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func writeCSV(w io.Writer, t *table.Table, delim rune) error {
	cw := csv.NewWriter(w)
	if delim != 0 {
		cw.Comma = delim
	}
	if err := cw.Write(t.ColumnNames()); err != nil {
		return err
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, v := range row {
			rec[i], _ = v.Text()
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
