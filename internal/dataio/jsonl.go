// SPDX-License-Identifier: MIT

package dataio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ManuGH/standardise/internal/table"
)

const maxJSONLLine = 16 << 20

func readJSONLFile(path string) (*table.Table, error) {
	// #nosec G304 -- dataset paths are provided by the operator
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readJSONL(f)
}

// readJSONL collects the union of keys in first-seen order and infers one type
// per column: all integral numbers -> Int, any fractional -> Float, booleans ->
// Bool, strings -> String. Columns mixing kinds fall back to String.
func readJSONL(r io.Reader) (*table.Table, error) {
	var (
		order   []string
		index   = map[string]int{}
		records []map[string]any
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxJSONLLine)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()

		// Keys are read as tokens to keep their order.
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return nil, fmt.Errorf("line %d: %w: expected a JSON object", line, ErrUnsupportedSchema)
		}
		rec := map[string]any{}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			key := kt.(string)
			var val any
			if err := dec.Decode(&val); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			switch val.(type) {
			case map[string]any, []any:
				return nil, fmt.Errorf("line %d: %w: nested value in %q", line, ErrUnsupportedSchema, key)
			}
			if _, seen := index[key]; !seen {
				index[key] = len(order)
				order = append(order, key)
			}
			rec[key] = val
		}
		if tok, err := dec.Token(); err != nil || tok != json.Delim('}') {
			return nil, fmt.Errorf("line %d: %w: unterminated object", line, ErrUnsupportedSchema)
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("line %d: %w: trailing data after object", line, ErrUnsupportedSchema)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	cols := make([]table.Column, len(order))
	for i, name := range order {
		cols[i] = table.Column{Name: name, Type: inferJSONType(records, name)}
	}
	t, err := table.New(cols...)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		row := make(table.Row, len(cols))
		for i, c := range cols {
			row[i] = jsonValue(rec[c.Name], c.Type)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func inferJSONType(records []map[string]any, key string) table.Type {
	var sawInt, sawFloat, sawBool, sawString bool
	for _, rec := range records {
		switch v := rec[key].(type) {
		case json.Number:
			if _, err := v.Int64(); err == nil {
				sawInt = true
			} else {
				sawFloat = true
			}
		case bool:
			sawBool = true
		case string:
			sawString = true
		}
	}
	switch {
	case sawString || (sawBool && (sawInt || sawFloat)):
		return table.String
	case sawBool:
		return table.Bool
	case sawFloat:
		return table.Float
	case sawInt:
		return table.Int
	}
	return table.String
}

func jsonValue(v any, typ table.Type) table.Value {
	switch x := v.(type) {
	case nil:
		return table.Null()
	case json.Number:
		switch typ {
		case table.Int:
			if i, err := x.Int64(); err == nil {
				return table.IntValue(i)
			}
		case table.Float:
			if f, err := x.Float64(); err == nil {
				return table.FloatValue(f)
			}
		}
		return table.Str(x.String())
	case bool:
		if typ == table.Bool {
			return table.BoolValue(x)
		}
		if x {
			return table.Str("true")
		}
		return table.Str("false")
	case string:
		return table.Str(x)
	}
	return table.Null()
}

func writeJSONL(w io.Writer, t *table.Table) error {
	bw := bufio.NewWriter(w)
	var buf bytes.Buffer
	for _, row := range t.Rows {
		buf.Reset()
		buf.WriteByte('{')
		for i, c := range t.Columns {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(c.Name)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			val, err := json.Marshal(jsonOut(row[i]))
			if err != nil {
				return err
			}
			buf.Write(val)
		}
		buf.WriteString("}\n")
		if _, err := bw.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func jsonOut(v table.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case table.Int:
		return v.AsInt()
	case table.Float:
		if f := v.AsFloat(); !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	case table.Bool:
		return v.AsBool()
	}
	s, _ := v.Text()
	return s
}
