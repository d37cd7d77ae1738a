// SPDX-License-Identifier: MIT

package dataio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"

	"github.com/ManuGH/standardise/internal/table"
)

// columnOrderKey stores the logical column order in the file metadata.
// parquet.Group sorts fields by name, so without it a round trip through this
// package would reorder columns alphabetically.
const columnOrderKey = "standardise.column_order"

const parquetBatch = 256

func readParquetFile(path string) (*table.Table, error) {
	// #nosec G304 -- dataset paths are provided by the operator
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return readParquet(f, info.Size())
}

type parquetColumn struct {
	name    string
	typ     table.Type
	convert func(parquet.Value) (table.Value, error)
}

func readParquet(r io.ReaderAt, size int64) (*table.Table, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	fields := pf.Schema().Fields()
	pcols := make([]parquetColumn, len(fields))
	for i, field := range fields {
		pc, err := parquetColumnFor(field)
		if err != nil {
			return nil, err
		}
		pcols[i] = pc
	}

	// leaf index -> table position
	order := make([]int, len(pcols))
	for i := range order {
		order[i] = i
	}
	if saved, ok := pf.Lookup(columnOrderKey); ok {
		if perm, ok := restoreOrder(pcols, saved); ok {
			order = perm
		}
	}

	cols := make([]table.Column, len(pcols))
	for leaf, pos := range order {
		cols[pos] = table.Column{Name: pcols[leaf].name, Type: pcols[leaf].typ}
	}
	t, err := table.New(cols...)
	if err != nil {
		return nil, err
	}
	t.Rows = make([]table.Row, 0, pf.NumRows())

	reader := parquet.NewReader(pf)
	defer reader.Close()

	buf := make([]parquet.Row, parquetBatch)
	for {
		n, err := reader.ReadRows(buf)
		for _, prow := range buf[:n] {
			row := make(table.Row, len(cols))
			for _, v := range prow {
				leaf := v.Column()
				if leaf < 0 || leaf >= len(pcols) {
					continue
				}
				if v.IsNull() {
					row[order[leaf]] = table.Null()
					continue
				}
				cv, err := pcols[leaf].convert(v)
				if err != nil {
					return nil, fmt.Errorf("column %q: %w", pcols[leaf].name, err)
				}
				row[order[leaf]] = cv
			}
			t.Rows = append(t.Rows, row)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}
	return t, nil
}

func restoreOrder(pcols []parquetColumn, saved string) ([]int, bool) {
	names := strings.Split(saved, "\x1f")
	if len(names) != len(pcols) {
		return nil, false
	}
	pos := make(map[string]int, len(names))
	for i, n := range names {
		pos[n] = i
	}
	perm := make([]int, len(pcols))
	for leaf, pc := range pcols {
		p, ok := pos[pc.name]
		if !ok {
			return nil, false
		}
		perm[leaf] = p
	}
	return perm, true
}

func parquetColumnFor(field parquet.Field) (parquetColumn, error) {
	name := field.Name()
	if !field.Leaf() || field.Repeated() {
		return parquetColumn{}, fmt.Errorf("%w: column %q is nested or repeated", ErrUnsupportedSchema, name)
	}
	typ := field.Type()
	lt := typ.LogicalType()
	unsupported := func() (parquetColumn, error) {
		return parquetColumn{}, fmt.Errorf("%w: column %q has type %s", ErrUnsupportedSchema, name, typ)
	}
	col := func(t table.Type, fn func(parquet.Value) (table.Value, error)) (parquetColumn, error) {
		return parquetColumn{name: name, typ: t, convert: fn}, nil
	}

	switch kind := typ.Kind(); kind {
	case parquet.Boolean:
		return col(table.Bool, func(v parquet.Value) (table.Value, error) {
			return table.BoolValue(v.Boolean()), nil
		})
	case parquet.Float:
		return col(table.Float, func(v parquet.Value) (table.Value, error) {
			return table.FloatValue(float64(v.Float())), nil
		})
	case parquet.Double:
		return col(table.Float, func(v parquet.Value) (table.Value, error) {
			return table.FloatValue(v.Double()), nil
		})
	case parquet.Int32, parquet.Int64:
		is64 := kind == parquet.Int64
		raw := func(v parquet.Value) int64 {
			if is64 {
				return v.Int64()
			}
			return int64(v.Int32())
		}
		switch {
		case lt == nil:
			return col(table.Int, func(v parquet.Value) (table.Value, error) {
				return table.IntValue(raw(v)), nil
			})
		case lt.Date != nil && !is64:
			return col(table.Timestamp, func(v parquet.Value) (table.Value, error) {
				return table.TimeValue(time.Unix(int64(v.Int32())*86400, 0)), nil
			})
		case lt.Timestamp != nil && is64:
			toTime := timestampDecoder(lt.Timestamp.Unit)
			return col(table.Timestamp, func(v parquet.Value) (table.Value, error) {
				return table.TimeValue(toTime(v.Int64())), nil
			})
		case lt.Decimal != nil:
			scale := lt.Decimal.Scale
			return col(table.Float, func(v parquet.Value) (table.Value, error) {
				return decimalValue(big.NewInt(raw(v)), scale), nil
			})
		case lt.Integer != nil && lt.Integer.IsSigned:
			return col(table.Int, func(v parquet.Value) (table.Value, error) {
				return table.IntValue(raw(v)), nil
			})
		case lt.Integer != nil && !is64:
			return col(table.Int, func(v parquet.Value) (table.Value, error) {
				return table.IntValue(int64(v.Uint32())), nil
			})
		case lt.Integer != nil:
			return col(table.Int, func(v parquet.Value) (table.Value, error) {
				u := v.Uint64()
				if u > math.MaxInt64 {
					return table.Value{}, fmt.Errorf("%w: unsigned value %d overflows int64", ErrUnsupportedSchema, u)
				}
				return table.IntValue(int64(u)), nil
			})
		}
		return unsupported()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		switch {
		case lt != nil && lt.Decimal != nil:
			scale := lt.Decimal.Scale
			return col(table.Float, func(v parquet.Value) (table.Value, error) {
				return decimalValue(twosComplement(v.ByteArray()), scale), nil
			})
		case lt != nil && lt.UUID != nil:
			return col(table.String, func(v parquet.Value) (table.Value, error) {
				id, err := uuid.FromBytes(v.ByteArray())
				if err != nil {
					return table.Value{}, err
				}
				return table.Str(id.String()), nil
			})
		case kind == parquet.ByteArray:
			return col(table.String, func(v parquet.Value) (table.Value, error) {
				return table.Str(string(v.ByteArray())), nil
			})
		}
		return unsupported()
	}
	return unsupported()
}

// decimalValue scales an unscaled DECIMAL integer by 10^-scale.
func decimalValue(unscaled *big.Int, scale int32) table.Value {
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil)
	f, _ := new(big.Rat).SetFrac(unscaled, denom).Float64()
	return table.FloatValue(f)
}

// twosComplement decodes a big-endian two's complement integer.
func twosComplement(b []byte) *big.Int {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b))*8))
	}
	return n
}

func timestampDecoder(unit format.TimeUnit) func(int64) time.Time {
	switch {
	case unit.Nanos != nil:
		return func(n int64) time.Time { return time.Unix(0, n) }
	case unit.Millis != nil:
		return time.UnixMilli
	default:
		return time.UnixMicro
	}
}

func parquetNode(t table.Type) parquet.Node {
	switch t {
	case table.Int:
		return parquet.Int(64)
	case table.Float:
		return parquet.Leaf(parquet.DoubleType)
	case table.Bool:
		return parquet.Leaf(parquet.BooleanType)
	case table.Timestamp:
		return parquet.Timestamp(parquet.Microsecond)
	default:
		return parquet.String()
	}
}

func writeParquet(w io.Writer, t *table.Table) error {
	group := parquet.Group{}
	for _, c := range t.Columns {
		group[c.Name] = parquet.Optional(parquetNode(c.Type))
	}
	schema := parquet.NewSchema("standardised", group)

	// leaf index -> table column
	leaves := schema.Fields()
	source := make([]int, len(leaves))
	for leaf, f := range leaves {
		source[leaf] = t.Index(f.Name())
	}

	pw := parquet.NewWriter(w, schema,
		parquet.KeyValueMetadata(columnOrderKey, strings.Join(t.ColumnNames(), "\x1f")),
	)

	batch := make([]parquet.Row, 0, parquetBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := pw.WriteRows(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for _, row := range t.Rows {
		prow := make(parquet.Row, len(leaves))
		for leaf, col := range source {
			prow[leaf] = parquetValue(row[col]).Level(0, 1, leaf)
			if row[col].IsNull() {
				prow[leaf] = parquet.NullValue().Level(0, 0, leaf)
			}
		}
		batch = append(batch, prow)
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				_ = pw.Close()
				return fmt.Errorf("write parquet rows: %w", err)
			}
		}
	}
	if err := flush(); err != nil {
		_ = pw.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	return pw.Close()
}

func parquetValue(v table.Value) parquet.Value {
	if v.IsNull() {
		return parquet.NullValue()
	}
	switch v.Kind() {
	case table.Int:
		return parquet.Int64Value(v.AsInt())
	case table.Float:
		return parquet.DoubleValue(v.AsFloat())
	case table.Bool:
		return parquet.BooleanValue(v.AsBool())
	case table.Timestamp:
		return parquet.Int64Value(v.AsTime().UnixMicro())
	default:
		return parquet.ByteArrayValue([]byte(v.AsString()))
	}
}
