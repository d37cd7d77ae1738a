// SPDX-License-Identifier: MIT

package dataio

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/standardise/internal/table"
)

// parquetFixture writes a single required column "v" holding values and
// reads the file back through readParquet.
func parquetFixture(t *testing.T, node parquet.Node, values ...parquet.Value) (*table.Table, error) {
	t.Helper()
	return readGroup(t, parquet.Group{"v": node}, values...)
}

func readGroup(t *testing.T, group parquet.Group, values ...parquet.Value) (*table.Table, error) {
	t.Helper()
	var buf bytes.Buffer
	w := parquet.NewWriter(&buf, parquet.NewSchema("fixture", group))
	rows := make([]parquet.Row, len(values))
	for i, v := range values {
		rows[i] = parquet.Row{v.Level(0, 0, 0)}
	}
	if len(rows) > 0 {
		_, err := w.WriteRows(rows)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	b := buf.Bytes()
	return readParquet(bytes.NewReader(b), int64(len(b)))
}

func TestParquet_LogicalTypes(t *testing.T) {
	ts := time.Date(2024, 3, 9, 10, 11, 12, 345678901, time.UTC)
	id := uuid.MustParse("0b5c1c3e-8f5e-4a43-9d55-2a1f0a7c6e11")

	tests := []struct {
		name     string
		node     parquet.Node
		value    parquet.Value
		wantType table.Type
		want     table.Value
	}{
		{
			name:     "date",
			node:     parquet.Date(),
			value:    parquet.Int32Value(19724),
			wantType: table.Timestamp,
			want:     table.TimeValue(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
		},
		{
			name:     "timestamp millis",
			node:     parquet.Timestamp(parquet.Millisecond),
			value:    parquet.Int64Value(ts.UnixMilli()),
			wantType: table.Timestamp,
			want:     table.TimeValue(ts.Truncate(time.Millisecond)),
		},
		{
			name:     "timestamp nanos",
			node:     parquet.Timestamp(parquet.Nanosecond),
			value:    parquet.Int64Value(ts.UnixNano()),
			wantType: table.Timestamp,
			want:     table.TimeValue(ts),
		},
		{
			name:     "decimal int64",
			node:     parquet.Decimal(2, 10, parquet.Int64Type),
			value:    parquet.Int64Value(12345),
			wantType: table.Float,
			want:     table.FloatValue(123.45),
		},
		{
			name:     "decimal int32",
			node:     parquet.Decimal(3, 9, parquet.Int32Type),
			value:    parquet.Int32Value(-1500),
			wantType: table.Float,
			want:     table.FloatValue(-1.5),
		},
		{
			name:     "decimal fixed length negative",
			node:     parquet.Decimal(2, 10, parquet.FixedLenByteArrayType(5)),
			value:    parquet.FixedLenByteArrayValue([]byte{0xFF, 0xFF, 0xFF, 0xCF, 0xC7}),
			wantType: table.Float,
			want:     table.FloatValue(-123.45),
		},
		{
			name:     "signed int16",
			node:     parquet.Int(16),
			value:    parquet.Int32Value(-300),
			wantType: table.Int,
			want:     table.IntValue(-300),
		},
		{
			name:     "unsigned int32 above int32 range",
			node:     parquet.Uint(32),
			value:    parquet.Int32Value(-1),
			wantType: table.Int,
			want:     table.IntValue(4294967295),
		},
		{
			name:     "unsigned int64 in range",
			node:     parquet.Uint(64),
			value:    parquet.Int64Value(42),
			wantType: table.Int,
			want:     table.IntValue(42),
		},
		{
			name:     "uuid",
			node:     parquet.UUID(),
			value:    parquet.FixedLenByteArrayValue(id[:]),
			wantType: table.String,
			want:     table.Str(id.String()),
		},
		{
			name:     "plain string",
			node:     parquet.String(),
			value:    parquet.ByteArrayValue([]byte("héllo")),
			wantType: table.String,
			want:     table.Str("héllo"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parquetFixture(t, tt.node, tt.value)
			require.NoError(t, err)
			require.Len(t, got.Columns, 1)
			assert.Equal(t, tt.wantType, got.Columns[0].Type)
			require.Len(t, got.Rows, 1)
			if diff := cmp.Diff(tt.want, got.Rows[0][0], valueComparer); diff != "" {
				t.Errorf("value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParquet_UnsignedOverflowRejected(t *testing.T) {
	_, err := parquetFixture(t, parquet.Uint(64), parquet.Int64Value(-1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedSchema)
	assert.Contains(t, err.Error(), `column "v"`)
}

func TestParquet_UnsupportedSchemas(t *testing.T) {
	tests := map[string]parquet.Group{
		"time of day": {"v": parquet.Time(parquet.Millisecond)},
		"nested":      {"outer": parquet.Group{"x": parquet.Int(64)}},
		"repeated":    {"v": parquet.Repeated(parquet.String())},
		"fixed bytes": {"v": parquet.Leaf(parquet.FixedLenByteArrayType(4))},
	}
	for name, group := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := readGroup(t, group)
			assert.ErrorIs(t, err, ErrUnsupportedSchema)
		})
	}
}

func TestDeclaredType(t *testing.T) {
	tests := map[string]table.Type{
		"TEXT":          table.String,
		"string":        table.String,
		"VARCHAR(32)":   table.String,
		"BIGINT":        table.Int,
		"int64":         table.Int,
		"double":        table.Float,
		"NUMERIC(10,2)": table.Float,
		"BOOLEAN":       table.Bool,
		"datetime":      table.Timestamp,
		"DATE":          table.Timestamp,
		"BLOB":          table.String,
		"":              table.String,
	}
	for decl, want := range tests {
		assert.Equal(t, want, declaredType(decl), decl)
	}
}
