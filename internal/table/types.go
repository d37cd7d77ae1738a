// SPDX-License-Identifier: MIT

// Package table holds the in-memory tabular model that every standardisation
// stage reads and produces.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Type is the logical type of a column.
type Type int

const (
	String Type = iota
	Int
	Float
	Bool
	Timestamp
)

var typeNames = map[Type]string{
	String:    "string",
	Int:       "int64",
	Float:     "float64",
	Bool:      "boolean",
	Timestamp: "timestamp",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseType maps an exact type name, such as a SQL column declaration, to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text", "varchar", "utf8":
		return String, nil
	case "int", "int64", "integer", "bigint":
		return Int, nil
	case "float", "float64", "double", "real":
		return Float, nil
	case "bool", "boolean":
		return Bool, nil
	case "timestamp", "datetime":
		return Timestamp, nil
	}
	return String, fmt.Errorf("unknown column type %q", s)
}

// TimestampLayout is the canonical text rendering of timestamp values.
const TimestampLayout = "2006-01-02 15:04:05.999999"

// Value is a nullable scalar. The zero Value is NULL.
type Value struct {
	kind  Type
	valid bool
	s     string
	i     int64
	f     float64
	b     bool
	t     time.Time
}

func Null() Value { return Value{} }

func Str(s string) Value { return Value{kind: String, valid: true, s: s} }

func IntValue(i int64) Value { return Value{kind: Int, valid: true, i: i} }

func FloatValue(f float64) Value { return Value{kind: Float, valid: true, f: f} }

func BoolValue(b bool) Value { return Value{kind: Bool, valid: true, b: b} }

// TimeValue stores t in UTC.
func TimeValue(t time.Time) Value { return Value{kind: Timestamp, valid: true, t: t.UTC()} }

// IsNull reports whether v is NULL.
func (v Value) IsNull() bool { return !v.valid }

// Kind returns the type of a non-null value. NULL reports String.
func (v Value) Kind() Type { return v.kind }

func (v Value) AsString() string { return v.s }
func (v Value) AsInt() int64 { return v.i }
func (v Value) AsFloat() float64 { return v.f }
func (v Value) AsBool() bool { return v.b }
func (v Value) AsTime() time.Time { return v.t }

// Text renders v the way a cast to string would. NULL renders as "" and ok=false.
func (v Value) Text() (text string, ok bool) {
	if !v.valid {
		return "", false
	}
	switch v.kind {
	case String:
		return v.s, true
	case Int:
		return strconv.FormatInt(v.i, 10), true
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64), true
	case Bool:
		return strconv.FormatBool(v.b), true
	case Timestamp:
		return v.t.Format(TimestampLayout), true
	}
	return "", false
}

// Equal reports whether two values are identical, including NULL == NULL.
// Duplicate detection treats NULLs as equal, like SQL DISTINCT.
func (v Value) Equal(o Value) bool {
	if v.valid != o.valid {
		return false
	}
	if !v.valid {
		return true
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case String:
		return v.s == o.s
	case Int:
		return v.i == o.i
	case Float:
		return v.f == o.f || (v.f != v.f && o.f != o.f)
	case Bool:
		return v.b == o.b
	case Timestamp:
		return v.t.Equal(o.t)
	}
	return false
}

func (v Value) String() string {
	if s, ok := v.Text(); ok {
		return s
	}
	return "NULL"
}
