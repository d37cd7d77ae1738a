// SPDX-License-Identifier: MIT

package table

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes a row over a type-tagged encoding so that equal rows
// always hash equal. Callers must still compare rows on collision.
func Fingerprint(r Row) uint64 {
	d := xxhash.New()
	var buf [9]byte
	for _, v := range r {
		if v.IsNull() {
			_, _ = d.Write([]byte{0xff})
			continue
		}
		buf[0] = byte(v.kind)
		switch v.kind {
		case String:
			binary.LittleEndian.PutUint64(buf[1:], uint64(len(v.s)))
			_, _ = d.Write(buf[:])
			_, _ = d.WriteString(v.s)
			continue
		case Int:
			binary.LittleEndian.PutUint64(buf[1:], uint64(v.i))
		case Float:
			f := v.f
			if f != f {
				f = math.NaN()
			}
			if f == 0 {
				f = 0 // fold -0 into +0
			}
			binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(f))
		case Bool:
			var b uint64
			if v.b {
				b = 1
			}
			binary.LittleEndian.PutUint64(buf[1:], b)
		case Timestamp:
			binary.LittleEndian.PutUint64(buf[1:], uint64(v.t.UnixNano()))
		}
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// RowsEqual compares two rows value by value.
func RowsEqual(a, b Row) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
