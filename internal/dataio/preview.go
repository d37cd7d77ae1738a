// SPDX-License-Identifier: MIT

package dataio

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ManuGH/standardise/internal/table"
)

const maxPreviewCell = 40

// Preview renders the schema and the first n rows of t as an aligned text grid.
func Preview(t *table.Table, n int) string {
	if n > t.Len() {
		n = t.Len()
	}
	if n < 0 {
		n = 0
	}

	grid := make([][]string, 0, n+2)
	header := make([]string, len(t.Columns))
	types := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Name
		types[i] = c.Type.String()
	}
	grid = append(grid, header, types)
	for _, row := range t.Rows[:n] {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = truncateCell(v.String())
		}
		grid = append(grid, cells)
	}

	widths := make([]int, len(t.Columns))
	for _, line := range grid {
		for i, cell := range line {
			if w := utf8.RuneCountInString(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "shape: (%d, %d)\n", t.Len(), len(t.Columns))
	for li, line := range grid {
		for i, cell := range line {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)))
		}
		b.WriteByte('\n')
		if li == 1 {
			for i, w := range widths {
				if i > 0 {
					b.WriteString("-+-")
				}
				b.WriteString(strings.Repeat("-", w))
			}
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncateCell(s string) string {
	if utf8.RuneCountInString(s) <= maxPreviewCell {
		return s
	}
	r := []rune(s)
	return string(r[:maxPreviewCell-1]) + "…"
}
