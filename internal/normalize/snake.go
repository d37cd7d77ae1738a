// SPDX-License-Identifier: MIT

package normalize

import (
	"strings"
	"unicode"
)

// SnakeCase converts a column name into snake_case.
// Example: "Order Date" → "order_date", "customerID" → "customer_id",
// "HTTPStatusCode" → "http_status_code".
//
// Word boundaries are any non-alphanumeric rune, a lower-case letter or digit
// followed by an upper-case letter, and the last capital of an acronym that is
// followed by a lower-case letter. Digits stay attached to the word before them.
func SnakeCase(name string) string {
	rs := []rune(name)
	words := make([]string, 0, 4)
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}

	for i, r := range rs {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && cur.Len() > 0 {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur.WriteRune(unicode.ToLower(r))
	}
	flush()

	if len(words) == 0 {
		return "column"
	}
	return strings.Join(words, "_")
}
