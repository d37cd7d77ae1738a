// SPDX-License-Identifier: MIT

// Package normalize holds the string-level rules shared by the standardisation
// stages: column-name casing, value cleansing and token matching.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// edgeRune reports runes stripped from the ends of a token: whitespace and
// format characters such as zero-width spaces or a stray byte order mark.
func edgeRune(r rune) bool {
	return unicode.IsSpace(r) || unicode.In(r, unicode.Cf)
}

// Token canonicalises a user-supplied keyword, such as a format name, for
// case-insensitive lookup.
func Token(s string) string {
	return strings.ToLower(strings.TrimFunc(s, edgeRune))
}

// macrons survive the Latin-1 filter; NFKD then splits them into base letter
// and combining macron, so Māori ends up as Maori.
func isMacron(r rune) bool {
	switch r {
	case 'ā', 'ē', 'ī', 'ō', 'ū', 'Ā', 'Ē', 'Ī', 'Ō', 'Ū':
		return true
	}
	return false
}

// UnicodeString folds s to plain Latin text:
//  1. drops every rune above U+00FF except macron vowels
//  2. decomposes with NFKD
//  3. drops non-spacing marks (the decomposed diacritics)
//  4. drops control, format, private-use and surrogate runes
//
// Examples: "Café" → "Cafe", "Māori" → "Maori", "東京 Tokyo" → " Tokyo".
func UnicodeString(s string) string {
	latin := strings.Map(func(r rune) rune {
		if r > 0xFF && !isMacron(r) {
			return -1
		}
		return r
	}, s)

	t := transform.Chain(
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Remove(runes.In(unicode.C)),
	)
	out, _, err := transform.String(t, latin)
	if err != nil {
		return latin
	}
	return out
}

// CleanString trims surrounding Unicode whitespace (NBSP included),
// upper-cases and folds s.
func CleanString(s string) string {
	return UnicodeString(strings.ToUpper(strings.TrimSpace(s)))
}
