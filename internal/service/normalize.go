package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// spellingFixes is applied in order, as case-sensitive literal substring
// replacements over the raw text, before any lower-casing.
var spellingFixes = []struct{ wrong, right string }{
	{"semento", "cemento"},
	{"arsos", "argos"},
	{"cotisar", "cotizar"},
	{"mececito", "necesito"},
	{"blokeo", "bloque"},
}

// CorrectSpelling fixes the handful of misspellings customers commonly send.
func CorrectSpelling(raw string) string {
	for _, fix := range spellingFixes {
		raw = strings.ReplaceAll(raw, fix.wrong, fix.right)
	}
	return raw
}

// Normalize lower-cases, strips diacritics (NFD + drop combining marks),
// deletes everything that is neither a word character nor whitespace and
// trims the result. It is total and idempotent.
func Normalize(raw string) string {
	lower := strings.ToLower(raw)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, lower)
	if err != nil {
		stripped = lower
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		if isWordRune(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// NormalizeMessage is the key every routing decision works on:
// spelling correction first, then normalization.
func NormalizeMessage(raw string) string {
	return Normalize(CorrectSpelling(raw))
}

// isWordRune matches the ASCII word class [A-Za-z0-9_].
func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
