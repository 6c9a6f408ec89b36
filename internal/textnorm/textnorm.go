// Package textnorm produces canonical normalized keys for strings.
//
// Two strings are considered "the same expression" everywhere in Parley iff
// their normalized keys are equal. Dedup of dictionary entries, rejection of
// no-op improved expressions, and merging of alternatives all go through
// [Key].
package textnorm

import "strings"

// Key returns the canonical form of text used for equality and dedup
// comparisons: leading/trailing whitespace is trimmed, one or more trailing
// '.', '!' or '?' characters are stripped, internal whitespace runs collapse
// to single spaces, and the result is lowercased.
//
// Key is pure and total: it never fails and is idempotent
// (Key(Key(s)) == Key(s)).
func Key(text string) string {
	s := strings.TrimSpace(text)
	s = strings.TrimRight(s, ".!?")
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(s)
}

// Equal reports whether a and b normalize to the same key.
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}

// Collapse trims text and collapses internal whitespace runs to single
// spaces without changing case or punctuation. Used by the rewrite package
// when splicing phrases together.
func Collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
