// Package negation holds the single shared table of negation-word pairs
// used to gate contradiction detection. Both the Accumulator's contradiction
// probe and the Linker/Retriever's "contradicts" link detection import this
// table rather than keeping their own copies.
package negation

import "strings"

// Pair is one polarity-flipping word/phrase pair, e.g. ("always", "never").
type Pair struct {
	A string
	B string
}

// Pairs is the canonical negation-pair table.
var Pairs = []Pair{
	{"always", "never"},
	{"do", "don't"},
	{"use", "avoid"},
	{"should", "should not"},
	{"prefer", "avoid"},
	{"must", "must not"},
	{"enable", "disable"},
}

// HasOpposingPair reports whether a and b each contain one side of the same
// negation pair (in either direction), a necessary condition for flagging a
// contradiction between two otherwise-similar insights.
func HasOpposingPair(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	for _, p := range Pairs {
		aHasA, aHasB := strings.Contains(la, p.A), strings.Contains(la, p.B)
		bHasA, bHasB := strings.Contains(lb, p.A), strings.Contains(lb, p.B)
		if (aHasA && bHasB) || (aHasB && bHasA) {
			return true
		}
	}
	return false
}

// ContainsAnyHalf reports whether text contains either side of any negation
// pair, used by the Retriever's already-represented conflict check where
// only one piece of content (not a pair) is available.
func ContainsAnyHalf(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range Pairs {
		if strings.Contains(lower, p.A) || strings.Contains(lower, p.B) {
			return true
		}
	}
	return false
}
