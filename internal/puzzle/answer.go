// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package puzzle

import (
	"strings"
	"unicode"
)

// AlternativeSeparator separates accepted answers in an answer spec.
const AlternativeSeparator = "|"

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || r == ',' || r == '-' || r == '>'
}

// NormalizeAnswer lower-cases s and collapses every run of whitespace or
// the separators ',', '-' and '>' into one space, with none at either end.
// NormalizeAnswer(NormalizeAnswer(s)) == NormalizeAnswer(s).
func NormalizeAnswer(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if isSeparator(r) {
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteByte(' ')
			pending = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Alternatives splits an answer spec on '|' and returns the normalized,
// non-empty alternatives.
func Alternatives(answerSpec string) []string {
	parts := strings.Split(answerSpec, AlternativeSeparator)
	out := parts[:0]
	for _, p := range parts {
		if n := NormalizeAnswer(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// CheckAnswer reports whether guess matches any alternative of answerSpec
// after normalization. An empty guess never matches.
func CheckAnswer(guess, answerSpec string) bool {
	g := NormalizeAnswer(guess)
	if g == "" {
		return false
	}
	for _, alt := range Alternatives(answerSpec) {
		if alt == g {
			return true
		}
	}
	return false
}
