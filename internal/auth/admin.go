// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package auth

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// AdminMatcher decides which email addresses have admin rights.
// Patterns are globs such as "*@example.com" and match case-insensitively.
// A nil matcher matches nothing.
type AdminMatcher struct {
	patterns []glob.Glob
}

// NewAdminMatcher compiles patterns. Blank entries are skipped.
func NewAdminMatcher(patterns []string) (*AdminMatcher, error) {
	m := &AdminMatcher{}
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, oops.Code("ADMIN_PATTERN_INVALID").With("pattern", p).Wrap(err)
		}
		m.patterns = append(m.patterns, g)
	}
	return m, nil
}

// ParseAdminList splits a comma-separated list of patterns.
func ParseAdminList(list string) []string {
	var out []string
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsAdmin reports whether email matches any pattern.
func (m *AdminMatcher) IsAdmin(email string) bool {
	if m == nil {
		return false
	}
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return false
	}
	for _, g := range m.patterns {
		if g.Match(e) {
			return true
		}
	}
	return false
}
