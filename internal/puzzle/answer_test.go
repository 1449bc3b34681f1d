// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package puzzle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dailypuzzle/dailypuzzle/internal/puzzle"
)

func TestNormalizeAnswer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"only separators", " ,-> \t", ""},
		{"lowercases", "HeLLo", "hello"},
		{"trims", "  HELLO-WORLD  ", "hello world"},
		{"plain phrase", "hello world", "hello world"},
		{"collapses mixed runs", "cold ->  cord, card - ward", "cold cord card ward"},
		{"tabs and newlines", "a\t\tb\nc", "a b c"},
		{"keeps punctuation", "it's 42!", "it's 42!"},
		{"unicode letters", "ÉCLAIR", "éclair"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := puzzle.NormalizeAnswer(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, puzzle.NormalizeAnswer(got), "normalize must be idempotent")
		})
	}
}

func TestNormalizeAnswer_SeparatorInsensitive(t *testing.T) {
	assert.Equal(t, puzzle.NormalizeAnswer("hello world"), puzzle.NormalizeAnswer("  HELLO-WORLD  "))
	assert.Equal(t, puzzle.NormalizeAnswer("a b"), puzzle.NormalizeAnswer("a>b"))
	assert.Equal(t, puzzle.NormalizeAnswer("a b"), puzzle.NormalizeAnswer("a , b"))
}

func TestCheckAnswer(t *testing.T) {
	tests := []struct {
		name   string
		guess  string
		answer string
		want   bool
	}{
		{"exact", "testanswer", "testanswer", true},
		{"padded upper", "  TESTANSWER  ", "testanswer", true},
		{"wrong", "other", "testanswer", false},
		{"second alternative", "grey", "gray|grey", true},
		{"alternative normalized", "Word Ladder", "x|word-ladder", true},
		{"empty alternatives skipped", "cat", "||cat||", true},
		{"empty guess never matches", "", "a||b", false},
		{"separator-only guess never matches", " - ", "a||b", false},
		{"prefix is not a match", "test", "testanswer", false},
		{"ladder with arrows", "COLD > CORD > CARD > WARD", "cold, cord, card, ward", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, puzzle.CheckAnswer(tt.guess, tt.answer))
		})
	}
}

func TestAlternatives(t *testing.T) {
	assert.Equal(t, []string{"gray", "grey"}, puzzle.Alternatives(" Gray | | GREY "))
	assert.Empty(t, puzzle.Alternatives("|  |"))
}
