// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package puzzle

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/samber/oops"
)

// Question payload limits.
const (
	MaxLadderSteps = 16
	MinLadderSteps = 2
	MaxChoices     = 5
	MinChoices     = 2

	// LadderBlank marks a step the player has to fill in.
	LadderBlank = "____"
)

// ladderLexer splits "COLD, ____, WARM" into words and commas. Words may
// contain inner spaces but never start or end with one.
var ladderLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comma", Pattern: `,`},
	{Name: "Word", Pattern: `[^,\s](?:[^,]*[^,\s])?`},
	{Name: "whitespace", Pattern: `\s+`},
})

// ladderAST is the parse tree of a ladder question. Empty steps between
// commas are dropped.
type ladderAST struct {
	Steps []string `parser:"( @Word | Comma )*"`
}

var ladderParser *participle.Parser[ladderAST]

func init() {
	var err error
	ladderParser, err = participle.Build[ladderAST](participle.Lexer(ladderLexer))
	if err != nil {
		panic(fmt.Sprintf("failed to build ladder parser: %v", err))
	}
}

// LadderStep is one rung of a word ladder.
type LadderStep struct {
	Word  string `json:"word,omitempty"`
	Blank bool   `json:"blank"`
}

// ParseLadder parses a comma-separated ladder question.
func ParseLadder(question string) ([]LadderStep, error) {
	ast, err := ladderParser.ParseString("", question)
	if err != nil {
		return nil, oops.Code("PUZZLE_INVALID_QUESTION").
			With("type", TypeLadder).
			Wrap(fmt.Errorf("%w: %w", ErrInvalidQuestion, err))
	}
	if n := len(ast.Steps); n < MinLadderSteps || n > MaxLadderSteps {
		return nil, oops.Code("PUZZLE_INVALID_QUESTION").
			With("type", TypeLadder).
			With("steps", n).
			Wrapf(ErrInvalidQuestion, "ladder needs %d..%d steps", MinLadderSteps, MaxLadderSteps)
	}

	steps := make([]LadderStep, len(ast.Steps))
	for i, w := range ast.Steps {
		if w == LadderBlank {
			steps[i] = LadderStep{Blank: true}
			continue
		}
		steps[i] = LadderStep{Word: w}
	}
	return steps, nil
}

// Choice is a multiple-choice question.
type Choice struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// ParseChoice parses "prompt|option|option[|...]". Blank options are
// skipped.
func ParseChoice(question string) (*Choice, error) {
	parts := strings.Split(question, "|")
	c := &Choice{Prompt: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		if p = strings.TrimSpace(p); p != "" {
			c.Options = append(c.Options, p)
		}
	}
	if c.Prompt == "" || len(c.Options) < MinChoices || len(c.Options) > MaxChoices {
		return nil, oops.Code("PUZZLE_INVALID_QUESTION").
			With("type", TypeChoice).
			With("options", len(c.Options)).
			Wrapf(ErrInvalidQuestion, "choice needs a prompt and %d..%d options", MinChoices, MaxChoices)
	}
	return c, nil
}
