// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package puzzle

import "time"

// Scoring constants.
const (
	MaxScore              = 100
	MinScore              = 10
	IncorrectGuessPenalty = 5
	HintPenalty           = 10
	LateHourlyPenalty     = 5
)

// bracket is the base score for solves within the first upTo minutes.
type bracket struct {
	upTo  int
	score int
}

var brackets = []bracket{
	{10, 100},
	{30, 90},
	{60, 80},
	{120, 75},
	{180, 70},
}

// CalculateScore scores a solve at solveTime for the puzzle dated
// releaseDate. Elapsed time is measured in whole minutes from 09:00 UTC on
// releaseDate; solves before release count as zero minutes. Past three
// hours the base loses LateHourlyPenalty per further full hour. Each wrong
// guess and hint use is then subtracted, and the result never drops below
// MinScore.
func CalculateScore(solveTime, releaseDate time.Time, incorrectGuesses int, hintUsed bool) int {
	return ApplyPenalties(BaseScore(solveTime, releaseDate), incorrectGuesses, hintUsed)
}

// BaseScore is the time-only part of CalculateScore.
func BaseScore(solveTime, releaseDate time.Time) int {
	minutes := int(solveTime.Sub(ReleaseInstant(releaseDate)) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	return baseScore(minutes)
}

// ApplyPenalties subtracts guess and hint penalties from base, floored at
// MinScore. Repositories use it to score against the attempt's stored
// counters at the moment it is solved.
func ApplyPenalties(base, incorrectGuesses int, hintUsed bool) int {
	score := base - IncorrectGuessPenalty*max(incorrectGuesses, 0)
	if hintUsed {
		score -= HintPenalty
	}
	return max(score, MinScore)
}

func baseScore(minutes int) int {
	for _, b := range brackets {
		if minutes <= b.upTo {
			return b.score
		}
	}
	last := brackets[len(brackets)-1]
	return last.score - LateHourlyPenalty*((minutes-last.upTo)/60)
}
