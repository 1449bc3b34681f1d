// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

// Package puzzle holds the daily puzzle catalogue and the attempt and
// scoring engine.
//
// A new puzzle is released every day at 09:00 UTC; before that instant the
// previous day's puzzle is still the current one. Each (user, puzzle) pair
// has exactly one Attempt, created on the first guess or hint. Scores decay
// with the time elapsed since release and are reduced by wrong guesses and
// hint use, never below MinScore. Once an attempt is solved its score is
// final.
package puzzle
