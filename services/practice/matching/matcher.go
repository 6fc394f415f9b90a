// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package matching

import (
	"math"

	"github.com/jinterlante1206/AleutianPractice/services/practice/datatypes"
)

// Timing constants, in milliseconds. GracePeriodMs earns full timing credit,
// TimingToleranceMs is the scoring tolerance, and a note is still "correct"
// up to twice the tolerance.
const (
	GracePeriodMs      = 75.0
	TimingToleranceMs  = 150.0
	CorrectWindowMs    = 2 * TimingToleranceMs
	timingDecayScaleMs = 200.0
)

// MatchNote matches one played note against the remaining unmatched expected
// notes. It is greedy, online, and single-pass: a consumed index can never be
// reassigned by a later, closer-fitting note.
//
// Eligible notes are those whose index is not yet in matched and whose hand
// passes the filter. With no eligible note the result is "extra" with offset
// 0. Among eligible notes with the played pitch, the one nearest in time is
// consumed (marked in matched) whether the timing verdict is "correct"
// (|offset| within CorrectWindowMs, inclusive) or "wrong". With no same-pitch
// candidate, the nearest eligible note is reported purely for its offset, the
// outcome is "wrong", and its index stays eligible for a future note.
func MatchNote(played datatypes.PlayedNote, expected []datatypes.ExpectedNote,
	matched map[int]bool, hand datatypes.Hand) datatypes.MatchResult {

	result := datatypes.MatchResult{
		Played:        played,
		ExpectedIndex: -1,
	}

	bestPitch, bestAny := -1, -1
	bestPitchDist, bestAnyDist := math.MaxFloat64, math.MaxFloat64
	for i := range expected {
		if matched[i] || !hand.Admits(expected[i].Hand) {
			continue
		}
		dist := math.Abs(played.Timestamp - expected[i].StartTime)
		if dist < bestAnyDist {
			bestAny, bestAnyDist = i, dist
		}
		if expected[i].Pitch == played.Pitch && dist < bestPitchDist {
			bestPitch, bestPitchDist = i, dist
		}
	}

	if bestAny < 0 {
		result.Outcome = datatypes.OutcomeExtra
		return result
	}

	if bestPitch >= 0 {
		matched[bestPitch] = true
		note := expected[bestPitch]
		result.Expected = &note
		result.ExpectedIndex = bestPitch
		result.TimingOffsetMs = played.Timestamp - note.StartTime
		if math.Abs(result.TimingOffsetMs) <= CorrectWindowMs {
			result.Outcome = datatypes.OutcomeCorrect
		} else {
			result.Outcome = datatypes.OutcomeWrong
		}
		return result
	}

	// Wrong pitch: report the nearest eligible note without consuming it.
	note := expected[bestAny]
	result.Expected = &note
	result.ExpectedIndex = bestAny
	result.TimingOffsetMs = played.Timestamp - note.StartTime
	result.Outcome = datatypes.OutcomeWrong
	return result
}
