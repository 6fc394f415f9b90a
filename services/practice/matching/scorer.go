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

// Default weights for the combined score.
const (
	NoteWeight   = 0.6
	TimingWeight = 0.4
)

// Comparison is the aggregate verdict over a full session history.
type Comparison struct {
	NoteAccuracy   float64 `json:"note_accuracy"`
	TimingAccuracy float64 `json:"timing_accuracy"`
	CombinedScore  float64 `json:"combined_score"`
	CorrectCount   int     `json:"correct_count"`
	ExtraNotes     int     `json:"extra_notes"`

	// MissedNotes lists the filtered expected notes never consumed by any
	// played note, in schedule order.
	MissedNotes []datatypes.ExpectedNote `json:"missed_notes"`

	// Per-hand accuracy, only populated for a "both" comparison and nil for
	// a hand with zero expected notes.
	LeftHandAccuracy  *float64 `json:"left_hand_accuracy,omitempty"`
	RightHandAccuracy *float64 `json:"right_hand_accuracy,omitempty"`
}

// Compare scores a session with the default note/timing weights.
func Compare(expected []datatypes.ExpectedNote, played []datatypes.PlayedNote,
	hand datatypes.Hand) Comparison {
	return CompareWeighted(expected, played, hand, NoteWeight, TimingWeight)
}

// CompareWeighted replays every played note in submission order through the
// matcher against a fresh matched set and aggregates the results.
//
// Note accuracy is correct notes over the hand-filtered expected count.
// Timing accuracy sums TimingScore over correct results against the same
// denominator, so missed and incorrect notes implicitly contribute zero.
// Note-off events never match and count as "extra", the same rule the live
// session applies.
func CompareWeighted(expected []datatypes.ExpectedNote, played []datatypes.PlayedNote,
	hand datatypes.Hand, noteWeight, timingWeight float64) Comparison {

	matched := make(map[int]bool)
	results := make([]datatypes.MatchResult, 0, len(played))
	for _, p := range played {
		if !p.On {
			results = append(results, datatypes.MatchResult{
				Played:        p,
				ExpectedIndex: -1,
				Outcome:       datatypes.OutcomeExtra,
			})
			continue
		}
		results = append(results, MatchNote(p, expected, matched, hand))
	}

	cmp := Comparison{MissedNotes: []datatypes.ExpectedNote{}}
	expectedCount := 0
	leftExpected, rightExpected := 0, 0
	for i := range expected {
		if !hand.Admits(expected[i].Hand) {
			continue
		}
		expectedCount++
		switch expected[i].Hand {
		case datatypes.HandLeft:
			leftExpected++
		case datatypes.HandRight:
			rightExpected++
		}
		if !matched[i] {
			cmp.MissedNotes = append(cmp.MissedNotes, expected[i])
		}
	}

	timingSum := 0.0
	leftCorrect, rightCorrect := 0, 0
	for _, r := range results {
		switch r.Outcome {
		case datatypes.OutcomeCorrect:
			cmp.CorrectCount++
			timingSum += TimingScore(r.TimingOffsetMs)
			if r.Expected != nil {
				switch r.Expected.Hand {
				case datatypes.HandLeft:
					leftCorrect++
				case datatypes.HandRight:
					rightCorrect++
				}
			}
		case datatypes.OutcomeExtra:
			cmp.ExtraNotes++
		}
	}

	if expectedCount > 0 {
		cmp.NoteAccuracy = float64(cmp.CorrectCount) / float64(expectedCount)
		cmp.TimingAccuracy = timingSum / float64(expectedCount)
	}
	cmp.CombinedScore = (noteWeight*cmp.NoteAccuracy + timingWeight*cmp.TimingAccuracy) * 100

	if hand == datatypes.HandBoth {
		if leftExpected > 0 {
			acc := float64(leftCorrect) / float64(leftExpected)
			cmp.LeftHandAccuracy = &acc
		}
		if rightExpected > 0 {
			acc := float64(rightCorrect) / float64(rightExpected)
			cmp.RightHandAccuracy = &acc
		}
	}
	return cmp
}

// TimingScore maps an offset to [0,1]: full credit inside the grace period,
// linear falloff to the tolerance, then a bounded exponential tail.
func TimingScore(offsetMs float64) float64 {
	abs := math.Abs(offsetMs)
	switch {
	case abs <= GracePeriodMs:
		return 1.0
	case abs <= TimingToleranceMs:
		return 1.0 - (abs-GracePeriodMs)/(TimingToleranceMs-GracePeriodMs)
	default:
		return math.Exp(-(abs-TimingToleranceMs)/timingDecayScaleMs) * 0.5
	}
}
