// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes holds the wire and domain types shared by the practice
// service: expected/played notes, match results, and the live session record.
package datatypes

// Hand selects which staff a note or a session filter applies to.
type Hand string

const (
	HandLeft  Hand = "left"
	HandRight Hand = "right"
	HandBoth  Hand = "both"
)

// Valid reports whether h is one of the three recognized values.
func (h Hand) Valid() bool {
	return h == HandLeft || h == HandRight || h == HandBoth
}

// Admits reports whether a note played by noteHand passes the filter h.
// HandBoth admits everything.
func (h Hand) Admits(noteHand Hand) bool {
	return h == HandBoth || h == noteHand
}

// ExpectedNote is one note of the piece schedule. StartTime and Duration are
// milliseconds from the schedule origin. Immutable once the schedule is built.
type ExpectedNote struct {
	Pitch     int     `json:"pitch"`
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
	Measure   int     `json:"measure"`
	Hand      Hand    `json:"hand"`
	Voice     int     `json:"voice,omitempty"`
}

// PlayedNote is one real-time input event. Timestamp is milliseconds relative
// to session start. Only note-on events participate in matching.
type PlayedNote struct {
	Pitch     int     `json:"pitch"`
	Timestamp float64 `json:"timestamp"`
	Velocity  int     `json:"velocity"`
	On        bool    `json:"on"`
}

// Outcome classifies a single played note against the schedule.
type Outcome string

const (
	OutcomeCorrect Outcome = "correct"
	OutcomeWrong   Outcome = "wrong"
	OutcomeExtra   Outcome = "extra"
)

// MatchResult records the verdict for one played note.
//
// Expected points at the candidate note the offset was measured against and
// is nil for "extra" outcomes. ExpectedIndex is the schedule index of that
// candidate, or -1. Whether the index was actually consumed is tracked in the
// session's matched set, not here: a wrong-pitch result reports the nearest
// eligible note without consuming it.
type MatchResult struct {
	Played         PlayedNote    `json:"played"`
	Expected       *ExpectedNote `json:"expected,omitempty"`
	ExpectedIndex  int           `json:"expected_index"`
	Outcome        Outcome       `json:"outcome"`
	TimingOffsetMs float64       `json:"timing_offset_ms"`
}
