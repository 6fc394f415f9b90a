// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// MeasureRange is an inclusive measure window within a piece.
type MeasureRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Session is the live practice session record. It is created by start,
// mutated append-only by each submitted note, and discarded entirely at end.
// The struct is JSON-serializable so the remote state host can carry it over
// request/response calls.
//
// Invariants maintained by the state machine:
//   - every key of MatchedIndices is a valid index into ExpectedNotes
//   - no index is consumed twice
//   - len(PlayedNotes) == len(MatchResults) at all times
type Session struct {
	ID             string         `json:"id"`
	PieceID        string         `json:"piece_id"`
	ExpectedNotes  []ExpectedNote `json:"expected_notes"`
	MatchedIndices map[int]bool   `json:"matched_indices"`
	PlayedNotes    []PlayedNote   `json:"played_notes"`
	MatchResults   []MatchResult  `json:"match_results"`
	MeasureRange   MeasureRange   `json:"measure_range"`
	HandFilter     Hand           `json:"hand_filter"`
	TempoPercent   int            `json:"tempo_percent"`
	StartedAt      int64          `json:"started_at"`
}

// Clone returns a deep copy, so snapshots handed to readers can never alias
// the live matched set or result slices.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.ExpectedNotes = append([]ExpectedNote(nil), s.ExpectedNotes...)
	out.PlayedNotes = append([]PlayedNote(nil), s.PlayedNotes...)
	out.MatchResults = append([]MatchResult(nil), s.MatchResults...)
	out.MatchedIndices = make(map[int]bool, len(s.MatchedIndices))
	for i, v := range s.MatchedIndices {
		out.MatchedIndices[i] = v
	}
	return &out
}
