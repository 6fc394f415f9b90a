// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// StartSessionRequest is the body of POST /v1/practice/start.
type StartSessionRequest struct {
	PieceID      string `json:"piece_id" binding:"required"`
	MeasureStart int    `json:"measure_start" binding:"required,gte=1"`
	MeasureEnd   int    `json:"measure_end" binding:"required,gte=1,gtefield=MeasureStart"`
	Hand         Hand   `json:"hand" binding:"required,oneof=left right both"`
	TempoPercent int    `json:"tempo_percent" binding:"required,gte=25,lte=200"`
}

// StartSessionResponse mirrors what the websocket ready message carries plus
// the schedule shape the client needs for display.
type StartSessionResponse struct {
	SessionID         string       `json:"session_id"`
	ExpectedNoteCount int          `json:"expected_note_count"`
	MeasureRange      MeasureRange `json:"measure_range"`
}

// SubmitNoteRequest is the body of POST /v1/practice/note. Velocity 0 is a
// legal note-on, so no required tag on it.
type SubmitNoteRequest struct {
	Pitch     int     `json:"pitch" binding:"gte=0,lte=127"`
	Velocity  int     `json:"velocity" binding:"gte=0,lte=127"`
	Timestamp float64 `json:"timestamp" binding:"gte=0"`
	On        bool    `json:"on"`
}

// NoteResultResponse is the per-note feedback for both the REST and the
// websocket path. ExpectedNoteTime is nil when no candidate was reported.
type NoteResultResponse struct {
	Pitch            int      `json:"pitch"`
	Outcome          Outcome  `json:"outcome"`
	TimingOffsetMs   float64  `json:"timing_offset_ms"`
	ExpectedNoteTime *float64 `json:"expected_note_time"`
}

// StateResponse is the read-only snapshot returned by GET /v1/practice/state.
type StateResponse struct {
	Active            bool         `json:"active"`
	SessionID         string       `json:"session_id,omitempty"`
	PieceID           string       `json:"piece_id,omitempty"`
	ExpectedNoteCount int          `json:"expected_note_count,omitempty"`
	PlayedNoteCount   int          `json:"played_note_count,omitempty"`
	MatchedCount      int          `json:"matched_count,omitempty"`
	MeasureRange      MeasureRange `json:"measure_range,omitempty"`
	HandFilter        Hand         `json:"hand_filter,omitempty"`
	TempoPercent      int          `json:"tempo_percent,omitempty"`
}
