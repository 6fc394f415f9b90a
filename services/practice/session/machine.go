// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package session owns the practice lifecycle: Idle, start into Active,
// stream notes, end back to Idle. The live record lives in a store.Store so
// the machine behaves identically whether the state sits in-process or on a
// remote state host.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jinterlante1206/AleutianPractice/services/practice/attempts"
	"github.com/jinterlante1206/AleutianPractice/services/practice/datatypes"
	"github.com/jinterlante1206/AleutianPractice/services/practice/matching"
	"github.com/jinterlante1206/AleutianPractice/services/practice/pieces"
	"github.com/jinterlante1206/AleutianPractice/services/practice/store"
)

// PieceLookup is the piece collaborator. A miss surfaces pieces.ErrNotFound
// verbatim.
type PieceLookup interface {
	GetByID(ctx context.Context, id string) (*pieces.Piece, error)
	GetNotes(ctx context.Context, id string) ([]datatypes.ExpectedNote, error)
}

// AttemptRepository persists the end-of-session summary and returns the
// stored identifier.
type AttemptRepository interface {
	Create(ctx context.Context, a *attempts.Attempt) (string, error)
}

// StartParams are the arguments of Start, pre-validated at the transport
// boundary.
type StartParams struct {
	PieceID      string
	MeasureStart int
	MeasureEnd   int
	Hand         datatypes.Hand
	TempoPercent int
}

// StartResult is what Start reports back for the ready message.
type StartResult struct {
	SessionID         string
	ExpectedNoteCount int
	MeasureRange      datatypes.MeasureRange
}

// NoteResult is the per-note feedback. ExpectedNoteTime is nil when no
// candidate was reported.
type NoteResult struct {
	Pitch            int
	Outcome          datatypes.Outcome
	TimingOffsetMs   float64
	ExpectedNoteTime *float64
}

// Summary is the end-of-session aggregate plus the persisted attempt id.
type Summary struct {
	matching.Comparison
	AttemptID   string `json:"attempt_id"`
	SessionID   string `json:"session_id"`
	PieceID     string `json:"piece_id"`
	PlayedCount int    `json:"played_count"`
}

// Machine is the session state machine. All mutations are serialized by an
// internal mutex: the shared matched set is not safe under concurrent
// submits, and transports that multiplex must not rely on their own
// ordering alone.
type Machine struct {
	mu       sync.Mutex
	store    store.Store
	pieces   PieceLookup
	attempts AttemptRepository
	logger   *slog.Logger
}

// NewMachine wires the machine to its collaborators. The store decides where
// the live state actually lives. The logger may be nil.
func NewMachine(st store.Store, pl PieceLookup, ar AttemptRepository, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{store: st, pieces: pl, attempts: ar, logger: logger}
}

// Start builds the schedule for the requested slice of the piece and creates
// a fresh session. Returns ErrAlreadyActive while a session exists and
// passes pieces.ErrNotFound through on a bad piece id.
func (m *Machine) Start(ctx context.Context, p StartParams) (*StartResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.store.Get(ctx); s != nil {
		return nil, ErrAlreadyActive
	}

	piece, err := m.pieces.GetByID(ctx, p.PieceID)
	if err != nil {
		return nil, err
	}
	notes, err := m.pieces.GetNotes(ctx, p.PieceID)
	if err != nil {
		return nil, err
	}

	schedule := matching.BuildSchedule(notes, p.MeasureStart, p.MeasureEnd, p.Hand, p.TempoPercent)

	s := &datatypes.Session{
		ID:             uuid.New().String(),
		PieceID:        piece.ID,
		ExpectedNotes:  schedule,
		MatchedIndices: make(map[int]bool),
		PlayedNotes:    []datatypes.PlayedNote{},
		MatchResults:   []datatypes.MatchResult{},
		MeasureRange:   datatypes.MeasureRange{Start: p.MeasureStart, End: p.MeasureEnd},
		HandFilter:     p.Hand,
		TempoPercent:   p.TempoPercent,
		StartedAt:      time.Now().UnixMilli(),
	}
	m.store.Set(ctx, s)

	m.logger.Info("Session started", "sessionId", s.ID, "pieceId", piece.ID,
		"expectedNotes", len(schedule), "measures",
		fmt.Sprintf("%d-%d", p.MeasureStart, p.MeasureEnd), "tempoPercent", p.TempoPercent)

	return &StartResult{
		SessionID:         s.ID,
		ExpectedNoteCount: len(schedule),
		MeasureRange:      s.MeasureRange,
	}, nil
}

// SubmitNote runs one played note through the matcher and appends it to the
// history. Pure in-memory: no collaborator I/O, so feedback stays
// low-latency. Note-off events are recorded as "extra" with offset 0 and
// never matched.
func (m *Machine) SubmitNote(ctx context.Context, n datatypes.PlayedNote) (*NoteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.store.Get(ctx)
	if s == nil {
		return nil, ErrNotStarted
	}

	var result datatypes.MatchResult
	if n.On {
		result = matching.MatchNote(n, s.ExpectedNotes, s.MatchedIndices, s.HandFilter)
	} else {
		result = datatypes.MatchResult{
			Played:        n,
			ExpectedIndex: -1,
			Outcome:       datatypes.OutcomeExtra,
		}
	}
	s.PlayedNotes = append(s.PlayedNotes, n)
	s.MatchResults = append(s.MatchResults, result)
	m.store.Set(ctx, s)

	out := &NoteResult{
		Pitch:          n.Pitch,
		Outcome:        result.Outcome,
		TimingOffsetMs: result.TimingOffsetMs,
	}
	if result.Expected != nil {
		t := result.Expected.StartTime
		out.ExpectedNoteTime = &t
	}
	return out, nil
}

// End scores the full history, persists the summary through the attempt
// repository, and discards the session. Returns ErrNotStarted when Idle.
func (m *Machine) End(ctx context.Context) (*Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.store.Get(ctx)
	if s == nil {
		return nil, ErrNotStarted
	}

	cmp := matching.Compare(s.ExpectedNotes, s.PlayedNotes, s.HandFilter)

	attemptID, err := m.attempts.Create(ctx, &attempts.Attempt{
		PieceID:        s.PieceID,
		MeasureRange:   s.MeasureRange,
		Hand:           s.HandFilter,
		TempoPercent:   s.TempoPercent,
		NoteAccuracy:   cmp.NoteAccuracy,
		TimingAccuracy: cmp.TimingAccuracy,
		CombinedScore:  cmp.CombinedScore,
		CorrectCount:   cmp.CorrectCount,
		MissedCount:    len(cmp.MissedNotes),
		ExtraCount:     cmp.ExtraNotes,
		PlayedCount:    len(s.PlayedNotes),
	})
	if err != nil {
		return nil, fmt.Errorf("persist attempt: %w", err)
	}

	summary := &Summary{
		Comparison:  cmp,
		AttemptID:   attemptID,
		SessionID:   s.ID,
		PieceID:     s.PieceID,
		PlayedCount: len(s.PlayedNotes),
	}
	m.store.Clear(ctx)

	m.logger.Info("Session ended", "sessionId", s.ID, "attemptId", attemptID,
		"combinedScore", cmp.CombinedScore, "playedNotes", summary.PlayedCount)
	return summary, nil
}

// Abort discards the session without scoring or persisting anything.
// Idempotent; aborting an Idle machine is a no-op.
func (m *Machine) Abort(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.store.Get(ctx); s != nil {
		m.logger.Info("Session aborted", "sessionId", s.ID, "playedNotes", len(s.PlayedNotes))
	}
	m.store.Clear(ctx)
}

// AbortIf discards the session only while the held session still is
// sessionID, and reports whether it did. Connection teardown uses this so a
// stale socket cannot destroy a session started after its own one ended.
func (m *Machine) AbortIf(ctx context.Context, sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.store.Get(ctx)
	if s == nil || s.ID != sessionID {
		return false
	}
	m.logger.Info("Session aborted", "sessionId", s.ID, "playedNotes", len(s.PlayedNotes))
	m.store.Clear(ctx)
	return true
}

// State never fails: nil when Idle, otherwise a detached copy of the live
// session.
func (m *Machine) State(ctx context.Context) *datatypes.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Get(ctx).Clone()
}
