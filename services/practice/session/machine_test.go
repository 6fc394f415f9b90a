// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinterlante1206/AleutianPractice/services/practice/attempts"
	"github.com/jinterlante1206/AleutianPractice/services/practice/datatypes"
	"github.com/jinterlante1206/AleutianPractice/services/practice/pieces"
	"github.com/jinterlante1206/AleutianPractice/services/practice/store"
)

// fakePieces serves a single in-memory piece.
type fakePieces struct {
	piece *pieces.Piece
}

func (f *fakePieces) GetByID(_ context.Context, id string) (*pieces.Piece, error) {
	if f.piece == nil || f.piece.ID != id {
		return nil, pieces.ErrNotFound
	}
	return f.piece, nil
}

func (f *fakePieces) GetNotes(_ context.Context, id string) ([]datatypes.ExpectedNote, error) {
	p, err := f.GetByID(context.Background(), id)
	if err != nil {
		return nil, err
	}
	return p.Notes, nil
}

// fakeAttempts records what End persists.
type fakeAttempts struct {
	created []*attempts.Attempt
}

func (f *fakeAttempts) Create(_ context.Context, a *attempts.Attempt) (string, error) {
	f.created = append(f.created, a)
	return "attempt-1", nil
}

func testMachine() (*Machine, *fakeAttempts) {
	fp := &fakePieces{piece: &pieces.Piece{
		ID:              "twinkle",
		Title:           "Twinkle Twinkle",
		DefaultTempoBPM: 100,
		Notes: []datatypes.ExpectedNote{
			{Pitch: 60, StartTime: 0, Duration: 400, Measure: 1, Hand: datatypes.HandRight},
			{Pitch: 62, StartTime: 500, Duration: 400, Measure: 1, Hand: datatypes.HandRight},
			{Pitch: 64, StartTime: 1000, Duration: 400, Measure: 2, Hand: datatypes.HandRight},
		},
	}}
	fa := &fakeAttempts{}
	return NewMachine(store.NewLocal(), fp, fa, nil), fa
}

func startParams() StartParams {
	return StartParams{
		PieceID:      "twinkle",
		MeasureStart: 1,
		MeasureEnd:   2,
		Hand:         datatypes.HandBoth,
		TempoPercent: 100,
	}
}

func TestMachine_Lifecycle(t *testing.T) {
	ctx := context.Background()
	m, fa := testMachine()

	require.Nil(t, m.State(ctx), "machine starts Idle")

	result, err := m.Start(ctx, startParams())
	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, 3, result.ExpectedNoteCount)
	assert.Equal(t, datatypes.MeasureRange{Start: 1, End: 2}, result.MeasureRange)

	note, err := m.SubmitNote(ctx, datatypes.PlayedNote{Pitch: 60, Timestamp: 30, Velocity: 80, On: true})
	require.NoError(t, err)
	assert.Equal(t, datatypes.OutcomeCorrect, note.Outcome)
	assert.Equal(t, 30.0, note.TimingOffsetMs)
	require.NotNil(t, note.ExpectedNoteTime)
	assert.Equal(t, 0.0, *note.ExpectedNoteTime)

	summary, err := m.End(ctx)
	require.NoError(t, err)
	assert.Equal(t, "attempt-1", summary.AttemptID)
	assert.Equal(t, 1, summary.CorrectCount)
	assert.Len(t, summary.MissedNotes, 2)
	assert.Equal(t, 1, summary.PlayedCount)

	require.Len(t, fa.created, 1)
	assert.Equal(t, "twinkle", fa.created[0].PieceID)

	assert.Nil(t, m.State(ctx), "machine is Idle again after End")
}

func TestMachine_StartErrors(t *testing.T) {
	ctx := context.Background()
	m, _ := testMachine()

	t.Run("unknown piece", func(t *testing.T) {
		p := startParams()
		p.PieceID = "nope"
		_, err := m.Start(ctx, p)
		assert.ErrorIs(t, err, pieces.ErrNotFound)
	})

	t.Run("already active", func(t *testing.T) {
		_, err := m.Start(ctx, startParams())
		require.NoError(t, err)
		_, err = m.Start(ctx, startParams())
		assert.ErrorIs(t, err, ErrAlreadyActive)
	})

	t.Run("start succeeds immediately after end", func(t *testing.T) {
		_, err := m.End(ctx)
		require.NoError(t, err)
		_, err = m.Start(ctx, startParams())
		assert.NoError(t, err)
	})
}

func TestMachine_NotStarted(t *testing.T) {
	ctx := context.Background()
	m, _ := testMachine()

	_, err := m.SubmitNote(ctx, datatypes.PlayedNote{Pitch: 60, On: true})
	assert.ErrorIs(t, err, ErrNotStarted)

	_, err = m.End(ctx)
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestMachine_NoteOffRecordedAsExtra(t *testing.T) {
	ctx := context.Background()
	m, _ := testMachine()
	_, err := m.Start(ctx, startParams())
	require.NoError(t, err)

	note, err := m.SubmitNote(ctx, datatypes.PlayedNote{Pitch: 60, Timestamp: 10, On: false})
	require.NoError(t, err)
	assert.Equal(t, datatypes.OutcomeExtra, note.Outcome)
	assert.Equal(t, 0.0, note.TimingOffsetMs)
	assert.Nil(t, note.ExpectedNoteTime)

	// The note-off must not have consumed anything.
	s := m.State(ctx)
	require.NotNil(t, s)
	assert.Empty(t, s.MatchedIndices)
}

func TestMachine_HistoryInvariant(t *testing.T) {
	ctx := context.Background()
	m, _ := testMachine()
	_, err := m.Start(ctx, startParams())
	require.NoError(t, err)

	inputs := []datatypes.PlayedNote{
		{Pitch: 60, Timestamp: 0, On: true},
		{Pitch: 60, Timestamp: 100, On: false},
		{Pitch: 99, Timestamp: 200, On: true},
		{Pitch: 62, Timestamp: 480, On: true},
		{Pitch: 64, Timestamp: 5000, On: true},
	}
	for _, n := range inputs {
		_, err := m.SubmitNote(ctx, n)
		require.NoError(t, err)
	}

	s := m.State(ctx)
	require.NotNil(t, s)
	assert.Equal(t, len(inputs), len(s.PlayedNotes))
	assert.Equal(t, len(s.PlayedNotes), len(s.MatchResults),
		"played notes and match results must stay in lockstep")
	for idx := range s.MatchedIndices {
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, len(s.ExpectedNotes))
	}
}

func TestMachine_AbortIf(t *testing.T) {
	ctx := context.Background()
	m, _ := testMachine()
	first, err := m.Start(ctx, startParams())
	require.NoError(t, err)

	assert.False(t, m.AbortIf(ctx, "some-other-session"),
		"a mismatched id must not touch the session")
	require.NotNil(t, m.State(ctx))

	assert.True(t, m.AbortIf(ctx, first.SessionID))
	assert.Nil(t, m.State(ctx))
	assert.False(t, m.AbortIf(ctx, first.SessionID), "second abort finds nothing")

	// The stale-socket case: the session the id refers to is gone and a
	// newer one is live.
	second, err := m.Start(ctx, startParams())
	require.NoError(t, err)
	assert.False(t, m.AbortIf(ctx, first.SessionID))
	s := m.State(ctx)
	require.NotNil(t, s, "the newer session must survive a stale abort")
	assert.Equal(t, second.SessionID, s.ID)
}

func TestMachine_AbortIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, fa := testMachine()
	_, err := m.Start(ctx, startParams())
	require.NoError(t, err)

	m.Abort(ctx)
	m.Abort(ctx)

	assert.Nil(t, m.State(ctx))
	assert.Empty(t, fa.created, "abort must not persist an attempt")
}

func TestMachine_StateSnapshotIsDetached(t *testing.T) {
	ctx := context.Background()
	m, _ := testMachine()
	_, err := m.Start(ctx, startParams())
	require.NoError(t, err)

	snap := m.State(ctx)
	require.NotNil(t, snap)
	snap.MatchedIndices[0] = true
	snap.PlayedNotes = append(snap.PlayedNotes, datatypes.PlayedNote{Pitch: 1})

	live := m.State(ctx)
	assert.Empty(t, live.MatchedIndices, "mutating a snapshot must not touch live state")
	assert.Empty(t, live.PlayedNotes)
}
