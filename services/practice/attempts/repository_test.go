// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package attempts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinterlante1206/AleutianPractice/services/practice/datatypes"
	"github.com/jinterlante1206/AleutianPractice/services/practice/storage/badgerdb"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := badgerdb.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db, nil)
}

func TestRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	id, err := repo.Create(ctx, &Attempt{
		PieceID:       "twinkle",
		MeasureRange:  datatypes.MeasureRange{Start: 1, End: 4},
		Hand:          datatypes.HandBoth,
		TempoPercent:  100,
		NoteAccuracy:  0.9,
		CombinedScore: 88.5,
		CorrectCount:  9,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "twinkle", got.PieceID)
	assert.Equal(t, 88.5, got.CombinedScore)
	assert.NotZero(t, got.CreatedAt, "Create must stamp the attempt")
}

func TestRepository_GetMissing(t *testing.T) {
	repo := testRepo(t)
	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_ListByPiece(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	for _, pieceID := range []string{"a", "a", "b"} {
		_, err := repo.Create(ctx, &Attempt{PieceID: pieceID})
		require.NoError(t, err)
	}

	forA, err := repo.ListByPiece(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, forA, 2)

	forC, err := repo.ListByPiece(ctx, "c")
	require.NoError(t, err)
	assert.Empty(t, forC)
}
