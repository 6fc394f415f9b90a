// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package attempts persists finished-session summaries. The live session
// record itself is never archived; this summary is the only thing that
// survives an end.
package attempts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/jinterlante1206/AleutianPractice/services/practice/datatypes"
)

// ErrNotFound is returned when an attempt id has no stored record.
var ErrNotFound = errors.New("attempt not found")

const keyPrefix = "attempt/"

// Attempt is the persisted summary of one finished session.
type Attempt struct {
	ID             string                 `json:"id"`
	PieceID        string                 `json:"piece_id"`
	MeasureRange   datatypes.MeasureRange `json:"measure_range"`
	Hand           datatypes.Hand         `json:"hand"`
	TempoPercent   int                    `json:"tempo_percent"`
	NoteAccuracy   float64                `json:"note_accuracy"`
	TimingAccuracy float64                `json:"timing_accuracy"`
	CombinedScore  float64                `json:"combined_score"`
	CorrectCount   int                    `json:"correct_count"`
	MissedCount    int                    `json:"missed_count"`
	ExtraCount     int                    `json:"extra_count"`
	PlayedCount    int                    `json:"played_count"`
	CreatedAt      int64                  `json:"created_at"`
}

// Repository is the badger-backed attempt store.
type Repository struct {
	db     *badger.DB
	logger *slog.Logger
}

// NewRepository wraps an open BadgerDB handle. The logger may be nil.
func NewRepository(db *badger.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

// Create assigns an id and timestamp, persists the attempt, and returns the
// new id.
func (r *Repository) Create(ctx context.Context, a *Attempt) (string, error) {
	a.ID = uuid.New().String()
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().UnixMilli()
	}
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("marshal attempt: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+a.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("store attempt: %w", err)
	}
	r.logger.Info("Persisted attempt", "attemptId", a.ID, "pieceId", a.PieceID,
		"combinedScore", a.CombinedScore)
	return a.ID, nil
}

// GetByID returns a stored attempt, or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id string) (*Attempt, error) {
	var attempt Attempt
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &attempt)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load attempt %s: %w", id, err)
	}
	return &attempt, nil
}

// ListByPiece returns every attempt recorded for a piece, unordered.
func (r *Repository) ListByPiece(ctx context.Context, pieceID string) ([]Attempt, error) {
	var out []Attempt
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var a Attempt
				if err := json.Unmarshal(val, &a); err != nil {
					return err
				}
				if a.PieceID == pieceID {
					out = append(out, a)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list attempts for %s: %w", pieceID, err)
	}
	return out, nil
}
