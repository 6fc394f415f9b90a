// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pieces stores the note lists a session matches against. Pieces
// arrive pre-parsed (MusicXML handling lives upstream) as a JSON note list
// plus a default tempo, and are kept in BadgerDB keyed by piece id.
package pieces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/jinterlante1206/AleutianPractice/services/practice/datatypes"
)

// ErrNotFound is returned when a piece id has no stored piece.
var ErrNotFound = errors.New("piece not found")

const keyPrefix = "piece/"

// Piece is a stored piece: metadata plus the full ordered note list produced
// by the upstream MusicXML parser.
type Piece struct {
	ID              string                   `json:"id"`
	Title           string                   `json:"title"`
	Composer        string                   `json:"composer,omitempty"`
	DefaultTempoBPM int                      `json:"default_tempo_bpm"`
	Notes           []datatypes.ExpectedNote `json:"notes"`
}

// Repository is the badger-backed piece store.
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

// Put stores or replaces a piece.
func (r *Repository) Put(ctx context.Context, p *Piece) error {
	if p.ID == "" {
		return fmt.Errorf("piece id is required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal piece %s: %w", p.ID, err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+p.ID), data)
	})
	if err != nil {
		return fmt.Errorf("store piece %s: %w", p.ID, err)
	}
	r.logger.Info("Stored piece", "pieceId", p.ID, "notes", len(p.Notes))
	return nil
}

// GetByID returns the stored piece, or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id string) (*Piece, error) {
	var piece Piece
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &piece)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load piece %s: %w", id, err)
	}
	return &piece, nil
}

// GetNotes returns the full ordered note list for a piece, or ErrNotFound.
func (r *Repository) GetNotes(ctx context.Context, id string) ([]datatypes.ExpectedNote, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.Notes, nil
}

// List returns the ids of every stored piece.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list pieces: %w", err)
	}
	return ids, nil
}
