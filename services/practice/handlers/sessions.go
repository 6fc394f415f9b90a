// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers carries the gin endpoints of the practice service: the
// plain request/response session lifecycle, the duplex note-streaming
// websocket, and the state-host actor surface.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/jinterlante1206/AleutianPractice/services/practice/attempts"
	"github.com/jinterlante1206/AleutianPractice/services/practice/datatypes"
	"github.com/jinterlante1206/AleutianPractice/services/practice/observability"
	"github.com/jinterlante1206/AleutianPractice/services/practice/pieces"
	"github.com/jinterlante1206/AleutianPractice/services/practice/session"
)

var practiceTracer = otel.Tracer("aleutian.practice.handlers")

// StartSession handles POST /v1/practice/start. Builds the schedule and
// activates the session; 404 for an unknown piece, 400 while another session
// is active.
func StartSession(m *session.Machine, metrics *observability.PracticeMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := practiceTracer.Start(c.Request.Context(), "StartSession")
		defer span.End()

		var req datatypes.StartSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			slog.Error("Failed to parse the start request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		result, err := m.Start(ctx, session.StartParams{
			PieceID:      req.PieceID,
			MeasureStart: req.MeasureStart,
			MeasureEnd:   req.MeasureEnd,
			Hand:         req.Hand,
			TempoPercent: req.TempoPercent,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			switch {
			case errors.Is(err, pieces.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "piece not found"})
			case errors.Is(err, session.ErrAlreadyActive):
				c.JSON(http.StatusBadRequest, gin.H{"error": "a session is already active"})
			default:
				slog.Error("Failed to start session", "pieceId", req.PieceID, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start session"})
			}
			return
		}

		metrics.SessionsStartedTotal.WithLabelValues(string(req.Hand)).Inc()
		c.JSON(http.StatusOK, datatypes.StartSessionResponse{
			SessionID:         result.SessionID,
			ExpectedNoteCount: result.ExpectedNoteCount,
			MeasureRange:      result.MeasureRange,
		})
	}
}

// SubmitNote handles POST /v1/practice/note, the request/response companion
// to the websocket note stream.
func SubmitNote(m *session.Machine, metrics *observability.PracticeMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.SubmitNoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			slog.Error("Failed to parse the note request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		started := time.Now()
		result, err := m.SubmitNote(c.Request.Context(), datatypes.PlayedNote{
			Pitch:     req.Pitch,
			Velocity:  req.Velocity,
			Timestamp: req.Timestamp,
			On:        req.On,
		})
		if err != nil {
			if errors.Is(err, session.ErrNotStarted) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "no active session"})
				return
			}
			slog.Error("Failed to submit note", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit note"})
			return
		}
		metrics.NoteMatchSeconds.Observe(time.Since(started).Seconds())
		metrics.NotesProcessedTotal.WithLabelValues(string(result.Outcome)).Inc()

		c.JSON(http.StatusOK, datatypes.NoteResultResponse{
			Pitch:            result.Pitch,
			Outcome:          result.Outcome,
			TimingOffsetMs:   result.TimingOffsetMs,
			ExpectedNoteTime: result.ExpectedNoteTime,
		})
	}
}

// EndSession handles POST /v1/practice/end: scores the history, persists the
// attempt, and returns the aggregate with missed notes.
func EndSession(m *session.Machine, metrics *observability.PracticeMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := practiceTracer.Start(c.Request.Context(), "EndSession")
		defer span.End()

		summary, err := m.End(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if errors.Is(err, session.ErrNotStarted) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "no active session"})
				return
			}
			slog.Error("Failed to end session", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to end session"})
			return
		}

		metrics.SessionsEndedTotal.WithLabelValues("ended").Inc()
		metrics.CombinedScore.Observe(summary.CombinedScore)
		c.JSON(http.StatusOK, summary)
	}
}

// GetState handles GET /v1/practice/state. Never fails; reports an inactive
// snapshot when Idle.
func GetState(m *session.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := m.State(c.Request.Context())
		if s == nil {
			c.JSON(http.StatusOK, datatypes.StateResponse{Active: false})
			return
		}
		c.JSON(http.StatusOK, datatypes.StateResponse{
			Active:            true,
			SessionID:         s.ID,
			PieceID:           s.PieceID,
			ExpectedNoteCount: len(s.ExpectedNotes),
			PlayedNoteCount:   len(s.PlayedNotes),
			MatchedCount:      len(s.MatchedIndices),
			MeasureRange:      s.MeasureRange,
			HandFilter:        s.HandFilter,
			TempoPercent:      s.TempoPercent,
		})
	}
}

// ListAttempts handles GET /v1/practice/attempts?piece_id=...
func ListAttempts(repo *attempts.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		pieceID := c.Query("piece_id")
		if pieceID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "piece_id is required"})
			return
		}
		list, err := repo.ListByPiece(c.Request.Context(), pieceID)
		if err != nil {
			slog.Error("Failed to list attempts", "pieceId", pieceID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list attempts"})
			return
		}
		if list == nil {
			list = []attempts.Attempt{}
		}
		c.JSON(http.StatusOK, gin.H{"attempts": list})
	}
}

// ListPieces handles GET /v1/practice/pieces.
func ListPieces(repo *pieces.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ids, err := repo.List(c.Request.Context())
		if err != nil {
			slog.Error("Failed to list pieces", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list pieces"})
			return
		}
		if ids == nil {
			ids = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"pieces": ids})
	}
}
