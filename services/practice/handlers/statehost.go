// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jinterlante1206/AleutianPractice/services/practice/datatypes"
	"github.com/jinterlante1206/AleutianPractice/services/practice/store"
)

// The state-host actor surface. A practice instance running with
// PRACTICE_STATE_HOST=true exposes these three endpoints over a local cell,
// and a second instance configured with PRACTICE_STATE_URL talks to them
// through store.Remote. The cell is never shared as memory; every access is
// a message.

// StateGet handles GET /v1/state/session: 200 with the session, or 404.
func StateGet(cell *store.Local) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := cell.Get(c.Request.Context())
		if s == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no session held"})
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

// StateSet handles PUT /v1/state/session.
func StateSet(cell *store.Local) gin.HandlerFunc {
	return func(c *gin.Context) {
		var s datatypes.Session
		if err := c.ShouldBindJSON(&s); err != nil {
			slog.Error("Failed to parse session for state host", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session body"})
			return
		}
		cell.Set(c.Request.Context(), &s)
		c.JSON(http.StatusOK, gin.H{"status": "stored"})
	}
}

// StateClear handles DELETE /v1/state/session. Idempotent.
func StateClear(cell *store.Local) gin.HandlerFunc {
	return func(c *gin.Context) {
		cell.Clear(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"status": "cleared"})
	}
}
