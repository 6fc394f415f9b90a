// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jinterlante1206/AleutianPractice/services/practice/datatypes"
	"github.com/jinterlante1206/AleutianPractice/services/practice/observability"
	"github.com/jinterlante1206/AleutianPractice/services/practice/session"
)

// heartbeatInterval is how often the server pings the client. Missed pongs
// never close the connection; the ping is a liveness signal only. A variable
// so tests can shorten it.
var heartbeatInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
}

// wireMessage is the single envelope for every client→server frame. The
// Type field selects the variant; unknown fields are ignored.
type wireMessage struct {
	Type      string  `json:"type"`
	Pitch     int     `json:"pitch,omitempty"`
	Velocity  int     `json:"velocity,omitempty"`
	Timestamp float64 `json:"timestamp,omitempty"`
	On        bool    `json:"on,omitempty"`
}

// wsConn serializes writes: gorilla allows only one concurrent writer, and
// the heartbeat goroutine writes independently of the read loop.
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) sendJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write websocket JSON", "error", err)
	}
	return err
}

// HandleSessionWebSocket is the duplex note-streaming transport. The session
// must already be Active (started via the request/response path); the
// connection is rejected before upgrade otherwise, and a second concurrent
// connection to the same session is rejected outright.
//
// Server→client: ready on connect, result per note-on, ping every 30s, and
// sessionEnd exactly once right before the server closes after an end.
// Client→server: note, pong, end. Malformed or unrecognized frames are
// logged and ignored; they never close the connection. Any connection loss
// discards the in-memory session entirely.
func HandleSessionWebSocket(m *session.Machine, registry *ConnRegistry,
	metrics *observability.PracticeMetrics) gin.HandlerFunc {

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		live := m.State(ctx)
		if live == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no active session; start one first"})
			return
		}
		if !registry.Acquire(live.ID) {
			slog.Warn("Rejected second websocket connection for session", "sessionId", live.ID)
			c.JSON(http.StatusConflict, gin.H{"error": "session already has a live connection"})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			registry.Release(live.ID)
			slog.Error("Failed to upgrade the websocket", "error", err)
			return
		}
		conn := &wsConn{ws: ws}
		metrics.ActiveConnections.Inc()
		slog.Info("Websocket client connected", "sessionId", live.ID)

		heartbeatDone := make(chan struct{})
		var teardownOnce sync.Once
		teardown := func() {
			teardownOnce.Do(func() {
				close(heartbeatDone)
				registry.Release(live.ID)
				metrics.ActiveConnections.Dec()
				// Connection loss discards the session, not just the socket.
				// Guarded by id: the machine may already hold a newer session
				// started after this one ended over the REST path. Background
				// context: the request context is already dead when the
				// client went away.
				if m.AbortIf(context.Background(), live.ID) {
					metrics.SessionsEndedTotal.WithLabelValues("aborted").Inc()
				}
				ws.Close()
				slog.Info("Websocket session torn down", "sessionId", live.ID)
			})
		}
		defer teardown()

		if err := conn.sendJSON(map[string]interface{}{
			"type":      "ready",
			"sessionId": live.ID,
		}); err != nil {
			return
		}

		// Heartbeat runs independently of note processing and stops with
		// the connection.
		go func() {
			ticker := time.NewTicker(heartbeatInterval)
			defer ticker.Stop()
			for {
				select {
				case <-heartbeatDone:
					return
				case <-ticker.C:
					if err := conn.sendJSON(map[string]interface{}{"type": "ping"}); err != nil {
						return
					}
				}
			}
		}()

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				slog.Info("Websocket client disconnected", "sessionId", live.ID, "error", err.Error())
				return
			}

			var msg wireMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				slog.Warn("Ignoring malformed websocket message", "sessionId", live.ID, "error", err)
				continue
			}

			switch msg.Type {
			case "note":
				started := time.Now()
				result, err := m.SubmitNote(ctx, datatypes.PlayedNote{
					Pitch:     msg.Pitch,
					Velocity:  msg.Velocity,
					Timestamp: msg.Timestamp,
					On:        msg.On,
				})
				if err != nil {
					slog.Warn("Note submission failed", "sessionId", live.ID, "error", err)
					if err := conn.sendJSON(map[string]interface{}{
						"type": "error", "error": "no active session",
					}); err != nil {
						return
					}
					continue
				}
				metrics.NoteMatchSeconds.Observe(time.Since(started).Seconds())
				metrics.NotesProcessedTotal.WithLabelValues(string(result.Outcome)).Inc()

				if err := conn.sendJSON(map[string]interface{}{
					"type":             "result",
					"pitch":            result.Pitch,
					"outcome":          result.Outcome,
					"timingOffset":     result.TimingOffsetMs,
					"expectedNoteTime": result.ExpectedNoteTime,
				}); err != nil {
					return
				}

			case "pong":
				// Liveness ack only. A missing pong is tolerated.

			case "end":
				summary, err := m.End(ctx)
				if err != nil {
					slog.Warn("End over websocket failed", "sessionId", live.ID, "error", err)
					if err := conn.sendJSON(map[string]interface{}{
						"type": "error", "error": "no active session",
					}); err != nil {
						return
					}
					continue
				}
				metrics.SessionsEndedTotal.WithLabelValues("ended").Inc()
				metrics.CombinedScore.Observe(summary.CombinedScore)
				// sessionEnd goes out exactly once, then the server closes.
				conn.sendJSON(map[string]interface{}{
					"type":  "sessionEnd",
					"score": summary,
				})
				return

			default:
				slog.Warn("Ignoring unrecognized websocket message", "sessionId", live.ID,
					"messageType", msg.Type)
			}
		}
	}
}
