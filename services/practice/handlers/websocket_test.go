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
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinterlante1206/AleutianPractice/services/practice/datatypes"
	"github.com/jinterlante1206/AleutianPractice/services/practice/session"
)

// wsEnvelope covers every server→client frame the tests care about.
type wsEnvelope struct {
	Type             string            `json:"type"`
	SessionID        string            `json:"sessionId"`
	Pitch            int               `json:"pitch"`
	Outcome          datatypes.Outcome `json:"outcome"`
	TimingOffset     float64           `json:"timingOffset"`
	ExpectedNoteTime *float64          `json:"expectedNoteTime"`
	Score            *session.Summary  `json:"score"`
	Error            string            `json:"error"`
}

func dialPractice(t *testing.T, srv *httptest.Server) (*websocket.Conn, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/practice/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err == nil {
		t.Cleanup(func() { ws.Close() })
	}
	return ws, err
}

func readEnvelope(t *testing.T, ws *websocket.Conn) wsEnvelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var env wsEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func sendFrame(t *testing.T, ws *websocket.Conn, v interface{}) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(v))
}

func TestWebSocket_SessionFlow(t *testing.T) {
	router, machine := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	require.Equal(t, 200,
		doJSON(t, router, "POST", "/v1/practice/start", startBody()).Code)

	ws, err := dialPractice(t, srv)
	require.NoError(t, err)

	ready := readEnvelope(t, ws)
	assert.Equal(t, "ready", ready.Type)
	assert.NotEmpty(t, ready.SessionID)

	sendFrame(t, ws, wireMessage{Type: "note", Pitch: 60, Velocity: 80, Timestamp: 20, On: true})
	result := readEnvelope(t, ws)
	assert.Equal(t, "result", result.Type)
	assert.Equal(t, 60, result.Pitch)
	assert.Equal(t, datatypes.OutcomeCorrect, result.Outcome)
	assert.Equal(t, 20.0, result.TimingOffset)
	require.NotNil(t, result.ExpectedNoteTime)
	assert.Equal(t, 0.0, *result.ExpectedNoteTime)

	// Garbage and unknown frames are ignored; the stream keeps working.
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	sendFrame(t, ws, map[string]string{"type": "teleport"})
	sendFrame(t, ws, wireMessage{Type: "note", Pitch: 62, Velocity: 70, Timestamp: 510, On: true})
	result = readEnvelope(t, ws)
	assert.Equal(t, "result", result.Type)
	assert.Equal(t, 62, result.Pitch)

	sendFrame(t, ws, wireMessage{Type: "end"})
	final := readEnvelope(t, ws)
	assert.Equal(t, "sessionEnd", final.Type)
	require.NotNil(t, final.Score)
	assert.Equal(t, 2, final.Score.CorrectCount)
	assert.NotEmpty(t, final.Score.AttemptID)

	// The server closes after sessionEnd.
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = ws.ReadMessage()
	assert.Error(t, err)

	assert.Nil(t, machine.State(context.Background()), "session is gone after end")
}

func TestWebSocket_RejectsWithoutActiveSession(t *testing.T) {
	router, _ := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	_, err := dialPractice(t, srv)
	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
}

func TestWebSocket_RejectsSecondConnection(t *testing.T) {
	router, _ := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	require.Equal(t, 200,
		doJSON(t, router, "POST", "/v1/practice/start", startBody()).Code)

	first, err := dialPractice(t, srv)
	require.NoError(t, err)
	readEnvelope(t, first) // ready

	_, err = dialPractice(t, srv)
	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
}

// A socket left over from an ended session must not abort a newer session
// started while it was still open.
func TestWebSocket_StaleConnectionLeavesNewSessionAlone(t *testing.T) {
	router, machine := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	require.Equal(t, 200,
		doJSON(t, router, "POST", "/v1/practice/start", startBody()).Code)

	ws, err := dialPractice(t, srv)
	require.NoError(t, err)
	ready := readEnvelope(t, ws)
	require.Equal(t, "ready", ready.Type)

	// End the first session over the request/response path and start a new
	// one while the old socket is still open.
	require.Equal(t, 200,
		doJSON(t, router, "POST", "/v1/practice/end", nil).Code)
	startResp := doJSON(t, router, "POST", "/v1/practice/start", startBody())
	require.Equal(t, 200, startResp.Code)
	var second datatypes.StartSessionResponse
	require.NoError(t, json.Unmarshal(startResp.Body.Bytes(), &second))
	require.NotEqual(t, ready.SessionID, second.SessionID)

	require.NoError(t, ws.Close())

	assert.Never(t, func() bool {
		s := machine.State(context.Background())
		return s == nil || s.ID != second.SessionID
	}, 500*time.Millisecond, 20*time.Millisecond,
		"the stale socket's teardown must not discard the newer session")
}

func TestWebSocket_Heartbeat(t *testing.T) {
	old := heartbeatInterval
	heartbeatInterval = 25 * time.Millisecond
	defer func() { heartbeatInterval = old }()

	router, _ := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	require.Equal(t, 200,
		doJSON(t, router, "POST", "/v1/practice/start", startBody()).Code)

	before := runtime.NumGoroutine()

	ws, err := dialPractice(t, srv)
	require.NoError(t, err)
	require.Equal(t, "ready", readEnvelope(t, ws).Type)

	ping := readEnvelope(t, ws)
	assert.Equal(t, "ping", ping.Type)

	// A pong keeps everything going; the next ping still arrives.
	sendFrame(t, ws, wireMessage{Type: "pong"})
	assert.Equal(t, "ping", readEnvelope(t, ws).Type)

	// Pings are interleaved with note processing, not blocked by it.
	sendFrame(t, ws, wireMessage{Type: "note", Pitch: 60, Velocity: 80, Timestamp: 10, On: true})
	for {
		env := readEnvelope(t, ws)
		if env.Type == "ping" {
			continue
		}
		assert.Equal(t, "result", env.Type)
		break
	}

	require.NoError(t, ws.Close())

	// Poll in this goroutine: require.Eventually runs its condition in a
	// fresh goroutine, which inflates NumGoroutine by one and makes the
	// comparison against the baseline unsatisfiable.
	deadline := time.Now().Add(3 * time.Second)
	for runtime.NumGoroutine() > before && time.Now().Before(deadline) {
		time.Sleep(25 * time.Millisecond)
	}
	require.LessOrEqual(t, runtime.NumGoroutine(), before,
		"the heartbeat goroutine must stop with the connection")
}

func TestWebSocket_DisconnectDiscardsSession(t *testing.T) {
	router, machine := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	require.Equal(t, 200,
		doJSON(t, router, "POST", "/v1/practice/start", startBody()).Code)

	ws, err := dialPractice(t, srv)
	require.NoError(t, err)
	readEnvelope(t, ws) // ready

	require.NoError(t, ws.Close())

	require.Eventually(t, func() bool {
		return machine.State(context.Background()) == nil
	}, 3*time.Second, 20*time.Millisecond,
		"a dropped connection must discard the session")
}
