// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jinterlante1206/AleutianPractice/services/practice/datatypes"
)

// sessionPath is the resource the state host exposes. See the statehost
// handlers for the server side.
const sessionPath = "/v1/state/session"

const remoteTimeout = 5 * time.Second

// Remote stores the session on a state-host actor over request/response
// HTTP. Transient failures are caught and logged here, never propagated:
// Get degrades to nil, Set and Clear are best effort. The state host owns
// the mutable cell; this client only passes messages.
type Remote struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewRemote creates a client for the state host at baseURL
// (e.g. "http://practice-state:12231"). The logger may be nil.
func NewRemote(baseURL string, logger *slog.Logger) *Remote {
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote{
		baseURL: baseURL,
		client:  &http.Client{Timeout: remoteTimeout},
		logger:  logger,
	}
}

func (r *Remote) Get(ctx context.Context) *datatypes.Session {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+sessionPath, nil)
	if err != nil {
		r.logger.Warn("Failed to build state host request", "error", err)
		return nil
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("State host unreachable, treating session as absent", "error", err)
		return nil
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var s datatypes.Session
		if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
			r.logger.Warn("Failed to decode session from state host", "error", err)
			return nil
		}
		return &s
	case http.StatusNotFound:
		return nil
	default:
		r.logger.Warn("Unexpected state host response", "status", resp.StatusCode)
		return nil
	}
}

func (r *Remote) Set(ctx context.Context, s *datatypes.Session) {
	data, err := json.Marshal(s)
	if err != nil {
		r.logger.Error("Failed to marshal session for state host", "error", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		r.baseURL+sessionPath, bytes.NewReader(data))
	if err != nil {
		r.logger.Warn("Failed to build state host request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	r.do(req, "set")
}

func (r *Remote) Clear(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, r.baseURL+sessionPath, nil)
	if err != nil {
		r.logger.Warn("Failed to build state host request", "error", err)
		return
	}
	r.do(req, "clear")
}

func (r *Remote) do(req *http.Request, op string) {
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("State host call failed", "op", op, "error", err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		r.logger.Warn("State host rejected call", "op", op,
			"status", fmt.Sprintf("%d", resp.StatusCode))
	}
}

var _ Store = (*Remote)(nil)
