// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import "sync"

// ConnRegistry enforces at most one live websocket connection per session.
// A second concurrent attempt fails immediately; nothing is queued.
type ConnRegistry struct {
	mu   sync.Mutex
	live map[string]bool
}

// NewConnRegistry returns an empty registry.
func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{live: make(map[string]bool)}
}

// Acquire claims the connection slot for a session. Returns false when the
// slot is already held.
func (r *ConnRegistry) Acquire(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live[sessionID] {
		return false
	}
	r.live[sessionID] = true
	return true
}

// Release frees the slot. Safe to call more than once.
func (r *ConnRegistry) Release(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, sessionID)
}
