// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store holds the single live Session value between messages.
//
// Two interchangeable backends exist: an in-process holder and a remote
// state host reached over request/response HTTP. The state machine must not
// be able to tell them apart, which forces the availability-over-consistency
// contract below: a remote failure degrades Get to "no session" instead of
// propagating, and callers must tolerate a session vanishing even right
// after a successful Set.
package store

import (
	"context"
	"sync"

	"github.com/jinterlante1206/AleutianPractice/services/practice/datatypes"
)

// Store is the pluggable holder for at most one live Session. The backend is
// selected at construction; callers never inspect which one they got.
type Store interface {
	// Get returns the held session, or nil when there is none or the
	// backend is unreachable.
	Get(ctx context.Context) *datatypes.Session

	// Set replaces the held session. Best effort on remote backends.
	Set(ctx context.Context, s *datatypes.Session)

	// Clear discards the held session. Idempotent.
	Clear(ctx context.Context)
}

// Local is the in-process backend: a mutex-guarded cell with zero latency
// and no failure modes.
type Local struct {
	mu      sync.Mutex
	session *datatypes.Session
}

// NewLocal returns an empty in-process store.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Get(ctx context.Context) *datatypes.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

func (l *Local) Set(ctx context.Context, s *datatypes.Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.session = s
}

func (l *Local) Clear(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.session = nil
}

var _ Store = (*Local)(nil)
