// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import "errors"

// Domain errors returned by the state machine. Handlers map these to HTTP
// statuses with errors.Is; they are recoverable by the caller (end the
// active session, or start one, respectively).
var (
	ErrAlreadyActive = errors.New("a session is already active")
	ErrNotStarted    = errors.New("no active session")
)
