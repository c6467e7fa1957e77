// go-rc522
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-rc522.
//
// go-rc522 is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-rc522 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-rc522; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package passcode

import (
	"sync"
	"time"
)

// LockoutState is the failed-attempt bookkeeping
type LockoutState struct {
	Since     time.Time
	Attempts  int
	LockedOut bool
}

// Guard counts failed attempts and locks the keypad out after too many.
// Expiry is lazy: it is only noticed when Check is called.
type Guard struct {
	now         func() time.Time
	state       LockoutState
	maxAttempts int
	duration    time.Duration
	mu          sync.Mutex
}

// NewGuard creates a guard locking out for duration after maxAttempts
// consecutive failures
func NewGuard(maxAttempts int, duration time.Duration, now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{now: now, maxAttempts: maxAttempts, duration: duration}
}

// Check reports whether input is currently blocked. When a lockout has run
// its full duration it is lifted here, attempts are reset and expired is
// true.
func (g *Guard) Check() (blocked, expired bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.state.LockedOut {
		return false, false
	}
	if g.now().Sub(g.state.Since) >= g.duration {
		g.state = LockoutState{}
		return false, true
	}
	return true, false
}

// Fail records a wrong secret and returns the attempt count and whether
// this failure started a lockout
func (g *Guard) Fail() (attempts int, lockedOut bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state.Attempts++
	if g.state.Attempts >= g.maxAttempts && !g.state.LockedOut {
		g.state.LockedOut = true
		g.state.Since = g.now()
		return g.state.Attempts, true
	}
	return g.state.Attempts, false
}

// Succeed resets the attempt counter
func (g *Guard) Succeed() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.Attempts = 0
}

// State returns a snapshot
func (g *Guard) State() LockoutState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Remaining returns the time left in the current lockout
func (g *Guard) Remaining() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.state.LockedOut {
		return 0
	}
	return max(g.duration-g.now().Sub(g.state.Since), 0)
}

// MaxAttempts returns the configured limit
func (g *Guard) MaxAttempts() int {
	return g.maxAttempts
}
