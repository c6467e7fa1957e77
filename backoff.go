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

package rc522

import (
	"sync"
	"time"
)

// BackoffConfig controls the delay inserted between failed card scans
type BackoffConfig struct {
	// Base is the delay after a success and the starting point for growth
	Base time.Duration
	// Max caps the delay
	Max time.Duration
	// Factor multiplies the delay after every failure
	Factor float64
	// SilentThreshold is the failure count above which failures stop being logged
	SilentThreshold int
}

// DefaultBackoffConfig returns the default scan backoff configuration
func DefaultBackoffConfig() *BackoffConfig {
	return &BackoffConfig{
		Base:            5 * time.Millisecond,
		Max:             100 * time.Millisecond,
		Factor:          1.5,
		SilentThreshold: 50,
	}
}

// Validate checks if the configuration is valid
func (c *BackoffConfig) Validate() error {
	if c.Base <= 0 || c.Max < c.Base {
		return ErrInvalidParameter
	}
	if c.Factor < 1 {
		return ErrInvalidParameter
	}
	if c.SilentThreshold < 0 {
		return ErrInvalidParameter
	}
	return nil
}

// Backoff tracks consecutive scan failures. The delay persists across scan
// cycles and only decays on success.
type Backoff struct {
	lastFailure time.Time
	config      BackoffConfig
	current     time.Duration
	failures    int
	announced   bool
	mu          sync.Mutex
}

// NewBackoff creates a backoff tracker; nil selects the defaults
func NewBackoff(config *BackoffConfig) *Backoff {
	if config == nil {
		config = DefaultBackoffConfig()
	}
	return &Backoff{
		config:  *config,
		current: config.Base,
	}
}

// RecordFailure grows the delay and returns it. announce is true exactly
// once, on the failure that crosses the silent threshold.
func (b *Backoff) RecordFailure() (delay time.Duration, announce bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()

	next := time.Duration(float64(b.current) * b.config.Factor)
	if next > b.config.Max {
		next = b.config.Max
	}
	b.current = next

	if b.failures > b.config.SilentThreshold && !b.announced {
		b.announced = true
		announce = true
	}
	return b.current, announce
}

// RecordSuccess resets the delay and failure counter
func (b *Backoff) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.announced = false
	b.current = b.config.Base
}

// Current returns the delay that the next failure will grow from
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Failures returns the number of consecutive failures
func (b *Backoff) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Silent reports whether failures should no longer be logged
func (b *Backoff) Silent() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures > b.config.SilentThreshold
}

// LastFailure returns when the last failure was recorded
func (b *Backoff) LastFailure() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastFailure
}
