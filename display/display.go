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

// Package display renders the lock's status screen. Drawing is serialized
// by a semaphore with a bounded acquire; an update that cannot get the
// screen in time is logged and dropped.
package display

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	rc522 "github.com/ZaparooProject/go-rc522"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Lines is the number of text lines on the panel
const Lines = 8

// DefaultAcquireTimeout bounds how long an update waits for the screen
const DefaultAcquireTimeout = 100 * time.Millisecond

const (
	lineTitle     = 0
	lineStatus    = 2
	linePrompt    = 4
	lineUID       = 5
	lineMessage   = 6
	title         = "Smart Door Lock"
	promptText    = "Enter Pass/Scan Card"
	maskCharacter = "*"
)

// Status is the state shown on the status screen
type Status struct {
	LockoutRemaining time.Duration
	PasswordLength   int
	Locked           bool
	LockedOut        bool
}

// Display is what the controller loops draw on
type Display interface {
	ShowMessage(text string, hold time.Duration)
	UpdateStatus(status Status)
	UpdatePassword(length int)
	ShowUID(uid rc522.CardUID)
	ClearUID()
}

// Panel renders a full frame of text lines
type Panel interface {
	Render(lines [Lines]string) error
}

// Screen is the Display implementation over a Panel
type Screen struct {
	panel   Panel
	sem     *semaphore.Weighted
	logger  *zap.Logger
	sleep   func(time.Duration)
	timeout time.Duration
	skipped atomic.Uint64
	lines   [Lines]string
}

// Option configures a Screen
type Option func(*Screen)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Screen) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAcquireTimeout overrides DefaultAcquireTimeout
func WithAcquireTimeout(d time.Duration) Option {
	return func(s *Screen) { s.timeout = d }
}

// WithSleeper replaces time.Sleep for message hold times
func WithSleeper(sleep func(time.Duration)) Option {
	return func(s *Screen) { s.sleep = sleep }
}

// NewScreen creates a Screen drawing on panel
func NewScreen(panel Panel, opts ...Option) *Screen {
	s := &Screen{
		panel:   panel,
		sem:     semaphore.NewWeighted(1),
		logger:  zap.NewNop(),
		sleep:   time.Sleep,
		timeout: DefaultAcquireTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// draw runs fn on the line buffer and renders the result while holding the
// screen
func (s *Screen) draw(what string, fn func(lines *[Lines]string)) bool {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.sem.Acquire(ctx, 1); err != nil {
		s.skipped.Add(1)
		s.logger.Warn("display busy, update dropped", zap.String("update", what))
		return false
	}
	defer s.sem.Release(1)

	fn(&s.lines)
	if err := s.panel.Render(s.lines); err != nil {
		s.logger.Error("display render failed", zap.String("update", what), zap.Error(err))
		return false
	}
	return true
}

// ShowMessage writes text on the message line and then blocks for hold
// with the screen released
func (s *Screen) ShowMessage(text string, hold time.Duration) {
	s.draw("message", func(lines *[Lines]string) {
		lines[lineMessage] = text
	})
	if hold > 0 {
		s.sleep(hold)
	}
}

// UpdateStatus redraws the whole status screen
func (s *Screen) UpdateStatus(status Status) {
	s.draw("status", func(lines *[Lines]string) {
		*lines = [Lines]string{}
		lines[lineTitle] = title
		if status.Locked {
			lines[lineStatus] = "Status: LOCKED"
		} else {
			lines[lineStatus] = "Status: UNLOCKED"
		}
		if status.LockedOut {
			secs := int(status.LockoutRemaining.Round(time.Second) / time.Second)
			lines[linePrompt] = fmt.Sprintf("Locked: %d sec", max(secs, 0))
			return
		}
		lines[linePrompt] = promptText
		lines[lineMessage] = mask(status.PasswordLength)
	})
}

// UpdatePassword shows one asterisk per entered character
func (s *Screen) UpdatePassword(length int) {
	s.draw("password", func(lines *[Lines]string) {
		lines[lineMessage] = mask(length)
	})
}

// ShowUID shows a scanned card's UID
func (s *Screen) ShowUID(uid rc522.CardUID) {
	s.draw("uid", func(lines *[Lines]string) {
		lines[lineUID] = "UID: " + uid.String()
	})
}

// ClearUID removes the UID line
func (s *Screen) ClearUID() {
	s.draw("clear uid", func(lines *[Lines]string) {
		lines[lineUID] = ""
	})
}

// Lines returns the current frame
func (s *Screen) Lines() [Lines]string {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return [Lines]string{}
	}
	defer s.sem.Release(1)
	return s.lines
}

// Skipped returns how many updates were dropped because the screen was busy
func (s *Screen) Skipped() uint64 {
	return s.skipped.Load()
}

func mask(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(maskCharacter, n)
}

// WriterPanel prints each frame as text, for terminals and logs
type WriterPanel struct {
	w io.Writer
}

// NewWriterPanel creates a panel writing frames to w
func NewWriterPanel(w io.Writer) *WriterPanel {
	return &WriterPanel{w: w}
}

// Render implements Panel
func (p *WriterPanel) Render(lines [Lines]string) error {
	var b strings.Builder
	b.WriteString("+----------------------+\n")
	for _, line := range lines {
		if line == "" {
			continue
		}
		fmt.Fprintf(&b, "| %-20s |\n", line)
	}
	b.WriteString("+----------------------+\n")
	_, err := io.WriteString(p.w, b.String())
	return err
}

// NopPanel discards frames
type NopPanel struct{}

// Render implements Panel
func (NopPanel) Render([Lines]string) error { return nil }

var _ Display = (*Screen)(nil)
