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

// Package passcode implements keypad password entry with attempt lockout
package passcode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-rc522/actuator"
	"github.com/ZaparooProject/go-rc522/cloud"
	"github.com/ZaparooProject/go-rc522/display"
	"github.com/ZaparooProject/go-rc522/door"
	"github.com/ZaparooProject/go-rc522/keypad"
	"github.com/ZaparooProject/go-rc522/store"
	"go.uber.org/zap"
)

// Defaults
const (
	MaxPasswordLength = 10
	DefaultAttempts   = 3
	DefaultLockout    = 30 * time.Second
)

// Feedback hold times
const (
	holdCleared = time.Second
	holdCorrect = time.Second
	holdWrong   = 1500 * time.Millisecond
	holdLocked  = 1500 * time.Millisecond
)

// Auditor records access attempts
type Auditor interface {
	RecordAccess(ctx context.Context, method store.Method, subject string, granted bool, detail string) error
}

// Config configures an Entry
type Config struct {
	MaxAttempts int
	Lockout     time.Duration
	AutoLock    time.Duration
}

// DefaultConfig returns the stock limits
func DefaultConfig() Config {
	return Config{
		MaxAttempts: DefaultAttempts,
		Lockout:     DefaultLockout,
		AutoLock:    door.DefaultAutoLock,
	}
}

// Entry is the keypad password state machine. It collects digits, checks
// the secret on submit and locks input out after repeated failures.
type Entry struct {
	door      door.Door
	display   display.Display
	verifier  Verifier
	publisher cloud.Publisher
	indicator actuator.Indicator
	audit     Auditor
	guard     *Guard
	logger    *zap.Logger
	buffer    []byte
	autoLock  time.Duration
	mu        sync.Mutex
}

// Option configures an Entry
type Option func(*Entry)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Entry) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithPublisher sends alerts to the backend
func WithPublisher(p cloud.Publisher) Option {
	return func(e *Entry) {
		if p != nil {
			e.publisher = p
		}
	}
}

// WithIndicator plays LED feedback
func WithIndicator(ind actuator.Indicator) Option {
	return func(e *Entry) { e.indicator = ind }
}

// WithAuditor records every submit
func WithAuditor(a Auditor) Option {
	return func(e *Entry) { e.audit = a }
}

// WithClock replaces time.Now for lockout timing
func WithClock(now func() time.Time) Option {
	return func(e *Entry) { e.guard.now = now }
}

// NewEntry creates the state machine
func NewEntry(d door.Door, disp display.Display, v Verifier, cfg Config, opts ...Option) (*Entry, error) {
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be at least 1, got %d", cfg.MaxAttempts)
	}
	if cfg.Lockout <= 0 || cfg.AutoLock <= 0 {
		return nil, errors.New("lockout and auto-lock durations must be positive")
	}
	e := &Entry{
		door:      d,
		display:   disp,
		verifier:  v,
		publisher: cloud.Discard{},
		guard:     NewGuard(cfg.MaxAttempts, cfg.Lockout, nil),
		logger:    zap.NewNop(),
		buffer:    make([]byte, 0, MaxPasswordLength),
		autoLock:  cfg.AutoLock,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run feeds every key from src into HandleKey until the source closes
func (e *Entry) Run(ctx context.Context, src keypad.Source) {
	for key := range src.Events(ctx) {
		e.HandleKey(ctx, key)
	}
}

// HandleKey processes one key press
func (e *Entry) HandleKey(ctx context.Context, key keypad.Key) {
	blocked, expired := e.guard.Check()
	if expired {
		e.logger.Info("lockout period ended")
		e.refreshStatus()
	}
	if blocked {
		e.logger.Debug("key ignored during lockout", zap.Stringer("key", key))
		return
	}

	switch key {
	case keypad.KeySubmit:
		secret, ok := e.take()
		if !ok {
			return
		}
		e.logger.Info("checking password")
		e.check(ctx, secret)
	case keypad.KeyClear:
		e.take()
		e.logger.Info("password cleared")
		e.display.UpdatePassword(0)
		e.display.ShowMessage("Password cleared", holdCleared)
		e.display.UpdatePassword(0)
	default:
		n, ok := e.append(key)
		if !ok {
			return
		}
		e.logger.Debug("key pressed", zap.Int("length", n))
		e.display.UpdatePassword(n)
		e.flash(ctx, actuator.PatternKeyPress)
	}
}

// append adds key while fewer than MaxPasswordLength-1 characters are held
func (e *Entry) append(key keypad.Key) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.buffer) >= MaxPasswordLength-1 {
		return len(e.buffer), false
	}
	e.buffer = append(e.buffer, byte(key))
	return len(e.buffer), true
}

// take empties the buffer and returns what was in it
func (e *Entry) take() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.buffer) == 0 {
		return "", false
	}
	secret := string(e.buffer)
	clear(e.buffer)
	e.buffer = e.buffer[:0]
	return secret, true
}

func (e *Entry) check(ctx context.Context, secret string) {
	defer e.display.UpdatePassword(0)

	if e.verifier != nil && e.verifier.Verify(secret) {
		e.logger.Info("password correct")
		e.guard.Succeed()
		e.record(ctx, true, "")
		e.display.ShowMessage("Password correct!", holdCorrect)
		e.flash(ctx, actuator.PatternCorrect)
		if err := e.door.Unlock(ctx); err != nil {
			e.logger.Error("unlock failed", zap.Error(err))
			return
		}
		e.display.ShowMessage(fmt.Sprintf("Auto-lock in %ds", int(e.autoLock/time.Second)), 0)
		e.door.ScheduleLock(e.autoLock)
		return
	}

	attempts, lockedOut := e.guard.Fail()
	e.logger.Info("password incorrect", zap.Int("attempts", attempts))
	e.record(ctx, false, "wrong passcode")
	e.alert(ctx, cloud.AlertWrongPasscode)
	e.display.ShowMessage(fmt.Sprintf("Wrong! (%d/%d)", attempts, e.guard.MaxAttempts()), holdWrong)
	e.flash(ctx, actuator.PatternWrong)

	if !lockedOut {
		e.refreshStatus()
		return
	}
	e.logger.Warn("maximum password attempts reached, keypad locked out",
		zap.Duration("duration", e.guard.duration))
	e.display.ShowMessage("System locked!", holdLocked)
	e.refreshStatus()
	e.alert(ctx, cloud.AlertLockout)
	e.flash(ctx, actuator.PatternLockout)
}

func (e *Entry) record(ctx context.Context, granted bool, detail string) {
	if e.audit == nil {
		return
	}
	if err := e.audit.RecordAccess(ctx, store.MethodKeypad, "", granted, detail); err != nil {
		e.logger.Warn("failed to record access", zap.Error(err))
	}
}

func (e *Entry) alert(ctx context.Context, alert cloud.AlertType) {
	if err := e.publisher.PublishAlert(ctx, alert); err != nil {
		e.logger.Warn("failed to publish alert", zap.String("type", string(alert)), zap.Error(err))
	}
}

func (e *Entry) flash(ctx context.Context, p actuator.Pattern) {
	if e.indicator == nil {
		return
	}
	if err := e.indicator.Flash(ctx, p); err != nil {
		e.logger.Debug("LED feedback failed", zap.Error(err))
	}
}

func (e *Entry) refreshStatus() {
	status := display.Status{Locked: e.door.State() == door.Locked}
	e.Overlay(&status)
	e.display.UpdateStatus(status)
}

// Overlay implements door.StatusOverlay
func (e *Entry) Overlay(status *display.Status) {
	lock := e.guard.State()
	status.LockedOut = lock.LockedOut
	status.LockoutRemaining = e.guard.Remaining()
	status.PasswordLength = e.Len()
}

// Len returns the number of buffered characters
func (e *Entry) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.buffer)
}

// Lockout returns the lockout state
func (e *Entry) Lockout() LockoutState {
	return e.guard.State()
}

var _ door.StatusOverlay = (*Entry)(nil)
