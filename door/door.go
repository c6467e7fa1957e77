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

// Package door owns the lock state. Both the card loop and the keypad loop
// drive the lock through a Door.
package door

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-rc522/actuator"
	"github.com/ZaparooProject/go-rc522/cloud"
	"github.com/ZaparooProject/go-rc522/display"
	"go.uber.org/zap"
)

// State is the lock position
type State int

// Lock positions
const (
	Locked State = iota
	Unlocked
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case Unlocked:
		return "unlocked"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// DefaultAutoLock is the delay before an unlocked door relocks
const DefaultAutoLock = 5 * time.Second

const autoLockTimeout = 30 * time.Second

// Door is the lock as seen by the authentication loops
type Door interface {
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	ScheduleLock(d time.Duration)
	State() State
}

// StatusOverlay adds the keypad's part of the status screen
type StatusOverlay interface {
	Overlay(status *display.Status)
}

// Controller is the Door implementation. Motion is exclusive: a second
// Lock or Unlock waits for the first to finish.
type Controller struct {
	actuator  actuator.Actuator
	indicator actuator.Indicator
	display   display.Display
	publisher cloud.Publisher
	logger    *zap.Logger
	overlay   StatusOverlay
	timer     *time.Timer
	motionMu  sync.Mutex
	stateMu   sync.RWMutex
	timerMu   sync.Mutex
	state     State
	timerGen  uint64
	known     bool
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIndicator lights the LED while unlocked
func WithIndicator(ind actuator.Indicator) Option {
	return func(c *Controller) { c.indicator = ind }
}

// WithPublisher reports state changes to the backend
func WithPublisher(p cloud.Publisher) Option {
	return func(c *Controller) {
		if p != nil {
			c.publisher = p
		}
	}
}

// WithInitialState sets the known position at startup
func WithInitialState(s State) Option {
	return func(c *Controller) {
		c.state = s
		c.known = true
	}
}

// NewController creates a controller. Without WithInitialState the position
// is unknown and reported as Locked; the first Lock or Unlock always drives
// the actuator.
func NewController(act actuator.Actuator, disp display.Display, opts ...Option) *Controller {
	c := &Controller{
		actuator:  act,
		display:   disp,
		publisher: cloud.Discard{},
		logger:    zap.NewNop(),
		state:     Locked,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetOverlay sets the source of lockout and password details for status
// refreshes
func (c *Controller) SetOverlay(o StatusOverlay) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.overlay = o
}

// State returns the current position
func (c *Controller) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Unlock opens the lock; unlocking an unlocked door does nothing
func (c *Controller) Unlock(ctx context.Context) error {
	return c.move(ctx, Unlocked)
}

// Lock closes the lock and cancels any pending auto-lock. Locking a locked
// door does nothing.
func (c *Controller) Lock(ctx context.Context) error {
	c.cancelScheduled()
	return c.move(ctx, Locked)
}

func (c *Controller) move(ctx context.Context, target State) error {
	c.motionMu.Lock()
	defer c.motionMu.Unlock()

	c.stateMu.RLock()
	settled := c.known && c.state == target
	c.stateMu.RUnlock()
	if settled {
		c.logger.Info("door already " + target.String())
		return nil
	}

	notice, pulse := "Unlocking door...", actuator.UnlockedPulse
	if target == Locked {
		notice, pulse = "Locking door...", actuator.LockedPulse
	}
	c.logger.Info(notice)
	c.display.ShowMessage(notice, 0)

	if err := c.actuator.Move(ctx, pulse); err != nil {
		if stopErr := c.actuator.Stop(); stopErr != nil {
			c.logger.Error("failed to stop actuator", zap.Error(stopErr))
		}
		c.logger.Error("actuator move failed", zap.Stringer("target", target), zap.Error(err))
		return fmt.Errorf("failed to move lock to %s: %w", target, err)
	}
	if err := c.actuator.Stop(); err != nil {
		c.logger.Error("actuator stop failed", zap.Stringer("target", target), zap.Error(err))
		return fmt.Errorf("failed to stop lock at %s: %w", target, err)
	}

	c.stateMu.Lock()
	c.state = target
	c.known = true
	overlay := c.overlay
	c.stateMu.Unlock()

	if c.indicator != nil {
		if err := c.indicator.Set(target == Unlocked); err != nil {
			c.logger.Warn("status LED update failed", zap.Error(err))
		}
	}

	status := display.Status{Locked: target == Locked}
	if overlay != nil {
		overlay.Overlay(&status)
	}
	c.display.UpdateStatus(status)
	c.logger.Info("door " + target.String())

	if err := c.publisher.PublishLockStatus(ctx, target == Locked); err != nil {
		c.logger.Warn("failed to publish lock status", zap.Error(err))
	}
	return nil
}

// ScheduleLock locks the door after d. Scheduling again replaces the
// pending lock.
func (c *Controller) ScheduleLock(d time.Duration) {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timerGen++
	gen := c.timerGen
	c.timer = time.AfterFunc(d, func() { c.autoLock(gen) })
	c.logger.Debug("auto-lock scheduled", zap.Duration("after", d))
}

func (c *Controller) autoLock(gen uint64) {
	c.timerMu.Lock()
	if gen != c.timerGen {
		c.timerMu.Unlock()
		return
	}
	c.timer = nil
	c.timerMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), autoLockTimeout)
	defer cancel()
	c.logger.Info("auto-lock")
	if err := c.move(ctx, Locked); err != nil {
		c.logger.Error("auto-lock failed", zap.Error(err))
	}
}

func (c *Controller) cancelScheduled() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}

// Pending reports whether an auto-lock is scheduled
func (c *Controller) Pending() bool {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	return c.timer != nil
}

// Close cancels any pending auto-lock
func (c *Controller) Close() {
	c.cancelScheduled()
}

var _ Door = (*Controller)(nil)
