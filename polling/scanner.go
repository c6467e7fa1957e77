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

// Package polling runs the card reader loop that unlocks the door for
// authorized cards
package polling

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	rc522 "github.com/ZaparooProject/go-rc522"
	"github.com/ZaparooProject/go-rc522/display"
	"github.com/ZaparooProject/go-rc522/door"
	"github.com/ZaparooProject/go-rc522/store"
	"go.uber.org/zap"
)

// Feedback hold times
const (
	holdAuthorized = time.Second
	holdDenied     = 2 * time.Second
)

// ErrScannerRunning is returned by Run when the loop is already active
var ErrScannerRunning = errors.New("card scanner is already running")

// Reader reads the UID of a card in the field
type Reader interface {
	ReadCardUID(ctx context.Context) (*rc522.Card, error)
}

// Waker is implemented by readers that can re-run the wake burst on demand
type Waker interface {
	Wake(ctx context.Context) error
}

// Authorizer decides whether a card opens the door
type Authorizer interface {
	IsAuthorized(uid rc522.CardUID) bool
}

// Auditor records access attempts
type Auditor interface {
	RecordAccess(ctx context.Context, method store.Method, subject string, granted bool, detail string) error
}

// Config holds the loop timing
type Config struct {
	// Interval is the pause between scans
	Interval time.Duration
	// IdleInterval replaces Interval once IdleAfter scans found nothing
	IdleInterval time.Duration
	// Suppress is the pause after a card was handled so the same card is
	// not read again straight away
	Suppress time.Duration
	AutoLock time.Duration
	// IdleAfter is the number of empty scans before slowing down
	IdleAfter int
	// WakeEvery re-runs the wake burst every n scans; 0 disables it
	WakeEvery int
}

// DefaultConfig returns the stock loop timing
func DefaultConfig() *Config {
	return &Config{
		Interval:     100 * time.Millisecond,
		IdleInterval: 500 * time.Millisecond,
		Suppress:     2 * time.Second,
		AutoLock:     door.DefaultAutoLock,
		IdleAfter:    1000,
		WakeEvery:    2000,
	}
}

// Validate checks the timing values
func (c *Config) Validate() error {
	if c.Interval <= 0 || c.IdleInterval <= 0 {
		return fmt.Errorf("%w: scan intervals must be positive", rc522.ErrInvalidParameter)
	}
	if c.AutoLock <= 0 {
		return fmt.Errorf("%w: auto-lock delay must be positive", rc522.ErrInvalidParameter)
	}
	if c.Suppress < 0 || c.IdleAfter < 0 || c.WakeEvery < 0 {
		return fmt.Errorf("%w: negative scan setting", rc522.ErrInvalidParameter)
	}
	return nil
}

// Metrics tracks operational counters of a CardScanner
type Metrics struct {
	ScanCycles      int64         // Total number of scans
	ScanErrors      int64         // Scans that failed with something other than no card
	CardsDetected   int64         // Cards read
	CardsAuthorized int64         // Cards that unlocked the door
	CardsDenied     int64         // Cards not in the registry
	LastScanLatency time.Duration // Duration of the last scan
}

// CardScanner reads cards in a loop and unlocks the door for authorized
// ones. It shares the door with the keypad loop.
type CardScanner struct {
	reader     Reader
	authorizer Authorizer
	door       door.Door
	display    display.Display
	audit      Auditor
	logger     *zap.Logger
	sleep      rc522.SleepFunc
	onCard     func(card *rc522.Card, authorized bool)
	config     Config
	// counters
	scanCycles      atomic.Int64
	scanErrors      atomic.Int64
	cardsDetected   atomic.Int64
	cardsAuthorized atomic.Int64
	cardsDenied     atomic.Int64
	lastScanLatency atomic.Int64
	interval        atomic.Int64
	running         atomic.Bool
}

// Option configures a CardScanner
type Option func(*CardScanner)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *CardScanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditor records every card read
func WithAuditor(a Auditor) Option {
	return func(s *CardScanner) { s.audit = a }
}

// WithSleeper replaces the loop's sleep
func WithSleeper(sleep rc522.SleepFunc) Option {
	return func(s *CardScanner) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithCardHandler is called for every card after it was handled
func WithCardHandler(fn func(card *rc522.Card, authorized bool)) Option {
	return func(s *CardScanner) { s.onCard = fn }
}

// NewCardScanner creates the loop. A nil config uses DefaultConfig.
func NewCardScanner(
	reader Reader, auth Authorizer, d door.Door, disp display.Display, config *Config, opts ...Option,
) (*CardScanner, error) {
	if reader == nil {
		return nil, errors.New("reader cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	s := &CardScanner{
		reader:     reader,
		authorizer: auth,
		door:       d,
		display:    disp,
		logger:     zap.NewNop(),
		sleep:      rc522.Sleep,
		config:     *config,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.interval.Store(int64(config.Interval))
	return s, nil
}

// Run scans until ctx is done and returns ctx.Err()
func (s *CardScanner) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrScannerRunning
	}
	defer s.running.Store(false)

	s.logger.Info("card scanner started", zap.Duration("interval", s.config.Interval))
	scans := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		scans++
		if s.config.WakeEvery > 0 && scans%s.config.WakeEvery == 0 {
			s.wake(ctx)
		}

		if card := s.scan(ctx); card != nil {
			s.handleCard(ctx, card)
			if err := s.sleep(ctx, s.config.Suppress); err != nil {
				return err
			}
			scans = 0
			s.interval.Store(int64(s.config.Interval))
			s.clearUID()
		}

		if err := s.sleep(ctx, s.Interval()); err != nil {
			return err
		}

		if scans > s.config.IdleAfter && s.Interval() < s.config.IdleInterval {
			s.interval.Store(int64(s.config.IdleInterval))
			s.logger.Debug("no card for a while, slowing down scans",
				zap.Duration("interval", s.config.IdleInterval))
		}
	}
}

// scan reads one card. Errors other than an empty field are counted and
// logged; the loop keeps going either way.
func (s *CardScanner) scan(ctx context.Context) *rc522.Card {
	start := time.Now()
	card, err := s.reader.ReadCardUID(ctx)
	s.scanCycles.Add(1)
	s.lastScanLatency.Store(int64(time.Since(start)))

	switch {
	case err == nil:
		s.cardsDetected.Add(1)
		return card
	case errors.Is(err, rc522.ErrNoCard), ctx.Err() != nil:
		return nil
	case rc522.IsBusError(err):
		s.scanErrors.Add(1)
		s.logger.Warn("card reader bus error", zap.Error(err))
	default:
		s.scanErrors.Add(1)
		s.logger.Debug("card read failed", zap.Error(err), zap.Stringer("kind", rc522.KindOf(err)))
	}
	return nil
}

func (s *CardScanner) wake(ctx context.Context) {
	w, ok := s.reader.(Waker)
	if !ok {
		return
	}
	if err := w.Wake(ctx); err != nil && ctx.Err() == nil {
		s.logger.Debug("periodic wake failed", zap.Error(err))
	}
}

func (s *CardScanner) handleCard(ctx context.Context, card *rc522.Card) {
	s.logger.Info("card detected", zap.String("uid", card.UID.String()))
	if s.display != nil {
		s.display.ShowUID(card.UID)
	}

	authorized := s.authorizer != nil && s.authorizer.IsAuthorized(card.UID)
	if authorized {
		s.cardsAuthorized.Add(1)
		s.record(ctx, card.UID, true, "")
		s.showMessage("Card authorized!", holdAuthorized)
		s.unlock(ctx)
	} else {
		s.cardsDenied.Add(1)
		s.logger.Info("card not authorized", zap.String("uid", card.UID.String()))
		s.record(ctx, card.UID, false, "unknown card")
		s.showMessage("Card denied!", holdDenied)
	}

	if s.onCard != nil {
		s.onCard(card, authorized)
	}
}

func (s *CardScanner) unlock(ctx context.Context) {
	if s.door == nil {
		return
	}
	if err := s.door.Unlock(ctx); err != nil {
		s.logger.Error("unlock failed", zap.Error(err))
		return
	}
	s.showMessage(fmt.Sprintf("Auto-lock in %ds", int(s.config.AutoLock/time.Second)), 0)
	s.door.ScheduleLock(s.config.AutoLock)
}

func (s *CardScanner) record(ctx context.Context, uid rc522.CardUID, granted bool, detail string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordAccess(ctx, store.MethodCard, uid.String(), granted, detail); err != nil {
		s.logger.Warn("failed to record access", zap.Error(err))
	}
}

func (s *CardScanner) showMessage(text string, hold time.Duration) {
	if s.display != nil {
		s.display.ShowMessage(text, hold)
	}
}

func (s *CardScanner) clearUID() {
	if s.display != nil {
		s.display.ClearUID()
	}
}

// Interval returns the current pause between scans
func (s *CardScanner) Interval() time.Duration {
	return time.Duration(s.interval.Load())
}

// IsRunning reports whether Run is active
func (s *CardScanner) IsRunning() bool {
	return s.running.Load()
}

// GetMetrics returns current operational metrics
func (s *CardScanner) GetMetrics() Metrics {
	return Metrics{
		ScanCycles:      s.scanCycles.Load(),
		ScanErrors:      s.scanErrors.Load(),
		CardsDetected:   s.cardsDetected.Load(),
		CardsAuthorized: s.cardsAuthorized.Load(),
		CardsDenied:     s.cardsDenied.Load(),
		LastScanLatency: time.Duration(s.lastScanLatency.Load()),
	}
}
