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

// Package keypad scans a 4x4 membrane keypad and turns presses into key
// events
package keypad

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	rc522 "github.com/ZaparooProject/go-rc522"
	"go.uber.org/zap"
)

// Key is a keypad character
type Key byte

// Control keys
const (
	KeySubmit Key = '#'
	KeyClear  Key = '*'
)

// String returns the key as text
func (k Key) String() string {
	return string(rune(k))
}

// IsDigit reports whether k is 0-9
func (k Key) IsDigit() bool {
	return k >= '0' && k <= '9'
}

// Size is the matrix dimension
const Size = 4

// Layout maps row and column to key
var Layout = [Size][Size]Key{
	{'1', '2', '3', 'A'},
	{'4', '5', '6', 'B'},
	{'7', '8', '9', 'C'},
	{'*', '0', '#', 'D'},
}

// Valid reports whether k is on the keypad
func Valid(k Key) bool {
	for _, row := range Layout {
		for _, key := range row {
			if key == k {
				return true
			}
		}
	}
	return false
}

// ParseKeys converts a typed line into keys. It returns false when the line
// holds anything that is not a keypad character.
func ParseKeys(line string) ([]Key, bool) {
	line = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(line), " ", ""))
	if line == "" {
		return nil, false
	}
	keys := make([]Key, 0, len(line))
	for i := 0; i < len(line); i++ {
		k := Key(line[i])
		if !Valid(k) {
			return nil, false
		}
		keys = append(keys, k)
	}
	return keys, true
}

// Source produces key events until ctx ends, then closes the channel
type Source interface {
	Events(ctx context.Context) <-chan Key
}

// Matrix is the electrical side of the keypad. An active row is driven
// low; a pressed key pulls its column low.
type Matrix interface {
	SetRow(row int, active bool) error
	Pressed(col int) (bool, error)
}

// Timing controls the scan cadence
type Timing struct {
	RowSettle   time.Duration
	ReleasePoll time.Duration
	Debounce    time.Duration
	Interval    time.Duration
}

// DefaultTiming returns the timings the keypad was tuned with
func DefaultTiming() Timing {
	return Timing{
		RowSettle:   5 * time.Millisecond,
		ReleasePoll: 10 * time.Millisecond,
		Debounce:    50 * time.Millisecond,
		Interval:    50 * time.Millisecond,
	}
}

// Scanner polls a Matrix
type Scanner struct {
	matrix  Matrix
	sleep   rc522.SleepFunc
	logger  *zap.Logger
	timing  Timing
	running sync.Mutex
}

// Option configures a Scanner
type Option func(*Scanner)

// WithTiming overrides DefaultTiming
func WithTiming(t Timing) Option {
	return func(s *Scanner) { s.timing = t }
}

// WithSleeper replaces the context-aware sleep
func WithSleeper(sleep rc522.SleepFunc) Option {
	return func(s *Scanner) { s.sleep = sleep }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScanner creates a scanner over m
func NewScanner(m Matrix, opts ...Option) *Scanner {
	s := &Scanner{
		matrix: m,
		sleep:  rc522.Sleep,
		logger: zap.NewNop(),
		timing: DefaultTiming(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan makes one pass over the matrix. When a key is down it waits for the
// release and the debounce time before returning it, so a held key yields
// a single event.
func (s *Scanner) Scan(ctx context.Context) (Key, bool, error) {
	for row := 0; row < Size; row++ {
		key, ok, err := s.scanRow(ctx, row)
		if err != nil || ok {
			return key, ok, err
		}
	}
	return 0, false, nil
}

func (s *Scanner) scanRow(ctx context.Context, row int) (key Key, ok bool, err error) {
	if err := s.matrix.SetRow(row, true); err != nil {
		return 0, false, fmt.Errorf("failed to drive row %d: %w", row, err)
	}
	defer func() {
		if relErr := s.matrix.SetRow(row, false); relErr != nil && err == nil {
			err = fmt.Errorf("failed to release row %d: %w", row, relErr)
		}
	}()

	if err := s.sleep(ctx, s.timing.RowSettle); err != nil {
		return 0, false, err
	}
	for col := 0; col < Size; col++ {
		pressed, err := s.matrix.Pressed(col)
		if err != nil {
			return 0, false, fmt.Errorf("failed to read column %d: %w", col, err)
		}
		if !pressed {
			continue
		}
		if err := s.waitRelease(ctx, col); err != nil {
			return 0, false, err
		}
		if err := s.sleep(ctx, s.timing.Debounce); err != nil {
			return 0, false, err
		}
		return Layout[row][col], true, nil
	}
	return 0, false, nil
}

func (s *Scanner) waitRelease(ctx context.Context, col int) error {
	for {
		pressed, err := s.matrix.Pressed(col)
		if err != nil {
			return fmt.Errorf("failed to read column %d: %w", col, err)
		}
		if !pressed {
			return nil
		}
		if err := s.sleep(ctx, s.timing.ReleasePoll); err != nil {
			return err
		}
	}
}

// Events scans until ctx ends. Only one scan loop runs at a time; a second
// call starts once the first has stopped.
func (s *Scanner) Events(ctx context.Context) <-chan Key {
	out := make(chan Key)
	go func() {
		s.running.Lock()
		defer s.running.Unlock()
		defer close(out)

		for ctx.Err() == nil {
			key, ok, err := s.Scan(ctx)
			switch {
			case err != nil && ctx.Err() == nil:
				s.logger.Warn("keypad scan failed", zap.Error(err))
			case ok:
				s.logger.Debug("key pressed", zap.Stringer("key", key))
				select {
				case out <- key:
				case <-ctx.Done():
					return
				}
			}
			if err := s.sleep(ctx, s.timing.Interval); err != nil {
				return
			}
		}
	}()
	return out
}

var _ Source = (*Scanner)(nil)
