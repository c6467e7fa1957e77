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

package actuator

import (
	"context"
	"fmt"
	"sync"
	"time"

	rc522 "github.com/ZaparooProject/go-rc522"
	"periph.io/x/conn/v3/gpio"
)

// Pattern is a blink sequence
type Pattern struct {
	Times int
	On    time.Duration
	Off   time.Duration
}

// Feedback patterns
var (
	PatternKeyPress = Pattern{Times: 1, On: 50 * time.Millisecond}
	PatternCorrect  = Pattern{Times: 3, On: 100 * time.Millisecond, Off: 100 * time.Millisecond}
	PatternWrong    = Pattern{Times: 5, On: 50 * time.Millisecond, Off: 50 * time.Millisecond}
	PatternLockout  = Pattern{Times: 10, On: 200 * time.Millisecond, Off: 200 * time.Millisecond}
	PatternStartup  = PatternCorrect
)

// Indicator is a status light
type Indicator interface {
	Set(on bool) error
	Flash(ctx context.Context, p Pattern) error
}

// LED is a single GPIO driven LED. Flash leaves the LED off.
type LED struct {
	pin   Pin
	sleep rc522.SleepFunc
	mu    sync.Mutex
	on    bool
}

// NewLED creates an LED on pin
func NewLED(pin Pin) *LED {
	return &LED{pin: pin, sleep: rc522.Sleep}
}

// NewLEDWithSleeper creates an LED with a replaced sleep
func NewLEDWithSleeper(pin Pin, sleep rc522.SleepFunc) *LED {
	return &LED{pin: pin, sleep: sleep}
}

// Set turns the LED on or off
func (l *LED) Set(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.set(on)
}

func (l *LED) set(on bool) error {
	if err := l.pin.Out(gpio.Level(on)); err != nil {
		return fmt.Errorf("failed to set LED: %w", err)
	}
	l.on = on
	return nil
}

// Flash plays p
func (l *LED) Flash(ctx context.Context, p Pattern) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := 0; i < p.Times; i++ {
		if err := l.set(true); err != nil {
			return err
		}
		if err := l.sleep(ctx, p.On); err != nil {
			_ = l.set(false)
			return err
		}
		if err := l.set(false); err != nil {
			return err
		}
		if p.Off > 0 {
			if err := l.sleep(ctx, p.Off); err != nil {
				return err
			}
		}
	}
	return nil
}

// On reports whether the LED is lit
func (l *LED) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

var _ Indicator = (*LED)(nil)
