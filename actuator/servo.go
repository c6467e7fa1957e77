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

// Package actuator drives the lock servo and the status LED over periph GPIO
package actuator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	rc522 "github.com/ZaparooProject/go-rc522"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
)

// Servo timing for a standard 180 degree hobby servo
const (
	MinPulse      = 500
	MaxPulse      = 2500
	LockedPulse   = 800
	UnlockedPulse = 2200

	DefaultMoveTime = time.Second
	Frequency       = 50 * physic.Hertz
	periodMicros    = 20000
)

// ErrPinNotFound is returned when a named GPIO does not exist
var ErrPinNotFound = errors.New("gpio pin not found")

// Pin is the part of a periph output pin the actuators use
type Pin interface {
	Out(l gpio.Level) error
	PWM(duty gpio.Duty, f physic.Frequency) error
}

// Actuator moves the lock mechanism
type Actuator interface {
	Move(ctx context.Context, pulseMicros int) error
	Stop() error
}

// OpenPin looks up a GPIO by name, e.g. "GPIO18"
func OpenPin(name string) (Pin, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	return pin, nil
}

// Servo is a PWM driven servo
type Servo struct {
	pin      Pin
	logger   *zap.Logger
	sleep    rc522.SleepFunc
	moveTime time.Duration
	mu       sync.Mutex
	pulse    int
}

// ServoOption configures a Servo
type ServoOption func(*Servo)

// WithMoveTime sets how long Move waits for the horn to reach position
func WithMoveTime(d time.Duration) ServoOption {
	return func(s *Servo) { s.moveTime = d }
}

// WithServoSleeper replaces the context-aware sleep used while moving
func WithServoSleeper(sleep rc522.SleepFunc) ServoOption {
	return func(s *Servo) { s.sleep = sleep }
}

// WithServoLogger sets the logger
func WithServoLogger(logger *zap.Logger) ServoOption {
	return func(s *Servo) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServo creates a servo on pin
func NewServo(pin Pin, opts ...ServoOption) *Servo {
	s := &Servo{
		pin:      pin,
		logger:   zap.NewNop(),
		sleep:    rc522.Sleep,
		moveTime: DefaultMoveTime,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClampPulse limits a pulse width to the servo's range
func ClampPulse(pulseMicros int) int {
	return min(max(pulseMicros, MinPulse), MaxPulse)
}

// DutyFor converts a pulse width to a 50 Hz duty cycle
func DutyFor(pulseMicros int) gpio.Duty {
	return gpio.Duty(int64(gpio.DutyMax) * int64(ClampPulse(pulseMicros)) / periodMicros)
}

// Move drives the servo to pulseMicros, clamped to [MinPulse, MaxPulse], and
// waits for the move time. The signal keeps running until Stop.
func (s *Servo) Move(ctx context.Context, pulseMicros int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pulse := ClampPulse(pulseMicros)
	if pulse != pulseMicros {
		s.logger.Warn("servo pulse clamped", zap.Int("requested", pulseMicros), zap.Int("pulse", pulse))
	}
	if err := s.pin.PWM(DutyFor(pulse), Frequency); err != nil {
		return fmt.Errorf("failed to drive servo to %dus: %w", pulse, err)
	}
	s.pulse = pulse
	s.logger.Debug("servo moving", zap.Int("pulse_us", pulse))
	return s.sleep(ctx, s.moveTime)
}

// Stop drops the PWM signal so the servo stops holding and jittering
func (s *Servo) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("failed to stop servo: %w", err)
	}
	return nil
}

// Pulse returns the last commanded pulse width
func (s *Servo) Pulse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pulse
}

var _ Actuator = (*Servo)(nil)
