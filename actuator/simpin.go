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
	"sync"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// SimPin is an in-memory Pin for simulation and tests
type SimPin struct {
	err    error
	logger *zap.Logger
	name   string
	levels []gpio.Level
	duty   gpio.Duty
	freq   physic.Frequency
	mu     sync.Mutex
	level  gpio.Level
}

// NewSimPin creates a simulated pin; a nil logger discards output
func NewSimPin(name string, logger *zap.Logger) *SimPin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimPin{name: name, logger: logger}
}

// Out implements Pin
func (p *SimPin) Out(l gpio.Level) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.level = l
	p.duty = 0
	p.levels = append(p.levels, l)
	p.logger.Debug("pin level", zap.String("pin", p.name), zap.Bool("high", bool(l)))
	return nil
}

// PWM implements Pin
func (p *SimPin) PWM(duty gpio.Duty, f physic.Frequency) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.duty = duty
	p.freq = f
	p.logger.Debug("pin pwm", zap.String("pin", p.name), zap.Stringer("duty", duty), zap.Stringer("freq", f))
	return nil
}

// SetError makes every following call fail with err
func (p *SimPin) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Duty returns the current PWM duty, zero after Out
func (p *SimPin) Duty() gpio.Duty {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duty
}

// Frequency returns the last PWM frequency
func (p *SimPin) Frequency() physic.Frequency {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.freq
}

// Level returns the last driven level
func (p *SimPin) Level() gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Levels returns every level driven with Out
func (p *SimPin) Levels() []gpio.Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]gpio.Level(nil), p.levels...)
}

var _ Pin = (*SimPin)(nil)
