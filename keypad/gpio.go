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

package keypad

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// ErrPinNotFound is returned when a named GPIO does not exist
var ErrPinNotFound = errors.New("gpio pin not found")

// GPIOMatrix drives the rows as outputs and reads the columns with pull-ups
type GPIOMatrix struct {
	rows [Size]gpio.PinOut
	cols [Size]gpio.PinIn
}

// NewGPIOMatrix configures the named pins, rows top to bottom and columns
// left to right. host.Init must have been called.
func NewGPIOMatrix(rowNames, colNames []string) (*GPIOMatrix, error) {
	if len(rowNames) != Size || len(colNames) != Size {
		return nil, fmt.Errorf("keypad needs %d rows and %d columns, got %d and %d",
			Size, Size, len(rowNames), len(colNames))
	}
	m := &GPIOMatrix{}
	for i, name := range rowNames {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("%w: row %s", ErrPinNotFound, name)
		}
		if err := pin.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("failed to configure row %s: %w", name, err)
		}
		m.rows[i] = pin
	}
	for i, name := range colNames {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("%w: column %s", ErrPinNotFound, name)
		}
		if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("failed to configure column %s: %w", name, err)
		}
		m.cols[i] = pin
	}
	return m, nil
}

// SetRow implements Matrix
func (m *GPIOMatrix) SetRow(row int, active bool) error {
	return m.rows[row].Out(gpio.Level(!active))
}

// Pressed implements Matrix
func (m *GPIOMatrix) Pressed(col int) (bool, error) {
	return m.cols[col].Read() == gpio.Low, nil
}

var _ Matrix = (*GPIOMatrix)(nil)
