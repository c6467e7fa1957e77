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

package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSPIAddress(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		reg  byte
		read bool
		want byte
	}{
		{name: "write command", reg: 0x01, read: false, want: 0x02},
		{name: "read command", reg: 0x01, read: true, want: 0x82},
		{name: "read version", reg: 0x37, read: true, want: 0xEE},
		{name: "write fifo data", reg: 0x09, read: false, want: 0x12},
		{name: "highest register", reg: 0x3F, read: true, want: 0xFE},
		{name: "out of range bits dropped", reg: 0x41, read: false, want: 0x02},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SPIAddress(tt.reg, tt.read))
		})
	}
}

func TestUARTAddress(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		reg  byte
		read bool
		want byte
	}{
		{name: "write command", reg: 0x01, read: false, want: 0x01},
		{name: "read version", reg: 0x37, read: true, want: 0xB7},
		{name: "read comirq", reg: 0x04, read: true, want: 0x84},
		{name: "out of range bits dropped", reg: 0x7F, read: false, want: 0x3F},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, UARTAddress(tt.reg, tt.read))
		})
	}
}

func TestSPITransfers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{0xEE, 0x00}, SPIRead(0x37))
	assert.Equal(t, []byte{0x28, 0x83}, SPIWrite(0x14, 0x83))
}
