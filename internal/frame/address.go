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

// Package frame encodes the MFRC522 register address byte for each host
// interface
package frame

// Address byte layout
const (
	// ReadFlag marks a read access on both SPI and UART
	ReadFlag = 0x80
	// AddressMask keeps the 6 bit register address
	AddressMask = 0x3F
	// spiAddressMask keeps the shifted address bits (bit 0 is reserved)
	spiAddressMask = 0x7E
)

// SPIAddress returns the SPI address byte: the register in bits 6..1,
// bit 0 zero and bit 7 set for reads.
func SPIAddress(reg byte, read bool) byte {
	addr := (reg << 1) & spiAddressMask
	if read {
		addr |= ReadFlag
	}
	return addr
}

// UARTAddress returns the UART address byte: the register in bits 5..0
// and bit 7 set for reads.
func UARTAddress(reg byte, read bool) byte {
	addr := reg & AddressMask
	if read {
		addr |= ReadFlag
	}
	return addr
}

// SPIRead builds the full-duplex transfer for reading reg. The register
// value is clocked out during the trailing zero byte.
func SPIRead(reg byte) []byte {
	return []byte{SPIAddress(reg, true), 0x00}
}

// SPIWrite builds the transfer for writing value to reg
func SPIWrite(reg, value byte) []byte {
	return []byte{SPIAddress(reg, false), value}
}
