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

package rc522

// Transport defines the interface for register access on an MFRC522.
// Each call is one complete bus exchange; framing of the address byte is the
// transport's concern. This can be implemented by SPI or UART backends.
type Transport interface {
	// ReadRegister reads a single register
	ReadRegister(reg byte) (byte, error)

	// WriteRegister writes a single register
	WriteRegister(reg, value byte) error

	// Close closes the transport connection
	Close() error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportSPI represents SPI bus transport.
	TransportSPI TransportType = "spi"
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// Resetter is implemented by transports that control the chip's NRSTPD pin
type Resetter interface {
	// HardReset pulls the reset line low and releases it
	HardReset() error
}

// Named is implemented by transports that can describe the port they use
type Named interface {
	Port() string
}

func portName(t Transport) string {
	if n, ok := t.(Named); ok {
		return n.Port()
	}
	return string(t.Type())
}
