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

// Package uart provides UART transport implementation for MFRC522
package uart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	rc522 "github.com/ZaparooProject/go-rc522"
	"github.com/ZaparooProject/go-rc522/internal/frame"
	"github.com/ZaparooProject/go-rc522/internal/transport"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the chip's power-on UART speed
	DefaultBaudRate = 9600

	defaultTimeout = 50 * time.Millisecond
	openRetries    = 3
	openRetryDelay = 100 * time.Millisecond
)

// ErrEchoMismatch is returned when the chip does not echo the address byte
// of a register write
var ErrEchoMismatch = errors.New("register write not echoed")

// Port is the part of a serial port the transport uses
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Transport implements the rc522.Transport interface for UART communication
type Transport struct {
	port     Port
	portName string
	timeout  time.Duration
	mu       sync.Mutex
}

// New opens the serial port with the chip's default framing (8N1)
func New(portName string) (*Transport, error) {
	return NewWithBaudRate(portName, DefaultBaudRate)
}

// NewWithBaudRate opens the serial port at the given speed. Opening is
// retried briefly since USB adapters can be busy right after enumeration.
func NewWithBaudRate(portName string, baud int) (*Transport, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := transport.WithRetry(context.Background(), transport.RetryConfig{
		Description: "open " + portName,
		MaxRetries:  openRetries,
		RetryDelay:  openRetryDelay,
	}, func() (serial.Port, bool, error) {
		p, openErr := serial.Open(portName, mode)
		if openErr == nil {
			return p, false, nil
		}
		var portErr *serial.PortError
		if errors.As(openErr, &portErr) && portErr.Code() == serial.PortBusy {
			return nil, true, nil
		}
		return nil, false, openErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open UART port %s: %w", portName, err)
	}

	t := NewWithPort(port, portName)
	if err := port.SetReadTimeout(t.timeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	return t, nil
}

// NewWithPort wraps an open port
func NewWithPort(port Port, portName string) *Transport {
	return &Transport{port: port, portName: portName, timeout: defaultTimeout}
}

// SetTimeout sets the per-byte response timeout
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timeout <= 0 {
		return rc522.ErrInvalidParameter
	}
	t.timeout = timeout
	if t.port != nil {
		return t.port.SetReadTimeout(timeout)
	}
	return nil
}

// ReadRegister sends the read address and waits for the register value
func (t *Transport) ReadRegister(reg byte) (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return 0, rc522.ErrTransportClosed
	}
	if err := t.port.ResetInputBuffer(); err != nil {
		return 0, fmt.Errorf("failed to reset input buffer: %w", err)
	}
	if _, err := t.port.Write([]byte{frame.UARTAddress(reg, true)}); err != nil {
		return 0, fmt.Errorf("UART write failed: %w", err)
	}
	return t.readByte()
}

// WriteRegister sends the write address and value, then checks the echo
func (t *Transport) WriteRegister(reg, value byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return rc522.ErrTransportClosed
	}
	if err := t.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("failed to reset input buffer: %w", err)
	}
	addr := frame.UARTAddress(reg, false)
	if _, err := t.port.Write([]byte{addr, value}); err != nil {
		return fmt.Errorf("UART write failed: %w", err)
	}
	echo, err := t.readByte()
	if err != nil {
		return err
	}
	if echo != addr {
		return fmt.Errorf("%w: sent 0x%02X, got 0x%02X", ErrEchoMismatch, addr, echo)
	}
	return nil
}

// readByte waits up to the timeout for one byte. A zero length read means
// the port read timeout elapsed without data.
func (t *Transport) readByte() (byte, error) {
	buf := make([]byte, 1)
	return transport.TimeoutRetry(context.Background(), t.timeout, func() (byte, bool, error) {
		n, err := t.port.Read(buf)
		if err != nil {
			return 0, false, fmt.Errorf("UART read failed: %w", err)
		}
		if n == 0 {
			return 0, true, nil
		}
		return buf[0], false, nil
	})
}

// Close closes the transport connection
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return fmt.Errorf("failed to close UART port %s: %w", t.portName, err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Port returns the serial port name
func (t *Transport) Port() string {
	return t.portName
}

// Type returns the transport type
func (*Transport) Type() rc522.TransportType {
	return rc522.TransportUART
}

// Ensure Transport implements rc522.Transport
var (
	_ rc522.Transport = (*Transport)(nil)
	_ rc522.Named     = (*Transport)(nil)
)
