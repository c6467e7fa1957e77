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

// Package spi provides SPI transport implementation for MFRC522
package spi

import (
	"errors"
	"fmt"
	"sync"
	"time"

	rc522 "github.com/ZaparooProject/go-rc522"
	"github.com/ZaparooProject/go-rc522/internal/frame"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// DefaultSpeed is a conservative clock that works over breadboard wiring.
	// The chip accepts up to 10 MHz.
	DefaultSpeed = 4 * physic.MegaHertz
	maxSpeed     = 10 * physic.MegaHertz

	resetLowTime    = time.Millisecond
	resetSettleTime = 50 * time.Millisecond
)

// Conn is the part of a periph SPI connection the transport uses
type Conn interface {
	Tx(w, r []byte) error
}

// Transport implements the rc522.Transport interface for SPI communication
type Transport struct {
	conn      Conn
	port      spi.PortCloser
	resetPin  gpio.PinOut
	path      string
	resetName string
	speed     physic.Frequency
	mu        sync.Mutex
	closed    bool
}

// Option configures the SPI transport
type Option func(*Transport) error

// WithSpeed sets the SPI clock
func WithSpeed(speed physic.Frequency) Option {
	return func(t *Transport) error {
		if speed <= 0 || speed > maxSpeed {
			return fmt.Errorf("%w: SPI speed %s outside (0, %s]", rc522.ErrInvalidParameter, speed, maxSpeed)
		}
		t.speed = speed
		return nil
	}
}

// WithResetPin names the GPIO wired to the chip's NRSTPD pin, e.g. "GPIO25"
func WithResetPin(name string) Option {
	return func(t *Transport) error {
		t.resetName = name
		return nil
	}
}

// New opens the SPI port at path (e.g. "/dev/spidev0.0" or "SPI0.0")
func New(path string, opts ...Option) (*Transport, error) {
	t := &Transport{path: path, speed: DefaultSpeed}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	port, err := spireg.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %s: %w", path, err)
	}

	conn, err := port.Connect(t.speed, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to configure SPI port %s: %w", path, err)
	}
	t.port = port
	t.conn = conn

	if t.resetName != "" {
		pin := gpioreg.ByName(t.resetName)
		if pin == nil {
			_ = port.Close()
			return nil, fmt.Errorf("reset pin %s not found", t.resetName)
		}
		if err := pin.Out(gpio.High); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("failed to drive reset pin %s: %w", t.resetName, err)
		}
		t.resetPin = pin
	}

	return t, nil
}

// NewWithConn wraps an already configured connection. The caller keeps
// ownership of the underlying port.
func NewWithConn(conn Conn, path string) *Transport {
	return &Transport{conn: conn, path: path, speed: DefaultSpeed}
}

// ReadRegister reads a single register
func (t *Transport) ReadRegister(reg byte) (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.check(); err != nil {
		return 0, err
	}
	w := frame.SPIRead(reg)
	r := make([]byte, len(w))
	if err := t.conn.Tx(w, r); err != nil {
		return 0, fmt.Errorf("SPI read transfer failed: %w", err)
	}
	return r[1], nil
}

// WriteRegister writes a single register
func (t *Transport) WriteRegister(reg, value byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.check(); err != nil {
		return err
	}
	if err := t.conn.Tx(frame.SPIWrite(reg, value), nil); err != nil {
		return fmt.Errorf("SPI write transfer failed: %w", err)
	}
	return nil
}

func (t *Transport) check() error {
	if t.closed {
		return rc522.ErrTransportClosed
	}
	if t.conn == nil {
		return errors.New("SPI transport not connected")
	}
	return nil
}

// HardReset pulses the reset line when a reset pin is configured
func (t *Transport) HardReset() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.resetPin == nil {
		return nil
	}
	if err := t.resetPin.Out(gpio.Low); err != nil {
		return fmt.Errorf("failed to assert reset: %w", err)
	}
	time.Sleep(resetLowTime)
	if err := t.resetPin.Out(gpio.High); err != nil {
		return fmt.Errorf("failed to release reset: %w", err)
	}
	time.Sleep(resetSettleTime)
	return nil
}

// Close closes the transport connection
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	if t.port != nil {
		if err := t.port.Close(); err != nil {
			return fmt.Errorf("failed to close SPI port %s: %w", t.path, err)
		}
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil && !t.closed
}

// Port returns the SPI port path
func (t *Transport) Port() string {
	return t.path
}

// Type returns the transport type
func (*Transport) Type() rc522.TransportType {
	return rc522.TransportSPI
}

// Ensure Transport implements rc522.Transport
var (
	_ rc522.Transport = (*Transport)(nil)
	_ rc522.Resetter  = (*Transport)(nil)
	_ rc522.Named     = (*Transport)(nil)
)
