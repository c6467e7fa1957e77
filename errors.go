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

import (
	"errors"
	"fmt"
)

// Device errors
var (
	ErrNoCard           = errors.New("no card in field")
	ErrTimeout          = errors.New("command timeout")
	ErrChecksumMismatch = errors.New("uid checksum mismatch")
	ErrCollision        = errors.New("bit collision detected")
	ErrBufferOverflow   = errors.New("fifo buffer overflow")
	ErrParity           = errors.New("parity error")
	ErrProtocol         = errors.New("protocol error")
	ErrCRC              = errors.New("crc error")
	ErrShortResponse    = errors.New("response too short")
	ErrSelectFailed     = errors.New("card selection failed")
	ErrSessionState     = errors.New("operation not allowed in current session state")
)

// Driver and transport errors
var (
	ErrAntenna          = errors.New("antenna did not power on")
	ErrNoChip           = errors.New("transceiver not responding")
	ErrTransportClosed  = errors.New("transport closed")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidUID       = errors.New("invalid card uid")
)

// ErrorKind classifies driver errors for retry and logging decisions
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindBus
	KindTimeout
	KindCRC
	KindChecksum
	KindCollision
	KindOverflow
	KindParity
	KindProtocol
	KindNoCard
	KindSelect
)

func (k ErrorKind) String() string {
	switch k {
	case KindBus:
		return "bus"
	case KindTimeout:
		return "timeout"
	case KindCRC:
		return "crc"
	case KindChecksum:
		return "checksum"
	case KindCollision:
		return "collision"
	case KindOverflow:
		return "overflow"
	case KindParity:
		return "parity"
	case KindProtocol:
		return "protocol"
	case KindNoCard:
		return "no_card"
	case KindSelect:
		return "select"
	default:
		return "unknown"
	}
}

// BusError reports a failed register access. The operation that hit it is
// aborted and not retried at the register layer.
type BusError struct {
	Err  error
	Op   string
	Port string
	Reg  byte
}

func (e *BusError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s register 0x%02X on %s: %v", e.Op, e.Reg, e.Port, e.Err)
	}
	return fmt.Sprintf("%s register 0x%02X: %v", e.Op, e.Reg, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// ProtocolError reports a failed card exchange: timeouts, checksum and CRC
// failures, collisions. These drive the retry and backoff policy.
type ProtocolError struct {
	Err  error
	Op   string
	Kind ErrorKind
	Bits int
}

func (e *ProtocolError) Error() string {
	if e.Bits > 0 {
		return fmt.Sprintf("%s: %v (%d bits)", e.Op, e.Err, e.Bits)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NewBusError wraps a transport failure for the given register
func NewBusError(op, port string, reg byte, err error) *BusError {
	return &BusError{Op: op, Port: port, Reg: reg, Err: err}
}

func newProtocolError(op string, kind ErrorKind, err error) *ProtocolError {
	return &ProtocolError{Op: op, Kind: kind, Err: err}
}

// IsBusError reports whether err contains a register access failure
func IsBusError(err error) bool {
	var busErr *BusError
	return errors.As(err, &busErr)
}

// IsProtocolError reports whether err contains a card exchange failure
func IsProtocolError(err error) bool {
	var protoErr *ProtocolError
	return errors.As(err, &protoErr)
}

// IsRetryable reports whether a later scan cycle may succeed where this one
// failed. Protocol errors are retryable; bus errors are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsBusError(err) {
		return false
	}
	if IsProtocolError(err) {
		return true
	}
	return errors.Is(err, ErrNoCard) || errors.Is(err, ErrTimeout)
}

// KindOf returns the classification of err
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var busErr *BusError
	if errors.As(err, &busErr) {
		return KindBus
	}
	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		return protoErr.Kind
	}
	return KindUnknown
}
