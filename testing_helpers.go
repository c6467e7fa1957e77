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
	"context"
	"sync"
	"time"
)

// SimResponse is what the simulated chip receives from the field in answer
// to a frame. A nil *SimResponse means nothing answered and the chip timer
// fires.
type SimResponse struct {
	Data       []byte
	LastBits   byte
	ErrorFlags byte
}

// VirtualCard is a single size ISO14443A card for the simulated field
type VirtualCard struct {
	// BCCOverride replaces the check byte sent during anticollision
	BCCOverride *byte
	UID         CardUID
	ATQA        [2]byte
	SAK         byte
	// ErrorFlags are raised in the error register on every answer
	ErrorFlags byte
	Present    bool
	Halted     bool
}

// NewVirtualCard returns a present MIFARE Classic 1K style card
func NewVirtualCard(uid CardUID) *VirtualCard {
	return &VirtualCard{
		UID:     uid,
		ATQA:    [2]byte{0x04, 0x00},
		SAK:     0x08,
		Present: true,
	}
}

func (c *VirtualCard) respond(frame []byte, txBits byte) *SimResponse {
	if c == nil || !c.Present || len(frame) == 0 {
		return nil
	}

	switch {
	case len(frame) == 1 && txBits == bitFramingShort && frame[0] == PICCWupA:
		c.Halted = false
		return &SimResponse{Data: c.ATQA[:], ErrorFlags: c.ErrorFlags}
	case len(frame) == 1 && txBits == bitFramingShort && frame[0] == PICCReqA:
		if c.Halted {
			return nil
		}
		return &SimResponse{Data: c.ATQA[:], ErrorFlags: c.ErrorFlags}
	case len(frame) == 2 && frame[0] == PICCSelectL1 && frame[1] == nvbAnticollision:
		bcc := c.UID.BCC()
		if c.BCCOverride != nil {
			bcc = *c.BCCOverride
		}
		data := append(c.UID.Bytes(), bcc)
		return &SimResponse{Data: data, ErrorFlags: c.ErrorFlags}
	case len(frame) == 7 && frame[0] == PICCSelectL1 && frame[1] == nvbSelect:
		var uid CardUID
		copy(uid[:], frame[2:6])
		if uid != c.UID || frame[6] != c.UID.BCC() {
			return nil
		}
		return &SimResponse{Data: []byte{c.SAK}, ErrorFlags: c.ErrorFlags}
	case len(frame) == 2 && frame[0] == PICCHalt:
		c.Halted = true
		return nil
	}
	return nil
}

// MockTransport simulates an MFRC522 register file with a FIFO, interrupt
// flags and a field holding at most one VirtualCard. Frames are processed
// when StartSend is set while the Transceive command is active.
type MockTransport struct {
	readErrors   map[byte]error
	writeErrors  map[byte]error
	writeCounts  map[byte]int
	ResponseFunc func(frame []byte, txBits byte) *SimResponse
	card         *VirtualCard
	fifo         []byte
	frames       [][]byte
	regs         [int(maxRegister) + 1]byte
	mu           sync.Mutex
	version      byte
	antennaStuck bool
	stalled      bool
	closed       bool
}

// NewMockTransport creates a simulated chip reporting version 0x92
func NewMockTransport() *MockTransport {
	m := &MockTransport{
		readErrors:  make(map[byte]error),
		writeErrors: make(map[byte]error),
		writeCounts: make(map[byte]int),
		version:     VersionV2,
	}
	m.softReset()
	return m
}

func (m *MockTransport) softReset() {
	m.regs = [int(maxRegister) + 1]byte{}
	m.regs[RegTxControl] = 0x80
	m.fifo = nil
}

// ReadRegister implements Transport
func (m *MockTransport) ReadRegister(reg byte) (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrTransportClosed
	}
	if err := m.readErrors[reg]; err != nil {
		return 0, err
	}

	switch reg {
	case RegFIFOData:
		if len(m.fifo) == 0 {
			return 0, nil
		}
		b := m.fifo[0]
		m.fifo = m.fifo[1:]
		return b, nil
	case RegFIFOLevel:
		return byte(len(m.fifo)), nil
	case RegVersion:
		return m.version, nil
	default:
		return m.regs[reg&maxRegister], nil
	}
}

// WriteRegister implements Transport
func (m *MockTransport) WriteRegister(reg, value byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrTransportClosed
	}
	if err := m.writeErrors[reg]; err != nil {
		return err
	}
	m.writeCounts[reg]++

	switch reg {
	case RegFIFOData:
		if len(m.fifo) < 64 {
			m.fifo = append(m.fifo, value)
		} else {
			m.regs[RegError] |= errOverflow
		}
	case RegFIFOLevel:
		if value&fifoFlush != 0 {
			m.fifo = nil
		}
	case RegComIrq:
		// bit 7 selects whether the marked bits are set or cleared
		if value&0x80 != 0 {
			m.regs[RegComIrq] |= value & irqAll
		} else {
			m.regs[RegComIrq] &^= value & irqAll
		}
	case RegCommand:
		if value&0x0F == CmdSoftReset {
			m.softReset()
			return nil
		}
		m.regs[RegCommand] = value
	case RegTxControl:
		if m.antennaStuck {
			value &^= txControlAntenna
		}
		m.regs[RegTxControl] = value
	case RegBitFraming:
		m.regs[RegBitFraming] = value
		if value&bitFramingStartSend != 0 && m.regs[RegCommand]&0x0F == CmdTransceive {
			m.transceive()
		}
	case RegVersion:
	default:
		m.regs[reg&maxRegister] = value
	}
	return nil
}

func (m *MockTransport) transceive() {
	frame := append([]byte(nil), m.fifo...)
	txBits := m.regs[RegBitFraming] & bitFramingShort
	m.fifo = nil
	m.regs[RegError] &= errOverflow
	m.frames = append(m.frames, frame)

	if m.stalled {
		return
	}

	var resp *SimResponse
	switch {
	case m.ResponseFunc != nil:
		resp = m.ResponseFunc(frame, txBits)
	case m.regs[RegTxControl]&txControlAntenna == txControlAntenna:
		resp = m.card.respond(frame, txBits)
	}

	if resp == nil {
		m.regs[RegComIrq] |= irqTimer
		return
	}

	m.fifo = append(m.fifo, resp.Data...)
	m.regs[RegControl] = (m.regs[RegControl] &^ controlRxBits) | (resp.LastBits & controlRxBits)
	m.regs[RegError] |= resp.ErrorFlags
	m.regs[RegComIrq] |= irqRx | irqIdle
	if resp.ErrorFlags != 0 {
		m.regs[RegComIrq] |= irqErr
	}
}

// Close implements Transport
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsConnected implements Transport
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns TransportMock
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// SetCard places a card in the field; nil empties the field
func (m *MockTransport) SetCard(card *VirtualCard) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.card = card
}

// RemoveCard takes the current card out of the field
func (m *MockTransport) RemoveCard() {
	m.SetCard(nil)
}

// SetVersion changes the value reported by the version register
func (m *MockTransport) SetVersion(version byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version = version
}

// SetAntennaStuck makes the antenna driver bits refuse to latch
func (m *MockTransport) SetAntennaStuck(stuck bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.antennaStuck = stuck
}

// SetStalled makes transmitted frames raise no interrupt at all, as if the
// chip timer were not running
func (m *MockTransport) SetStalled(stalled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stalled = stalled
}

// InjectReadError makes reads of reg fail with err; nil clears it
func (m *MockTransport) InjectReadError(reg byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.readErrors, reg)
		return
	}
	m.readErrors[reg] = err
}

// InjectWriteError makes writes of reg fail with err; nil clears it
func (m *MockTransport) InjectWriteError(reg byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.writeErrors, reg)
		return
	}
	m.writeErrors[reg] = err
}

// Register returns the raw stored value of reg
func (m *MockTransport) Register(reg byte) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[reg&maxRegister]
}

// WriteCount returns how many times reg has been written
func (m *MockTransport) WriteCount(reg byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeCounts[reg]
}

// Frames returns every frame transmitted to the field so far
func (m *MockTransport) Frames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.frames))
	for i, f := range m.frames {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// ResetFrames clears the transmitted frame log
func (m *MockTransport) ResetFrames() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = nil
}

// NoSleep is a SleepFunc that returns immediately unless ctx is done
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
