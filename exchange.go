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
	"fmt"

	"go.uber.org/zap"
)

// exchangeResult holds the bytes and bit count received from a card
type exchangeResult struct {
	data []byte
	bits int
}

// waitMask returns the ComIrq bits that mark completion of cmd
func waitMask(cmd byte) byte {
	switch cmd {
	case CmdTransceive:
		return irqRx | irqIdle
	case CmdMFAuthent:
		return irqIdle
	default:
		return irqIdle
	}
}

// classifyError maps the chip error register to a protocol error. Only the
// bits in errMask fail the exchange.
func classifyError(op string, errReg byte) error {
	switch {
	case errReg&errOverflow != 0:
		return newProtocolError(op, KindOverflow, ErrBufferOverflow)
	case errReg&errColl != 0:
		return newProtocolError(op, KindCollision, ErrCollision)
	case errReg&errParity != 0:
		return newProtocolError(op, KindParity, ErrParity)
	case errReg&errProtocol != 0:
		return newProtocolError(op, KindProtocol, ErrProtocol)
	default:
		return nil
	}
}

// communicate loads send into the FIFO, runs cmd and collects the response.
// StartSend is always cleared again once the wait ends, even on timeout.
func (d *Device) communicate(ctx context.Context, op string, cmd byte, send []byte) (*exchangeResult, error) {
	wait := waitMask(cmd)

	err := d.writeSequence(ctx,
		[2]byte{RegControl, controlTStopNow},
		[2]byte{RegFIFOLevel, fifoFlush},
		[2]byte{RegCommand, CmdIdle},
		[2]byte{RegComIrq, irqAll},
	)
	if err != nil {
		return nil, err
	}
	for _, b := range send {
		if err := d.WriteRegister(ctx, RegFIFOData, b); err != nil {
			return nil, err
		}
	}
	if err := d.WriteRegister(ctx, RegCommand, cmd); err != nil {
		return nil, err
	}
	if cmd == CmdTransceive {
		if err := d.SetBits(ctx, RegBitFraming, bitFramingStartSend); err != nil {
			return nil, err
		}
	}

	var irq byte
	pollErr := d.poller.Poll(ctx, func() (bool, error) {
		value, err := d.ReadRegister(ctx, RegComIrq)
		if err != nil {
			return false, err
		}
		irq = value
		return irq&irqTimer != 0 || irq&wait != 0, nil
	})

	if cmd == CmdTransceive {
		if err := d.ClearBits(ctx, RegBitFraming, bitFramingStartSend); err != nil && pollErr == nil {
			return nil, err
		}
	}
	if pollErr != nil {
		if IsProtocolError(pollErr) {
			return nil, newProtocolError(op, KindTimeout, ErrTimeout)
		}
		return nil, pollErr
	}

	errReg, err := d.ReadRegister(ctx, RegError)
	if err != nil {
		return nil, err
	}
	if errReg&errMask != 0 {
		return nil, classifyError(op, errReg)
	}

	if irq&wait == 0 {
		d.logger.Debug("command ended on timer",
			zap.String("op", op),
			zap.String("irq", fmt.Sprintf("0x%02X", irq)))
		return nil, newProtocolError(op, KindTimeout, ErrTimeout)
	}

	result := &exchangeResult{}
	if cmd != CmdTransceive {
		return result, nil
	}

	level, err := d.ReadRegister(ctx, RegFIFOLevel)
	if err != nil {
		return nil, err
	}
	control, err := d.ReadRegister(ctx, RegControl)
	if err != nil {
		return nil, err
	}
	lastBits := int(control & controlRxBits)
	n := int(level & 0x7F)
	if lastBits != 0 && n > 0 {
		result.bits = (n-1)*8 + lastBits
	} else {
		result.bits = n * 8
	}

	if n == 0 {
		n = 1
	}
	if n > fifoReadLimit {
		n = fifoReadLimit
	}
	result.data = make([]byte, n)
	for i := range result.data {
		b, err := d.ReadRegister(ctx, RegFIFOData)
		if err != nil {
			return nil, err
		}
		result.data[i] = b
	}
	return result, nil
}
