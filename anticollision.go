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
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SessionState is the position of a scan cycle in the ISO14443A activation
// sequence
type SessionState int

const (
	StateIdle SessionState = iota
	StateWoken
	StateRequested
	StateAntiCollided
	StateSelected
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWoken:
		return "woken"
	case StateRequested:
		return "requested"
	case StateAntiCollided:
		return "anticollided"
	case StateSelected:
		return "selected"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// RequestMode selects which cards answer a request
type RequestMode byte

const (
	// RequestIdle (REQA) wakes only cards in the IDLE state
	RequestIdle RequestMode = RequestMode(PICCReqA)
	// RequestAll (WUPA) also wakes HALTed cards
	RequestAll RequestMode = RequestMode(PICCWupA)
)

func (m RequestMode) String() string {
	switch m {
	case RequestIdle:
		return "REQA"
	case RequestAll:
		return "WUPA"
	default:
		return fmt.Sprintf("0x%02X", byte(m))
	}
}

// Session tracks one scan cycle: wake, request, anticollision and select.
// Each step is only valid from the state the previous step leaves behind;
// any failure moves the session to StateFailed.
type Session struct {
	device  *Device
	state   SessionState
	ATQA    uint16
	UID     CardUID
	SAK     byte
	Retries int
}

// NewSession starts a scan cycle in StateIdle
func (d *Device) NewSession() *Session {
	return &Session{device: d, state: StateIdle}
}

// State returns the current session state
func (s *Session) State() SessionState {
	return s.state
}

func (s *Session) require(op string, allowed ...SessionState) error {
	for _, st := range allowed {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("%s in state %s: %w", op, s.state, ErrSessionState)
}

func (s *Session) fail(err error) error {
	s.state = StateFailed
	return err
}

// Wake energizes the field and sends a burst of short WUPA frames so cards
// that just entered the field have time to power up. Frame results are ignored.
func (s *Session) Wake(ctx context.Context) error {
	if err := s.require("wake", StateIdle, StateWoken); err != nil {
		return err
	}
	if err := s.device.wake(ctx); err != nil {
		return s.fail(err)
	}
	s.state = StateWoken
	return nil
}

// Request sends REQA or WUPA as a 7-bit short frame and stores the ATQA
func (s *Session) Request(ctx context.Context, mode RequestMode) error {
	if err := s.require("request", StateIdle, StateWoken); err != nil {
		return err
	}
	atqa, attempts, err := s.device.request(ctx, mode)
	s.Retries += attempts
	if err != nil {
		return s.fail(err)
	}
	s.ATQA = atqa
	s.state = StateRequested
	return nil
}

// Anticollision runs cascade level 1 anticollision and stores the UID once
// its check byte has been verified.
func (s *Session) Anticollision(ctx context.Context) error {
	if err := s.require("anticollision", StateRequested); err != nil {
		return err
	}
	uid, err := s.device.anticollision(ctx)
	if err != nil {
		return s.fail(err)
	}
	s.UID = uid
	s.state = StateAntiCollided
	return nil
}

// Select selects the card with the given UID and stores its SAK
func (s *Session) Select(ctx context.Context, uid CardUID) error {
	if err := s.require("select", StateAntiCollided); err != nil {
		return err
	}
	sak, err := s.device.selectCard(ctx, uid)
	if err != nil {
		return s.fail(err)
	}
	s.SAK = sak
	s.state = StateSelected
	return nil
}

// Card returns the selected card, or nil before StateSelected
func (s *Session) Card() *Card {
	if s.state != StateSelected {
		return nil
	}
	return &Card{
		UID:        s.UID,
		ATQA:       s.ATQA,
		SAK:        s.SAK,
		DetectedAt: time.Now(),
	}
}

// Wake runs the wake burst outside of a scan cycle. Long running loops call
// it periodically to recover cards that stopped answering REQA.
func (d *Device) Wake(ctx context.Context) error {
	return d.NewSession().Wake(ctx)
}

func (d *Device) wake(ctx context.Context) error {
	if err := d.AntennaOn(ctx, true); err != nil {
		return err
	}
	if err := d.sleep(ctx, d.config.FieldEnergizeDelay); err != nil {
		return err
	}
	if err := d.ResetProtocolState(ctx); err != nil {
		return err
	}

	for i := 0; i < d.config.WakeFrames; i++ {
		if err := d.WriteRegister(ctx, RegBitFraming, bitFramingShort); err != nil {
			return err
		}
		if _, err := d.communicate(ctx, "wake", CmdTransceive, []byte{PICCWupA}); err != nil {
			if IsBusError(err) || ctx.Err() != nil {
				return err
			}
		}
		if err := d.sleep(ctx, d.config.WakeFrameGap); err != nil {
			return err
		}
		err := d.writeSequence(ctx,
			[2]byte{RegError, 0x00},
			[2]byte{RegComIrq, irqAll},
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// request returns the ATQA and the number of attempts made
func (d *Device) request(ctx context.Context, mode RequestMode) (uint16, int, error) {
	if err := d.ResetProtocolState(ctx); err != nil {
		return 0, 0, err
	}
	err := d.writeSequence(ctx,
		[2]byte{RegTxMode, 0x00},
		[2]byte{RegRxMode, 0x00},
		[2]byte{RegModWidth, 0x26},
		[2]byte{RegRFCfg, 0x70},
		[2]byte{RegBitFraming, bitFramingShort},
	)
	if err != nil {
		return 0, 0, err
	}

	op := "request " + mode.String()
	var lastErr error
	attempts := 0
	for attempts < d.config.RequestRetries {
		attempts++
		err := d.writeSequence(ctx,
			[2]byte{RegComIrq, irqAll},
			[2]byte{RegError, 0x00},
		)
		if err != nil {
			return 0, attempts, err
		}

		result, err := d.communicate(ctx, op, CmdTransceive, []byte{byte(mode)})
		if err == nil && result.bits == 16 {
			return uint16(result.data[0])<<8 | uint16(result.data[1]), attempts, nil
		}
		if err != nil && (IsBusError(err) || ctx.Err() != nil) {
			return 0, attempts, err
		}
		if err == nil {
			err = &ProtocolError{Op: op, Kind: KindNoCard, Err: ErrShortResponse, Bits: result.bits}
		}
		lastErr = err
		if sleepErr := d.sleep(ctx, d.config.RequestRetryGap); sleepErr != nil {
			return 0, attempts, sleepErr
		}
	}
	return 0, attempts, &ProtocolError{Op: op, Kind: KindNoCard, Err: fmt.Errorf("%w: %w", ErrNoCard, lastErr)}
}

func (d *Device) anticollision(ctx context.Context) (uid CardUID, err error) {
	if err := d.ResetProtocolState(ctx); err != nil {
		return uid, err
	}
	err = d.writeSequence(ctx,
		[2]byte{RegBitFraming, 0x00},
		[2]byte{RegTxMode, 0x00},
		[2]byte{RegRxMode, 0x00},
	)
	if err != nil {
		return uid, err
	}
	if err := d.ClearBits(ctx, RegStatus2, status2Crypto1On); err != nil {
		return uid, err
	}
	defer func() {
		if restoreErr := d.SetBits(ctx, RegStatus2, status2Crypto1On); restoreErr != nil && err == nil {
			err = restoreErr
		}
	}()
	if err := d.ClearBits(ctx, RegColl, collValuesAfterColl); err != nil {
		return uid, err
	}

	result, err := d.communicate(ctx, "anticollision", CmdTransceive, []byte{PICCSelectL1, nvbAnticollision})
	if err != nil {
		return uid, err
	}
	if result.bits < 32 || len(result.data) < UIDLength+1 {
		return uid, &ProtocolError{Op: "anticollision", Kind: KindProtocol, Err: ErrShortResponse, Bits: result.bits}
	}

	var candidate CardUID
	copy(candidate[:], result.data[:UIDLength])
	if candidate.BCC() != result.data[UIDLength] {
		d.logger.Debug("uid checksum mismatch",
			zap.String("uid", candidate.String()),
			zap.String("calculated", fmt.Sprintf("0x%02X", candidate.BCC())),
			zap.String("received", fmt.Sprintf("0x%02X", result.data[UIDLength])))
		return uid, newProtocolError("anticollision", KindChecksum, ErrChecksumMismatch)
	}
	return candidate, nil
}

func (d *Device) selectCard(ctx context.Context, uid CardUID) (byte, error) {
	if err := d.ResetProtocolState(ctx); err != nil {
		return 0, err
	}
	err := d.writeSequence(ctx,
		[2]byte{RegTxMode, crcEnable},
		[2]byte{RegRxMode, crcEnable},
	)
	if err != nil {
		return 0, err
	}

	frame := []byte{PICCSelectL1, nvbSelect, uid[0], uid[1], uid[2], uid[3], uid.BCC()}
	result, err := d.communicate(ctx, "select", CmdTransceive, frame)
	if err != nil {
		if IsBusError(err) || ctx.Err() != nil {
			return 0, err
		}
		return 0, &ProtocolError{Op: "select", Kind: KindSelect, Err: fmt.Errorf("%w: %w", ErrSelectFailed, err)}
	}
	if result.bits != 8 {
		return 0, &ProtocolError{Op: "select", Kind: KindSelect, Err: ErrSelectFailed, Bits: result.bits}
	}
	return result.data[0], nil
}

// ReadCardUID runs one complete scan cycle. REQA is tried first and WUPA
// second. When no card answers, the scan backoff grows, the call sleeps for
// it and ErrNoCard is returned. A successful request resets the backoff.
func (d *Device) ReadCardUID(ctx context.Context) (*Card, error) {
	session := d.NewSession()
	if err := session.Wake(ctx); err != nil {
		return nil, err
	}

	err := session.Request(ctx, RequestIdle)
	if err != nil && !IsBusError(err) && ctx.Err() == nil {
		// fall back to WUPA for cards left HALTed by a previous reader
		session.state = StateWoken
		err = session.Request(ctx, RequestAll)
	}
	if err != nil {
		if IsBusError(err) || ctx.Err() != nil {
			return nil, err
		}
		return nil, d.recordScanFailure(ctx, err)
	}
	d.backoff.RecordSuccess()

	if err := session.Anticollision(ctx); err != nil {
		d.logFailure("anticollision failed", err)
		return nil, err
	}
	if err := session.Select(ctx, session.UID); err != nil {
		d.logFailure("select failed", err)
		return nil, err
	}

	card := session.Card()
	d.logger.Debug("card selected",
		zap.String("uid", card.UID.String()),
		zap.Uint16("atqa", card.ATQA),
		zap.Uint8("sak", card.SAK),
		zap.Int("retries", session.Retries))
	return card, nil
}

func (d *Device) recordScanFailure(ctx context.Context, cause error) error {
	delay, announce := d.backoff.RecordFailure()
	if announce {
		d.logger.Info("no card responding, suppressing further scan failure logs",
			zap.Int("failures", d.backoff.Failures()))
	}
	d.logFailure("card request failed", cause, zap.Duration("backoff", delay))

	if err := d.sleep(ctx, delay); err != nil {
		return err
	}
	if errors.Is(cause, ErrNoCard) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrNoCard, cause)
}

func (d *Device) logFailure(msg string, err error, fields ...zap.Field) {
	if d.backoff.Silent() {
		return
	}
	fields = append(fields, zap.Error(err), zap.Stringer("kind", KindOf(err)))
	d.logger.Debug(msg, fields...)
}
