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

/*
Package rc522 provides a pure Go driver for the NXP MFRC522 contactless
reader IC and the building blocks of a card and keypad door lock.

The MFRC522 is a 13.56 MHz transceiver speaking ISO14443A to the card and
exposing a 64 entry register file to the host. This package implements the
register protocol, the level 1 activation sequence (wake, REQA/WUPA,
anticollision, select) and a scan backoff that keeps an empty field from
flooding the bus or the logs.

Features:
  - SPI and UART transports (see transport/spi and transport/uart)
  - Single size UID activation with check byte verification
  - Bounded, injectable completion polling for deterministic tests
  - Scan backoff with silent mode after repeated failures
  - Typed bus and protocol errors

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-rc522"
	    "github.com/ZaparooProject/go-rc522/transport/spi"
	)

	transport, err := spi.New("/dev/spidev0.0")
	if err != nil {
	    log.Fatal(err)
	}

	device, err := rc522.New(transport, rc522.WithLogger(logger))
	if err != nil {
	    log.Fatal(err)
	}
	defer device.Close()

	if err := device.Init(ctx); err != nil {
	    log.Fatal(err)
	}

	card, err := device.ReadCardUID(ctx)
	switch {
	case errors.Is(err, rc522.ErrNoCard):
	    // field empty, the call already slept for the backoff delay
	case err != nil:
	    log.Fatal(err)
	default:
	    fmt.Printf("Card detected: %s\n", card.UID)
	}

Step by step activation is available through a Session:

	session := device.NewSession()
	_ = session.Wake(ctx)
	if err := session.Request(ctx, rc522.RequestIdle); err == nil {
	    _ = session.Anticollision(ctx)
	    _ = session.Select(ctx, session.UID)
	}

Error Handling:

Register access failures are reported as *BusError and are never retried
in place. Card exchange failures are *ProtocolError values whose Kind tells
timeouts, checksum failures and collisions apart:

	if rc522.IsRetryable(err) {
	    // try again on the next scan cycle
	}

Thread Safety:

Device operations are not thread-safe. If you need concurrent access,
implement appropriate synchronization in your application.
*/
package rc522
