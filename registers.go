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

// MFRC522 register addresses (datasheet section 9.2).
const (
	RegCommand      byte = 0x01
	RegComIEn       byte = 0x02
	RegDivIEn       byte = 0x03
	RegComIrq       byte = 0x04
	RegDivIrq       byte = 0x05
	RegError        byte = 0x06
	RegStatus1      byte = 0x07
	RegStatus2      byte = 0x08
	RegFIFOData     byte = 0x09
	RegFIFOLevel    byte = 0x0A
	RegWaterLevel   byte = 0x0B
	RegControl      byte = 0x0C
	RegBitFraming   byte = 0x0D
	RegColl         byte = 0x0E
	RegMode         byte = 0x11
	RegTxMode       byte = 0x12
	RegRxMode       byte = 0x13
	RegTxControl    byte = 0x14
	RegTxASK        byte = 0x15
	RegTxSel        byte = 0x16
	RegRxSel        byte = 0x17
	RegRxThreshold  byte = 0x18
	RegDemod        byte = 0x19
	RegMfTx         byte = 0x1C
	RegMfRx         byte = 0x1D
	RegSerialSpeed  byte = 0x1F
	RegCRCResultH   byte = 0x21
	RegCRCResultL   byte = 0x22
	RegModWidth     byte = 0x24
	RegRFCfg        byte = 0x26
	RegGsN          byte = 0x27
	RegCWGsP        byte = 0x28
	RegModGsP       byte = 0x29
	RegTMode        byte = 0x2A
	RegTPrescaler   byte = 0x2B
	RegTReloadH     byte = 0x2C
	RegTReloadL     byte = 0x2D
	RegTCounterValH byte = 0x2E
	RegTCounterValL byte = 0x2F
	RegVersion      byte = 0x37

	// maxRegister is the highest addressable register (6-bit address space)
	maxRegister byte = 0x3F
)

// Transceiver commands written to RegCommand.
const (
	CmdIdle             byte = 0x00
	CmdMem              byte = 0x01
	CmdGenerateRandomID byte = 0x02
	CmdCalcCRC          byte = 0x03
	CmdTransmit         byte = 0x04
	CmdNoCmdChange      byte = 0x07
	CmdReceive          byte = 0x08
	CmdTransceive       byte = 0x0C
	CmdMFAuthent        byte = 0x0E
	CmdSoftReset        byte = 0x0F
)

// ISO14443A card (PICC) commands.
const (
	PICCReqA     byte = 0x26
	PICCWupA     byte = 0x52
	PICCSelectL1 byte = 0x93
	PICCSelectL2 byte = 0x95
	PICCSelectL3 byte = 0x97
	PICCHalt     byte = 0x50
)

// Register bit masks.
const (
	// RegComIrq
	irqTimer byte = 0x01
	irqErr   byte = 0x02
	irqIdle  byte = 0x10
	irqRx    byte = 0x20
	irqAll   byte = 0x7F

	// RegError
	errProtocol byte = 0x01
	errParity   byte = 0x02
	errCRC      byte = 0x04
	errColl     byte = 0x08
	errOverflow byte = 0x10
	// errMask is the set of error bits that fail an exchange regardless of
	// the completion interrupt.
	errMask = errOverflow | errColl | errParity | errProtocol

	// RegFIFOLevel
	fifoFlush byte = 0x80

	// RegControl
	controlTStopNow byte = 0x80
	controlRxBits   byte = 0x07

	// RegBitFraming
	bitFramingStartSend byte = 0x80
	bitFramingShort     byte = 0x07

	// RegTxMode / RegRxMode
	crcEnable byte = 0x80

	// RegTxControl: Tx1RFEn | Tx2RFEn
	txControlAntenna byte = 0x03

	// RegStatus2
	status2Crypto1On byte = 0x08

	// RegColl
	collValuesAfterColl byte = 0x80
)

// Anticollision / select framing.
const (
	// nvbAnticollision announces that no UID bits are known yet.
	nvbAnticollision byte = 0x20
	// nvbSelect announces a complete 7 byte select frame.
	nvbSelect byte = 0x70

	fifoReadLimit = 16
)
