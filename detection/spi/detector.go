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

// Package spi detects MFRC522 readers on Linux spidev nodes
package spi

import (
	"context"
	"runtime"

	"github.com/ZaparooProject/go-rc522/detection"
)

// detector implements the Detector interface for SPI devices
type detector struct {
	// probe reads the version register of the chip at path
	probe func(path string) (byte, error)
	glob  string
}

// New creates a new SPI detector
func New() detection.Detector {
	return &detector{glob: "/dev/spidev*", probe: probeVersion}
}

// init registers the detector on package import
func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "spi"
}

// Detect searches for spidev nodes and, in Full mode, confirms the chip
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if runtime.GOOS != "linux" {
		return nil, detection.ErrUnsupportedPlatform
	}
	return d.detectLinux(ctx, opts)
}

// knownVersion reports whether v is a version register value of an MFRC522
// or a common clone
func knownVersion(v byte) bool {
	switch v {
	case 0x88, 0x90, 0x91, 0x92, 0x12, 0xB2:
		return true
	default:
		return false
	}
}
