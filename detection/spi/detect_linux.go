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

//go:build linux

package spi

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	rc522 "github.com/ZaparooProject/go-rc522"
	"github.com/ZaparooProject/go-rc522/detection"
	spitransport "github.com/ZaparooProject/go-rc522/transport/spi"
	"golang.org/x/sys/unix"
)

func (d *detector) detectLinux(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	paths, err := filepath.Glob(d.glob)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for spidev nodes: %w", err)
	}
	sort.Strings(paths)

	devices := make([]detection.DeviceInfo, 0, len(paths))
	for _, path := range paths {
		select {
		case <-ctx.Done():
			return devices, detection.ErrDetectionTimeout
		default:
		}

		if detection.IsPathIgnored(path, opts.IgnorePaths) {
			continue
		}
		device, ok := d.inspect(path, opts.Mode)
		if ok {
			devices = append(devices, device)
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// inspect grades a spidev node. Nodes the process cannot open are skipped
// outside Passive mode.
func (d *detector) inspect(path string, mode detection.Mode) (detection.DeviceInfo, bool) {
	device := detection.DeviceInfo{
		Transport:  "spi",
		Path:       path,
		Name:       "SPI device " + filepath.Base(path),
		Confidence: detection.Low,
		Metadata:   map[string]string{},
	}
	if mode == detection.Passive {
		return device, true
	}

	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return detection.DeviceInfo{}, false
	}
	device.Confidence = detection.Medium
	if mode != detection.Full {
		return device, true
	}

	version, err := d.probe(path)
	if err != nil || !knownVersion(version) {
		return detection.DeviceInfo{}, false
	}
	device.Confidence = detection.High
	device.Metadata["version"] = fmt.Sprintf("0x%02X", version)
	return device, true
}

func probeVersion(path string) (byte, error) {
	transport, err := spitransport.New(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = transport.Close() }()
	return transport.ReadRegister(rc522.RegVersion)
}
