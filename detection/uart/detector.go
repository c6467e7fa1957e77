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

// Package uart detects MFRC522 readers wired through a serial port
package uart

import (
	"context"
	"fmt"
	"strings"

	rc522 "github.com/ZaparooProject/go-rc522"
	"github.com/ZaparooProject/go-rc522/detection"
	uarttransport "github.com/ZaparooProject/go-rc522/transport/uart"
	"go.bug.st/serial/enumerator"
)

// serialPort is a candidate port with its USB identity, if any
type serialPort struct {
	Name    string
	VIDPID  string
	Product string
	Serial  string
	IsUSB   bool
}

// detector implements the Detector interface for UART devices
type detector struct {
	list  func() ([]serialPort, error)
	probe func(path string) (byte, error)
}

// New creates a new UART detector
func New() detection.Detector {
	return &detector{list: listPorts, probe: probeVersion}
}

// init registers the detector on package import
func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "uart"
}

// Detect lists serial ports, drops blocklisted USB adapters and, in Full
// mode, confirms the chip by reading its version register
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := d.list()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	var devices []detection.DeviceInfo
	for _, port := range ports {
		select {
		case <-ctx.Done():
			return devices, detection.ErrDetectionTimeout
		default:
		}

		if detection.IsPathIgnored(port.Name, opts.IgnorePaths) {
			continue
		}
		if port.VIDPID != "" && detection.IsBlocked(port.VIDPID, opts.Blocklist) {
			continue
		}

		device := detection.DeviceInfo{
			Transport:  "uart",
			Path:       port.Name,
			Name:       portLabel(port),
			Confidence: detection.Low,
			Metadata:   map[string]string{},
		}
		if port.IsUSB {
			device.Confidence = detection.Medium
			device.Metadata["vidpid"] = port.VIDPID
			if port.Serial != "" {
				device.Metadata["serial"] = port.Serial
			}
		}

		if opts.Mode == detection.Full {
			version, err := d.probe(port.Name)
			if err != nil || version == 0x00 || version == 0xFF {
				continue
			}
			device.Confidence = detection.High
			device.Metadata["version"] = fmt.Sprintf("0x%02X", version)
		}
		devices = append(devices, device)
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func portLabel(port serialPort) string {
	if port.Product != "" {
		return fmt.Sprintf("%s (%s)", port.Product, port.Name)
	}
	return "Serial port " + port.Name
}

func listPorts() ([]serialPort, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	ports := make([]serialPort, 0, len(details))
	for _, d := range details {
		port := serialPort{Name: d.Name, IsUSB: d.IsUSB, Product: d.Product, Serial: d.SerialNumber}
		if d.IsUSB {
			port.VIDPID = detection.ParseVIDPID(strings.ToUpper(d.VID) + ":" + strings.ToUpper(d.PID))
		}
		ports = append(ports, port)
	}
	return ports, nil
}

func probeVersion(path string) (byte, error) {
	transport, err := uarttransport.New(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = transport.Close() }()
	return transport.ReadRegister(rc522.RegVersion)
}
