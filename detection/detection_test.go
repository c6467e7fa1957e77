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

package detection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	err       error
	transport string
	devices   []DeviceInfo
}

func (f *fakeDetector) Detect(context.Context, *Options) ([]DeviceInfo, error) {
	return f.devices, f.err
}

func (f *fakeDetector) Transport() string {
	return f.transport
}

// The registry is process-global, so these cases run sequentially.
func TestDetectAllContext(t *testing.T) {
	registryMu.Lock()
	saved := registry
	registry = make(map[string]Detector)
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		registry = saved
		registryMu.Unlock()
	})

	_, err := DetectAll(nil)
	require.ErrorIs(t, err, ErrNoDevicesFound)

	RegisterDetector(&fakeDetector{transport: "uart", err: ErrUnsupportedPlatform})
	RegisterDetector(&fakeDetector{
		transport: "spi",
		devices: []DeviceInfo{
			{Transport: "spi", Path: "/dev/spidev0.1", Confidence: Low},
			{Transport: "spi", Path: "/dev/spidev0.0", Confidence: High},
			{Transport: "spi", Path: "/dev/spidev1.0", Confidence: Medium},
		},
	})

	opts := DefaultOptions()
	opts.IgnorePaths = []string{"/dev/spidev1.0"}
	devices, err := DetectAllContext(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "/dev/spidev0.0", devices[0].Path)
	assert.Equal(t, "/dev/spidev0.1", devices[1].Path)

	names := make([]string, 0, 2)
	for _, d := range Detectors() {
		names = append(names, d.Transport())
	}
	assert.Equal(t, []string{"spi", "uart"}, names)

	boom := errors.New("permission denied")
	RegisterDetector(&fakeDetector{transport: "spi", err: boom})
	_, err = DetectAllContext(context.Background(), &opts)
	require.ErrorIs(t, err, boom)
}

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		devicePath  string
		ignorePaths []string
		expected    bool
	}{
		{name: "empty ignore list", devicePath: "/dev/spidev0.0", expected: false},
		{name: "empty device path", ignorePaths: []string{"/dev/spidev0.0"}, expected: false},
		{name: "exact match", devicePath: "/dev/spidev0.0", ignorePaths: []string{"/dev/spidev0.0"}, expected: true},
		{name: "case insensitive", devicePath: "/dev/ttyUSB0", ignorePaths: []string{"/DEV/TTYUSB0"}, expected: true},
		{name: "relative components", devicePath: "/dev/../dev/ttyAMA0", ignorePaths: []string{"/dev/ttyAMA0"}, expected: true},
		{name: "other chip select", devicePath: "/dev/spidev0.1", ignorePaths: []string{"/dev/spidev0.0"}, expected: false},
		{name: "blank entries skipped", devicePath: "COM3", ignorePaths: []string{"", "COM3"}, expected: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsPathIgnored(tt.devicePath, tt.ignorePaths))
		})
	}
}

func TestBlocklist(t *testing.T) {
	t.Parallel()

	blocklist := DefaultBlocklist()
	assert.True(t, IsBlocked("2341:0043", blocklist))
	assert.True(t, IsBlocked(" 0483:374b ", blocklist))
	assert.False(t, IsBlocked("1A86:7523", blocklist))

	assert.Equal(t, "1A86:7523", ParseVIDPID("VID:1a86 PID:7523"))
	assert.Equal(t, "10C4:EA60", ParseVIDPID("vendor=10c4 product=ea60"))
	assert.Equal(t, "2341:0043", ParseVIDPID("2341:0043"))
	assert.Empty(t, ParseVIDPID("no ids here"))
}

func TestModeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "passive", Passive.String())
	assert.Equal(t, "full", Full.String())
	assert.Equal(t, "mode(7)", Mode(7).String())
}
