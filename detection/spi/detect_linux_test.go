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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZaparooProject/go-rc522/detection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeNodes(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	return dir
}

func TestDetect_Modes(t *testing.T) {
	t.Parallel()

	dir := newFakeNodes(t, "spidev0.0", "spidev0.1")
	versions := map[string]byte{
		filepath.Join(dir, "spidev0.0"): 0x92,
		filepath.Join(dir, "spidev0.1"): 0x00,
	}
	d := &detector{
		glob: filepath.Join(dir, "spidev*"),
		probe: func(path string) (byte, error) {
			v, ok := versions[path]
			if !ok {
				return 0, errors.New("unexpected path")
			}
			return v, nil
		},
	}

	tests := []struct {
		name       string
		mode       detection.Mode
		wantCount  int
		confidence detection.Confidence
	}{
		{name: "passive lists every node", mode: detection.Passive, wantCount: 2, confidence: detection.Low},
		{name: "safe checks access", mode: detection.Safe, wantCount: 2, confidence: detection.Medium},
		{name: "full confirms version", mode: detection.Full, wantCount: 1, confidence: detection.High},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			devices, err := d.detectLinux(context.Background(), &detection.Options{Mode: tt.mode})
			require.NoError(t, err)
			require.Len(t, devices, tt.wantCount)
			for _, dev := range devices {
				assert.Equal(t, "spi", dev.Transport)
				assert.Equal(t, tt.confidence, dev.Confidence)
			}
		})
	}
}

func TestDetect_FullModeMetadata(t *testing.T) {
	t.Parallel()

	dir := newFakeNodes(t, "spidev1.0")
	d := &detector{
		glob:  filepath.Join(dir, "spidev*"),
		probe: func(string) (byte, error) { return 0x91, nil },
	}

	devices, err := d.detectLinux(context.Background(), &detection.Options{Mode: detection.Full})
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "0x91", devices[0].Metadata["version"])
}

func TestDetect_IgnoredAndEmpty(t *testing.T) {
	t.Parallel()

	dir := newFakeNodes(t, "spidev0.0")
	d := &detector{glob: filepath.Join(dir, "spidev*"), probe: probeVersion}

	_, err := d.detectLinux(context.Background(), &detection.Options{
		Mode:        detection.Passive,
		IgnorePaths: []string{filepath.Join(dir, "spidev0.0")},
	})
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)

	empty := &detector{glob: filepath.Join(t.TempDir(), "spidev*"), probe: probeVersion}
	_, err = empty.detectLinux(context.Background(), &detection.Options{Mode: detection.Passive})
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)
}

func TestKnownVersion(t *testing.T) {
	t.Parallel()

	assert.True(t, knownVersion(0x92))
	assert.True(t, knownVersion(0x88))
	assert.False(t, knownVersion(0x00))
	assert.False(t, knownVersion(0xFF))
}
