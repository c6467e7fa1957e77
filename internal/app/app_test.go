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

package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	rc522 "github.com/ZaparooProject/go-rc522"
	"github.com/ZaparooProject/go-rc522/actuator"
	"github.com/ZaparooProject/go-rc522/display"
	"github.com/ZaparooProject/go-rc522/door"
	"github.com/ZaparooProject/go-rc522/internal/config"
	"github.com/ZaparooProject/go-rc522/keypad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Reader: config.ReaderConfig{
			Transport:      "sim",
			ScanInterval:   100 * time.Millisecond,
			IdleInterval:   500 * time.Millisecond,
			ConnectTimeout: time.Second,
		},
		Passcode: config.PasscodeConfig{
			Secret:      "1234",
			MaxAttempts: 3,
			Lockout:     30 * time.Second,
			AutoLock:    5 * time.Second,
		},
		Access: config.AccessConfig{AuthorizedUIDs: []string{"43F45A13"}},
		Store:  config.StoreConfig{Enabled: true, DSN: filepath.Join(t.TempDir(), "doorlock.db")},
	}
}

func testHardware(transport rc522.Transport) (Hardware, *actuator.SimPin) {
	servo := actuator.NewSimPin("GPIO18", nil)
	return Hardware{
		Transport: transport,
		ServoPin:  servo,
		LEDPin:    actuator.NewSimPin("GPIO23", nil),
		Panel:     display.NopPanel{},
		Sleep:     rc522.NoSleep,
		Hold:      func(time.Duration) {},
	}, servo
}

func newApp(t *testing.T, cfg *config.Config, hw Hardware) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, nil, hw)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

type keySource string

func (s keySource) Events(ctx context.Context) <-chan keypad.Key {
	out := make(chan keypad.Key)
	go func() {
		defer close(out)
		for i := 0; i < len(s); i++ {
			select {
			case out <- keypad.Key(s[i]):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func TestApp_StartLocksDoor(t *testing.T) {
	t.Parallel()

	hw, servo := testHardware(rc522.NewMockTransport())
	a := newApp(t, testConfig(t), hw)
	require.NotNil(t, a.Scanner())

	require.NoError(t, a.Start(context.Background()))
	assert.Equal(t, door.Locked, a.Door().State())
	assert.NotEmpty(t, servo.Levels(), "servo was never driven")

	lines := a.Screen().Lines()
	assert.Equal(t, "Status: LOCKED", lines[2])
	assert.Equal(t, "System Ready!", lines[6])
}

func TestApp_DegradedWithoutReader(t *testing.T) {
	t.Parallel()

	mock := rc522.NewMockTransport()
	mock.SetVersion(0x00)
	hw, _ := testHardware(mock)
	a := newApp(t, testConfig(t), hw)

	assert.Nil(t, a.Scanner())
	require.NoError(t, a.Start(context.Background()))
	assert.Equal(t, door.Locked, a.Door().State())
}

func TestApp_CardUnlocks(t *testing.T) {
	t.Parallel()

	mock := rc522.NewMockTransport()
	mock.SetCard(rc522.NewVirtualCard(rc522.MustParseUID("43F45A13")))
	hw, _ := testHardware(mock)
	a := newApp(t, testConfig(t), hw)
	require.NoError(t, a.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	assert.Eventually(t, func() bool { return a.Door().State() == door.Unlocked }, 2*time.Second, time.Millisecond)
	assert.Eventually(t, a.Door().Pending, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Positive(t, a.Scanner().GetMetrics().CardsAuthorized)
}

func TestApp_KeypadUnlocks(t *testing.T) {
	t.Parallel()

	mock := rc522.NewMockTransport()
	mock.SetVersion(0xFF)
	hw, _ := testHardware(mock)
	hw.Keys = keySource("1234#")
	a := newApp(t, testConfig(t), hw)
	require.NoError(t, a.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	assert.Eventually(t, func() bool { return a.Door().State() == door.Unlocked }, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0, a.Entry().Lockout().Attempts)
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	hw, _ := testHardware(rc522.NewMockTransport())

	cfg := testConfig(t)
	cfg.Access.AuthorizedUIDs = []string{"not-hex"}
	_, err := New(context.Background(), cfg, nil, hw)
	require.ErrorIs(t, err, config.ErrInvalidConfig)

	cfg = testConfig(t)
	cfg.Reader.Transport = "usb"
	_, err = New(context.Background(), cfg, nil, hw)
	require.ErrorIs(t, err, config.ErrInvalidConfig)

	noServo := hw
	noServo.ServoPin = nil
	_, err = New(context.Background(), testConfig(t), nil, noServo)
	require.Error(t, err)
}

func TestNewTransport(t *testing.T) {
	t.Parallel()

	transport, err := NewTransport(config.ReaderConfig{Transport: "sim"})
	require.NoError(t, err)
	assert.Equal(t, rc522.TransportMock, transport.Type())

	_, err = NewTransport(config.ReaderConfig{Transport: "i2c"})
	require.Error(t, err)
}
