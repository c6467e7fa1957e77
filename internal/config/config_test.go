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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doorlock.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	loader, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	cfg := loader.Get()
	assert.Equal(t, "spi", cfg.Reader.Transport)
	assert.Equal(t, "/dev/spidev0.0", cfg.Reader.Path)
	assert.Equal(t, 100*time.Millisecond, cfg.Reader.ScanInterval)
	assert.Equal(t, 3, cfg.Passcode.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Passcode.Lockout)
	assert.Equal(t, 5*time.Second, cfg.Passcode.AutoLock)
	assert.Equal(t, []string{"43F45A13", "F3F1110E"}, cfg.Access.AuthorizedUIDs)
	assert.Len(t, cfg.Keypad.Rows, 4)
	assert.False(t, cfg.MQTT.Enabled)
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
reader:
  transport: uart
  path: /dev/ttyUSB0
passcode:
  secret: "2580"
  lockout: 1m
mqtt:
  enabled: true
  broker: tcp://broker:1883
  device_id: front-door
log:
  level: debug
`)
	loader, err := Load(path)
	require.NoError(t, err)

	cfg := loader.Get()
	assert.Equal(t, "uart", cfg.Reader.Transport)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Reader.Path)
	assert.Equal(t, "2580", cfg.Passcode.Secret)
	assert.Equal(t, time.Minute, cfg.Passcode.Lockout)
	assert.Equal(t, "front-door", cfg.MQTT.DeviceID)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, path, loader.File())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DOORLOCK_MQTT_DEVICE_ID", "back-door")

	loader, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, "back-door", loader.Get().MQTT.DeviceID)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		return &Config{
			Reader:   ReaderConfig{Transport: "spi", Path: "/dev/spidev0.0"},
			Passcode: PasscodeConfig{Secret: "1234", MaxAttempts: 3},
		}
	}

	tests := []struct {
		mutate  func(*Config)
		name    string
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown transport", mutate: func(c *Config) { c.Reader.Transport = "i2c" }, wantErr: true},
		{name: "missing path", mutate: func(c *Config) { c.Reader.Path = "" }, wantErr: true},
		{name: "auto detect without path", mutate: func(c *Config) {
			c.Reader.Path = ""
			c.Reader.AutoDetect = true
		}},
		{name: "sim without path", mutate: func(c *Config) {
			c.Reader.Transport = "sim"
			c.Reader.Path = ""
		}},
		{name: "no secret", mutate: func(c *Config) { c.Passcode.Secret = "" }, wantErr: true},
		{name: "hash only", mutate: func(c *Config) {
			c.Passcode.Secret = ""
			c.Passcode.SecretHash = "$2a$10$abc"
		}},
		{name: "zero attempts", mutate: func(c *Config) { c.Passcode.MaxAttempts = 0 }, wantErr: true},
		{name: "short keypad", mutate: func(c *Config) {
			c.Keypad.Rows = []string{"GPIO5"}
			c.Keypad.Columns = []string{"GPIO6"}
		}, wantErr: true},
		{name: "mqtt without broker", mutate: func(c *Config) { c.MQTT.Enabled = true }, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
		})
	}
}
