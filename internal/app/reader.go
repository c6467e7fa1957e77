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
	"errors"
	"fmt"
	"strings"

	rc522 "github.com/ZaparooProject/go-rc522"
	"github.com/ZaparooProject/go-rc522/detection"
	// Register the detectors used by auto-detection
	_ "github.com/ZaparooProject/go-rc522/detection/spi"
	_ "github.com/ZaparooProject/go-rc522/detection/uart"
	"github.com/ZaparooProject/go-rc522/internal/config"
	"github.com/ZaparooProject/go-rc522/transport/spi"
	"github.com/ZaparooProject/go-rc522/transport/uart"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"
)

// NewTransport opens the bus named by cfg
func NewTransport(cfg config.ReaderConfig) (rc522.Transport, error) {
	return newTransport(cfg.Transport, cfg.Path, cfg)
}

func newTransport(kind, path string, cfg config.ReaderConfig) (rc522.Transport, error) {
	switch strings.ToLower(kind) {
	case "spi":
		opts := []spi.Option{spi.WithResetPin(cfg.ResetPin)}
		if cfg.SpeedHz > 0 {
			opts = append(opts, spi.WithSpeed(physic.Frequency(cfg.SpeedHz)*physic.Hertz))
		}
		transport, err := spi.New(path, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create SPI transport: %w", err)
		}
		return transport, nil
	case "uart":
		baud := cfg.BaudRate
		if baud <= 0 {
			baud = uart.DefaultBaudRate
		}
		transport, err := uart.NewWithBaudRate(path, baud)
		if err != nil {
			return nil, fmt.Errorf("failed to create UART transport: %w", err)
		}
		return transport, nil
	case "sim":
		return rc522.NewMockTransport(), nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", kind)
	}
}

// OpenReader connects to and initializes the chip. A non-nil transport is
// used as is; otherwise the bus comes from cfg, auto-detected when asked.
func OpenReader(
	ctx context.Context, cfg config.ReaderConfig, transport rc522.Transport, logger *zap.Logger,
) (*rc522.Device, error) {
	opts := []rc522.ConnectOption{
		rc522.WithConnectTimeout(cfg.ConnectTimeout),
		rc522.WithDeviceOptions(rc522.WithLogger(logger)),
	}

	path := cfg.Path
	switch {
	case transport != nil:
		if path == "" {
			path = "sim"
		}
		opts = append(opts, rc522.WithTransportFactory(func(string) (rc522.Transport, error) {
			return transport, nil
		}))
	case cfg.AutoDetect:
		path = ""
		opts = append(opts,
			rc522.WithAutoDetection(),
			rc522.WithTransportFromDeviceFactory(func(d detection.DeviceInfo) (rc522.Transport, error) {
				logger.Info("reader detected",
					zap.String("transport", d.Transport), zap.String("path", d.Path), zap.String("name", d.Name))
				return newTransport(d.Transport, d.Path, cfg)
			}))
	default:
		if cfg.Transport == "sim" && path == "" {
			path = "sim"
		}
		if path == "" {
			return nil, errors.New("reader path is empty")
		}
		opts = append(opts, rc522.WithTransportFactory(func(p string) (rc522.Transport, error) {
			return newTransport(cfg.Transport, p, cfg)
		}))
	}

	device, err := rc522.ConnectDevice(ctx, path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RC522: %w", err)
	}
	if version, err := device.Version(ctx); err == nil {
		logger.Info("RC522 ready", zap.String("version", fmt.Sprintf("0x%02X", version)))
	}
	return device, nil
}
