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
	"fmt"
	"io"

	"github.com/ZaparooProject/go-rc522/actuator"
	"github.com/ZaparooProject/go-rc522/display"
	"github.com/ZaparooProject/go-rc522/internal/config"
	"github.com/ZaparooProject/go-rc522/internal/logger"
	"github.com/ZaparooProject/go-rc522/keypad"
	"go.uber.org/zap"
	"periph.io/x/host/v3"
)

// NewLogger builds the process logger from the log section
func NewLogger(cfg config.LogConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:      cfg.Level,
		Format:     cfg.Format,
		Output:     cfg.Output,
		Dir:        cfg.Dir,
		Filename:   cfg.Filename,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxAgeDays: cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	})
}

// OpenHardware claims the GPIO lines named in cfg. The "sim" transport
// gets simulated pins instead. A missing LED or keypad is logged and left
// out; a missing servo is an error. screen, when non-nil, receives every
// display frame as text.
func OpenHardware(cfg *config.Config, screen io.Writer, log *zap.Logger) (Hardware, error) {
	hw := Hardware{Panel: display.NopPanel{}}
	if screen != nil {
		hw.Panel = display.NewWriterPanel(screen)
	}

	if cfg.Reader.Transport == "sim" {
		hw.ServoPin = actuator.NewSimPin(cfg.Actuator.ServoPin, log.Named("servo-pin"))
		hw.LEDPin = actuator.NewSimPin(cfg.Actuator.LEDPin, log.Named("led-pin"))
		return hw, nil
	}

	if _, err := host.Init(); err != nil {
		return hw, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	servo, err := actuator.OpenPin(cfg.Actuator.ServoPin)
	if err != nil {
		return hw, fmt.Errorf("servo: %w", err)
	}
	hw.ServoPin = servo

	if cfg.Actuator.LEDPin != "" {
		if led, err := actuator.OpenPin(cfg.Actuator.LEDPin); err != nil {
			log.Warn("status LED unavailable", zap.Error(err))
		} else {
			hw.LEDPin = led
		}
	}

	if len(cfg.Keypad.Rows) > 0 {
		matrix, err := keypad.NewGPIOMatrix(cfg.Keypad.Rows, cfg.Keypad.Columns)
		if err != nil {
			log.Warn("keypad unavailable, running card only", zap.Error(err))
		} else {
			hw.Keys = keypad.NewScanner(matrix, keypad.WithLogger(log.Named("keypad")))
		}
	}
	return hw, nil
}
