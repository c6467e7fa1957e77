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

import (
	"fmt"

	"go.uber.org/zap"
)

// Option is a functional option for configuring a Device
type Option func(*Device) error

// WithConfig replaces the device configuration
func WithConfig(config *DeviceConfig) Option {
	return func(d *Device) error {
		if config == nil {
			return fmt.Errorf("%w: nil device config", ErrInvalidParameter)
		}
		d.config = config
		return nil
	}
}

// WithLogger sets the logger used for driver diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(d *Device) error {
		if logger == nil {
			logger = zap.NewNop()
		}
		d.logger = logger
		return nil
	}
}

// WithPoller replaces the completion poller used by card exchanges
func WithPoller(poller *Poller) Option {
	return func(d *Device) error {
		if poller == nil || poller.MaxIterations < 1 {
			return fmt.Errorf("%w: poller needs at least one iteration", ErrInvalidParameter)
		}
		d.poller = poller
		return nil
	}
}

// WithSleeper replaces the function used for every settle and backoff delay.
// Tests use it to run scan cycles without waiting.
func WithSleeper(sleep SleepFunc) Option {
	return func(d *Device) error {
		if sleep == nil {
			return fmt.Errorf("%w: nil sleep func", ErrInvalidParameter)
		}
		d.sleep = sleep
		d.poller.Sleep = sleep
		return nil
	}
}

// WithBackoffConfig sets the scan failure backoff
func WithBackoffConfig(config *BackoffConfig) Option {
	return func(d *Device) error {
		if config == nil {
			return fmt.Errorf("%w: nil backoff config", ErrInvalidParameter)
		}
		if err := config.Validate(); err != nil {
			return err
		}
		d.config.Backoff = config
		return nil
	}
}

// WithRequestRetries sets the number of attempts made per REQA/WUPA request
func WithRequestRetries(retries int) Option {
	return func(d *Device) error {
		if retries < 1 {
			return fmt.Errorf("%w: request retries must be positive", ErrInvalidParameter)
		}
		d.config.RequestRetries = retries
		return nil
	}
}
