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
	"context"
	"time"
)

// SleepFunc blocks for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc backed by a timer
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Poller is a bounded polling primitive. Condition checks are spaced by
// Interval and give up after MaxIterations attempts.
type Poller struct {
	Sleep         SleepFunc
	Interval      time.Duration
	MaxIterations int
}

// DefaultPoller polls every millisecond for up to 3000 iterations, which
// matches the transceiver's worst case command completion time.
func DefaultPoller() *Poller {
	return &Poller{
		Sleep:         Sleep,
		Interval:      time.Millisecond,
		MaxIterations: 3000,
	}
}

// Poll calls cond until it reports done, returns an error, or the iteration
// cap is reached. Exhausting the cap yields a timeout ProtocolError.
func (p *Poller) Poll(ctx context.Context, cond func() (bool, error)) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	for i := 0; i < p.MaxIterations; i++ {
		done, err := cond()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if err := sleep(ctx, p.Interval); err != nil {
			return err
		}
	}
	return newProtocolError("poll", KindTimeout, ErrTimeout)
}
