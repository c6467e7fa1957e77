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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_CompletesEarly(t *testing.T) {
	t.Parallel()

	var sleeps int
	p := &Poller{
		Interval:      time.Millisecond,
		MaxIterations: 3000,
		Sleep: func(context.Context, time.Duration) error {
			sleeps++
			return nil
		},
	}

	calls := 0
	err := p.Poll(context.Background(), func() (bool, error) {
		calls++
		return calls == 4, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 3, sleeps)
}

func TestPoller_Exhausted(t *testing.T) {
	t.Parallel()

	p := &Poller{Interval: time.Millisecond, MaxIterations: 25, Sleep: NoSleep}
	calls := 0
	err := p.Poll(context.Background(), func() (bool, error) {
		calls++
		return false, nil
	})
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Equal(t, 25, calls)
}

func TestPoller_ConditionError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	err := DefaultPoller().Poll(context.Background(), func() (bool, error) {
		return false, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestPoller_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := &Poller{Interval: time.Hour, MaxIterations: 10}
	calls := 0
	go cancel()
	err := p.Poll(ctx, func() (bool, error) {
		calls++
		return false, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestSleep(t *testing.T) {
	t.Parallel()

	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	require.ErrorIs(t, Sleep(ctx, 0), context.Canceled)
}
