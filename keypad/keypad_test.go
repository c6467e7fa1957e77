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

package keypad

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	rc522 "github.com/ZaparooProject/go-rc522"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMatrix holds a key down for a number of column reads
type fakeMatrix struct {
	err        error
	activeRows map[int]bool
	rowWrites  []int
	downRow    int
	downCol    int
	holdReads  int
	mu         sync.Mutex
}

func newFakeMatrix() *fakeMatrix {
	return &fakeMatrix{activeRows: map[int]bool{}, downRow: -1}
}

func (m *fakeMatrix) press(row, col, holdReads int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downRow, m.downCol, m.holdReads = row, col, holdReads
}

func (m *fakeMatrix) SetRow(row int, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeRows[row] = active
	if active {
		m.rowWrites = append(m.rowWrites, row)
	}
	return nil
}

func (m *fakeMatrix) Pressed(col int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.downRow < 0 || !m.activeRows[m.downRow] || col != m.downCol {
		return false, nil
	}
	if m.holdReads == 0 {
		m.downRow = -1
		return false, nil
	}
	m.holdReads--
	return true, nil
}

func (m *fakeMatrix) anyActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, active := range m.activeRows {
		if active {
			return true
		}
	}
	return false
}

type sleepLog struct {
	slept []time.Duration
	mu    sync.Mutex
}

func (l *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.slept = append(l.slept, d)
	return nil
}

func TestScan_EveryKey(t *testing.T) {
	t.Parallel()

	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			m := newFakeMatrix()
			m.press(row, col, 1)
			s := NewScanner(m, WithSleeper(rc522.NoSleep))

			key, ok, err := s.Scan(context.Background())
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, Layout[row][col], key)
			assert.False(t, m.anyActive(), "row left driven")
		}
	}
}

func TestScan_HeldKeyWaitsForRelease(t *testing.T) {
	t.Parallel()

	m := newFakeMatrix()
	m.press(3, 2, 4)
	log := &sleepLog{}
	s := NewScanner(m, WithSleeper(log.sleep))

	key, ok, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KeySubmit, key)

	timing := DefaultTiming()
	want := []time.Duration{
		timing.RowSettle, timing.RowSettle, timing.RowSettle, timing.RowSettle,
		timing.ReleasePoll, timing.ReleasePoll, timing.ReleasePoll,
		timing.Debounce,
	}
	assert.Equal(t, want, log.slept)

	_, ok, err = s.Scan(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "held key reported twice")
}

func TestScan_NoKey(t *testing.T) {
	t.Parallel()

	m := newFakeMatrix()
	s := NewScanner(m, WithSleeper(rc522.NoSleep))
	_, ok, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []int{0, 1, 2, 3}, m.rowWrites)
}

func TestScan_ReadError(t *testing.T) {
	t.Parallel()

	m := newFakeMatrix()
	m.err = errors.New("gpio read failed")
	s := NewScanner(m, WithSleeper(rc522.NoSleep))
	_, _, err := s.Scan(context.Background())
	require.ErrorIs(t, err, m.err)
	assert.False(t, m.anyActive())
}

func TestEvents_DeliversAndRestarts(t *testing.T) {
	t.Parallel()

	m := newFakeMatrix()
	s := NewScanner(m, WithTiming(Timing{Interval: time.Millisecond}))

	ctx, cancel := context.WithCancel(context.Background())
	events := s.Events(ctx)
	m.press(0, 0, 1)
	select {
	case key := <-events:
		assert.Equal(t, Key('1'), key)
	case <-time.After(2 * time.Second):
		t.Fatal("no key event")
	}
	cancel()
	for range events {
	}

	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	events = s.Events(ctx2)
	m.press(1, 3, 1)
	select {
	case key := <-events:
		assert.Equal(t, Key('B'), key)
	case <-time.After(2 * time.Second):
		t.Fatal("no key event after restart")
	}
}

func TestParseKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want []Key
		ok   bool
	}{
		{line: "1234#", want: []Key{'1', '2', '3', '4', '#'}, ok: true},
		{line: " 12 34 ", want: []Key{'1', '2', '3', '4'}, ok: true},
		{line: "*", want: []Key{'*'}, ok: true},
		{line: "abcd", want: []Key{'A', 'B', 'C', 'D'}, ok: true},
		{line: "card 43F45A13"},
		{line: "12E"},
		{line: ""},
	}
	for _, tt := range tests {
		got, ok := ParseKeys(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestKey(t *testing.T) {
	t.Parallel()

	assert.True(t, Key('7').IsDigit())
	assert.False(t, KeySubmit.IsDigit())
	assert.Equal(t, "#", KeySubmit.String())
	assert.True(t, Valid('D'))
	assert.False(t, Valid('E'))
}
