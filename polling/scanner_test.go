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

package polling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	rc522 "github.com/ZaparooProject/go-rc522"
	"github.com/ZaparooProject/go-rc522/access"
	"github.com/ZaparooProject/go-rc522/display"
	"github.com/ZaparooProject/go-rc522/door"
	"github.com/ZaparooProject/go-rc522/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	knownUID   = rc522.MustParseUID("43F45A13")
	unknownUID = rc522.MustParseUID("DEADBEEF")
)

type readResult struct {
	card *rc522.Card
	err  error
}

// scriptReader replays results and reports an empty field afterwards
type scriptReader struct {
	results []readResult
	calls   int
	wakes   int
	mu      sync.Mutex
}

func (r *scriptReader) ReadCardUID(context.Context) (*rc522.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if len(r.results) == 0 {
		return nil, rc522.ErrNoCard
	}
	res := r.results[0]
	r.results = r.results[1:]
	return res.card, res.err
}

func (r *scriptReader) Wake(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wakes++
	return nil
}

// journal records display and door calls in order
type journal struct {
	entries []string
	mu      sync.Mutex
}

func (j *journal) add(s string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, s)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

type fakeDisplay struct{ j *journal }

func (d fakeDisplay) ShowMessage(text string, hold time.Duration) {
	d.j.add("msg:" + text + "@" + hold.String())
}
func (fakeDisplay) UpdateStatus(display.Status) {}
func (fakeDisplay) UpdatePassword(int)          {}
func (d fakeDisplay) ShowUID(uid rc522.CardUID) { d.j.add("uid:" + uid.String()) }
func (d fakeDisplay) ClearUID()                 { d.j.add("clear") }

type fakeDoor struct {
	j         *journal
	unlockErr error
}

func (d *fakeDoor) Unlock(context.Context) error {
	if d.unlockErr != nil {
		return d.unlockErr
	}
	d.j.add("unlock")
	return nil
}

func (d *fakeDoor) Lock(context.Context) error {
	d.j.add("lock")
	return nil
}

func (d *fakeDoor) ScheduleLock(after time.Duration) { d.j.add("schedule:" + after.String()) }
func (*fakeDoor) State() door.State                  { return door.Locked }

type mockAuditor struct {
	mock.Mock
}

func (m *mockAuditor) RecordAccess(ctx context.Context, method store.Method, subject string, granted bool, detail string) error {
	return m.Called(ctx, method, subject, granted, detail).Error(0)
}

// sleepRecorder logs every sleep and cancels the run once stop says so
type sleepRecorder struct {
	cancel context.CancelFunc
	stop   func(slept []time.Duration) bool
	slept  []time.Duration
	mu     sync.Mutex
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.slept = append(r.slept, d)
	done := r.stop(r.slept)
	r.mu.Unlock()
	if done {
		r.cancel()
	}
	return ctx.Err()
}

func stopAfter(n int) func([]time.Duration) bool {
	return func(slept []time.Duration) bool { return len(slept) >= n }
}

// stopAfterSuppress ends the run at the first interval sleep following a
// handled card
func stopAfterSuppress(suppress time.Duration) func([]time.Duration) bool {
	return func(slept []time.Duration) bool {
		n := len(slept)
		return n >= 2 && slept[n-2] == suppress
	}
}

type harness struct {
	scanner *CardScanner
	reader  *scriptReader
	door    *fakeDoor
	journal *journal
	sleeps  *sleepRecorder
	ctx     context.Context
}

func newHarness(t *testing.T, cfg *Config, stop func([]time.Duration) bool, opts ...Option) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	j := &journal{}
	h := &harness{
		reader:  &scriptReader{},
		door:    &fakeDoor{j: j},
		journal: j,
		sleeps:  &sleepRecorder{cancel: cancel, stop: stop},
		ctx:     ctx,
	}
	registry := access.NewRegistry([]rc522.CardUID{knownUID})
	opts = append([]Option{WithSleeper(h.sleeps.sleep)}, opts...)

	var err error
	h.scanner, err = NewCardScanner(h.reader, registry, h.door, fakeDisplay{j: j}, cfg, opts...)
	require.NoError(t, err)
	return h
}

func (h *harness) run(t *testing.T) {
	t.Helper()
	require.ErrorIs(t, h.scanner.Run(h.ctx), context.Canceled)
}

func TestCardScanner_AuthorizedCard(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, stopAfterSuppress(2*time.Second))
	h.reader.results = []readResult{{card: &rc522.Card{UID: knownUID}}}
	h.run(t)

	assert.Equal(t, []string{
		"uid:43F45A13",
		"msg:Card authorized!@1s",
		"unlock",
		"msg:Auto-lock in 5s@0s",
		"schedule:5s",
		"clear",
	}, h.journal.list())
	assert.Equal(t, []time.Duration{2 * time.Second, 100 * time.Millisecond}, h.sleeps.slept)

	m := h.scanner.GetMetrics()
	assert.Equal(t, int64(1), m.ScanCycles)
	assert.Equal(t, int64(1), m.CardsDetected)
	assert.Equal(t, int64(1), m.CardsAuthorized)
	assert.Zero(t, m.CardsDenied)
}

func TestCardScanner_DeniedCard(t *testing.T) {
	t.Parallel()

	audit := &mockAuditor{}
	audit.On("RecordAccess", mock.Anything, store.MethodCard, "DEADBEEF", false, "unknown card").Return(nil).Once()

	h := newHarness(t, nil, stopAfterSuppress(2*time.Second), WithAuditor(audit))
	h.reader.results = []readResult{{card: &rc522.Card{UID: unknownUID}}}
	h.run(t)

	assert.Equal(t, []string{"uid:DEADBEEF", "msg:Card denied!@2s", "clear"}, h.journal.list())
	assert.Equal(t, int64(1), h.scanner.GetMetrics().CardsDenied)
	audit.AssertExpectations(t)
}

func TestCardScanner_UnlockFailure(t *testing.T) {
	t.Parallel()

	audit := &mockAuditor{}
	audit.On("RecordAccess", mock.Anything, store.MethodCard, "43F45A13", true, "").
		Return(errors.New("disk full")).Once()

	h := newHarness(t, nil, stopAfterSuppress(2*time.Second), WithAuditor(audit))
	h.door.unlockErr = errors.New("servo stalled")
	h.reader.results = []readResult{{card: &rc522.Card{UID: knownUID}}}
	h.run(t)

	assert.Equal(t, []string{"uid:43F45A13", "msg:Card authorized!@1s", "clear"}, h.journal.list())
	audit.AssertExpectations(t)
}

func TestCardScanner_IdleSlowdown(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.IdleAfter = 3
	h := newHarness(t, cfg, stopAfter(6))
	h.run(t)

	fast, slow := 100*time.Millisecond, 500*time.Millisecond
	assert.Equal(t, []time.Duration{fast, fast, fast, fast, slow, slow}, h.sleeps.slept)
	assert.Equal(t, slow, h.scanner.Interval())
	assert.Empty(t, h.journal.list())
}

func TestCardScanner_CardRestoresInterval(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.IdleAfter = 1
	h := newHarness(t, cfg, stopAfterSuppress(cfg.Suppress))
	h.reader.results = []readResult{{}, {}, {}, {card: &rc522.Card{UID: unknownUID}}}
	h.reader.results[0].err = rc522.ErrNoCard
	h.reader.results[1].err = rc522.ErrNoCard
	h.reader.results[2].err = rc522.ErrNoCard
	h.run(t)

	slept := h.sleeps.slept
	require.GreaterOrEqual(t, len(slept), 2)
	assert.Equal(t, 500*time.Millisecond, slept[len(slept)-3])
	assert.Equal(t, 100*time.Millisecond, slept[len(slept)-1])
	assert.Equal(t, 100*time.Millisecond, h.scanner.Interval())
}

func TestCardScanner_PeriodicWake(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.WakeEvery = 3
	h := newHarness(t, cfg, stopAfter(7))
	h.run(t)

	assert.Equal(t, 7, h.reader.calls)
	assert.Equal(t, 2, h.reader.wakes)
}

func TestCardScanner_ErrorsCounted(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, stopAfter(3))
	busErr := rc522.NewBusError("read", "/dev/spidev0.0", rc522.RegComIrq, errors.New("ioctl failed"))
	h.reader.results = []readResult{{err: busErr}, {err: rc522.ErrChecksumMismatch}}
	h.run(t)

	m := h.scanner.GetMetrics()
	assert.Equal(t, int64(3), m.ScanCycles)
	assert.Equal(t, int64(2), m.ScanErrors)
	assert.Zero(t, m.CardsDetected)
}

func TestCardScanner_RunTwice(t *testing.T) {
	t.Parallel()

	block := func(ctx context.Context, _ time.Duration) error {
		<-ctx.Done()
		return ctx.Err()
	}
	scanner, err := NewCardScanner(&scriptReader{}, nil, nil, nil, nil, WithSleeper(block))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- scanner.Run(ctx) }()

	assert.Eventually(t, scanner.IsRunning, time.Second, time.Millisecond)
	require.ErrorIs(t, scanner.Run(ctx), ErrScannerRunning)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.False(t, scanner.IsRunning())
}

func TestCardScanner_WithDevice(t *testing.T) {
	t.Parallel()

	mockTransport := rc522.NewMockTransport()
	device, err := rc522.New(mockTransport, rc522.WithSleeper(rc522.NoSleep))
	require.NoError(t, err)
	require.NoError(t, device.Init(context.Background()))
	mockTransport.SetCard(rc522.NewVirtualCard(knownUID))

	var seen []*rc522.Card
	j := &journal{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sleeps := &sleepRecorder{cancel: cancel, stop: stopAfterSuppress(2 * time.Second)}

	scanner, err := NewCardScanner(device, access.NewRegistry(access.DefaultAuthorized), &fakeDoor{j: j},
		fakeDisplay{j: j}, nil, WithSleeper(sleeps.sleep),
		WithCardHandler(func(card *rc522.Card, authorized bool) {
			assert.True(t, authorized)
			seen = append(seen, card)
		}))
	require.NoError(t, err)

	require.ErrorIs(t, scanner.Run(ctx), context.Canceled)
	require.Len(t, seen, 1)
	assert.Equal(t, knownUID, seen[0].UID)
	assert.Contains(t, j.list(), "unlock")
}

func TestNewCardScanner_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewCardScanner(nil, nil, nil, nil, nil)
	require.Error(t, err)

	cfg := DefaultConfig()
	cfg.Interval = 0
	_, err = NewCardScanner(&scriptReader{}, nil, nil, nil, cfg)
	require.ErrorIs(t, err, rc522.ErrInvalidParameter)
}
