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

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	rc522 "github.com/ZaparooProject/go-rc522"
	"github.com/ZaparooProject/go-rc522/codes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "doorlock.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCards(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	first := rc522.MustParseUID("43F45A13")
	second := rc522.MustParseUID("F3F1110E")
	require.NoError(t, s.SaveCard(ctx, first))
	require.NoError(t, s.SaveCard(ctx, second))
	require.NoError(t, s.SaveCard(ctx, first))

	uids, err := s.LoadCards(ctx)
	require.NoError(t, err)
	assert.Equal(t, []rc522.CardUID{first, second}, uids)
}

func TestCodes_RoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	expiry := time.Date(2026, 2, 21, 16, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveCode(ctx, codes.Code{ID: "100", Secret: "4711", ExpiresAt: expiry}))
	require.NoError(t, s.SaveCode(ctx, codes.Code{ID: "101", Secret: "0815"}))
	require.NoError(t, s.SaveCode(ctx, codes.Code{ID: "100", Secret: "4712", ExpiresAt: expiry}))

	loaded, err := s.LoadCodes(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	byID := map[string]codes.Code{}
	for _, c := range loaded {
		byID[c.ID] = c
	}
	assert.Equal(t, "4712", byID["100"].Secret)
	assert.True(t, expiry.Equal(byID["100"].ExpiresAt))
	assert.True(t, byID["101"].ExpiresAt.IsZero())

	require.NoError(t, s.DeleteCode(ctx, "100"))
	loaded, err = s.LoadCodes(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "101", loaded[0].ID)
}

func TestCodes_Replace(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveCode(ctx, codes.Code{ID: "old", Secret: "1"}))

	require.NoError(t, s.ReplaceCodes(ctx, []codes.Code{{ID: "a", Secret: "2"}, {ID: "b", Secret: "3"}}))
	loaded, err := s.LoadCodes(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)

	require.NoError(t, s.ReplaceCodes(ctx, nil))
	loaded, err = s.LoadCodes(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestCodes_BackStoreForCodeStore(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	first := codes.NewStore(codes.WithPersister(s))
	_, err := first.Add(ctx, codes.Code{ID: "7", Secret: "2468"})
	require.NoError(t, err)

	second := codes.NewStore(codes.WithPersister(s))
	require.NoError(t, second.Load(ctx))
	assert.True(t, second.IsValid("2468"))
}

func TestAccessEvents(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	s := openTestStore(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, s.RecordAccess(ctx, MethodCard, "43F45A13", true, ""))
	now = now.Add(time.Second)
	require.NoError(t, s.RecordAccess(ctx, MethodKeypad, "", false, "wrong passcode"))

	events, err := s.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, MethodKeypad, events[0].Method)
	assert.False(t, events[0].Granted)
	assert.Equal(t, "wrong passcode", events[0].Detail)
	assert.Equal(t, MethodCard, events[1].Method)
	assert.Equal(t, "43F45A13", events[1].Subject)
	assert.Len(t, events[1].ID, 36)

	_, err = s.RecentEvents(ctx, 0)
	require.Error(t, err)
}
