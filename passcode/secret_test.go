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

package passcode

import (
	"context"
	"testing"
	"time"

	"github.com/ZaparooProject/go-rc522/codes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMasterSecret_Plain(t *testing.T) {
	t.Parallel()

	v, err := NewMasterSecret("1234", "")
	require.NoError(t, err)
	assert.True(t, v.Verify("1234"))
	assert.False(t, v.Verify("12345"))
	assert.False(t, v.Verify(""))
}

func TestMasterSecret_Hash(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("2580"), bcrypt.MinCost)
	require.NoError(t, err)

	v, err := NewMasterSecret("1234", string(hash))
	require.NoError(t, err)
	assert.True(t, v.Verify("2580"))
	assert.False(t, v.Verify("1234"), "plain secret used despite hash")
}

func TestMasterSecret_Invalid(t *testing.T) {
	t.Parallel()

	_, err := NewMasterSecret("", "")
	require.ErrorIs(t, err, ErrNoSecret)
	_, err = NewMasterSecret("", "not-a-hash")
	require.Error(t, err)
}

func TestHashSecret(t *testing.T) {
	t.Parallel()

	hash, err := HashSecret("4711")
	require.NoError(t, err)
	v, err := NewMasterSecret("", hash)
	require.NoError(t, err)
	assert.True(t, v.Verify("4711"))

	_, err = HashSecret("")
	require.ErrorIs(t, err, ErrNoSecret)
}

func TestAnyOf_WithCodes(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	store := codes.NewStore(codes.WithClock(func() time.Time { return now }))
	_, err := store.Add(context.Background(), codes.Code{ID: "100", Secret: "5555", ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)

	master, err := NewMasterSecret("1234", "")
	require.NoError(t, err)
	v := AnyOf(master, CodeVerifier(store), nil)

	assert.True(t, v.Verify("1234"))
	assert.True(t, v.Verify("5555"))
	assert.False(t, v.Verify("6666"))

	now = now.Add(2 * time.Hour)
	assert.False(t, v.Verify("5555"))
}

func TestGuard(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewGuard(2, time.Minute, func() time.Time { return now })

	attempts, locked := g.Fail()
	assert.Equal(t, 1, attempts)
	assert.False(t, locked)
	g.Succeed()
	assert.Equal(t, 0, g.State().Attempts)

	g.Fail()
	_, locked = g.Fail()
	assert.True(t, locked)
	blocked, expired := g.Check()
	assert.True(t, blocked)
	assert.False(t, expired)
	assert.Equal(t, time.Minute, g.Remaining())

	now = now.Add(time.Minute)
	blocked, expired = g.Check()
	assert.False(t, blocked)
	assert.True(t, expired)
	assert.Equal(t, LockoutState{}, g.State())
	assert.Equal(t, time.Duration(0), g.Remaining())
}
