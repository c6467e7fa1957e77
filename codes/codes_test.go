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

package codes

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPersister struct {
	mock.Mock
}

func (m *mockPersister) LoadCodes(ctx context.Context) ([]Code, error) {
	args := m.Called(ctx)
	codes, _ := args.Get(0).([]Code)
	return codes, args.Error(1)
}

func (m *mockPersister) SaveCode(ctx context.Context, code Code) error {
	return m.Called(ctx, code).Error(0)
}

func (m *mockPersister) DeleteCode(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockPersister) ReplaceCodes(ctx context.Context, codes []Code) error {
	return m.Called(ctx, codes).Error(0)
}

var base = time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

func fixedClock(t *time.Time) func() time.Time {
	return func() time.Time { return *t }
}

func TestParseExpiry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want    time.Time
		name    string
		input   string
		wantErr bool
	}{
		{
			name:  "backend format",
			input: "2026-02-22T00:00+08:00",
			want:  time.Date(2026, 2, 21, 16, 0, 0, 0, time.UTC),
		},
		{
			name:  "utc suffix",
			input: "2026-02-22T00:00Z",
			want:  time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "with seconds",
			input: "2026-02-22T00:00:30-05:00",
			want:  time.Date(2026, 2, 22, 5, 0, 30, 0, time.UTC),
		},
		{name: "empty never expires", input: ""},
		{name: "garbage", input: "tomorrow", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseExpiry(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidCode)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestCode_ValidAt(t *testing.T) {
	t.Parallel()

	code := Code{ValidFrom: base, ExpiresAt: base.Add(time.Hour)}
	assert.False(t, code.ValidAt(base.Add(-time.Second)))
	assert.True(t, code.ValidAt(base))
	assert.True(t, code.ValidAt(base.Add(time.Hour)))
	assert.False(t, code.ValidAt(base.Add(time.Hour+time.Second)))
	assert.True(t, Code{}.ValidAt(base))
}

func TestStore_AddAndValidate(t *testing.T) {
	t.Parallel()

	now := base
	store := NewStore(WithClock(fixedClock(&now)))

	added, err := store.Add(context.Background(), Code{Secret: "4711", ExpiresAt: base.Add(time.Minute)})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	assert.True(t, store.IsValid("4711"))
	assert.False(t, store.IsValid("4712"))
	assert.False(t, store.IsValid(""))

	now = base.Add(2 * time.Minute)
	assert.False(t, store.IsValid("4711"))
}

func TestStore_AddReplacesSameID(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()
	_, err := store.Add(ctx, Code{ID: "100", Secret: "1111"})
	require.NoError(t, err)
	_, err = store.Add(ctx, Code{ID: "100", Secret: "2222"})
	require.NoError(t, err)

	require.Equal(t, 1, store.Len())
	assert.Equal(t, "2222", store.List()[0].Secret)
}

func TestStore_Full(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()
	for i := 0; i < MaxCodes; i++ {
		_, err := store.Add(ctx, Code{ID: fmt.Sprint(i), Secret: fmt.Sprint(i)})
		require.NoError(t, err)
	}
	_, err := store.Add(ctx, Code{ID: "overflow", Secret: "9"})
	require.ErrorIs(t, err, ErrFull)
	assert.Equal(t, MaxCodes, store.Len())

	_, err = store.Add(ctx, Code{ID: "0", Secret: "updated"})
	require.NoError(t, err)
}

func TestStore_RejectsEmptySecret(t *testing.T) {
	t.Parallel()

	store := NewStore()
	_, err := store.Add(context.Background(), Code{ID: "1"})
	require.ErrorIs(t, err, ErrInvalidCode)
	require.ErrorIs(t, store.Replace(context.Background(), []Code{{ID: "1"}}), ErrInvalidCode)
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()
	_, err := store.Add(ctx, Code{ID: "a", Secret: "1"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "a"))
	assert.Equal(t, 0, store.Len())
	require.ErrorIs(t, store.Delete(ctx, "a"), ErrNotFound)
}

func TestStore_Replace(t *testing.T) {
	t.Parallel()

	store := NewStore()
	ctx := context.Background()
	_, err := store.Add(ctx, Code{ID: "old", Secret: "1"})
	require.NoError(t, err)

	require.NoError(t, store.Replace(ctx, []Code{{ID: "n1", Secret: "2"}, {Secret: "3"}}))
	codes := store.List()
	require.Len(t, codes, 2)
	assert.Equal(t, "n1", codes[0].ID)
	assert.NotEmpty(t, codes[1].ID)
	assert.False(t, store.IsValid("1"))
}

func TestStore_Prune(t *testing.T) {
	t.Parallel()

	now := base
	p := &mockPersister{}
	p.On("SaveCode", mock.Anything, mock.Anything).Return(nil)
	p.On("DeleteCode", mock.Anything, "stale").Return(nil).Once()

	store := NewStore(WithClock(fixedClock(&now)), WithPersister(p))
	ctx := context.Background()
	_, err := store.Add(ctx, Code{ID: "stale", Secret: "1", ExpiresAt: base.Add(time.Second)})
	require.NoError(t, err)
	_, err = store.Add(ctx, Code{ID: "fresh", Secret: "2"})
	require.NoError(t, err)

	now = base.Add(time.Minute)
	removed, err := store.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())
	p.AssertExpectations(t)
}

func TestStore_PersisterFailureLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	diskFull := errors.New("disk full")
	p := &mockPersister{}
	p.On("SaveCode", mock.Anything, mock.Anything).Return(diskFull)
	p.On("ReplaceCodes", mock.Anything, mock.Anything).Return(diskFull)

	store := NewStore(WithPersister(p))
	_, err := store.Add(context.Background(), Code{ID: "1", Secret: "1"})
	require.ErrorIs(t, err, diskFull)
	require.ErrorIs(t, store.Replace(context.Background(), []Code{{Secret: "2"}}), diskFull)
	assert.Equal(t, 0, store.Len())
}

func TestStore_Load(t *testing.T) {
	t.Parallel()

	p := &mockPersister{}
	p.On("LoadCodes", mock.Anything).Return([]Code{{ID: "1", Secret: "1234"}}, nil)

	store := NewStore(WithPersister(p))
	require.NoError(t, store.Load(context.Background()))
	assert.True(t, store.IsValid("1234"))

	failing := &mockPersister{}
	failing.On("LoadCodes", mock.Anything).Return(nil, errors.New("locked"))
	require.Error(t, NewStore(WithPersister(failing)).Load(context.Background()))
}
