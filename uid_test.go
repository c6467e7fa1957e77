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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardUID_BCC(t *testing.T) {
	t.Parallel()

	assert.Equal(t, byte(0x43^0xF4^0x5A^0x13), testUID.BCC())
	assert.Equal(t, byte(0x00), CardUID{}.BCC())
	assert.Equal(t, byte(0x00), CardUID{0xAA, 0xAA, 0x55, 0x55}.BCC())
}

func TestParseUID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    CardUID
		wantErr bool
	}{
		{name: "Plain_Uppercase", input: "43F45A13", want: testUID},
		{name: "Lowercase", input: "43f45a13", want: testUID},
		{name: "Space_Separated", input: "43 F4 5A 13", want: testUID},
		{name: "Colon_Separated", input: "43:F4:5A:13", want: testUID},
		{name: "Surrounding_Whitespace", input: "  F3F1110E\n", want: CardUID{0xF3, 0xF1, 0x11, 0x0E}},
		{name: "Too_Short", input: "43F45A", wantErr: true},
		{name: "Too_Long", input: "43F45A1300", wantErr: true},
		{name: "Not_Hex", input: "43F45AZZ", wantErr: true},
		{name: "Empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseUID(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidUID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestCardUID_Bytes(t *testing.T) {
	t.Parallel()

	b := testUID.Bytes()
	assert.Equal(t, []byte{0x43, 0xF4, 0x5A, 0x13}, b)
	b[0] = 0
	assert.Equal(t, byte(0x43), testUID[0])
	assert.False(t, testUID.IsZero())
	assert.True(t, CardUID{}.IsZero())
}

func TestMustParseUID_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { MustParseUID("nope") })
	assert.Equal(t, testUID, MustParseUID("43F45A13"))
}

func TestCard_String(t *testing.T) {
	t.Parallel()

	card := &Card{UID: testUID, ATQA: 0x0400, SAK: 0x08}
	assert.Equal(t, "UID=43F45A13 ATQA=0400 SAK=08", card.String())
}
