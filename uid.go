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
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// UIDLength is the length of a single size (cascade level 1) UID
const UIDLength = 4

// CardUID is a 4 byte single size card identifier
type CardUID [UIDLength]byte

// BCC returns the block check character: the XOR of all UID bytes
func (u CardUID) BCC() byte {
	return u[0] ^ u[1] ^ u[2] ^ u[3]
}

// String returns the uppercase hex form, e.g. "43F45A13"
func (u CardUID) String() string {
	return strings.ToUpper(hex.EncodeToString(u[:]))
}

// Bytes returns a copy of the UID bytes
func (u CardUID) Bytes() []byte {
	b := make([]byte, UIDLength)
	copy(b, u[:])
	return b
}

// IsZero reports whether the UID is unset
func (u CardUID) IsZero() bool {
	return u == CardUID{}
}

// ParseUID parses a hex UID. Spaces, colons and dashes between bytes are
// accepted: "43F45A13", "43 F4 5A 13" and "43:f4:5a:13" are equivalent.
func ParseUID(s string) (CardUID, error) {
	cleaned := strings.NewReplacer(" ", "", ":", "", "-", "").Replace(strings.TrimSpace(s))
	raw, err := hex.DecodeString(cleaned)
	if err != nil {
		return CardUID{}, fmt.Errorf("%w: %q: %w", ErrInvalidUID, s, err)
	}
	return UIDFromBytes(raw)
}

// MustParseUID is like ParseUID but panics on malformed input. Intended for
// compile-time constants.
func MustParseUID(s string) CardUID {
	uid, err := ParseUID(s)
	if err != nil {
		panic(err)
	}
	return uid
}

// UIDFromBytes builds a CardUID from exactly four bytes
func UIDFromBytes(b []byte) (CardUID, error) {
	var uid CardUID
	if len(b) != UIDLength {
		return uid, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidUID, len(b), UIDLength)
	}
	copy(uid[:], b)
	return uid, nil
}

// Card is a selected card as reported by ReadCardUID
type Card struct {
	DetectedAt time.Time
	UID        CardUID
	ATQA       uint16
	SAK        byte
}

// IsMifareClassic reports whether the SAK advertises a MIFARE Classic 1K/4K
func (c *Card) IsMifareClassic() bool {
	return c.SAK == 0x08 || c.SAK == 0x18
}

func (c *Card) String() string {
	return fmt.Sprintf("UID=%s ATQA=%04X SAK=%02X", c.UID, c.ATQA, c.SAK)
}
