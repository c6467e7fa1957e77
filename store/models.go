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
	"time"
)

// AuthorizedCard is a card UID allowed to open the door
type AuthorizedCard struct {
	CreatedAt time.Time
	UID       string `gorm:"size:8;uniqueIndex;not null"`
	ID        uint   `gorm:"primaryKey"`
}

// AccessCode is a backend-issued code
type AccessCode struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	ValidFrom *time.Time
	ExpiresAt *time.Time
	ID        string `gorm:"primaryKey;size:64"`
	Secret    string `gorm:"size:32;not null"`
}

// Method names how an access attempt was made
type Method string

// Access methods
const (
	MethodCard   Method = "card"
	MethodKeypad Method = "keypad"
	MethodRemote Method = "remote"
)

// AccessEvent is one entry in the audit trail
type AccessEvent struct {
	At      time.Time `gorm:"index;not null"`
	ID      string    `gorm:"primaryKey;size:36"`
	Method  Method    `gorm:"size:16;index;not null"`
	Subject string    `gorm:"size:32"`
	Detail  string    `gorm:"size:128"`
	Granted bool      `gorm:"not null"`
}
