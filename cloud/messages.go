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

package cloud

import (
	"fmt"

	"github.com/ZaparooProject/go-rc522/codes"
)

// Outbound topics
const (
	TopicLockStatus = "device/lock"
	TopicLockCode   = "device/lock/code"
	TopicAlert      = "device/lock/alert"
	TopicAllCodes   = "device/lock/all-code"
)

// Inbound topics
const (
	TopicServerCode     = "server/lock/code"
	TopicServerAllCodes = "server/lock/all-code"
	TopicServerOTA      = "server/lock/ota"
)

// AlertType names an alert sent to the backend
type AlertType string

// Alerts raised by the keypad path
const (
	AlertWrongPasscode AlertType = "WRONG_PASSCODE"
	AlertLockout       AlertType = "LOCKOUT"
)

// LockStatus is published on every door state change
type LockStatus struct {
	DeviceID string `json:"deviceId"`
	IsLocked bool   `json:"isLocked"`
}

// CodeAck echoes a code the device has stored
type CodeAck struct {
	DeviceID string `json:"deviceId"`
	CodeID   string `json:"codeId"`
	Code     string `json:"code"`
}

// Alert reports a security event
type Alert struct {
	DeviceID string    `json:"deviceId"`
	Type     AlertType `json:"type"`
}

// AllCodesRequest asks the backend to send every code for the device
type AllCodesRequest struct {
	DeviceID string `json:"deviceId"`
}

// Code actions
const (
	ActionAdd    = "add"
	ActionDelete = "delete"
)

// ServerCode is one code pushed by the backend
type ServerCode struct {
	DeviceID  string `json:"deviceId,omitempty"`
	CodeID    string `json:"codeId"`
	Code      string `json:"code"`
	ValidFrom string `json:"validFrom,omitempty"`
	ValidTo   string `json:"validTo,omitempty"`
	Action    string `json:"action,omitempty"`
}

// ToCode converts the wire form to a stored code
func (s ServerCode) ToCode() (codes.Code, error) {
	from, err := codes.ParseExpiry(s.ValidFrom)
	if err != nil {
		return codes.Code{}, fmt.Errorf("validFrom: %w", err)
	}
	to, err := codes.ParseExpiry(s.ValidTo)
	if err != nil {
		return codes.Code{}, fmt.Errorf("validTo: %w", err)
	}
	return codes.Code{ID: s.CodeID, Secret: s.Code, ValidFrom: from, ExpiresAt: to}, nil
}

// ServerAllCodes is the backend's reply to an AllCodesRequest
type ServerAllCodes struct {
	DeviceID string       `json:"deviceId,omitempty"`
	Codes    []ServerCode `json:"codes"`
}

// OTARequest announces an OTA update
type OTARequest struct {
	DeviceID string `json:"deviceId,omitempty"`
	URL      string `json:"url"`
	Version  string `json:"version"`
}
