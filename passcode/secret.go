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
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-rc522/codes"
	"golang.org/x/crypto/bcrypt"
)

// Verifier decides whether an entered secret opens the door
type Verifier interface {
	Verify(secret string) bool
}

// VerifierFunc adapts a function to Verifier
type VerifierFunc func(secret string) bool

// Verify implements Verifier
func (f VerifierFunc) Verify(secret string) bool {
	return f(secret)
}

// ErrNoSecret is returned when neither a plain secret nor a hash is set
var ErrNoSecret = errors.New("no master secret configured")

// NewMasterSecret verifies against a bcrypt hash when hash is set and
// against plain otherwise
func NewMasterSecret(plain, hash string) (Verifier, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("invalid master secret hash: %w", err)
		}
		h := []byte(hash)
		return VerifierFunc(func(secret string) bool {
			return bcrypt.CompareHashAndPassword(h, []byte(secret)) == nil
		}), nil
	}
	if plain == "" {
		return nil, ErrNoSecret
	}
	p := []byte(plain)
	return VerifierFunc(func(secret string) bool {
		return subtle.ConstantTimeCompare(p, []byte(secret)) == 1
	}), nil
}

// HashSecret returns a bcrypt hash suitable for NewMasterSecret
func HashSecret(plain string) (string, error) {
	if plain == "" {
		return "", ErrNoSecret
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(h), nil
}

// CodeVerifier accepts any currently valid code from store
func CodeVerifier(store *codes.Store) Verifier {
	return VerifierFunc(store.IsValid)
}

// AnyOf accepts a secret when any verifier does
func AnyOf(verifiers ...Verifier) Verifier {
	return VerifierFunc(func(secret string) bool {
		for _, v := range verifiers {
			if v != nil && v.Verify(secret) {
				return true
			}
		}
		return false
	})
}
