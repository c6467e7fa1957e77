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

// Package codes keeps the time-limited access codes issued by the backend
package codes

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExpiryLayout is the backend's timestamp format, e.g. 2026-02-22T00:00+08:00
const ExpiryLayout = "2006-01-02T15:04Z07:00"

// MaxCodes bounds the number of codes held at once
const MaxCodes = 100

var (
	// ErrFull is returned when MaxCodes codes are already stored
	ErrFull = errors.New("code store full")
	// ErrNotFound is returned when deleting a code that is not stored
	ErrNotFound = errors.New("code not found")
	// ErrInvalidCode is returned for empty or malformed codes
	ErrInvalidCode = errors.New("invalid code")
)

// Code is one access code. A zero ValidFrom means valid immediately and a
// zero ExpiresAt means it never expires.
type Code struct {
	ValidFrom time.Time
	ExpiresAt time.Time
	ID        string
	Secret    string
}

// ValidAt reports whether the code may be used at t
func (c Code) ValidAt(t time.Time) bool {
	if !c.ValidFrom.IsZero() && t.Before(c.ValidFrom) {
		return false
	}
	return c.ExpiresAt.IsZero() || !t.After(c.ExpiresAt)
}

// ParseExpiry parses a backend timestamp. Seconds are accepted when present.
func ParseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(ExpiryLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrInvalidCode, s)
	}
	return t, nil
}

// Persister saves the code set between restarts
type Persister interface {
	LoadCodes(ctx context.Context) ([]Code, error)
	SaveCode(ctx context.Context, code Code) error
	DeleteCode(ctx context.Context, id string) error
	ReplaceCodes(ctx context.Context, codes []Code) error
}

// Store is a concurrency-safe set of access codes
type Store struct {
	persist Persister
	logger  *zap.Logger
	now     func() time.Time
	codes   []Code
	mu      sync.RWMutex
}

// Option configures a Store
type Option func(*Store)

// WithPersister mirrors every change to p
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persist = p }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty store
func NewStore(opts ...Option) *Store {
	s := &Store{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory set with the persisted one
func (s *Store) Load(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	loaded, err := s.persist.LoadCodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load codes: %w", err)
	}
	if len(loaded) > MaxCodes {
		loaded = loaded[:MaxCodes]
	}
	s.mu.Lock()
	s.codes = loaded
	s.mu.Unlock()
	s.logger.Info("access codes loaded", zap.Int("count", len(loaded)))
	return nil
}

// Add stores a code. A code with the same ID replaces the stored one. An
// empty ID is filled with a generated one.
func (s *Store) Add(ctx context.Context, code Code) (Code, error) {
	if code.Secret == "" {
		return Code{}, fmt.Errorf("%w: empty secret", ErrInvalidCode)
	}
	if code.ID == "" {
		code.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.codes, func(c Code) bool { return c.ID == code.ID })
	if idx < 0 && len(s.codes) >= MaxCodes {
		return Code{}, ErrFull
	}
	if s.persist != nil {
		if err := s.persist.SaveCode(ctx, code); err != nil {
			return Code{}, fmt.Errorf("failed to save code %s: %w", code.ID, err)
		}
	}
	if idx >= 0 {
		s.codes[idx] = code
	} else {
		s.codes = append(s.codes, code)
	}
	s.logger.Info("access code stored",
		zap.String("code_id", code.ID),
		zap.Time("expires_at", code.ExpiresAt))
	return code, nil
}

// Delete removes the code with the given ID
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.codes, func(c Code) bool { return c.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.persist != nil {
		if err := s.persist.DeleteCode(ctx, id); err != nil {
			return fmt.Errorf("failed to delete code %s: %w", id, err)
		}
	}
	s.codes = slices.Delete(s.codes, idx, idx+1)
	return nil
}

// Replace swaps the whole set, as after a full sync from the backend
func (s *Store) Replace(ctx context.Context, codes []Code) error {
	if len(codes) > MaxCodes {
		return fmt.Errorf("%w: %d codes", ErrFull, len(codes))
	}
	next := make([]Code, 0, len(codes))
	for _, c := range codes {
		if c.Secret == "" {
			return fmt.Errorf("%w: empty secret", ErrInvalidCode)
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		next = append(next, c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persist != nil {
		if err := s.persist.ReplaceCodes(ctx, next); err != nil {
			return fmt.Errorf("failed to replace codes: %w", err)
		}
	}
	s.codes = next
	s.logger.Info("access codes replaced", zap.Int("count", len(next)))
	return nil
}

// List returns a copy of the stored codes
func (s *Store) List() []Code {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.codes)
}

// Len returns the number of stored codes
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.codes)
}

// IsValid reports whether secret matches a code that is valid now
func (s *Store) IsValid(secret string) bool {
	if secret == "" {
		return false
	}
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.codes {
		if subtle.ConstantTimeCompare([]byte(c.Secret), []byte(secret)) == 1 && c.ValidAt(now) {
			return true
		}
	}
	return false
}

// Prune drops expired codes and returns how many were removed
func (s *Store) Prune(ctx context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	kept := s.codes[:0:0]
	for _, c := range s.codes {
		if !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt) {
			expired = append(expired, c.ID)
			continue
		}
		kept = append(kept, c)
	}
	if s.persist != nil {
		for _, id := range expired {
			if err := s.persist.DeleteCode(ctx, id); err != nil {
				return 0, fmt.Errorf("failed to delete expired code %s: %w", id, err)
			}
		}
	}
	s.codes = kept
	return len(expired), nil
}
