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

// Package access decides which cards may open the door
package access

import (
	"context"
	"fmt"
	"slices"
	"sync"

	rc522 "github.com/ZaparooProject/go-rc522"
	"go.uber.org/zap"
)

// MaxAuthorizedCards is the registry capacity
const MaxAuthorizedCards = 5

// DefaultAuthorized are the cards enrolled at first boot
var DefaultAuthorized = []rc522.CardUID{
	{0x43, 0xF4, 0x5A, 0x13},
	{0xF3, 0xF1, 0x11, 0x0E},
}

// CardStore persists enrolled cards
type CardStore interface {
	LoadCards(ctx context.Context) ([]rc522.CardUID, error)
	SaveCard(ctx context.Context, uid rc522.CardUID) error
}

// Registry is the ordered, append-only set of authorized card UIDs
type Registry struct {
	store  CardStore
	logger *zap.Logger
	uids   []rc522.CardUID
	mu     sync.RWMutex
}

// Option configures a Registry
type Option func(*Registry)

// WithStore persists enrollments through store
func WithStore(store CardStore) Option {
	return func(r *Registry) { r.store = store }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates a registry holding initial, truncated to capacity
func NewRegistry(initial []rc522.CardUID, opts ...Option) *Registry {
	r := &Registry{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	for _, uid := range initial {
		if len(r.uids) == MaxAuthorizedCards {
			break
		}
		if !slices.Contains(r.uids, uid) {
			r.uids = append(r.uids, uid)
		}
	}
	return r
}

// Load merges the persisted cards after the initial ones. Cards beyond
// capacity are skipped with a warning.
func (r *Registry) Load(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	stored, err := r.store.LoadCards(ctx)
	if err != nil {
		return fmt.Errorf("failed to load authorized cards: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, uid := range stored {
		if slices.Contains(r.uids, uid) {
			continue
		}
		if len(r.uids) == MaxAuthorizedCards {
			r.logger.Warn("authorized card registry full, skipping stored card", zap.Stringer("uid", uid))
			continue
		}
		r.uids = append(r.uids, uid)
	}
	return nil
}

// IsAuthorized reports whether uid is enrolled
func (r *Registry) IsAuthorized(uid rc522.CardUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.uids, uid)
}

// Add enrolls uid. It returns false without changing anything when the
// registry is full. Adding an enrolled card returns true.
func (r *Registry) Add(ctx context.Context, uid rc522.CardUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.Contains(r.uids, uid) {
		return true, nil
	}
	if len(r.uids) >= MaxAuthorizedCards {
		return false, nil
	}
	if r.store != nil {
		if err := r.store.SaveCard(ctx, uid); err != nil {
			return false, fmt.Errorf("failed to persist card %s: %w", uid, err)
		}
	}
	r.uids = append(r.uids, uid)
	r.logger.Info("card enrolled", zap.Stringer("uid", uid), zap.Int("count", len(r.uids)))
	return true, nil
}

// Count returns the number of enrolled cards
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.uids)
}

// List returns the enrolled cards in enrollment order
func (r *Registry) List() []rc522.CardUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.uids)
}
