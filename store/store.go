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

// Package store persists authorized cards, access codes and the access audit
// trail in sqlite
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	rc522 "github.com/ZaparooProject/go-rc522"
	"github.com/ZaparooProject/go-rc522/codes"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Store is the sqlite-backed persistence layer
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithLogger routes gorm's log output through logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now for event timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (creating if needed) the database at dsn and migrates it
func Open(dsn string, opts ...Option) (*Store, error) {
	s := &Store{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 newGormLogger(s.logger, gormlogger.Warn),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", dsn, err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&AuthorizedCard{}, &AccessCode{}, &AccessEvent{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	s.db = db
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LoadCards returns the stored card UIDs in insertion order
func (s *Store) LoadCards(ctx context.Context) ([]rc522.CardUID, error) {
	var rows []AuthorizedCard
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}
	uids := make([]rc522.CardUID, 0, len(rows))
	for _, row := range rows {
		uid, err := rc522.ParseUID(row.UID)
		if err != nil {
			s.logger.Warn("skipping malformed stored card", zap.String("uid", row.UID), zap.Error(err))
			continue
		}
		uids = append(uids, uid)
	}
	return uids, nil
}

// SaveCard stores uid; saving a stored card is a no-op
func (s *Store) SaveCard(ctx context.Context, uid rc522.CardUID) error {
	row := AuthorizedCard{UID: uid.String(), CreatedAt: s.now()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "uid"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save card %s: %w", uid, err)
	}
	return nil
}

// LoadCodes implements codes.Persister
func (s *Store) LoadCodes(ctx context.Context) ([]codes.Code, error) {
	var rows []AccessCode
	if err := s.db.WithContext(ctx).Order("created_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load codes: %w", err)
	}
	out := make([]codes.Code, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

// SaveCode implements codes.Persister
func (s *Store) SaveCode(ctx context.Context, code codes.Code) error {
	row := toRow(code)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"secret", "valid_from", "expires_at", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save code %s: %w", code.ID, err)
	}
	return nil
}

// DeleteCode implements codes.Persister
func (s *Store) DeleteCode(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&AccessCode{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete code %s: %w", id, err)
	}
	return nil
}

// ReplaceCodes implements codes.Persister
func (s *Store) ReplaceCodes(ctx context.Context, list []codes.Code) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&AccessCode{}).Error; err != nil {
			return fmt.Errorf("failed to clear codes: %w", err)
		}
		if len(list) == 0 {
			return nil
		}
		rows := make([]AccessCode, 0, len(list))
		for _, c := range list {
			rows = append(rows, toRow(c))
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert codes: %w", err)
		}
		return nil
	})
}

// RecordAccess appends an access attempt to the audit trail
func (s *Store) RecordAccess(ctx context.Context, method Method, subject string, granted bool, detail string) error {
	event := AccessEvent{
		ID:      uuid.NewString(),
		At:      s.now(),
		Method:  method,
		Subject: subject,
		Granted: granted,
		Detail:  detail,
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("failed to record access event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]AccessEvent, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	var events []AccessEvent
	err := s.db.WithContext(ctx).Order("at desc").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query access events: %w", err)
	}
	return events, nil
}

func toRow(c codes.Code) AccessCode {
	row := AccessCode{ID: c.ID, Secret: c.Secret}
	if !c.ValidFrom.IsZero() {
		from := c.ValidFrom.UTC()
		row.ValidFrom = &from
	}
	if !c.ExpiresAt.IsZero() {
		exp := c.ExpiresAt.UTC()
		row.ExpiresAt = &exp
	}
	return row
}

func fromRow(row AccessCode) codes.Code {
	c := codes.Code{ID: row.ID, Secret: row.Secret}
	if row.ValidFrom != nil {
		c.ValidFrom = *row.ValidFrom
	}
	if row.ExpiresAt != nil {
		c.ExpiresAt = *row.ExpiresAt
	}
	return c
}

var _ codes.Persister = (*Store)(nil)
