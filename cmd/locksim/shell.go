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

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	rc522 "github.com/ZaparooProject/go-rc522"
	"github.com/ZaparooProject/go-rc522/access"
	"github.com/ZaparooProject/go-rc522/codes"
	"github.com/ZaparooProject/go-rc522/internal/app"
)

const commandTimeout = 5 * time.Second

const helpText = `Keypad:   digits, A-D, * (clear) and # (submit), e.g. 1234#
Commands:
  card <UID>                  put a card in the field, e.g. card 43F45A13
  remove                      take the card away
  enroll <UID>                authorize a card
  code <ID> <SECRET> [EXPIRY] add an access code, expiry like 2026-12-31T23:59Z
  delcode <ID>                delete an access code
  status                      show door, lockout, cards and codes
  help                        show this text
  quit                        leave the simulator`

// shell runs the simulator commands typed at the prompt
type shell struct {
	field *rc522.MockTransport
	app   *app.App
	out   io.Writer
}

func (s *shell) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}

// handle implements keypad.CommandFunc
func (s *shell) handle(fields []string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmd, args := strings.ToLower(fields[0]), fields[1:]
	if s.app == nil && cmd != "quit" && cmd != "exit" {
		s.printf("controller is still starting")
		return true
	}

	switch cmd {
	case "card":
		uid, ok := s.uidArg(args)
		if ok {
			s.field.SetCard(rc522.NewVirtualCard(uid))
			s.printf("card %s in field", uid)
		}
	case "remove":
		s.field.RemoveCard()
		s.printf("field empty")
	case "enroll":
		if uid, ok := s.uidArg(args); ok {
			s.enroll(ctx, uid)
		}
	case "code":
		s.addCode(ctx, args)
	case "delcode":
		if len(args) != 1 {
			s.printf("usage: delcode <ID>")
			break
		}
		if err := s.app.Codes().Delete(ctx, args[0]); err != nil {
			s.printf("error: %v", err)
			break
		}
		s.printf("code %s deleted", args[0])
	case "status":
		s.status()
	case "help", "?":
		s.printf("%s", helpText)
	case "quit", "exit":
		return false
	default:
		s.printf("unknown command %q, try help", fields[0])
	}
	return true
}

func (s *shell) uidArg(args []string) (rc522.CardUID, bool) {
	if len(args) != 1 {
		s.printf("expected one UID such as 43F45A13")
		return rc522.CardUID{}, false
	}
	uid, err := rc522.ParseUID(args[0])
	if err != nil {
		s.printf("error: %v", err)
		return rc522.CardUID{}, false
	}
	return uid, true
}

func (s *shell) enroll(ctx context.Context, uid rc522.CardUID) {
	added, err := s.app.Registry().Add(ctx, uid)
	switch {
	case err != nil:
		s.printf("error: %v", err)
	case !added:
		s.printf("registry full (%d cards)", access.MaxAuthorizedCards)
	default:
		s.printf("card %s authorized", uid)
	}
}

func (s *shell) addCode(ctx context.Context, args []string) {
	if len(args) < 2 || len(args) > 3 {
		s.printf("usage: code <ID> <SECRET> [EXPIRY]")
		return
	}
	code := codes.Code{ID: args[0], Secret: args[1]}
	if len(args) == 3 {
		expires, err := codes.ParseExpiry(args[2])
		if err != nil {
			s.printf("error: %v", err)
			return
		}
		code.ExpiresAt = expires
	}
	stored, err := s.app.Codes().Add(ctx, code)
	if err != nil {
		s.printf("error: %v", err)
		return
	}
	s.printf("code %s stored", stored.ID)
}

func (s *shell) status() {
	lock := s.app.Entry().Lockout()
	s.printf("door:     %s", s.app.Door().State())
	s.printf("attempts: %d, locked out: %t", lock.Attempts, lock.LockedOut)

	uids := s.app.Registry().List()
	list := make([]string, len(uids))
	for i, uid := range uids {
		list[i] = uid.String()
	}
	s.printf("cards:    %s (%d/%d)", strings.Join(list, " "), len(uids), access.MaxAuthorizedCards)

	for _, c := range s.app.Codes().List() {
		expiry := "never"
		if !c.ExpiresAt.IsZero() {
			expiry = c.ExpiresAt.Format(codes.ExpiryLayout)
		}
		s.printf("code:     %s expires %s", c.ID, expiry)
	}

	if scanner := s.app.Scanner(); scanner != nil {
		m := scanner.GetMetrics()
		s.printf("scans:    %d, cards %d (authorized %d, denied %d), errors %d",
			m.ScanCycles, m.CardsDetected, m.CardsAuthorized, m.CardsDenied, m.ScanErrors)
	}
}
