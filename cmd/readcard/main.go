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

// Command readcard prints the UIDs of cards held to the reader and can
// enroll one into the authorized card list
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	rc522 "github.com/ZaparooProject/go-rc522"
	"github.com/ZaparooProject/go-rc522/access"
	"github.com/ZaparooProject/go-rc522/internal/app"
	"github.com/ZaparooProject/go-rc522/internal/config"
	"github.com/ZaparooProject/go-rc522/internal/logger"
	"github.com/ZaparooProject/go-rc522/store"
	"go.uber.org/zap"
)

type options struct {
	devicePath   *string
	transport    *string
	database     *string
	timeout      *time.Duration
	pollInterval *time.Duration
	enroll       *bool
	debug        *bool
	dump         *bool
}

func parseFlags() *options {
	opts := &options{
		devicePath: flag.String("device", "",
			"Device path (e.g., /dev/spidev0.0 or /dev/ttyUSB0). Leave empty for auto-detection."),
		transport: flag.String("transport", "spi", "Bus type: spi, uart or sim"),
		database:  flag.String("db", "doorlock.db", "Database used by -enroll"),
		timeout:   flag.Duration("timeout", 30*time.Second, "Give up after this long"),
		pollInterval: flag.Duration("poll-interval", 100*time.Millisecond,
			"Pause between scans"),
		enroll: flag.Bool("enroll", false, "Authorize the first card read and exit"),
		debug:  flag.Bool("debug", false, "Enable debug output"),
		dump:   flag.Bool("dump", false, "Log the register file after init"),
	}
	flag.Parse()
	return opts
}

func main() {
	opts := parseFlags()

	logCfg := logger.DefaultConfig()
	if *opts.debug {
		logCfg.Level = "debug"
	}
	log, err := logger.New(logCfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Close() }()

	if err := run(opts, log.Logger); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(opts *options, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), *opts.timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	readerCfg := config.ReaderConfig{
		Transport:      *opts.transport,
		Path:           *opts.devicePath,
		AutoDetect:     *opts.devicePath == "" && *opts.transport != "sim",
		ConnectTimeout: 5 * time.Second,
	}
	if readerCfg.AutoDetect {
		_, _ = fmt.Println("Auto-detecting RC522 readers...")
	} else {
		_, _ = fmt.Printf("Opening %s reader: %s\n", readerCfg.Transport, readerCfg.Path)
	}

	device, err := app.OpenReader(ctx, readerCfg, nil, log)
	if err != nil {
		return err
	}
	defer func() { _ = device.Close() }()

	if *opts.dump {
		if _, err := device.DumpRegisters(ctx); err != nil {
			log.Warn("register dump failed", zap.Error(err))
		}
	}

	var registry *access.Registry
	if *opts.enroll {
		db, err := store.Open(*opts.database, store.WithLogger(log))
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		registry = access.NewRegistry(nil, access.WithStore(db), access.WithLogger(log))
		if err := registry.Load(ctx); err != nil {
			return err
		}
	}

	_, _ = fmt.Printf("Waiting for a card (timeout: %s, poll interval: %s)...\n", *opts.timeout, *opts.pollInterval)
	return scanLoop(ctx, device, registry, *opts.pollInterval)
}

func scanLoop(ctx context.Context, device *rc522.Device, registry *access.Registry, interval time.Duration) error {
	var last rc522.CardUID
	for {
		card, err := device.ReadCardUID(ctx)
		switch {
		case err == nil:
			if card.UID != last {
				_, _ = fmt.Printf("Card: %s\n", card)
				last = card.UID
			}
			if registry != nil {
				return enroll(ctx, registry, card.UID)
			}
		case ctx.Err() != nil:
			return finish(ctx)
		case errors.Is(err, rc522.ErrNoCard):
			last = rc522.CardUID{}
		default:
			_, _ = fmt.Fprintf(os.Stderr, "Read failed (%s): %v\n", rc522.KindOf(err), err)
		}

		if err := rc522.Sleep(ctx, interval); err != nil {
			return finish(ctx)
		}
	}
}

func enroll(ctx context.Context, registry *access.Registry, uid rc522.CardUID) error {
	added, err := registry.Add(ctx, uid)
	if err != nil {
		return fmt.Errorf("failed to enroll %s: %w", uid, err)
	}
	if !added {
		return fmt.Errorf("cannot enroll %s: %d cards already authorized", uid, access.MaxAuthorizedCards)
	}
	_, _ = fmt.Printf("Card %s authorized (%d/%d)\n", uid, registry.Count(), access.MaxAuthorizedCards)
	return nil
}

func finish(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		_, _ = fmt.Println("Timeout reached")
	}
	return nil
}
