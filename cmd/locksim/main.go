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

// Command locksim runs the full door controller against a simulated card
// reader. Type keypad input such as "1234#" at the prompt and use commands
// to put cards in the field; see "help".
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	rc522 "github.com/ZaparooProject/go-rc522"
	"github.com/ZaparooProject/go-rc522/actuator"
	"github.com/ZaparooProject/go-rc522/display"
	"github.com/ZaparooProject/go-rc522/internal/app"
	"github.com/ZaparooProject/go-rc522/internal/config"
	"github.com/ZaparooProject/go-rc522/keypad"
	"go.uber.org/zap"
)

func main() {
	if run() != 0 {
		os.Exit(1)
	}
}

func run() int {
	configPath := flag.String("config", "", "Config file (default: ./doorlock.yaml when present)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	loader, err := config.Load(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	cfg := *loader.Get()
	cfg.Reader.Transport = "sim"
	cfg.Reader.AutoDetect = false
	// the prompt owns the terminal
	cfg.Log.Output = "file"
	cfg.Log.Filename = "locksim.log"
	if *debug {
		cfg.Log.Level = "debug"
	}

	log, err := app.NewLogger(cfg.Log)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sh := &shell{field: rc522.NewMockTransport()}
	term, err := keypad.NewTerminalSource("keypad> ", sh.handle, log.Logger)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to open terminal: %v\n", err)
		return 1
	}
	defer func() { _ = term.Close() }()
	sh.out = term.Stdout()

	controller, err := app.New(ctx, &cfg, log.Logger, app.Hardware{
		Transport: sh.field,
		ServoPin:  actuator.NewSimPin(cfg.Actuator.ServoPin, log.Named("servo-pin")),
		LEDPin:    actuator.NewSimPin(cfg.Actuator.LEDPin, log.Named("led-pin")),
		Panel:     display.NewWriterPanel(term.Stdout()),
		Keys:      endOnClose{Source: term, cancel: cancel},
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to start controller: %v\n", err)
		return 1
	}
	defer func() { _ = controller.Close() }()
	sh.app = controller

	if err := controller.Start(ctx); err != nil {
		return 0
	}
	_, _ = fmt.Fprintln(sh.out, `Simulator ready. Type "help" for commands.`)

	if err := controller.Run(ctx); err != nil {
		log.Error("controller stopped", zap.Error(err))
		return 1
	}
	return 0
}

// endOnClose cancels the simulation when the terminal session ends
type endOnClose struct {
	keypad.Source
	cancel context.CancelFunc
}

func (e endOnClose) Events(ctx context.Context) <-chan keypad.Key {
	in := e.Source.Events(ctx)
	out := make(chan keypad.Key)
	go func() {
		defer e.cancel()
		defer close(out)
		for k := range in {
			select {
			case out <- k:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
