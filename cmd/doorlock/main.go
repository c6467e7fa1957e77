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

// Command doorlock runs the door controller: card reader, keypad, servo
// lock, status display and optional MQTT sync
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZaparooProject/go-rc522/internal/app"
	"github.com/ZaparooProject/go-rc522/internal/config"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Config file (default: ./doorlock.yaml or /etc/doorlock/doorlock.yaml)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	screen := flag.Bool("screen", false, "Print display frames to stdout")
	flag.Parse()

	if err := run(*configPath, *debug, *screen); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "doorlock: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, debug, screen bool) error {
	loader, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg := loader.Get()

	log, err := app.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Close() }()
	if debug {
		log.SetLevel("debug")
	}
	if file := loader.File(); file != "" {
		log.Info("configuration loaded", zap.String("file", file))
	}

	loader.Watch(func(c *config.Config) {
		if debug {
			return
		}
		log.SetLevel(c.Log.Level)
		log.Info("configuration reloaded", zap.String("level", c.Log.Level))
	}, func(err error) {
		log.Warn("ignoring invalid configuration change", zap.Error(err))
	})

	var out io.Writer
	if screen {
		out = os.Stdout
	}
	hw, err := app.OpenHardware(cfg, out, log.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	controller, err := app.New(ctx, cfg, log.Logger, hw)
	if err != nil {
		return err
	}
	defer func() {
		if err := controller.Close(); err != nil {
			log.Warn("shutdown incomplete", zap.Error(err))
		}
	}()

	if err := controller.Start(ctx); err != nil {
		// interrupted during startup
		return nil
	}
	log.Info("enter password or scan an authorized card to unlock the door")

	if err := controller.Run(ctx); err != nil {
		return err
	}
	log.Info("shutting down")
	return nil
}
