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

// Package app wires the controller together from configuration
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	rc522 "github.com/ZaparooProject/go-rc522"
	"github.com/ZaparooProject/go-rc522/access"
	"github.com/ZaparooProject/go-rc522/actuator"
	"github.com/ZaparooProject/go-rc522/cloud"
	"github.com/ZaparooProject/go-rc522/codes"
	"github.com/ZaparooProject/go-rc522/display"
	"github.com/ZaparooProject/go-rc522/door"
	"github.com/ZaparooProject/go-rc522/internal/config"
	"github.com/ZaparooProject/go-rc522/keypad"
	"github.com/ZaparooProject/go-rc522/passcode"
	"github.com/ZaparooProject/go-rc522/polling"
	"github.com/ZaparooProject/go-rc522/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const pruneInterval = time.Minute

// Hardware holds the peripherals. Transport is optional: when nil the
// reader is opened from the configuration.
type Hardware struct {
	Transport rc522.Transport
	ServoPin  actuator.Pin
	LEDPin    actuator.Pin
	Panel     display.Panel
	Keys      keypad.Source
	// Sleep replaces time based waits of the actuators and loops
	Sleep rc522.SleepFunc
	// Hold replaces the wait after a display message
	Hold func(time.Duration)
}

// App is a running door controller
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *store.Store
	codes    *codes.Store
	registry *access.Registry
	mqtt     *cloud.Client
	pub      cloud.Publisher
	screen   *display.Screen
	led      *actuator.LED
	door     *door.Controller
	entry    *passcode.Entry
	device   *rc522.Device
	scanner  *polling.CardScanner
	keys     keypad.Source
}

// New builds the controller. A reader that cannot be initialized leaves the
// controller in keypad only mode instead of failing.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, hw Hardware) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if hw.ServoPin == nil || hw.Panel == nil {
		return nil, errors.New("servo pin and display panel are required")
	}
	if hw.Sleep == nil {
		hw.Sleep = rc522.Sleep
	}

	a := &App{cfg: cfg, logger: logger, pub: cloud.Discard{}, keys: hw.Keys}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	if err := a.openRegistry(ctx); err != nil {
		return nil, err
	}
	a.connectCloud(ctx)

	screenOpts := []display.Option{display.WithLogger(logger.Named("display"))}
	if hw.Hold != nil {
		screenOpts = append(screenOpts, display.WithSleeper(hw.Hold))
	}
	a.screen = display.NewScreen(hw.Panel, screenOpts...)
	if hw.LEDPin != nil {
		a.led = actuator.NewLEDWithSleeper(hw.LEDPin, hw.Sleep)
	}
	servo := actuator.NewServo(hw.ServoPin,
		actuator.WithServoSleeper(hw.Sleep), actuator.WithServoLogger(logger.Named("servo")))

	doorOpts := []door.Option{door.WithLogger(logger.Named("door")), door.WithPublisher(a.pub)}
	if a.led != nil {
		doorOpts = append(doorOpts, door.WithIndicator(a.led))
	}
	a.door = door.NewController(servo, a.screen, doorOpts...)

	if err := a.buildEntry(); err != nil {
		return nil, err
	}
	a.openScanner(ctx, hw)

	ok = true
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	codeOpts := []codes.Option{codes.WithLogger(a.logger.Named("codes"))}
	if a.cfg.Store.Enabled {
		db, err := store.Open(a.cfg.Store.DSN, store.WithLogger(a.logger.Named("store")))
		if err != nil {
			return err
		}
		a.db = db
		codeOpts = append(codeOpts, codes.WithPersister(db))
	}
	a.codes = codes.NewStore(codeOpts...)
	if err := a.codes.Load(ctx); err != nil {
		return fmt.Errorf("failed to load codes: %w", err)
	}
	return nil
}

func (a *App) openRegistry(ctx context.Context) error {
	uids := make([]rc522.CardUID, 0, len(a.cfg.Access.AuthorizedUIDs))
	for _, s := range a.cfg.Access.AuthorizedUIDs {
		uid, err := rc522.ParseUID(s)
		if err != nil {
			return fmt.Errorf("%w: access.authorized_uids: %w", config.ErrInvalidConfig, err)
		}
		uids = append(uids, uid)
	}

	opts := []access.Option{access.WithLogger(a.logger.Named("access"))}
	if a.db != nil {
		opts = append(opts, access.WithStore(a.db))
	}
	a.registry = access.NewRegistry(uids, opts...)
	if err := a.registry.Load(ctx); err != nil {
		return fmt.Errorf("failed to load authorized cards: %w", err)
	}
	return nil
}

// connectCloud dials the broker. The controller works offline when it
// cannot.
func (a *App) connectCloud(ctx context.Context) {
	m := a.cfg.MQTT
	if !m.Enabled {
		return
	}
	logger := a.logger.Named("mqtt")
	client, err := cloud.Dial(ctx, cloud.Config{
		Broker:         m.Broker,
		ClientID:       m.ClientID,
		DeviceID:       m.DeviceID,
		Username:       m.Username,
		Password:       m.Password,
		ConnectTimeout: m.ConnectTimeout,
		QoS:            m.QoS,
	}, a.codes, cloud.WithLogger(logger), cloud.WithOTAHandler(func(_ context.Context, req cloud.OTARequest) error {
		logger.Warn("OTA update requested but not supported",
			zap.String("url", req.URL), zap.String("version", req.Version))
		return nil
	}))
	if err != nil {
		logger.Error("mqtt unavailable, continuing offline", zap.Error(err))
		return
	}
	a.mqtt = client
	a.pub = client
}

func (a *App) buildEntry() error {
	master, err := passcode.NewMasterSecret(a.cfg.Passcode.Secret, a.cfg.Passcode.SecretHash)
	if err != nil {
		return err
	}
	opts := []passcode.Option{
		passcode.WithLogger(a.logger.Named("passcode")),
		passcode.WithPublisher(a.pub),
	}
	if a.led != nil {
		opts = append(opts, passcode.WithIndicator(a.led))
	}
	if a.db != nil {
		opts = append(opts, passcode.WithAuditor(a.db))
	}
	a.entry, err = passcode.NewEntry(a.door, a.screen,
		passcode.AnyOf(master, passcode.CodeVerifier(a.codes)),
		passcode.Config{
			MaxAttempts: a.cfg.Passcode.MaxAttempts,
			Lockout:     a.cfg.Passcode.Lockout,
			AutoLock:    a.cfg.Passcode.AutoLock,
		}, opts...)
	if err != nil {
		return err
	}
	a.door.SetOverlay(a.entry)
	return nil
}

func (a *App) openScanner(ctx context.Context, hw Hardware) {
	logger := a.logger.Named("reader")
	device, err := OpenReader(ctx, a.cfg.Reader, hw.Transport, logger)
	if err != nil {
		logger.Error("RC522 initialization failed, running keypad only", zap.Error(err))
		a.screen.ShowMessage("RFID Init Failed!", 2*time.Second)
		return
	}

	cfg := polling.DefaultConfig()
	cfg.Interval = a.cfg.Reader.ScanInterval
	cfg.IdleInterval = a.cfg.Reader.IdleInterval
	cfg.AutoLock = a.cfg.Passcode.AutoLock
	opts := []polling.Option{polling.WithLogger(logger), polling.WithSleeper(hw.Sleep)}
	if a.db != nil {
		opts = append(opts, polling.WithAuditor(a.db))
	}
	scanner, err := polling.NewCardScanner(device, a.registry, a.door, a.screen, cfg, opts...)
	if err != nil {
		_ = device.Close()
		logger.Error("invalid scan settings, running keypad only", zap.Error(err))
		return
	}
	a.device = device
	a.scanner = scanner
	a.screen.ShowMessage("RFID Ready!", time.Second)
}

// Start brings the door into a known state and announces the device
func (a *App) Start(ctx context.Context) error {
	if err := a.door.Lock(ctx); err != nil {
		a.logger.Error("failed to lock door at startup", zap.Error(err))
		if err := a.pub.PublishLockStatus(ctx, a.door.State() == door.Locked); err != nil {
			a.logger.Warn("failed to publish lock status", zap.Error(err))
		}
	}
	if a.led != nil {
		_ = a.led.Flash(ctx, actuator.PatternStartup)
	}
	a.screen.ShowMessage("System Ready!", time.Second)

	if err := a.pub.RequestAllCodes(ctx); err != nil {
		a.logger.Warn("failed to request codes", zap.Error(err))
	}
	a.logger.Info("system initialization complete",
		zap.Bool("card_reader", a.scanner != nil), zap.Bool("keypad", a.keys != nil))
	return ctx.Err()
}

// Run drives the card and keypad loops until ctx ends
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if a.scanner != nil {
		g.Go(func() error { return a.scanner.Run(ctx) })
	}
	if a.keys != nil {
		g.Go(func() error {
			a.entry.Run(ctx, a.keys)
			return nil
		})
	}
	g.Go(func() error { return a.pruneCodes(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *App) pruneCodes(ctx context.Context) error {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := a.codes.Prune(ctx); err != nil {
				a.logger.Warn("failed to prune expired codes", zap.Error(err))
			} else if n > 0 {
				a.logger.Info("pruned expired codes", zap.Int("count", n))
			}
		}
	}
}

// Close releases every resource
func (a *App) Close() error {
	var errs []error
	if a.door != nil {
		a.door.Close()
	}
	if a.mqtt != nil {
		a.mqtt.Close()
	}
	if a.device != nil {
		if err := a.device.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Door returns the door controller
func (a *App) Door() *door.Controller { return a.door }

// Entry returns the keypad state machine
func (a *App) Entry() *passcode.Entry { return a.entry }

// Registry returns the authorized cards
func (a *App) Registry() *access.Registry { return a.registry }

// Codes returns the access code store
func (a *App) Codes() *codes.Store { return a.codes }

// Screen returns the display
func (a *App) Screen() *display.Screen { return a.screen }

// Scanner returns the card loop, nil in keypad only mode
func (a *App) Scanner() *polling.CardScanner { return a.scanner }
