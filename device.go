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

package rc522

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ZaparooProject/go-rc522/detection"
)

// Chip version register values
const (
	VersionClone   byte = 0x88
	VersionV0      byte = 0x90
	VersionV1      byte = 0x91
	VersionV2      byte = 0x92
	VersionFM17522 byte = 0x12
)

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// Backoff configures the delay between failed card scans
	Backoff *BackoffConfig
	// RequestRetries is the number of REQA/WUPA attempts per request
	RequestRetries int
	// WakeFrames is the number of WUPA frames sent while waking the field
	WakeFrames int
	// SoftResetDelay is the settle time after a soft reset
	SoftResetDelay time.Duration
	// StateResetDelay is the settle time after ResetProtocolState
	StateResetDelay time.Duration
	// FieldEnergizeDelay is the wait after enabling the antenna before waking
	FieldEnergizeDelay time.Duration
	// WakeFrameGap separates successive wake frames
	WakeFrameGap time.Duration
	// RequestRetryGap is the wait after a failed request attempt
	RequestRetryGap time.Duration
	// AntennaSettleDelay is the wait between enabling and verifying the antenna
	AntennaSettleDelay time.Duration
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		Backoff:            DefaultBackoffConfig(),
		RequestRetries:     3,
		WakeFrames:         3,
		SoftResetDelay:     100 * time.Millisecond,
		StateResetDelay:    10 * time.Millisecond,
		FieldEnergizeDelay: 50 * time.Millisecond,
		WakeFrameGap:       20 * time.Millisecond,
		RequestRetryGap:    10 * time.Millisecond,
		AntennaSettleDelay: 10 * time.Millisecond,
	}
}

// Validate checks if the configuration is valid
func (c *DeviceConfig) Validate() error {
	if c.RequestRetries < 1 || c.WakeFrames < 0 {
		return ErrInvalidParameter
	}
	if c.Backoff != nil {
		if err := c.Backoff.Validate(); err != nil {
			return fmt.Errorf("invalid backoff config: %w", err)
		}
	}
	return nil
}

// Device represents an MFRC522 contactless transceiver
//
// Thread Safety: Device is NOT thread-safe. All methods must be called from
// a single goroutine or protected with external synchronization. The card
// scanning loop is the only intended caller in the door controller.
type Device struct {
	transport Transport
	config    *DeviceConfig
	backoff   *Backoff
	poller    *Poller
	sleep     SleepFunc
	logger    *zap.Logger
	version   byte
}

// New creates a new MFRC522 device with the given transport
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}
	device := &Device{
		transport: transport,
		config:    DefaultDeviceConfig(),
		poller:    DefaultPoller(),
		sleep:     Sleep,
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	if err := device.config.Validate(); err != nil {
		return nil, err
	}
	device.backoff = NewBackoff(device.config.Backoff)
	if device.poller.Sleep == nil {
		device.poller.Sleep = device.sleep
	}

	return device, nil
}

// TransportFactory is a function type for creating transports
type TransportFactory func(path string) (Transport, error)

// TransportFromDeviceFactory is a function type for creating transports from detected devices
type TransportFromDeviceFactory func(device detection.DeviceInfo) (Transport, error)

// ConnectOption represents a functional option for ConnectDevice
type ConnectOption func(*connectConfig) error

type connectConfig struct {
	transportFactory       TransportFactory
	transportDeviceFactory TransportFromDeviceFactory
	deviceOptions          []Option
	timeout                time.Duration
	autoDetect             bool
}

// WithAutoDetection enables automatic device detection instead of using a specific path
func WithAutoDetection() ConnectOption {
	return func(c *connectConfig) error {
		c.autoDetect = true
		return nil
	}
}

// WithDeviceOptions adds device-level options
func WithDeviceOptions(opts ...Option) ConnectOption {
	return func(c *connectConfig) error {
		c.deviceOptions = append(c.deviceOptions, opts...)
		return nil
	}
}

// WithConnectTimeout bounds the time spent initializing the chip
func WithConnectTimeout(timeout time.Duration) ConnectOption {
	return func(c *connectConfig) error {
		c.timeout = timeout
		return nil
	}
}

// WithTransportFactory sets the transport factory function
func WithTransportFactory(factory TransportFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportFactory = factory
		return nil
	}
}

// WithTransportFromDeviceFactory sets the transport from device factory function
func WithTransportFromDeviceFactory(factory TransportFromDeviceFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportDeviceFactory = factory
		return nil
	}
}

// ConnectDevice creates and initializes a device from a path or auto-detection.
//
// Example usage:
//
//	device, err := rc522.ConnectDevice(ctx, "/dev/spidev0.0",
//		rc522.WithTransportFactory(func(path string) (rc522.Transport, error) {
//			return spi.New(path)
//		}))
func ConnectDevice(ctx context.Context, path string, opts ...ConnectOption) (*Device, error) {
	config := &connectConfig{timeout: 5 * time.Second}
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("failed to apply connect option: %w", err)
		}
	}

	var (
		transport Transport
		err       error
	)
	if config.autoDetect || path == "" {
		transport, err = createAutoDetectedTransport(config.transportDeviceFactory)
	} else {
		transport, err = createManualTransport(path, config.transportFactory)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	device, err := New(transport, config.deviceOptions...)
	if err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	initCtx := ctx
	if config.timeout > 0 {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, config.timeout)
		defer cancel()
	}
	if err := device.Init(initCtx); err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("failed to initialize device: %w", err)
	}
	return device, nil
}

func createManualTransport(path string, factory TransportFactory) (Transport, error) {
	if factory == nil {
		return nil, errors.New("transport factory not provided")
	}
	transport, err := factory(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport for path %s: %w", path, err)
	}
	return transport, nil
}

func createAutoDetectedTransport(factory TransportFromDeviceFactory) (Transport, error) {
	opts := detection.DefaultOptions()
	opts.Mode = detection.Safe

	devices, err := detection.DetectAll(&opts)
	if err != nil {
		return nil, fmt.Errorf("failed to detect devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, errors.New("no MFRC522 devices found")
	}
	if factory == nil {
		return nil, errors.New("transport device factory not provided")
	}
	return factory(devices[0])
}

// Transport returns the underlying transport
func (d *Device) Transport() Transport {
	return d.transport
}

// Backoff returns the scan backoff tracker
func (d *Device) Backoff() *Backoff {
	return d.backoff
}

// Logger returns the device logger
func (d *Device) Logger() *zap.Logger {
	return d.logger
}

// WriteRegister writes a single register
func (d *Device) WriteRegister(ctx context.Context, reg, value byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if reg > maxRegister {
		return fmt.Errorf("%w: register 0x%02X", ErrInvalidParameter, reg)
	}
	if err := d.transport.WriteRegister(reg, value); err != nil {
		return NewBusError("write", portName(d.transport), reg, err)
	}
	return nil
}

// ReadRegister reads a single register
func (d *Device) ReadRegister(ctx context.Context, reg byte) (byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if reg > maxRegister {
		return 0, fmt.Errorf("%w: register 0x%02X", ErrInvalidParameter, reg)
	}
	value, err := d.transport.ReadRegister(reg)
	if err != nil {
		return 0, NewBusError("read", portName(d.transport), reg, err)
	}
	return value, nil
}

// SetBits sets mask bits in a register with a read-modify-write
func (d *Device) SetBits(ctx context.Context, reg, mask byte) error {
	value, err := d.ReadRegister(ctx, reg)
	if err != nil {
		return err
	}
	return d.WriteRegister(ctx, reg, value|mask)
}

// ClearBits clears mask bits in a register with a read-modify-write
func (d *Device) ClearBits(ctx context.Context, reg, mask byte) error {
	value, err := d.ReadRegister(ctx, reg)
	if err != nil {
		return err
	}
	return d.WriteRegister(ctx, reg, value&^mask)
}

// writeSequence writes register/value pairs in order, stopping on the first error
func (d *Device) writeSequence(ctx context.Context, pairs ...[2]byte) error {
	for _, p := range pairs {
		if err := d.WriteRegister(ctx, p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

// ResetProtocolState idles the chip, clears interrupt and error flags and
// flushes the FIFO so the next exchange starts clean.
func (d *Device) ResetProtocolState(ctx context.Context) error {
	err := d.writeSequence(ctx,
		[2]byte{RegCommand, CmdIdle},
		[2]byte{RegComIrq, irqAll},
		[2]byte{RegError, 0x00},
		[2]byte{RegFIFOLevel, fifoFlush},
	)
	if err != nil {
		return err
	}
	return d.sleep(ctx, d.config.StateResetDelay)
}

// AntennaOn switches both antenna drivers. When turning on, the TxControl
// bits are read back and ErrAntenna is returned if they did not latch.
func (d *Device) AntennaOn(ctx context.Context, on bool) error {
	if !on {
		return d.ClearBits(ctx, RegTxControl, txControlAntenna)
	}

	value, err := d.ReadRegister(ctx, RegTxControl)
	if err != nil {
		return err
	}
	if value&txControlAntenna == txControlAntenna {
		return nil
	}
	if err := d.WriteRegister(ctx, RegTxControl, value|txControlAntenna); err != nil {
		return err
	}
	if err := d.sleep(ctx, d.config.AntennaSettleDelay); err != nil {
		return err
	}

	value, err = d.ReadRegister(ctx, RegTxControl)
	if err != nil {
		return err
	}
	if value&txControlAntenna != txControlAntenna {
		return fmt.Errorf("%w: TxControl=0x%02X", ErrAntenna, value)
	}
	return nil
}

// Init soft-resets the chip, verifies it responds and configures the timer,
// modulation and receiver before enabling the antenna.
func (d *Device) Init(ctx context.Context) error {
	if r, ok := d.transport.(Resetter); ok {
		if err := r.HardReset(); err != nil {
			return fmt.Errorf("hard reset failed: %w", err)
		}
	}

	if err := d.WriteRegister(ctx, RegCommand, CmdSoftReset); err != nil {
		return fmt.Errorf("soft reset failed: %w", err)
	}
	if err := d.sleep(ctx, d.config.SoftResetDelay); err != nil {
		return err
	}

	version, err := d.Version(ctx)
	if err != nil {
		return err
	}
	if version == 0x00 || version == 0xFF {
		return fmt.Errorf("%w: version register reads 0x%02X", ErrNoChip, version)
	}
	d.version = version
	d.logger.Info("transceiver detected",
		zap.String("version", fmt.Sprintf("0x%02X", version)),
		zap.String("transport", string(d.transport.Type())))

	err = d.writeSequence(ctx,
		// TAuto, prescaler 0xD3E: 25 ms timeout with TReload 30
		[2]byte{RegTMode, 0x8D},
		[2]byte{RegTPrescaler, 0x3E},
		[2]byte{RegTReloadL, 30},
		[2]byte{RegTReloadH, 0},
		// force 100% ASK
		[2]byte{RegTxASK, 0x40},
		// CRC preset 0x6363
		[2]byte{RegMode, 0x3D},
		[2]byte{RegRFCfg, 0x68},
		[2]byte{RegRxThreshold, 0x84},
	)
	if err != nil {
		return fmt.Errorf("register setup failed: %w", err)
	}

	if err := d.ResetProtocolState(ctx); err != nil {
		return err
	}
	return d.AntennaOn(ctx, true)
}

// Version reads the chip version register
func (d *Device) Version(ctx context.Context) (byte, error) {
	return d.ReadRegister(ctx, RegVersion)
}

// ChipVersion returns the version read during Init
func (d *Device) ChipVersion() byte {
	return d.version
}

// DumpRegisters reads the registers that matter for diagnosing a stuck
// exchange and logs them at debug level.
func (d *Device) DumpRegisters(ctx context.Context) (map[string]byte, error) {
	regs := []struct {
		name string
		reg  byte
	}{
		{"Command", RegCommand},
		{"ComIrq", RegComIrq},
		{"Error", RegError},
		{"Status1", RegStatus1},
		{"Status2", RegStatus2},
		{"FIFOLevel", RegFIFOLevel},
		{"Control", RegControl},
		{"BitFraming", RegBitFraming},
		{"TxControl", RegTxControl},
		{"TxMode", RegTxMode},
		{"RxMode", RegRxMode},
		{"Version", RegVersion},
	}

	dump := make(map[string]byte, len(regs))
	fields := make([]zap.Field, 0, len(regs))
	for _, r := range regs {
		value, err := d.ReadRegister(ctx, r.reg)
		if err != nil {
			return dump, err
		}
		dump[r.name] = value
		fields = append(fields, zap.String(r.name, fmt.Sprintf("0x%02X", value)))
	}
	d.logger.Debug("register dump", fields...)
	return dump, nil
}

// Close switches the antenna off and closes the transport
func (d *Device) Close() error {
	if d.transport == nil {
		return nil
	}
	if d.transport.IsConnected() {
		_ = d.AntennaOn(context.Background(), false)
	}
	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}
