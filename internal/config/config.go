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

// Package config loads the controller configuration from YAML and the
// environment
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. DOORLOCK_MQTT_BROKER
const EnvPrefix = "DOORLOCK"

// Config is the full controller configuration
type Config struct {
	Reader   ReaderConfig   `mapstructure:"reader"`
	Keypad   KeypadConfig   `mapstructure:"keypad"`
	Actuator ActuatorConfig `mapstructure:"actuator"`
	Passcode PasscodeConfig `mapstructure:"passcode"`
	Access   AccessConfig   `mapstructure:"access"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Store    StoreConfig    `mapstructure:"store"`
	Log      LogConfig      `mapstructure:"log"`
}

// ReaderConfig selects the RC522 bus
type ReaderConfig struct {
	Transport      string        `mapstructure:"transport"`
	Path           string        `mapstructure:"path"`
	ResetPin       string        `mapstructure:"reset_pin"`
	BaudRate       int           `mapstructure:"baud_rate"`
	SpeedHz        int64         `mapstructure:"speed_hz"`
	AutoDetect     bool          `mapstructure:"auto_detect"`
	ScanInterval   time.Duration `mapstructure:"scan_interval"`
	IdleInterval   time.Duration `mapstructure:"idle_interval"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// KeypadConfig names the matrix GPIO lines, top row and left column first
type KeypadConfig struct {
	Rows    []string `mapstructure:"rows"`
	Columns []string `mapstructure:"columns"`
}

// ActuatorConfig names the servo and status LED lines
type ActuatorConfig struct {
	ServoPin string `mapstructure:"servo_pin"`
	LEDPin   string `mapstructure:"led_pin"`
}

// PasscodeConfig holds the master secret. SecretHash, when set, is a bcrypt
// hash and takes precedence over Secret.
type PasscodeConfig struct {
	Secret      string        `mapstructure:"secret"`
	SecretHash  string        `mapstructure:"secret_hash"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Lockout     time.Duration `mapstructure:"lockout"`
	AutoLock    time.Duration `mapstructure:"auto_lock"`
}

// AccessConfig lists the cards authorized at boot
type AccessConfig struct {
	AuthorizedUIDs []string `mapstructure:"authorized_uids"`
}

// MQTTConfig configures cloud sync
type MQTTConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"client_id"`
	DeviceID       string        `mapstructure:"device_id"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	QoS            byte          `mapstructure:"qos"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// StoreConfig configures the sqlite database
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// LogConfig configures logging
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks the values the controller cannot run without
func (c *Config) Validate() error {
	switch c.Reader.Transport {
	case "spi", "uart", "sim":
	default:
		return fmt.Errorf("%w: reader.transport %q must be spi, uart or sim", ErrInvalidConfig, c.Reader.Transport)
	}
	if !c.Reader.AutoDetect && c.Reader.Transport != "sim" && c.Reader.Path == "" {
		return fmt.Errorf("%w: reader.path is required without auto_detect", ErrInvalidConfig)
	}
	if c.Passcode.Secret == "" && c.Passcode.SecretHash == "" {
		return fmt.Errorf("%w: passcode.secret or passcode.secret_hash is required", ErrInvalidConfig)
	}
	if c.Passcode.MaxAttempts < 1 {
		return fmt.Errorf("%w: passcode.max_attempts must be at least 1", ErrInvalidConfig)
	}
	if len(c.Keypad.Rows) > 0 && (len(c.Keypad.Rows) != 4 || len(c.Keypad.Columns) != 4) {
		return fmt.Errorf("%w: keypad needs 4 rows and 4 columns", ErrInvalidConfig)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("%w: mqtt.broker is required when mqtt is enabled", ErrInvalidConfig)
	}
	return nil
}

// Loader reads the configuration and tracks reloads
type Loader struct {
	v   *viper.Viper
	cfg *Config
	mu  sync.RWMutex
}

// Load reads path, or ./doorlock.yaml and /etc/doorlock/doorlock.yaml when
// path is empty. A missing default file is not an error.
func Load(path string) (*Loader, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("doorlock")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/doorlock")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	return &Loader{v: v, cfg: cfg}, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Get returns the current configuration
func (l *Loader) Get() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// File returns the config file in use, empty when running on defaults
func (l *Loader) File() string {
	return l.v.ConfigFileUsed()
}

// Watch reloads the file on change and passes every valid configuration to
// onChange. Invalid edits are reported to onError and the previous
// configuration stays in effect.
func (l *Loader) Watch(onChange func(*Config), onError func(error)) {
	l.v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := decode(l.v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		l.mu.Lock()
		l.cfg = cfg
		l.mu.Unlock()
		if onChange != nil {
			onChange(cfg)
		}
	})
	l.v.WatchConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("reader.transport", "spi")
	v.SetDefault("reader.path", "/dev/spidev0.0")
	v.SetDefault("reader.reset_pin", "GPIO25")
	v.SetDefault("reader.baud_rate", 9600)
	v.SetDefault("reader.speed_hz", 4000000)
	v.SetDefault("reader.auto_detect", false)
	v.SetDefault("reader.scan_interval", "100ms")
	v.SetDefault("reader.idle_interval", "500ms")
	v.SetDefault("reader.connect_timeout", "5s")

	v.SetDefault("keypad.rows", []string{"GPIO5", "GPIO6", "GPIO13", "GPIO19"})
	v.SetDefault("keypad.columns", []string{"GPIO12", "GPIO16", "GPIO20", "GPIO21"})

	v.SetDefault("actuator.servo_pin", "GPIO18")
	v.SetDefault("actuator.led_pin", "GPIO23")

	v.SetDefault("passcode.secret", "1234")
	v.SetDefault("passcode.max_attempts", 3)
	v.SetDefault("passcode.lockout", "30s")
	v.SetDefault("passcode.auto_lock", "5s")

	v.SetDefault("access.authorized_uids", []string{"43F45A13", "F3F1110E"})

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "doorlock")
	v.SetDefault("mqtt.device_id", "doorlock-1")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.connect_timeout", "10s")

	v.SetDefault("store.enabled", true)
	v.SetDefault("store.dsn", "doorlock.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.dir", "./logs")
	v.SetDefault("log.filename", "doorlock.log")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.compress", true)
}
