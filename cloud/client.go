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

// Package cloud syncs lock state, alerts and access codes with the backend
// over MQTT
package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-rc522/codes"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// ErrNotConnected is returned when publishing without a broker session
var ErrNotConnected = errors.New("mqtt not connected")

// Publisher is the outbound side used by the controller
type Publisher interface {
	PublishLockStatus(ctx context.Context, locked bool) error
	PublishCode(ctx context.Context, codeID, code string) error
	PublishAlert(ctx context.Context, alert AlertType) error
	RequestAllCodes(ctx context.Context) error
}

// OTAHandler is invoked for OTA update announcements
type OTAHandler func(ctx context.Context, req OTARequest) error

// Broker is the part of a paho client this package uses
type Broker interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Disconnect(quiesce uint)
}

// Config configures the MQTT session
type Config struct {
	Broker         string
	ClientID       string
	DeviceID       string
	Username       string
	Password       string
	ConnectTimeout time.Duration
	QoS            byte
}

// Client publishes device events and applies backend code updates
type Client struct {
	broker   Broker
	codes    *codes.Store
	onOTA    OTAHandler
	logger   *zap.Logger
	deviceID string
	timeout  time.Duration
	qos      byte
	mu       sync.Mutex
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithOTAHandler sets the OTA update hook
func WithOTAHandler(h OTAHandler) Option {
	return func(c *Client) { c.onOTA = h }
}

// NewClient wraps a broker session. Call Subscribe to start receiving
// backend messages.
func NewClient(broker Broker, deviceID string, store *codes.Store, qos byte, opts ...Option) *Client {
	c := &Client{
		broker:   broker,
		codes:    store,
		logger:   zap.NewNop(),
		deviceID: deviceID,
		timeout:  10 * time.Second,
		qos:      qos,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to the broker. Subscriptions are restored on every
// reconnect.
func Dial(ctx context.Context, cfg Config, store *codes.Store, opts ...Option) (*Client, error) {
	c := NewClient(nil, cfg.DeviceID, store, cfg.QoS, opts...)
	if cfg.ConnectTimeout > 0 {
		c.timeout = cfg.ConnectTimeout
	}

	options := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetMaxReconnectInterval(time.Minute).
		SetConnectTimeout(c.timeout).
		SetOnConnectHandler(func(mqtt.Client) {
			c.logger.Info("mqtt connected", zap.String("broker", cfg.Broker))
			if err := c.Subscribe(context.Background()); err != nil {
				c.logger.Error("mqtt subscribe failed", zap.Error(err))
			}
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			c.logger.Warn("mqtt connection lost", zap.Error(err))
		})

	client := mqtt.NewClient(options)
	c.broker = client
	if err := c.wait(ctx, client.Connect()); err != nil {
		client.Disconnect(250)
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Broker, err)
	}
	return c, nil
}

// wait blocks until the token completes, the timeout passes or ctx ends
func (c *Client) wait(ctx context.Context, token mqtt.Token) error {
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("mqtt operation timed out after %s", c.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers the inbound topic handlers
func (c *Client) Subscribe(ctx context.Context) error {
	handlers := map[string]mqtt.MessageHandler{
		TopicServerCode:     c.handle(c.onServerCode),
		TopicServerAllCodes: c.handle(c.onServerAllCodes),
		TopicServerOTA:      c.handle(c.onServerOTA),
	}
	for topic, handler := range handlers {
		if err := c.wait(ctx, c.broker.Subscribe(topic, c.qos, handler)); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}
	return nil
}

func (c *Client) handle(fn func(ctx context.Context, payload []byte) error) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		if err := fn(ctx, msg.Payload()); err != nil {
			c.logger.Warn("mqtt message rejected", zap.String("topic", msg.Topic()), zap.Error(err))
		}
	}
}

func (c *Client) forOtherDevice(deviceID string) bool {
	return deviceID != "" && deviceID != c.deviceID
}

func (c *Client) onServerCode(ctx context.Context, payload []byte) error {
	var msg ServerCode
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("malformed code message: %w", err)
	}
	if c.forOtherDevice(msg.DeviceID) {
		return nil
	}
	if msg.Action == ActionDelete {
		return c.codes.Delete(ctx, msg.CodeID)
	}

	code, err := msg.ToCode()
	if err != nil {
		return err
	}
	stored, err := c.codes.Add(ctx, code)
	if err != nil {
		return err
	}
	return c.PublishCode(ctx, stored.ID, stored.Secret)
}

func (c *Client) onServerAllCodes(ctx context.Context, payload []byte) error {
	var msg ServerAllCodes
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("malformed all-code message: %w", err)
	}
	if c.forOtherDevice(msg.DeviceID) {
		return nil
	}
	list := make([]codes.Code, 0, len(msg.Codes))
	for _, sc := range msg.Codes {
		code, err := sc.ToCode()
		if err != nil {
			return fmt.Errorf("code %s: %w", sc.CodeID, err)
		}
		list = append(list, code)
	}
	return c.codes.Replace(ctx, list)
}

func (c *Client) onServerOTA(ctx context.Context, payload []byte) error {
	var req OTARequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("malformed ota message: %w", err)
	}
	if c.forOtherDevice(req.DeviceID) {
		return nil
	}
	c.logger.Info("OTA update announced", zap.String("version", req.Version), zap.String("url", req.URL))
	if c.onOTA == nil {
		return nil
	}
	return c.onOTA(ctx, req)
}

func (c *Client) publish(ctx context.Context, topic string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.broker.IsConnected() {
		return ErrNotConnected
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", topic, err)
	}
	if err := c.wait(ctx, c.broker.Publish(topic, c.qos, false, payload)); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	c.logger.Debug("mqtt published", zap.String("topic", topic), zap.ByteString("payload", payload))
	return nil
}

// PublishLockStatus implements Publisher
func (c *Client) PublishLockStatus(ctx context.Context, locked bool) error {
	return c.publish(ctx, TopicLockStatus, LockStatus{DeviceID: c.deviceID, IsLocked: locked})
}

// PublishCode implements Publisher
func (c *Client) PublishCode(ctx context.Context, codeID, code string) error {
	return c.publish(ctx, TopicLockCode, CodeAck{DeviceID: c.deviceID, CodeID: codeID, Code: code})
}

// PublishAlert implements Publisher
func (c *Client) PublishAlert(ctx context.Context, alert AlertType) error {
	return c.publish(ctx, TopicAlert, Alert{DeviceID: c.deviceID, Type: alert})
}

// RequestAllCodes implements Publisher
func (c *Client) RequestAllCodes(ctx context.Context) error {
	return c.publish(ctx, TopicAllCodes, AllCodesRequest{DeviceID: c.deviceID})
}

// Close disconnects, giving in-flight messages 250 ms
func (c *Client) Close() {
	c.broker.Disconnect(250)
}

// Discard is a Publisher that drops everything, for running without a
// broker
type Discard struct{}

// PublishLockStatus implements Publisher
func (Discard) PublishLockStatus(context.Context, bool) error { return nil }

// PublishCode implements Publisher
func (Discard) PublishCode(context.Context, string, string) error { return nil }

// PublishAlert implements Publisher
func (Discard) PublishAlert(context.Context, AlertType) error { return nil }

// RequestAllCodes implements Publisher
func (Discard) RequestAllCodes(context.Context) error { return nil }

var (
	_ Publisher = (*Client)(nil)
	_ Publisher = Discard{}
	_ Broker    = mqtt.Client(nil)
)
