// go-pn532
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-pn532.
//
// go-pn532 is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-pn532 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-pn532; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package pn532

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Device errors
var (
	ErrNotImplemented = errors.New("not implemented")
)

// DeviceConfig contains configuration options for the Device.
type DeviceConfig struct {
	// RetryConfig configures retry behavior for transport operations.
	RetryConfig *RetryConfig
	// Timeout is the default timeout for operations, and the ACK wait
	// window used before every command (READY_TIMEOUT_MS).
	Timeout time.Duration
}

// DefaultDeviceConfig returns default device configuration.
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		RetryConfig: DefaultRetryConfig(),
		Timeout:     3 * time.Second,
	}
}

// Device drives a PN532 in card-emulation (target) mode over a Transport.
// It implements Controller.
//
// Thread Safety: Device is NOT thread-safe. The Session Manager's worker
// goroutine is the only caller permitted to touch it; the mutex below guards
// against accidental concurrent use rather than being load-bearing.
type Device struct {
	transport       Transport
	config          *DeviceConfig
	framer          *Framer
	firmwareVersion *FirmwareVersion

	mu          sync.Mutex
	initialized bool
}

// New creates a new Device with the given transport.
func New(transport Transport, opts ...Option) (*Device, error) {
	device := &Device{
		transport: transport,
		config:    DefaultDeviceConfig(),
		framer:    NewFramer(),
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	return device, nil
}

// Transport returns the underlying transport.
func (d *Device) Transport() Transport {
	return d.transport
}

// FirmwareVersion returns the version reported by the last successful
// Initialize call, or nil if the device has never been initialized.
func (d *Device) FirmwareVersion() *FirmwareVersion {
	return d.firmwareVersion
}

// Initialize opens the device: GetFirmwareVersion with a short timeout, then
// SAMConfiguration. Failure at either step leaves the device uninitialized.
func (d *Device) Initialize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initialized = false

	if err := d.preCommandHygiene(); err != nil {
		return fmt.Errorf("pre-command hygiene failed: %w", err)
	}

	resp, err := d.sendCommand(ctx, cmdGetFirmwareVersion, nil)
	if err != nil {
		return fmt.Errorf("GetFirmwareVersion failed: %w", err)
	}
	if len(resp) < 4 {
		return fmt.Errorf("%w: GetFirmwareVersion response too short", ErrInvalidResponse)
	}
	d.firmwareVersion = &FirmwareVersion{
		IC:      resp[0],
		Version: resp[1],
		Rev:     resp[2],
		Support: resp[3],
	}

	if _, err := d.sendCommand(ctx, cmdSamConfiguration, samConfigurationNormalMode); err != nil {
		d.firmwareVersion = nil
		return fmt.Errorf("SAMConfiguration failed: %w", err)
	}

	d.initialized = true
	debugf("pn532: initialized, firmware %+v", *d.firmwareVersion)
	return nil
}

// Init is a convenience wrapper over Initialize using a background context,
// kept for parity with the options pattern below which predates context
// threading in this package.
func (d *Device) Init() error {
	return d.Initialize(context.Background())
}

// SetTimeout sets the default timeout for operations.
func (d *Device) SetTimeout(timeout time.Duration) error {
	d.config.Timeout = timeout
	if err := d.transport.SetTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set timeout on transport: %w", err)
	}
	return nil
}

// SetRetryConfig updates the retry configuration.
func (d *Device) SetRetryConfig(config *RetryConfig) {
	d.config.RetryConfig = config
	if tr, ok := d.transport.(*TransportWithRetry); ok {
		tr.SetRetryConfig(config)
	}
}

// Close closes the device connection.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initialized = false
	if d.transport != nil {
		if err := d.transport.Close(); err != nil {
			return fmt.Errorf("failed to close transport: %w", err)
		}
	}
	return nil
}

var _ Controller = (*Device)(nil)
