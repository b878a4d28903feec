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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevice_InitializeSuccess(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport()
	transport.setResponse(cmdGetFirmwareVersion, []byte{0x32, 0x01, 0x06, 0x07}, nil)
	transport.setResponse(cmdSamConfiguration, []byte{}, nil)

	dev, err := New(transport, WithMaxRetries(1))
	require.NoError(t, err)

	require.NoError(t, dev.Initialize(context.Background()))
	require.NotNil(t, dev.FirmwareVersion())
	assert.Equal(t, byte(0x32), dev.FirmwareVersion().IC)
	assert.Equal(t, byte(0x01), dev.FirmwareVersion().Version)
}

func TestDevice_InitializeFirmwareResponseTooShort(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport()
	transport.setResponse(cmdGetFirmwareVersion, []byte{0x32}, nil)

	dev, err := New(transport, WithMaxRetries(1))
	require.NoError(t, err)

	err = dev.Initialize(context.Background())
	require.ErrorIs(t, err, ErrInvalidResponse)
	assert.Nil(t, dev.FirmwareVersion())
}

func TestDevice_InitializeSAMConfigurationFails(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport()
	transport.setResponse(cmdGetFirmwareVersion, []byte{0x32, 0x01, 0x06, 0x07}, nil)
	transport.setResponse(cmdSamConfiguration, nil, ErrInvalidResponse)

	dev, err := New(transport, WithMaxRetries(1))
	require.NoError(t, err)

	err = dev.Initialize(context.Background())
	require.Error(t, err)
	assert.Nil(t, dev.FirmwareVersion())
}

func TestDevice_SetTimeoutForwardsToTransport(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport()
	dev, err := New(transport)
	require.NoError(t, err)

	require.NoError(t, dev.SetTimeout(7*time.Second))
	assert.Equal(t, 7*time.Second, transport.timeout)
}

func TestDevice_CloseMarksUninitializedAndClosesTransport(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport()
	transport.setResponse(cmdGetFirmwareVersion, []byte{0x32, 0x01, 0x06, 0x07}, nil)
	transport.setResponse(cmdSamConfiguration, []byte{}, nil)

	dev, err := New(transport, WithMaxRetries(1))
	require.NoError(t, err)
	require.NoError(t, dev.Initialize(context.Background()))

	require.NoError(t, dev.Close())
	assert.True(t, transport.closed)

	_, err = dev.InitAsTarget(context.Background(), []byte{0x01})
	require.ErrorIs(t, err, ErrNotInitialized)
}
