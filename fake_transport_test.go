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
	"fmt"
	"sync"
	"time"
)

// fakeResponse is the canned result for one command code.
type fakeResponse struct {
	err  error
	data []byte
}

// fakeTransport is a hand-built, hardware-free Transport used to drive
// Device through its command sequencing without a real PN532 or I2C bus.
type fakeTransport struct {
	mu sync.Mutex

	responses map[byte]fakeResponse
	sent      []byte

	readyQueue []bool
	readChunks [][]byte

	closed  bool
	timeout time.Duration
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{responses: make(map[byte]fakeResponse)}
}

func (f *fakeTransport) setResponse(cmd byte, data []byte, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cmd] = fakeResponse{data: data, err: err}
}

func (f *fakeTransport) queueReady(values ...bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readyQueue = append(f.readyQueue, values...)
}

func (f *fakeTransport) queueRead(chunks ...[]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readChunks = append(f.readChunks, chunks...)
}

func (f *fakeTransport) SendCommand(cmd byte, _ []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, cmd)
	resp, ok := f.responses[cmd]
	if !ok {
		return nil, fmt.Errorf("fakeTransport: no response configured for cmd 0x%02X", cmd)
	}
	return resp.data, resp.err
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) SetTimeout(timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeout = timeout
	return nil
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

func (f *fakeTransport) Type() TransportType { return TransportMock }

func (f *fakeTransport) IsReady() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.readyQueue) == 0 {
		return false, nil
	}
	v := f.readyQueue[0]
	f.readyQueue = f.readyQueue[1:]
	return v, nil
}

func (f *fakeTransport) ReadRaw(_ int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.readChunks) == 0 {
		return nil, nil
	}
	c := f.readChunks[0]
	f.readChunks = f.readChunks[1:]
	return c, nil
}

var _ Transport = (*fakeTransport)(nil)

// buildRawFrame assembles a complete PN532-to-host information frame from a
// payload (TFI omitted; it is always Pn532ToHostByte), suitable for feeding
// straight into a Framer via ReadRaw.
func buildRawFrame(payload []byte) []byte {
	dataLen := len(payload) + 1
	lengthChecksum := (^byte(dataLen)) + 1

	checksum := Pn532ToHostByte
	for _, b := range payload {
		checksum += b
	}
	dataChecksum := (^checksum) + 1

	out := make([]byte, 0, 3+2+dataLen+2)
	out = append(out, 0x00, 0x00, 0xFF, byte(dataLen), lengthChecksum, Pn532ToHostByte)
	out = append(out, payload...)
	out = append(out, dataChecksum, 0x00)
	return out
}
