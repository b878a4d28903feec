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

package frame

import "sync"

// bufferPool recycles byte slices used for frame construction and I2C/UART
// reads so the hot command path does not allocate on every call.
var bufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, MaxFrameDataLength+8)
		return &buf
	},
}

// GetBuffer returns a zeroed buffer of exactly n bytes from the pool.
func GetBuffer(n int) []byte {
	ptr, _ := bufferPool.Get().(*[]byte)
	buf := *ptr
	if cap(buf) < n {
		buf = make([]byte, n)
	} else {
		buf = buf[:n]
		for i := range buf {
			buf[i] = 0
		}
	}
	return buf
}

// GetSmallBuffer is GetBuffer for the short, fixed-size reads (ready poll,
// ACK frame) that dominate the protocol's chatter.
func GetSmallBuffer(n int) []byte {
	return GetBuffer(n)
}

// PutBuffer returns a buffer obtained from GetBuffer/GetSmallBuffer to the pool.
func PutBuffer(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	reset := buf[:0]
	bufferPool.Put(&reset)
}

// ExtractFrameData validates the data checksum of a response frame whose
// LEN byte sits at buf[off] and, on success, returns the payload bytes
// following the TFI byte.
//
// shouldRetry is true when the checksum does not validate yet but more data
// may still arrive (caller should NACK and read again); err is non-nil only
// for a structurally impossible frame.
func ExtractFrameData(buf []byte, off, frameLen int, expectedTFI byte) (data []byte, shouldRetry bool, err error) {
	start := off + 2
	end := off + 2 + frameLen + 1
	if end > len(buf) {
		return nil, true, nil
	}

	if ValidateFrameChecksum(buf, start, end) {
		return nil, true, nil
	}

	if frameLen < 1 {
		return nil, false, ErrEmptyFrame
	}

	tfi := buf[start]
	if tfi != expectedTFI {
		return nil, true, nil
	}

	payload := buf[start+1 : end-1]
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, false, nil
}
