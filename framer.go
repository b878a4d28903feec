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

import "bytes"

// Frame markers. internal/frame defines the same constants, but that
// package imports this one for TransportError, so the root package cannot
// import internal/frame in turn; these are kept in sync by hand, the same
// way transport/i2c duplicates its own copies rather than risk the cycle.
const (
	framerPreamble   = 0x00
	framerStartCode1 = 0x00
	framerStartCode2 = 0xFF
	framerPostamble  = 0x00
)

var ackFrameLiteral = []byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}

// FrameKind classifies a frame extracted by the Framer.
type FrameKind int

const (
	// FrameResponse is a well-formed PN532-to-host information frame.
	FrameResponse FrameKind = iota
	// FrameSyntaxError is a frame whose payload is the single byte 0x7F.
	FrameSyntaxError
)

// ExtractedFrame is a frame recovered from the Framer's receive buffer.
type ExtractedFrame struct {
	Payload []byte
	Kind    FrameKind
}

// Framer accumulates bytes read off the wire and recovers PN532 frames from
// them. An I2C read can straddle an ACK and a response, or split a single
// frame across reads, so the buffer is append-only and frames are pulled out
// of it as they become complete; whatever remains stays buffered for the
// next Feed.
type Framer struct {
	buf []byte
}

// NewFramer returns an empty Framer.
func NewFramer() *Framer {
	return &Framer{}
}

// BuildInformationFrame wraps payload (everything after the TFI byte; the
// host-to-PN532 direction byte is prepended here) in a complete PN532
// information frame: preamble, start code, length/LCS, TFI+data, DCS,
// postamble.
func (*Framer) BuildInformationFrame(payload []byte) []byte {
	dataLen := len(payload) + 1 // +1 for the TFI byte
	lengthChecksum := (^byte(dataLen)) + 1

	checksum := byte(HostToPn532Byte)
	for _, b := range payload {
		checksum += b
	}
	dataChecksum := (^checksum) + 1

	out := make([]byte, 0, 3+2+dataLen+2)
	out = append(out, framerPreamble, framerStartCode1, framerStartCode2)
	out = append(out, byte(dataLen), lengthChecksum)
	out = append(out, HostToPn532Byte)
	out = append(out, payload...)
	out = append(out, dataChecksum, framerPostamble)
	return out
}

// Feed appends newly read bytes to the receive buffer.
func (f *Framer) Feed(chunk []byte) {
	f.buf = append(f.buf, chunk...)
}

// Reset discards any buffered bytes, used when a controller is reinitialized.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}

// TryExtractACK scans the buffer for the six-byte ACK literal. If present,
// everything up to and including it is consumed and true is returned.
func (f *Framer) TryExtractACK() bool {
	idx := bytes.Index(f.buf, ackFrameLiteral)
	if idx == -1 {
		return false
	}
	f.buf = f.buf[idx+len(ackFrameLiteral):]
	return true
}

// findFrameHeader returns the index of the start-of-frame marker (the
// second 0x00 of "00 00 FF", immediately preceding the 0xFF) and whether
// the trailing byte of the buffer might be the start of a header split
// across reads.
func findFrameHeader(buf []byte) (offset int, mightSplit bool) {
	for i := 0; i < len(buf)-1; i++ {
		if buf[i] == framerPreamble && buf[i+1] == framerStartCode2 {
			return i, false
		}
	}
	if len(buf) > 0 && buf[len(buf)-1] == framerPreamble {
		return -1, true
	}
	return -1, false
}

// TryExtractFrame advances the buffer to the next frame header, verifies
// both checksums, and returns the payload after the TFI byte. It returns
// (nil, false) when no complete, valid frame is present yet; the caller
// should read more and call again. Garbage preceding a header is dropped,
// except a trailing byte is kept in case a header is split across reads.
func (f *Framer) TryExtractFrame() (*ExtractedFrame, bool) {
	for {
		off, mightSplit := findFrameHeader(f.buf)
		if off == -1 {
			if mightSplit && len(f.buf) > 0 {
				f.buf = f.buf[len(f.buf)-1:]
			} else {
				f.buf = f.buf[:0]
			}
			return nil, false
		}

		// off is the index of StartCode1 (0x00); off+1 is StartCode2 (0xFF).
		if off+3 >= len(f.buf) {
			// not enough bytes yet for length+LCS
			return nil, false
		}
		frameLen := int(f.buf[off+2])
		lengthChecksum := f.buf[off+3]
		if ((frameLen + int(lengthChecksum)) & 0xFF) != 0 {
			// bad length checksum: resync past this header and keep scanning
			f.buf = f.buf[off+3:]
			continue
		}

		start := off + 4 // TFI byte
		end := start + frameLen + 1 // one past the DCS byte
		if end > len(f.buf) {
			// full frame hasn't arrived yet
			return nil, false
		}

		checksum := byte(0)
		for _, b := range f.buf[start:end] {
			checksum += b
		}
		if checksum != 0 {
			f.buf = f.buf[off+3:]
			continue
		}

		if frameLen < 1 {
			f.buf = f.buf[end:]
			continue
		}

		tfi := f.buf[start]
		payload := f.buf[start+1 : end-1]

		switch {
		case tfi == Pn532ToHostByte && len(payload) == 1 && payload[0] == 0x7F:
			out := &ExtractedFrame{Kind: FrameSyntaxError, Payload: nil}
			f.buf = f.buf[end:]
			return out, true
		case tfi == Pn532ToHostByte:
			data := make([]byte, len(payload))
			copy(data, payload)
			out := &ExtractedFrame{Kind: FrameResponse, Payload: data}
			f.buf = f.buf[end:]
			return out, true
		default:
			// wrong direction byte: discard and resync past this header
			// only, same as the checksum-failure paths above.
			f.buf = f.buf[off+3:]
			continue
		}
	}
}

// HostToPn532Byte and Pn532ToHostByte are the TFI direction bytes, exported
// under these names (rather than internal/frame's HostToPn532/Pn532ToHost)
// to avoid importing that package from the root package.
const (
	HostToPn532Byte byte = 0xD4
	Pn532ToHostByte byte = 0xD5
)
