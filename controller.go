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
	"time"
)

// TagEvent is the outcome of a WaitForTag poll.
type TagEvent int

const (
	// TagTimeout means no response frame arrived before the deadline.
	TagTimeout TagEvent = iota
	// TagDetected means a well-formed response frame was observed, meaning
	// an external reader activated the emulated target.
	TagDetected
	// TagSyntaxErrorEvent means the PN532 reported a 0x7F syntax-error frame.
	TagSyntaxErrorEvent
)

// String returns a human-readable name for the tag event, used in logs and
// session error messages.
func (e TagEvent) String() string {
	switch e {
	case TagDetected:
		return "detected"
	case TagSyntaxErrorEvent:
		return "syntax_error"
	case TagTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// FirmwareVersion is the four-byte reply to GetFirmwareVersion.
type FirmwareVersion struct {
	IC      byte
	Version byte
	Rev     byte
	Support byte
}

// Controller is the command-level contract the Session Manager drives: bring
// the PN532 up, hand it an NDEF message to emulate, and learn when an
// external reader has activated the emulated target. Both Device (the real
// I2C-backed implementation) and MockController satisfy it, so the Session
// Manager never has to know whether it is talking to hardware.
type Controller interface {
	// Initialize brings the PN532 to a known state (GetFirmwareVersion then
	// SAMConfiguration) over an already opened transport.
	Initialize(ctx context.Context) error

	// InitAsTarget issues TgInitAsTarget with ndefMessage embedded in the
	// general-bytes block. It returns true once the command is considered
	// accepted under whichever of the two strategies the implementation has
	// chosen (ack-only or full-response).
	InitAsTarget(ctx context.Context, ndefMessage []byte) (bool, error)

	// WaitForTag polls for activation of the target initialized by
	// InitAsTarget, for up to timeout.
	WaitForTag(ctx context.Context, timeout time.Duration) (TagEvent, error)

	// Reinitialize closes the transport, waits briefly, and re-runs
	// Initialize. Used by the Session Manager after a failed session.
	Reinitialize(ctx context.Context) error

	// Close releases the underlying transport.
	Close() error
}
