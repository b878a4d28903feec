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

/*
Package pn532 drives a PN532 NFC controller over I2C in card-emulation
(target) mode, so an external reader - a phone - can activate the
controller and read a single NDEF URI record out of it.

The package is built around a Controller: something that can Initialize,
InitAsTarget with a caller-supplied NDEF message, and WaitForTag for a
reader to activate it.

	transport, err := i2c.New("/dev/i2c-1")
	if err != nil {
	    log.Fatal(err)
	}

	device, err := pn532.New(transport, pn532.WithTimeout(3*time.Second))
	if err != nil {
	    log.Fatal(err)
	}
	if err := device.Initialize(ctx); err != nil {
	    log.Fatal(err)
	}

	ndef, err := pn532.EncodeURI("https://example.com/r/abc123")
	if err != nil {
	    log.Fatal(err)
	}
	if _, err := device.InitAsTarget(ctx, ndef); err != nil {
	    log.Fatal(err)
	}
	event, err := device.WaitForTag(ctx, 20*time.Second)

Device sends commands through a Transport (I2C in production), which frames
them, and uses Framer to reassemble the frames WaitForTag reads while
polling. Failures are classified with the TransportError taxonomy in
errors.go so callers can decide what's worth retrying.

MockController implements the same Controller interface without hardware,
for exercising the session package and its HTTP facade in tests.

EncodeURI and DecodeURI implement the NFC Forum RTD-URI abbreviation scheme
used to pack a URL into the single NDEF record this package ever emulates.

Thread Safety:

Device operations are not thread-safe; only the session package's single
worker goroutine is expected to call them.
*/
package pn532
