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

// PN532 command codes used by the bridge's card-emulation path. The PN532
// supports a much larger vocabulary (initiator-mode commands for reading
// passive targets); this build only ever drives the controller as a target,
// so only those commands are named here.
const (
	cmdGetFirmwareVersion = 0x02
	cmdSamConfiguration   = 0x14
	cmdTgInitAsTarget     = 0x8C
	cmdTgGetData          = 0x86
	cmdTgSetData          = 0x8E
)

// samConfigurationNormalMode is the argument block for SAMConfiguration that
// selects the normal (non-virtual-card) mode with a 20 * 50ms timeout and
// the internal IRQ pin left in its default state.
var samConfigurationNormalMode = []byte{0x01, 0x14, 0x01}

