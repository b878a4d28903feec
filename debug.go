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

	"go.uber.org/zap"
)

// debugLogger is the package-level sink for the low-level protocol trace
// produced by Device and Controller. It defaults to a no-op logger so the
// library stays silent unless a host application opts in.
var (
	debugLogger   *zap.SugaredLogger
	debugLoggerMu sync.RWMutex
)

// SetDebugLogger wires the library's internal protocol trace into a host
// application's logger. Passing nil restores the default no-op behavior.
func SetDebugLogger(logger *zap.Logger) {
	debugLoggerMu.Lock()
	defer debugLoggerMu.Unlock()
	if logger == nil {
		debugLogger = nil
		return
	}
	debugLogger = logger.Sugar()
}

func debugf(format string, args ...any) {
	debugLoggerMu.RLock()
	l := debugLogger
	debugLoggerMu.RUnlock()
	if l == nil {
		return
	}
	l.Debugf(format, args...)
}

func debugln(args ...any) {
	debugLoggerMu.RLock()
	l := debugLogger
	debugLoggerMu.RUnlock()
	if l == nil {
		return
	}
	l.Debug(fmt.Sprintln(args...))
}
