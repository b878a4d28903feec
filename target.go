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
	"fmt"
	"time"
)

// targetMode is the fixed mode byte TgInitAsTarget is called with: neither
// passive-only nor DEP-only bits set, so the PN532 answers any technology a
// phone's NFC stack tries.
const targetMode = 0x00

var (
	sensRes      = []byte{0x04, 0x00}
	nfcid1t      = []byte{0x12, 0x34, 0x56}
	selRes       = byte(0x20)
	felicaParams = make([]byte, 18)
	nfcid3t      = make([]byte, 10)
)

// pollInterval is the cadence of WaitForTag's polling loop, short enough to
// keep the worker responsive to shutdown while staying well under the
// 500ms ceiling a reasonable activation latency requires.
const pollInterval = 250 * time.Millisecond

// ackWaitTimeout bounds how long a command waits to see its ACK frame before
// being declared failed.
const ackWaitTimeout = 100 * time.Millisecond

// flushWaitAfterClear is the minimum settle time observed between clearing
// the receive buffer and transmitting the next command.
const flushWaitAfterClear = 50 * time.Millisecond

// InitAsTargetStrategy selects which of two ways InitAsTarget uses to decide
// a TgInitAsTarget call succeeded. Both are valid on real hardware depending
// on firmware revision. InitAsTarget always uses StrategyAckOnly;
// InitAsTargetWithStrategy takes the strategy per call.
type InitAsTargetStrategy int

const (
	// StrategyAckOnly treats the command as accepted once its ACK frame is
	// observed; the delayed response (phone activation) is picked up later
	// by WaitForTag. This is this package's default.
	StrategyAckOnly InitAsTargetStrategy = iota
	// StrategyFullResponse additionally waits for the TgInitAsTarget
	// response frame within the tagging timeout before declaring success.
	StrategyFullResponse
)

// preCommandHygiene clears the framer's buffer, drains up to three pending
// reads while the transport reports ready, and waits out the settle period
// before the caller transmits.
func (d *Device) preCommandHygiene() error {
	d.framer.Reset()

	for i := 0; i < 3; i++ {
		ready, err := d.transport.IsReady()
		if err != nil {
			return fmt.Errorf("ready check failed: %w", err)
		}
		if !ready {
			break
		}
		if _, err := d.transport.ReadRaw(32); err != nil {
			return fmt.Errorf("flush read failed: %w", err)
		}
	}

	time.Sleep(flushWaitAfterClear)
	return nil
}

// sendCommand runs a command through the configured retry policy.
func (d *Device) sendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	var resp []byte
	err := RetryWithConfig(ctx, d.config.RetryConfig, func() error {
		var sendErr error
		resp, sendErr = d.transport.SendCommand(cmd, args)
		return sendErr
	})
	return resp, err
}

// buildTgInitAsTargetArgs assembles the mode/sens_res/nfcid1t/sel_res/
// felica_params/nfcid3t/L_gt/gt/L_tk/tk argument block TgInitAsTarget expects.
func buildTgInitAsTargetArgs(ndefMessage []byte) ([]byte, error) {
	if len(ndefMessage) > 255 {
		return nil, fmt.Errorf("%w: general bytes (NDEF) length %d exceeds 255", ErrDataTooLarge, len(ndefMessage))
	}

	args := make([]byte, 0, 1+2+3+1+18+10+1+len(ndefMessage)+1)
	args = append(args, targetMode)
	args = append(args, sensRes...)
	args = append(args, nfcid1t...)
	args = append(args, selRes)
	args = append(args, felicaParams...)
	args = append(args, nfcid3t...)
	args = append(args, byte(len(ndefMessage)))
	args = append(args, ndefMessage...)
	args = append(args, 0x00) // L_tk: no historical bytes
	return args, nil
}

// InitAsTarget issues TgInitAsTarget carrying ndefMessage as the general
// bytes, using StrategyAckOnly: success is declared on ACK alone, without
// waiting for the (possibly very delayed) response frame.
func (d *Device) InitAsTarget(ctx context.Context, ndefMessage []byte) (bool, error) {
	return d.initAsTarget(ctx, ndefMessage, StrategyAckOnly)
}

// InitAsTargetWithStrategy is InitAsTarget with an explicit strategy, used
// by tests exercising both ack-only and full-response behavior.
func (d *Device) InitAsTargetWithStrategy(
	ctx context.Context, ndefMessage []byte, strategy InitAsTargetStrategy,
) (bool, error) {
	return d.initAsTarget(ctx, ndefMessage, strategy)
}

func (d *Device) initAsTarget(ctx context.Context, ndefMessage []byte, strategy InitAsTargetStrategy) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return false, ErrNotInitialized
	}

	args, err := buildTgInitAsTargetArgs(ndefMessage)
	if err != nil {
		return false, err
	}

	if err := d.preCommandHygiene(); err != nil {
		return false, fmt.Errorf("pre-command hygiene failed: %w", err)
	}

	if strategy == StrategyAckOnly {
		// Narrow the transport's timeout to the 100ms ACK window for this
		// call; the response (if any) only arrives once a phone activates
		// the target, which WaitForTag is responsible for observing.
		if err := d.transport.SetTimeout(ackWaitTimeout); err != nil {
			return false, fmt.Errorf("failed to set ACK timeout: %w", err)
		}
		defer func() {
			_ = d.transport.SetTimeout(d.config.Timeout)
		}()

		if _, err := d.transport.SendCommand(cmdTgInitAsTarget, args); err != nil {
			if isAckFailure(err) {
				return false, fmt.Errorf("TgInitAsTarget: %w", err)
			}
			// No response frame yet is expected under this strategy; the
			// ACK having been accepted is all that's required.
			debugf("TgInitAsTarget accepted (ack-only strategy), response pending: %v", err)
		}
		return true, nil
	}

	resp, err := d.transport.SendCommand(cmdTgInitAsTarget, args)
	if err != nil {
		return false, fmt.Errorf("TgInitAsTarget: %w", err)
	}
	return len(resp) > 0, nil
}

// isAckFailure reports whether err represents a missing ACK (as opposed to a
// response-read timeout, which is expected under the ack-only strategy since
// the response only arrives once a phone activates the target).
func isAckFailure(err error) bool {
	return GetErrorType(err) != ErrorTypeTimeout
}

// WaitForTag polls the transport for activation of a previously initialized
// target, at pollInterval cadence, until timeout elapses or ctx is
// cancelled.
func (d *Device) WaitForTag(ctx context.Context, timeout time.Duration) (TagEvent, error) {
	deadline := time.Now().Add(timeout)

	for {
		select {
		case <-ctx.Done():
			return TagTimeout, ctx.Err()
		default:
		}

		if time.Now().After(deadline) {
			return TagTimeout, nil
		}

		ready, err := d.transport.IsReady()
		if err != nil {
			return TagTimeout, fmt.Errorf("ready check failed: %w", err)
		}

		if ready {
			chunk, err := d.transport.ReadRaw(64)
			if err != nil {
				return TagTimeout, fmt.Errorf("raw read failed: %w", err)
			}
			d.framer.Feed(chunk)

			if extracted, ok := d.framer.TryExtractFrame(); ok {
				switch extracted.Kind {
				case FrameSyntaxError:
					return TagSyntaxErrorEvent, nil
				case FrameResponse:
					return TagDetected, nil
				}
			}
		}

		remaining := time.Until(deadline)
		wait := pollInterval
		if remaining < wait {
			wait = remaining
		}
		if wait <= 0 {
			return TagTimeout, nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return TagTimeout, ctx.Err()
		case <-timer.C:
		}
	}
}

// TgGetData issues TgGetData and returns its data payload once the status
// byte reports success (0x00). It is an alternative tag-activation check to
// WaitForTag's framer-based polling; a caller with access to the concrete
// *Device can call it directly once an activation is suspected.
func (d *Device) TgGetData(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return nil, ErrNotInitialized
	}

	resp, err := d.sendCommand(ctx, cmdTgGetData, nil)
	if err != nil {
		return nil, fmt.Errorf("TgGetData: %w", err)
	}
	if len(resp) < 1 {
		return nil, fmt.Errorf("%w: TgGetData response empty", ErrInvalidResponse)
	}
	if resp[0] != 0x00 {
		return nil, fmt.Errorf("%w: TgGetData status 0x%02X", ErrCommunicationFailed, resp[0])
	}
	return resp[1:], nil
}

// Reinitialize closes the transport, waits, and re-runs Initialize. Used by
// the Session Manager after a failed session; it is never called mid-command.
func (d *Device) Reinitialize(ctx context.Context) error {
	d.mu.Lock()
	d.initialized = false
	closeErr := d.transport.Close()
	d.mu.Unlock()
	if closeErr != nil {
		debugf("pn532: reinitialize close failed (continuing): %v", closeErr)
	}

	time.Sleep(1 * time.Second)

	return d.Initialize(ctx)
}
