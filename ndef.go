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
	"errors"
	"fmt"
	"sort"
)

// ErrURLTooLong is returned by EncodeURI when the payload (prefix byte plus
// the URL remainder) would not fit in the one-byte NDEF payload length field.
var ErrURLTooLong = errors.New("ndef: url too long to encode")

const (
	ndefRecordHeaderShortWellKnown = 0xD1 // MB=1 ME=1 CF=0 SR=1 IL=0 TNF=001
	ndefTypeLengthURI              = 0x01
	ndefTypeByteURI                = 'U'
	ndefMaxPayloadLength           = 255
)

// uriPrefix is one entry of the NFC Forum RTD-URI 1.0 abbreviation table.
type uriPrefix struct {
	text string
	code byte
}

// uriPrefixTable is the full 0x00-0x23 abbreviation table. Index 0x00 is the
// identity mapping (no abbreviation); it is never matched by EncodeURI
// directly but is handled as the fallback.
var uriPrefixTable = []uriPrefix{
	{code: 0x01, text: "http://www."},
	{code: 0x02, text: "https://www."},
	{code: 0x03, text: "http://"},
	{code: 0x04, text: "https://"},
	{code: 0x05, text: "tel:"},
	{code: 0x06, text: "mailto:"},
	{code: 0x07, text: "ftp://anonymous:anonymous@"},
	{code: 0x08, text: "ftp://ftp."},
	{code: 0x09, text: "ftps://"},
	{code: 0x0A, text: "sftp://"},
	{code: 0x0B, text: "smb://"},
	{code: 0x0C, text: "nfs://"},
	{code: 0x0D, text: "ftp://"},
	{code: 0x0E, text: "dav://"},
	{code: 0x0F, text: "news:"},
	{code: 0x10, text: "telnet://"},
	{code: 0x11, text: "imap:"},
	{code: 0x12, text: "rtsp://"},
	{code: 0x13, text: "urn:"},
	{code: 0x14, text: "pop:"},
	{code: 0x15, text: "sip:"},
	{code: 0x16, text: "sips:"},
	{code: 0x17, text: "tftp:"},
	{code: 0x18, text: "btspp://"},
	{code: 0x19, text: "btl2cap://"},
	{code: 0x1A, text: "btgoep://"},
	{code: 0x1B, text: "tcpobex://"},
	{code: 0x1C, text: "irdaobex://"},
	{code: 0x1D, text: "file://"},
	{code: 0x1E, text: "urn:epc:id:"},
	{code: 0x1F, text: "urn:epc:tag:"},
	{code: 0x20, text: "urn:epc:pat:"},
	{code: 0x21, text: "urn:epc:raw:"},
	{code: 0x22, text: "urn:epc:"},
	{code: 0x23, text: "urn:nfc:"},
}

// uriPrefixByCode and uriPrefixesByLength are derived once at init time:
// the first for decode, the second (sorted longest-first) so encode's
// longest-match search never depends on map iteration order.
var (
	uriPrefixByCode     = make(map[byte]string, len(uriPrefixTable))
	uriPrefixesByLength []uriPrefix
)

func init() {
	uriPrefixesByLength = make([]uriPrefix, len(uriPrefixTable))
	copy(uriPrefixesByLength, uriPrefixTable)
	sort.Slice(uriPrefixesByLength, func(i, j int) bool {
		return len(uriPrefixesByLength[i].text) > len(uriPrefixesByLength[j].text)
	})
	for _, p := range uriPrefixTable {
		uriPrefixByCode[p.code] = p.text
	}
}

// matchURIPrefix finds the longest prefix in the abbreviation table that url
// starts with, returning its code and the unmatched remainder. If none
// match, it returns code 0x00 and the full URL.
func matchURIPrefix(url string) (code byte, remainder string) {
	for _, p := range uriPrefixesByLength {
		if len(url) >= len(p.text) && url[:len(p.text)] == p.text {
			return p.code, url[len(p.text):]
		}
	}
	return 0x00, url
}

// EncodeURI builds a single-record, short-record NDEF message carrying url
// as a URI well-known-type record: header byte 0xD1, type length
// 1, a one-byte payload length, type byte 'U', then the prefix code and the
// UTF-8 remainder.
func EncodeURI(url string) ([]byte, error) {
	code, remainder := matchURIPrefix(url)
	payloadLen := 1 + len(remainder)
	if payloadLen > ndefMaxPayloadLength {
		return nil, fmt.Errorf("%w: payload length %d exceeds %d bytes", ErrURLTooLong, payloadLen, ndefMaxPayloadLength)
	}

	out := make([]byte, 0, 4+payloadLen)
	out = append(out, ndefRecordHeaderShortWellKnown, ndefTypeLengthURI, byte(payloadLen), ndefTypeByteURI, code)
	out = append(out, remainder...)
	return out, nil
}

// DecodeURI is the inverse of EncodeURI: given a single-record URI NDEF
// message, it reconstructs the original URL string.
func DecodeURI(data []byte) (string, error) {
	if len(data) < 5 {
		return "", fmt.Errorf("%w: message too short for a URI record", ErrInvalidNDEF)
	}
	if data[0] != ndefRecordHeaderShortWellKnown {
		return "", fmt.Errorf("%w: unexpected record header 0x%02X", ErrInvalidNDEF, data[0])
	}
	if data[1] != ndefTypeLengthURI {
		return "", fmt.Errorf("%w: unexpected type length %d", ErrInvalidNDEF, data[1])
	}
	payloadLen := int(data[2])
	if data[3] != ndefTypeByteURI {
		return "", fmt.Errorf("%w: unexpected type byte 0x%02X", ErrInvalidNDEF, data[3])
	}
	if len(data) < 4+payloadLen {
		return "", fmt.Errorf("%w: payload shorter than declared length", ErrInvalidNDEF)
	}

	code := data[4]
	remainder := string(data[5 : 4+payloadLen])

	if code == 0x00 {
		return remainder, nil
	}
	prefix, ok := uriPrefixByCode[code]
	if !ok {
		return "", fmt.Errorf("%w: unknown prefix code 0x%02X", ErrInvalidNDEF, code)
	}
	return prefix + remainder, nil
}

// ErrInvalidNDEF is returned when a byte sequence does not parse as the
// single-record URI NDEF message this package produces.
var ErrInvalidNDEF = errors.New("invalid NDEF format")
