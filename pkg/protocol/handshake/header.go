// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"fmt"
)

// HeaderSize is the wire size of the handshake message header:
// msg_type(1) + length(3).
const HeaderSize = 4

// Header is the 4-byte prefix in front of every handshake message body.
type Header struct {
	Type   Type
	Length uint32 // 24-bit on the wire
}

// Marshal encodes the 4-byte handshake header.
func (h Header) Marshal() ([]byte, error) {
	if h.Length > 0xffffff {
		return nil, fmt.Errorf("%w: length %d overflows 24 bits", errMalformed, h.Length)
	}
	return []byte{
		byte(h.Type),
		byte(h.Length >> 16),
		byte(h.Length >> 8),
		byte(h.Length),
	}, nil
}

// Unmarshal decodes a 4-byte handshake header.
func (h *Header) Unmarshal(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: handshake header needs %d bytes, got %d", errMalformed, HeaderSize, len(data))
	}
	h.Type = Type(data[0])
	h.Length = uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
	return nil
}
