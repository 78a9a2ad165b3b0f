// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package recordlayer implements the TLS 1.0-1.2 record framing (RFC 5246
// §6.2) the handshake drivers read and write through: a 5-byte header
// followed by up to 2^14 bytes of content, optionally protected by a
// negotiated CipherSuite.
package recordlayer

import (
	"encoding/binary"
	"fmt"

	"github.com/censys-oss/tlsfsm/pkg/protocol"
)

// FixedHeaderSize is the wire size of a TLS record header: type(1) +
// version(2) + length(2).
const FixedHeaderSize = 5

// MaxPlaintextLength is the largest plaintext fragment RFC 5246 §6.2.1
// permits in a single record.
const MaxPlaintextLength = 1 << 14

// Header is a decoded TLS record header.
type Header struct {
	Type    protocol.ContentType
	Version protocol.Version
	Length  uint16
}

// Marshal encodes the 5-byte record header.
func (h Header) Marshal() ([]byte, error) {
	out := make([]byte, FixedHeaderSize)
	out[0] = byte(h.Type)
	out[1] = h.Version.Major
	out[2] = h.Version.Minor
	binary.BigEndian.PutUint16(out[3:], h.Length)
	return out, nil
}

// Unmarshal decodes a 5-byte record header.
func (h *Header) Unmarshal(data []byte) error {
	if len(data) < FixedHeaderSize {
		return fmt.Errorf("%w: record header needs %d bytes, got %d", protocol.ErrMalformedRecord, FixedHeaderSize, len(data))
	}
	h.Type = protocol.ContentType(data[0])
	h.Version = protocol.Version{Major: data[1], Minor: data[2]}
	h.Length = binary.BigEndian.Uint16(data[3:5])
	return nil
}
