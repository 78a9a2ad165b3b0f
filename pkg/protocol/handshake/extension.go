// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"encoding/binary"
	"fmt"
)

// ExtensionType is the two-byte extension type field (RFC 5246 §7.4.1.4,
// RFC 6066, RFC 6961, RFC 7627, RFC 5077).
type ExtensionType uint16

// Extension types this module inspects or emits.
const (
	ExtensionTypeServerName         ExtensionType = 0
	ExtensionTypeStatusRequest      ExtensionType = 5
	ExtensionTypeSignatureAlgos     ExtensionType = 13
	ExtensionTypeALPN               ExtensionType = 16
	ExtensionTypeExtendedMasterSecret ExtensionType = 23
	ExtensionTypeSessionTicket      ExtensionType = 35
	ExtensionTypeRenegotiationInfo  ExtensionType = 0xff01
)

// Extension is a single {type, length, data} entry from the ClientHello or
// ServerHello extensions block.
type Extension struct {
	Type ExtensionType
	Data []byte
}

// Marshal encodes a single extension entry.
func (e Extension) Marshal() ([]byte, error) {
	if len(e.Data) > 0xffff {
		return nil, fmt.Errorf("%w: extension data %d bytes overflows 16 bits", errMalformed, len(e.Data))
	}
	out := make([]byte, 4+len(e.Data))
	binary.BigEndian.PutUint16(out[0:2], uint16(e.Type))
	binary.BigEndian.PutUint16(out[2:4], uint16(len(e.Data)))
	copy(out[4:], e.Data)
	return out, nil
}

// MarshalExtensions encodes a list of extensions as the 2-byte-length-prefixed
// block that trails ClientHello and ServerHello.
func MarshalExtensions(exts []Extension) ([]byte, error) {
	var body []byte
	for _, e := range exts {
		enc, err := e.Marshal()
		if err != nil {
			return nil, err
		}
		body = append(body, enc...)
	}
	if len(body) > 0xffff {
		return nil, fmt.Errorf("%w: extensions block %d bytes overflows 16 bits", errMalformed, len(body))
	}
	out := make([]byte, 2+len(body))
	binary.BigEndian.PutUint16(out[0:2], uint16(len(body)))
	copy(out[2:], body)
	return out, nil
}

// UnmarshalExtensions decodes the 2-byte-length-prefixed extensions block.
// data must contain exactly the extensions block (length prefix included);
// trailing garbage is an error.
func UnmarshalExtensions(data []byte) ([]Extension, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: extensions block truncated", errMalformed)
	}
	declared := binary.BigEndian.Uint16(data[0:2])
	rest := data[2:]
	if int(declared) != len(rest) {
		return nil, fmt.Errorf("%w: extensions block declares %d bytes, got %d", errMalformed, declared, len(rest))
	}

	exts := []Extension{}
	for len(rest) > 0 {
		if len(rest) < 4 {
			return nil, fmt.Errorf("%w: extension header truncated", errMalformed)
		}
		typ := ExtensionType(binary.BigEndian.Uint16(rest[0:2]))
		length := binary.BigEndian.Uint16(rest[2:4])
		rest = rest[4:]
		if int(length) > len(rest) {
			return nil, fmt.Errorf("%w: extension data truncated", errMalformed)
		}
		exts = append(exts, Extension{Type: typ, Data: append([]byte(nil), rest[:length]...)})
		rest = rest[length:]
	}
	return exts, nil
}

// Find returns the first extension of the given type, if present.
func Find(exts []Extension, typ ExtensionType) (Extension, bool) {
	for _, e := range exts {
		if e.Type == typ {
			return e, true
		}
	}
	return Extension{}, false
}
