// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package protocol holds the record-layer types shared by the rest of the
// module: protocol version numbers, content types, and the record content
// payloads (ChangeCipherSpec, ApplicationData) that are not handshake
// messages.
package protocol

import "fmt"

// Version is the two-byte {major, minor} protocol version field carried
// by every TLS record and by ClientHello/ServerHello.
type Version struct {
	Major, Minor uint8
}

// Named versions this module negotiates, in their RFC-mandated {3, x} wire
// encoding.
var (
	Version1_0 = Version{Major: 3, Minor: 1}
	Version1_1 = Version{Major: 3, Minor: 2}
	Version1_2 = Version{Major: 3, Minor: 3}
)

func (v Version) String() string {
	switch v {
	case Version1_0:
		return "TLS1.0"
	case Version1_1:
		return "TLS1.1"
	case Version1_2:
		return "TLS1.2"
	default:
		return fmt.Sprintf("TLS(%d.%d)", v.Major, v.Minor)
	}
}

// LessOrEqual reports whether v is at most other, comparing minor version
// numbers within the TLS major version 3 family.
func (v Version) LessOrEqual(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	return v.Minor <= other.Minor
}

// ContentType is the outer TLS record content type (RFC 5246 §6.2.1).
type ContentType uint8

// Record content types relevant to this module. Heartbeat (RFC 6520) is
// recognized only so the Inbound Driver can silently discard it.
const (
	ContentTypeChangeCipherSpec ContentType = 20
	ContentTypeAlert            ContentType = 21
	ContentTypeHandshake        ContentType = 22
	ContentTypeApplicationData  ContentType = 23
	ContentTypeHeartbeat        ContentType = 24
)

func (c ContentType) String() string {
	switch c {
	case ContentTypeChangeCipherSpec:
		return "change_cipher_spec"
	case ContentTypeAlert:
		return "alert"
	case ContentTypeHandshake:
		return "handshake"
	case ContentTypeApplicationData:
		return "application_data"
	case ContentTypeHeartbeat:
		return "heartbeat"
	default:
		return fmt.Sprintf("content_type(%d)", uint8(c))
	}
}

// ChangeCipherSpec is the single-byte body of a change_cipher_spec record.
type ChangeCipherSpec struct{}

// Marshal encodes the one-byte body.
func (c ChangeCipherSpec) Marshal() ([]byte, error) {
	return []byte{1}, nil
}

// Unmarshal validates the one-byte body.
func (c *ChangeCipherSpec) Unmarshal(data []byte) error {
	if len(data) != 1 || data[0] != 1 {
		return fmt.Errorf("%w: change_cipher_spec body must be a single 0x01 byte", ErrMalformedRecord)
	}
	return nil
}
