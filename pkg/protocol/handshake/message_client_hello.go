// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"encoding/binary"

	"github.com/censys-oss/tlsfsm/pkg/protocol"
)

// MessageClientHello is the first message a client sends after connecting
// to a server. It carries the versions and algorithms the client supports.
//
// https://tools.ietf.org/html/rfc5246#section-7.4.1.2
type MessageClientHello struct {
	Version protocol.Version
	Random  Random

	SessionID []byte

	CipherSuiteIDs     []uint16
	CompressionMethods []protocol.CompressionMethodID
	Extensions         []Extension
}

// Type returns the Handshake Type
func (m MessageClientHello) Type() Type {
	return TypeClientHello
}

// Marshal encodes the Handshake
func (m *MessageClientHello) Marshal() ([]byte, error) {
	out := make([]byte, 2+RandomLength)
	out[0] = m.Version.Major
	out[1] = m.Version.Minor

	rand := m.Random.MarshalFixed()
	copy(out[2:], rand[:])

	if len(m.SessionID) > 0xff {
		return nil, errMalformed
	}
	out = append(out, byte(len(m.SessionID)))
	out = append(out, m.SessionID...)

	if len(m.CipherSuiteIDs)*2 > 0xffff {
		return nil, errMalformed
	}
	cipherSuiteBytes := make([]byte, 2+len(m.CipherSuiteIDs)*2)
	binary.BigEndian.PutUint16(cipherSuiteBytes, uint16(len(m.CipherSuiteIDs)*2))
	for i, id := range m.CipherSuiteIDs {
		binary.BigEndian.PutUint16(cipherSuiteBytes[2+i*2:], id)
	}
	out = append(out, cipherSuiteBytes...)

	if len(m.CompressionMethods) > 0xff {
		return nil, errMalformed
	}
	out = append(out, byte(len(m.CompressionMethods)))
	for _, cm := range m.CompressionMethods {
		out = append(out, byte(cm))
	}

	extensions, err := MarshalExtensions(m.Extensions)
	if err != nil {
		return nil, err
	}
	return append(out, extensions...), nil
}

// Unmarshal populates the message from encoded data
func (m *MessageClientHello) Unmarshal(data []byte) error {
	if len(data) < 2+RandomLength+1 {
		return errBufferTooSmall
	}

	m.Version.Major = data[0]
	m.Version.Minor = data[1]

	var random [RandomLength]byte
	copy(random[:], data[2:])
	m.Random.UnmarshalFixed(random)

	offset := 2 + RandomLength
	n := int(data[offset])
	offset++
	if len(data) < offset+n {
		return errBufferTooSmall
	}
	m.SessionID = append([]byte{}, data[offset:offset+n]...)
	offset += n

	if len(data) < offset+2 {
		return errBufferTooSmall
	}
	cipherLen := int(binary.BigEndian.Uint16(data[offset:]))
	offset += 2
	if cipherLen%2 != 0 || len(data) < offset+cipherLen {
		return errBufferTooSmall
	}
	m.CipherSuiteIDs = make([]uint16, cipherLen/2)
	for i := range m.CipherSuiteIDs {
		m.CipherSuiteIDs[i] = binary.BigEndian.Uint16(data[offset+i*2:])
	}
	offset += cipherLen

	if len(data) < offset+1 {
		return errBufferTooSmall
	}
	compressionLen := int(data[offset])
	offset++
	if len(data) < offset+compressionLen {
		return errBufferTooSmall
	}
	m.CompressionMethods = make([]protocol.CompressionMethodID, compressionLen)
	for i := 0; i < compressionLen; i++ {
		m.CompressionMethods[i] = protocol.CompressionMethodID(data[offset+i])
	}
	offset += compressionLen

	if len(data) <= offset {
		m.Extensions = []Extension{}
		return nil
	}
	extensions, err := UnmarshalExtensions(data[offset:])
	if err != nil {
		return err
	}
	m.Extensions = extensions
	return nil
}

// IsSupportedVersion reports whether the client offered the given version
// via its legacy version field (SSLv2-compatible ClientHellos encode their
// maximum version the same way).
func (m *MessageClientHello) IsSupportedVersion(v protocol.Version) bool {
	return m.Version.Major == v.Major && m.Version.Minor == v.Minor
}
