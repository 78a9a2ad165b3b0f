// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import "encoding/binary"

// MessageNewSessionTicket delivers an opaque, server-encrypted session
// ticket the client can present in a future ClientHello's session_ticket
// extension to resume this session without a server-side cache lookup.
//
// https://tools.ietf.org/html/rfc5077#section-3.3
type MessageNewSessionTicket struct {
	LifetimeHint uint32
	Ticket       []byte
}

// Type returns the Handshake Type
func (m MessageNewSessionTicket) Type() Type {
	return TypeNewSessionTicket
}

// Marshal encodes the Handshake
func (m *MessageNewSessionTicket) Marshal() ([]byte, error) {
	if len(m.Ticket) > 0xffff {
		return nil, errMalformed
	}
	out := make([]byte, 4+2)
	binary.BigEndian.PutUint32(out[0:4], m.LifetimeHint)
	binary.BigEndian.PutUint16(out[4:6], uint16(len(m.Ticket)))
	return append(out, m.Ticket...), nil
}

// Unmarshal populates the message from encoded data
func (m *MessageNewSessionTicket) Unmarshal(data []byte) error {
	if len(data) < 6 {
		return errBufferTooSmall
	}
	m.LifetimeHint = binary.BigEndian.Uint32(data[0:4])
	n := int(binary.BigEndian.Uint16(data[4:6]))
	if len(data) != 6+n {
		return errBufferTooSmall
	}
	m.Ticket = append([]byte{}, data[6:]...)
	return nil
}
