// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

// MessageHelloRequest asks the peer to begin a renegotiation. This module
// never sends or accepts renegotiation. No handshake sequence expects a
// HelloRequest, so one arriving mid-handshake fails the handshake with an
// unexpected-message error; no alert is sent in reply.
//
// https://tools.ietf.org/html/rfc5246#section-7.4.1.1
type MessageHelloRequest struct{}

// Type returns the Handshake Type
func (m MessageHelloRequest) Type() Type {
	return TypeHelloRequest
}

// Marshal encodes the Handshake
func (m *MessageHelloRequest) Marshal() ([]byte, error) {
	return []byte{}, nil
}

// Unmarshal populates the message from encoded data
func (m *MessageHelloRequest) Unmarshal(data []byte) error {
	if len(data) != 0 {
		return errMalformed
	}
	return nil
}
