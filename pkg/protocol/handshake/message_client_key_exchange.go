// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

// MessageClientKeyExchange carries the client's contribution to the
// premaster secret. Its wire form depends on the negotiated key exchange:
// an RSA suite carries an RSA-encrypted PreMasterSecret, an ECDHE suite
// carries a raw EC public key point. Exactly one of the two fields is set;
// the caller decides which form to encode/decode based on the negotiated
// cipher suite, not on data inspection.
//
// https://tools.ietf.org/html/rfc5246#section-7.4.7
// https://tools.ietf.org/html/rfc8422#section-5.7
type MessageClientKeyExchange struct {
	IsPSK bool

	// EncryptedPreMasterSecret is set for RSA key exchange.
	EncryptedPreMasterSecret []byte
	// PublicKey is set for ECDHE key exchange.
	PublicKey []byte
}

// Type returns the Handshake Type
func (m MessageClientKeyExchange) Type() Type {
	return TypeClientKeyExchange
}

// Marshal encodes the Handshake
func (m *MessageClientKeyExchange) Marshal() ([]byte, error) {
	body := m.EncryptedPreMasterSecret
	if len(m.PublicKey) > 0 {
		body = m.PublicKey
	}
	if len(body) > 0xffff {
		return nil, errMalformed
	}
	out := []byte{byte(len(body) >> 8), byte(len(body))}
	return append(out, body...), nil
}

// Unmarshal populates the message from encoded data. Since the wire form
// of ClientKeyExchange is ambiguous without the negotiated cipher suite,
// callers that know the key exchange method should read PublicKey for
// ECDHE suites and EncryptedPreMasterSecret for RSA suites; both are set
// to the same decoded bytes here and the caller picks the right one.
func (m *MessageClientKeyExchange) Unmarshal(data []byte) error {
	if len(data) < 2 {
		return errBufferTooSmall
	}
	n := int(data[0])<<8 | int(data[1])
	if len(data) != 2+n {
		return errBufferTooSmall
	}
	body := append([]byte{}, data[2:]...)
	m.EncryptedPreMasterSecret = body
	m.PublicKey = body
	return nil
}
