// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

// NamedCurve is the two-byte curve identifier of RFC 4492/8422's
// ECParameters.NamedCurve.
type NamedCurve uint16

// Named curve identifiers; this module's ECDHE key exchange uses only
// X25519.
const (
	NamedCurveSecp256r1 NamedCurve = 23
	NamedCurveSecp384r1 NamedCurve = 24
	NamedCurveSecp521r1 NamedCurve = 25
	NamedCurveX25519    NamedCurve = 29
)

const ecCurveTypeNamedCurve = 3

// MessageServerKeyExchange carries the server's ephemeral ECDHE public key
// and a signature over it when the negotiated cipher suite provides
// forward secrecy. RSA key exchange suites send no ServerKeyExchange and
// never construct this message.
//
// https://tools.ietf.org/html/rfc5246#section-7.4.3
// https://tools.ietf.org/html/rfc8422#section-5.4
type MessageServerKeyExchange struct {
	Curve     NamedCurve
	PublicKey []byte

	Algorithm SignatureAndHashAlgorithm
	Signature []byte
}

// Type returns the Handshake Type
func (m MessageServerKeyExchange) Type() Type {
	return TypeServerKeyExchange
}

// Params returns the ECParameters-plus-public-key bytes that are signed
// and verified; the signature itself is over exactly these bytes prefixed
// with client and server Random (computed by the caller).
func (m *MessageServerKeyExchange) Params() []byte {
	out := []byte{ecCurveTypeNamedCurve, byte(m.Curve >> 8), byte(m.Curve)}
	out = append(out, byte(len(m.PublicKey)))
	return append(out, m.PublicKey...)
}

// Marshal encodes the Handshake
func (m *MessageServerKeyExchange) Marshal() ([]byte, error) {
	if len(m.PublicKey) > 0xff || len(m.Signature) > 0xffff {
		return nil, errMalformed
	}
	out := m.Params()
	out = append(out, byte(m.Algorithm.Hash), byte(m.Algorithm.Signature))
	out = append(out, byte(len(m.Signature)>>8), byte(len(m.Signature)))
	return append(out, m.Signature...), nil
}

// Unmarshal populates the message from encoded data
func (m *MessageServerKeyExchange) Unmarshal(data []byte) error {
	if len(data) < 4 || data[0] != ecCurveTypeNamedCurve {
		return errMalformed
	}
	m.Curve = NamedCurve(uint16(data[1])<<8 | uint16(data[2]))
	n := int(data[3])
	offset := 4
	if len(data) < offset+n {
		return errBufferTooSmall
	}
	m.PublicKey = append([]byte{}, data[offset:offset+n]...)
	offset += n

	if len(data) < offset+4 {
		return errBufferTooSmall
	}
	m.Algorithm = SignatureAndHashAlgorithm{Hash: HashAlgorithm(data[offset]), Signature: SignatureAlgorithm(data[offset+1])}
	sigLen := int(data[offset+2])<<8 | int(data[offset+3])
	offset += 4
	if len(data) != offset+sigLen {
		return errBufferTooSmall
	}
	m.Signature = append([]byte{}, data[offset:]...)
	return nil
}
