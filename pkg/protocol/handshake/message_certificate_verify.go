// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

// MessageCertificateVerify proves the client's possession of the private
// key corresponding to the certificate it just sent, by signing the
// handshake transcript so far.
//
// https://tools.ietf.org/html/rfc5246#section-7.4.8
type MessageCertificateVerify struct {
	Algorithm SignatureAndHashAlgorithm
	Signature []byte
}

// Type returns the Handshake Type
func (m MessageCertificateVerify) Type() Type {
	return TypeCertificateVerify
}

// Marshal encodes the Handshake
func (m *MessageCertificateVerify) Marshal() ([]byte, error) {
	if len(m.Signature) > 0xffff {
		return nil, errMalformed
	}
	out := []byte{byte(m.Algorithm.Hash), byte(m.Algorithm.Signature), byte(len(m.Signature) >> 8), byte(len(m.Signature))}
	return append(out, m.Signature...), nil
}

// Unmarshal populates the message from encoded data
func (m *MessageCertificateVerify) Unmarshal(data []byte) error {
	if len(data) < 4 {
		return errBufferTooSmall
	}
	m.Algorithm = SignatureAndHashAlgorithm{Hash: HashAlgorithm(data[0]), Signature: SignatureAlgorithm(data[1])}
	n := int(data[2])<<8 | int(data[3])
	if len(data) != 4+n {
		return errBufferTooSmall
	}
	m.Signature = append([]byte{}, data[4:]...)
	return nil
}
