// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

// MessageCertificate carries the sender's X.509 certificate chain, DER
// encoded, leaf-first.
//
// https://tools.ietf.org/html/rfc5246#section-7.4.2
type MessageCertificate struct {
	Certificate [][]byte
}

// Type returns the Handshake Type
func (m MessageCertificate) Type() Type {
	return TypeCertificate
}

// Marshal encodes the Handshake
func (m *MessageCertificate) Marshal() ([]byte, error) {
	var out []byte
	for _, cert := range m.Certificate {
		if len(cert) > 0xffffff {
			return nil, errMalformed
		}
		out = append(out, byte(len(cert)>>16), byte(len(cert)>>8), byte(len(cert)))
		out = append(out, cert...)
	}
	if len(out) > 0xffffff {
		return nil, errMalformed
	}
	header := []byte{byte(len(out) >> 16), byte(len(out) >> 8), byte(len(out))}
	return append(header, out...), nil
}

// Unmarshal populates the message from encoded data
func (m *MessageCertificate) Unmarshal(data []byte) error {
	if len(data) < 3 {
		return errBufferTooSmall
	}
	total := int(data[0])<<16 | int(data[1])<<8 | int(data[2])
	rest := data[3:]
	if total != len(rest) {
		return errBufferTooSmall
	}

	m.Certificate = nil
	for len(rest) > 0 {
		if len(rest) < 3 {
			return errBufferTooSmall
		}
		certLen := int(rest[0])<<16 | int(rest[1])<<8 | int(rest[2])
		rest = rest[3:]
		if len(rest) < certLen {
			return errBufferTooSmall
		}
		m.Certificate = append(m.Certificate, append([]byte{}, rest[:certLen]...))
		rest = rest[certLen:]
	}
	return nil
}
