// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

// ClientCertificateType is the one-byte certificate type the server is
// willing to accept from the client (RFC 5246 §7.4.4).
type ClientCertificateType uint8

// Client certificate types this module requests.
const (
	ClientCertificateTypeRSASign   ClientCertificateType = 1
	ClientCertificateTypeECDSASign ClientCertificateType = 64
)

// MessageCertificateRequest asks the client to send a certificate chain
// and later prove possession of its private key via CertificateVerify.
//
// https://tools.ietf.org/html/rfc5246#section-7.4.4
type MessageCertificateRequest struct {
	CertificateTypes            []ClientCertificateType
	SignatureAndHashAlgorithms  []SignatureAndHashAlgorithm
	CertificateAuthorities      [][]byte
}

// Type returns the Handshake Type
func (m MessageCertificateRequest) Type() Type {
	return TypeCertificateRequest
}

// Marshal encodes the Handshake
func (m *MessageCertificateRequest) Marshal() ([]byte, error) {
	if len(m.CertificateTypes) > 0xff {
		return nil, errMalformed
	}
	out := []byte{byte(len(m.CertificateTypes))}
	for _, t := range m.CertificateTypes {
		out = append(out, byte(t))
	}

	sigAlgos, err := MarshalSignatureAndHashAlgorithms(m.SignatureAndHashAlgorithms)
	if err != nil {
		return nil, err
	}
	out = append(out, sigAlgos...)

	var caBody []byte
	for _, ca := range m.CertificateAuthorities {
		if len(ca) > 0xffff {
			return nil, errMalformed
		}
		caBody = append(caBody, byte(len(ca)>>8), byte(len(ca)))
		caBody = append(caBody, ca...)
	}
	if len(caBody) > 0xffff {
		return nil, errMalformed
	}
	out = append(out, byte(len(caBody)>>8), byte(len(caBody)))
	out = append(out, caBody...)
	return out, nil
}

// Unmarshal populates the message from encoded data
func (m *MessageCertificateRequest) Unmarshal(data []byte) error {
	if len(data) < 1 {
		return errBufferTooSmall
	}
	n := int(data[0])
	offset := 1
	if len(data) < offset+n {
		return errBufferTooSmall
	}
	m.CertificateTypes = make([]ClientCertificateType, n)
	for i := 0; i < n; i++ {
		m.CertificateTypes[i] = ClientCertificateType(data[offset+i])
	}
	offset += n

	algos, rest, err := UnmarshalSignatureAndHashAlgorithms(data[offset:])
	if err != nil {
		return err
	}
	m.SignatureAndHashAlgorithms = algos

	if len(rest) < 2 {
		return errBufferTooSmall
	}
	caLen := int(rest[0])<<8 | int(rest[1])
	rest = rest[2:]
	if len(rest) != caLen {
		return errBufferTooSmall
	}

	m.CertificateAuthorities = nil
	for len(rest) > 0 {
		if len(rest) < 2 {
			return errBufferTooSmall
		}
		entryLen := int(rest[0])<<8 | int(rest[1])
		rest = rest[2:]
		if len(rest) < entryLen {
			return errBufferTooSmall
		}
		m.CertificateAuthorities = append(m.CertificateAuthorities, append([]byte{}, rest[:entryLen]...))
		rest = rest[entryLen:]
	}
	return nil
}
