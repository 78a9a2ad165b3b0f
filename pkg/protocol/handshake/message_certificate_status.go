// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

// CertificateStatusType identifies the kind of status response carried by
// a CertificateStatus message. This module only ever sends ocsp.
type CertificateStatusType uint8

// CertificateStatusTypeOCSP is the only status type this module sends.
const CertificateStatusTypeOCSP CertificateStatusType = 1

// MessageCertificateStatus carries the OCSP response the server stapled
// to its certificate, avoiding a client-side revocation check round trip.
//
// https://tools.ietf.org/html/rfc6066#section-8
type MessageCertificateStatus struct {
	StatusType CertificateStatusType
	Response   []byte
}

// Type returns the Handshake Type
func (m MessageCertificateStatus) Type() Type {
	return TypeCertificateStatus
}

// Marshal encodes the Handshake
func (m *MessageCertificateStatus) Marshal() ([]byte, error) {
	if len(m.Response) > 0xffffff {
		return nil, errMalformed
	}
	out := []byte{byte(m.StatusType), byte(len(m.Response) >> 16), byte(len(m.Response) >> 8), byte(len(m.Response))}
	return append(out, m.Response...), nil
}

// Unmarshal populates the message from encoded data
func (m *MessageCertificateStatus) Unmarshal(data []byte) error {
	if len(data) < 4 {
		return errBufferTooSmall
	}
	m.StatusType = CertificateStatusType(data[0])
	n := int(data[1])<<16 | int(data[2])<<8 | int(data[3])
	if len(data) != 4+n {
		return errBufferTooSmall
	}
	m.Response = append([]byte{}, data[4:]...)
	return nil
}
