// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package alert implements the TLS alert protocol (RFC 5246 §7.2): the two
// bytes carried by an alert record, and the fatal/non-fatal classification
// the Inbound Driver defers to when it hands a record off here.
package alert

import "fmt"

// Level is the severity byte of an alert.
type Level uint8

// Alert levels.
const (
	Warning Level = 1
	Fatal   Level = 2
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "warning"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("level(%d)", uint8(l))
	}
}

// Description is the alert description byte (RFC 5246 §7.2.2).
type Description uint8

// Alert descriptions used by this module. Unknown descriptions received
// from a peer are still parsed (the byte is preserved) but print as
// "alert(N)".
const (
	CloseNotify            Description = 0
	UnexpectedMessage      Description = 10
	BadRecordMac           Description = 20
	DecryptionFailed       Description = 21
	RecordOverflow         Description = 22
	DecompressionFailure   Description = 30
	HandshakeFailure       Description = 40
	NoCertificate          Description = 41
	BadCertificate         Description = 42
	UnsupportedCertificate Description = 43
	CertificateRevoked     Description = 44
	CertificateExpired     Description = 45
	CertificateUnknown     Description = 46
	IllegalParameter       Description = 47
	UnknownCA              Description = 48
	AccessDenied           Description = 49
	DecodeError            Description = 50
	DecryptError           Description = 51
	ProtocolVersion        Description = 70
	InsufficientSecurity   Description = 71
	InternalError          Description = 80
	UserCanceled           Description = 90
	NoRenegotiation        Description = 100
	UnsupportedExtension   Description = 110
)

var descriptionNames = map[Description]string{
	CloseNotify:            "close_notify",
	UnexpectedMessage:      "unexpected_message",
	BadRecordMac:           "bad_record_mac",
	DecryptionFailed:       "decryption_failed",
	RecordOverflow:         "record_overflow",
	DecompressionFailure:   "decompression_failure",
	HandshakeFailure:       "handshake_failure",
	NoCertificate:          "no_certificate",
	BadCertificate:         "bad_certificate",
	UnsupportedCertificate: "unsupported_certificate",
	CertificateRevoked:     "certificate_revoked",
	CertificateExpired:     "certificate_expired",
	CertificateUnknown:     "certificate_unknown",
	IllegalParameter:       "illegal_parameter",
	UnknownCA:              "unknown_ca",
	AccessDenied:           "access_denied",
	DecodeError:            "decode_error",
	DecryptError:           "decrypt_error",
	ProtocolVersion:        "protocol_version",
	InsufficientSecurity:   "insufficient_security",
	InternalError:          "internal_error",
	UserCanceled:           "user_canceled",
	NoRenegotiation:        "no_renegotiation",
	UnsupportedExtension:   "unsupported_extension",
}

func (d Description) String() string {
	if name, ok := descriptionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("alert(%d)", uint8(d))
}

// Alert is the two-byte body of an alert record.
type Alert struct {
	Level       Level
	Description Description
}

func (a Alert) String() string {
	return fmt.Sprintf("%s: %s", a.Level, a.Description)
}

// IsFatal reports whether this alert kills the connection. close_notify is
// a warning-level alert by the wire but is handled like a fatal one by the
// caller (it ends the session), so callers that need that nuance should
// check Description == CloseNotify separately.
func (a Alert) IsFatal() bool {
	return a.Level == Fatal
}

// Marshal encodes the two-byte alert body.
func (a Alert) Marshal() ([]byte, error) {
	return []byte{byte(a.Level), byte(a.Description)}, nil
}

// Unmarshal decodes the two-byte alert body.
func (a *Alert) Unmarshal(data []byte) error {
	if len(data) != 2 {
		return fmt.Errorf("%w: alert body must be 2 bytes, got %d", errMalformed, len(data))
	}
	a.Level = Level(data[0])
	a.Description = Description(data[1])
	return nil
}

// Error implements error so an Alert received from a peer can be returned
// and inspected via errors.As by callers further up the stack.
func (a *Alert) Error() string {
	return a.String()
}
