// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package handshake implements the wire encode/decode of every TLS
// handshake message this module's state machine dispatches (RFC 5246
// §7.4). Each message is a self-contained {Type, Marshal, Unmarshal}
// triple; the driver in the parent package decides which message is
// expected next and which role encodes versus decodes it.
package handshake

import "fmt"

// Type is the one-byte handshake message type (RFC 5246 §7.4).
type Type uint8

// Handshake message types this module encodes or decodes.
const (
	TypeHelloRequest       Type = 0
	TypeClientHello        Type = 1
	TypeServerHello        Type = 2
	TypeNewSessionTicket   Type = 4
	TypeCertificate        Type = 11
	TypeServerKeyExchange  Type = 12
	TypeCertificateRequest Type = 13
	TypeServerHelloDone    Type = 14
	TypeCertificateVerify  Type = 15
	TypeClientKeyExchange  Type = 16
	TypeFinished           Type = 20
	TypeCertificateStatus  Type = 22
)

var typeNames = map[Type]string{
	TypeHelloRequest:       "hello_request",
	TypeClientHello:        "client_hello",
	TypeServerHello:        "server_hello",
	TypeNewSessionTicket:   "new_session_ticket",
	TypeCertificate:        "certificate",
	TypeServerKeyExchange:  "server_key_exchange",
	TypeCertificateRequest: "certificate_request",
	TypeServerHelloDone:    "server_hello_done",
	TypeCertificateVerify:  "certificate_verify",
	TypeClientKeyExchange:  "client_key_exchange",
	TypeFinished:           "finished",
	TypeCertificateStatus:  "certificate_status",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("handshake_type(%d)", uint8(t))
}

// Message is the common shape of every handshake message body (the bytes
// that follow the 4-byte handshake header).
type Message interface {
	Type() Type
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
}
