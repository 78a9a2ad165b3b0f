// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package ciphersuite implements the record-protection side of negotiated
// TLS cipher suites: given the keys produced by pkg/crypto/prf, encrypt
// and decrypt individual records. Suite *selection* (matching a
// ClientHello's offered list against the server's policy) lives with the
// handshake messages that negotiate it; this package only protects bytes
// once a suite has been chosen.
package ciphersuite

import (
	"fmt"

	"github.com/censys-oss/tlsfsm/pkg/protocol"
)

// CipherSuite protects and unprotects TLS records once a ChangeCipherSpec
// has activated it. Implementations keep their own explicit sequence
// number counters, matching the teacher's DTLS GCM suite's handling of
// the explicit per-record nonce.
type CipherSuite interface {
	// Encrypt protects a single record's plaintext body, returning the
	// bytes that follow the 5-byte record header on the wire.
	Encrypt(contentType protocol.ContentType, version protocol.Version, plaintext []byte) ([]byte, error)
	// Decrypt unprotects a single record's on-wire body (the bytes after
	// the 5-byte record header) back to plaintext.
	Decrypt(contentType protocol.ContentType, version protocol.Version, ciphertext []byte) ([]byte, error)
}

// Null is the identity CipherSuite active before the first
// ChangeCipherSpec of each direction.
type Null struct{}

// Encrypt returns plaintext unchanged.
func (Null) Encrypt(_ protocol.ContentType, _ protocol.Version, plaintext []byte) ([]byte, error) {
	return plaintext, nil
}

// Decrypt returns ciphertext unchanged.
func (Null) Decrypt(_ protocol.ContentType, _ protocol.Version, ciphertext []byte) ([]byte, error) {
	return ciphertext, nil
}

var errShortRecord = fmt.Errorf("%w: record too short to contain cipher framing", protocol.ErrMalformedRecord)
