// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsfsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildSSLv2ClientHello(cipherSpec, sessionID, challenge []byte) (prefix, body []byte) {
	prefix = []byte{1, 3, 3}
	body = []byte{
		byte(len(cipherSpec) >> 8), byte(len(cipherSpec)),
		byte(len(sessionID) >> 8), byte(len(sessionID)),
		byte(len(challenge) >> 8), byte(len(challenge)),
	}
	body = append(body, cipherSpec...)
	body = append(body, sessionID...)
	body = append(body, challenge...)
	return prefix, body
}

func TestDecodeSSLv2ClientHelloFullChallenge(t *testing.T) {
	s := newConnState(RoleServer)
	cfg := &handshakeConfig{}

	challenge := make([]byte, 32)
	for i := range challenge {
		challenge[i] = byte(i + 1)
	}
	prefix, body := buildSSLv2ClientHello([]byte{0x00, 0x00, 0x2f}, nil, challenge)

	require.NoError(t, decodeSSLv2ClientHello(s, cfg, prefix, body))
	require.Equal(t, challenge, s.clientRandom[:])
	require.Equal(t, supportedCipherSuites[0].id, s.cipherSuiteID)
}

func TestDecodeSSLv2ClientHelloShortChallengeIsRightAligned(t *testing.T) {
	s := newConnState(RoleServer)
	cfg := &handshakeConfig{}

	challenge := []byte{0xaa, 0xbb, 0xcc, 0xdd}
	prefix, body := buildSSLv2ClientHello([]byte{0x00, 0x00, 0x2f}, nil, challenge)

	require.NoError(t, decodeSSLv2ClientHello(s, cfg, prefix, body))
	require.Equal(t, make([]byte, 28), s.clientRandom[:28])
	require.Equal(t, challenge, s.clientRandom[28:])
}

func TestDecodeSSLv2ClientHelloKeepsSessionID(t *testing.T) {
	s := newConnState(RoleServer)
	cfg := &handshakeConfig{}

	sessionID := []byte{1, 2, 3, 4}
	prefix, body := buildSSLv2ClientHello([]byte{0x00, 0x00, 0x2f}, sessionID, make([]byte, 16))

	require.NoError(t, decodeSSLv2ClientHello(s, cfg, prefix, body))
	require.Equal(t, sessionID, s.sessionID)
}

func TestDecodeSSLv2ClientHelloRejectsWrongMessageType(t *testing.T) {
	s := newConnState(RoleServer)
	cfg := &handshakeConfig{}

	prefix := []byte{2, 3, 3} // not a client-hello (type must be 1)
	body := []byte{0, 0, 0, 0, 0, 16}
	body = append(body, make([]byte, 16)...)

	require.Error(t, decodeSSLv2ClientHello(s, cfg, prefix, body))
}

func TestDecodeSSLv2ClientHelloRejectsTruncatedBody(t *testing.T) {
	s := newConnState(RoleServer)
	cfg := &handshakeConfig{}

	prefix := []byte{1, 3, 3}
	body := []byte{0, 0, 0, 0, 0, 32} // declares a 32-byte challenge but supplies none
	require.Error(t, decodeSSLv2ClientHello(s, cfg, prefix, body))
}
