// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsfsm

import (
	"fmt"

	"github.com/censys-oss/tlsfsm/pkg/protocol"
	"github.com/censys-oss/tlsfsm/pkg/protocol/handshake"
)

// decodeSSLv2ClientHello converts a legacy SSLv2-compatible ClientHello
// into this module's normal ClientHello state (spec §4.4 step 1, §9
// "SSLv2 handling"). prefix is the three bytes SSLv2TranscriptPrefix
// extracted (msg_type, version hi, version lo); body is everything after
// them: cipher_spec_length, session_id_length, challenge_length, then the
// three variable-length sections in that order.
//
// SSLv2 cipher-kind codes (3 bytes each) don't correspond to any TLS
// cipher suite this module negotiates, so they are parsed for their
// length only, not individually matched; a client reaching this path is
// signaling willingness to escalate to TLS, and negotiation proceeds
// exactly as it would from this module's own cipher suite list.
func decodeSSLv2ClientHello(s *connState, cfg *handshakeConfig, prefix, body []byte) error {
	if len(prefix) != 3 || prefix[0] != 1 {
		return fmt.Errorf("%w: sslv2 record is not a client-hello", errBadMessage)
	}
	if len(body) < 6 {
		return fmt.Errorf("%w: sslv2 client-hello too short", errBadMessage)
	}

	cipherSpecLen := int(body[0])<<8 | int(body[1])
	sessionIDLen := int(body[2])<<8 | int(body[3])
	challengeLen := int(body[4])<<8 | int(body[5])

	rest := body[6:]
	if len(rest) < cipherSpecLen+sessionIDLen+challengeLen {
		return fmt.Errorf("%w: sslv2 client-hello truncated", errBadMessage)
	}
	rest = rest[cipherSpecLen:]
	sessionID := rest[:sessionIDLen]
	rest = rest[sessionIDLen:]
	challenge := rest[:challengeLen]

	var random [32]byte
	if challengeLen >= 32 {
		copy(random[:], challenge[:32])
	} else {
		// Left-pad per the conventional SSLv2-to-TLS challenge mapping:
		// a short challenge fills the low-order bytes of client_random.
		copy(random[32-challengeLen:], challenge)
	}
	s.clientRandom = random

	ids := cfg.cipherSuites
	if len(ids) == 0 {
		for _, cs := range supportedCipherSuites {
			ids = append(ids, cs.id)
		}
	}
	cs, ok := lookupCipherSuite(ids[0])
	if !ok {
		return errUnsupportedCipherSuite
	}
	s.cipherSuiteID = cs.id
	s.prfHash = cs.prfHash
	s.version = protocol.Version1_2

	if len(sessionID) > 0 {
		s.sessionID = append([]byte{}, sessionID...)
	}

	s.clientHelloMsg = &handshake.MessageClientHello{
		Version:             s.version,
		SessionID:           append([]byte{}, sessionID...),
		CipherSuiteIDs:      ids,
		CompressionMethods:  []protocol.CompressionMethodID{protocol.CompressionMethodNull},
	}
	var r handshake.Random
	r.UnmarshalFixed(random)
	s.clientHelloMsg.Random = r

	return nil
}
