// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsfsm

import (
	"github.com/censys-oss/tlsfsm/pkg/crypto/ciphersuite"
	"github.com/censys-oss/tlsfsm/pkg/crypto/prf"
)

// ensureAEADCipher derives the record-protection keys from the master
// secret the first time either direction's ChangeCipherSpec needs them,
// then caches the result so the other direction's activation reuses the
// same object (it tracks independent sequence counters per direction
// internally, matching the teacher's single cipherSuite-per-connection
// shape).
func ensureAEADCipher(s *connState) (ciphersuite.CipherSuite, error) {
	if s.aeadCipher != nil {
		return s.aeadCipher, nil
	}
	cs, ok := lookupCipherSuite(s.cipherSuiteID)
	if !ok {
		return nil, errUnsupportedCipherSuite
	}

	keys, err := prf.GenerateEncryptionKeys(s.masterSecret, s.clientRandom[:], s.serverRandom[:], cs.macLen, cs.keyLen, cs.ivLen, cs.prfHash)
	if err != nil {
		return nil, err
	}

	localKey, localIV, remoteKey, remoteIV := keys.ServerWriteKey, keys.ServerWriteIV, keys.ClientWriteKey, keys.ClientWriteIV
	if s.role == RoleClient {
		localKey, localIV, remoteKey, remoteIV = keys.ClientWriteKey, keys.ClientWriteIV, keys.ServerWriteKey, keys.ServerWriteIV
	}

	gcm, err := ciphersuite.NewGCM(localKey, localIV, remoteKey, remoteIV)
	if err != nil {
		return nil, err
	}
	s.aeadCipher = gcm
	return gcm, nil
}
