// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package prf implements the TLS 1.0-1.2 pseudorandom function (RFC 5246
// §5) and the derived values (master secret, record keys, Finished
// verify_data) built on top of it.
package prf

import (
	"crypto/hmac"
	"errors"
	"hash"
)

var errBufferTooSmall = errors.New("prf: buffer too small")

const (
	masterSecretLength  = 48
	clientFinishedLabel = "client finished"
	serverFinishedLabel = "server finished"
	masterSecretLabel   = "master secret"
	keyExpansionLabel   = "key expansion"
	verifyDataLength    = 12
)

// EncryptionKeys holds every secret derived from a TLS master secret
// during key expansion (RFC 5246 §6.3).
type EncryptionKeys struct {
	MasterSecret   []byte
	ClientMACKey   []byte
	ServerMACKey   []byte
	ClientWriteKey []byte
	ServerWriteKey []byte
	ClientWriteIV  []byte
	ServerWriteIV  []byte
}

// PHash implements the P_hash function of RFC 5246 §5: it concatenates
// HMAC(secret, A(i) || seed) for successive A(i) = HMAC(secret, A(i-1))
// with A(0) = seed, filling exactly len(out) bytes.
func PHash(out, secret, seed []byte, hashFunc func() hash.Hash) error {
	hmacSHA := hmac.New(hashFunc, secret)

	if _, err := hmacSHA.Write(seed); err != nil {
		return err
	}
	aCurr := hmacSHA.Sum(nil)

	n := 0
	for n < len(out) {
		hmacSHA.Reset()
		if _, err := hmacSHA.Write(aCurr); err != nil {
			return err
		}
		if _, err := hmacSHA.Write(seed); err != nil {
			return err
		}
		b := hmacSHA.Sum(nil)

		stepSize := len(b)
		if remaining := len(out) - n; remaining < stepSize {
			stepSize = remaining
		}
		copy(out[n:n+stepSize], b[:stepSize])
		n += stepSize

		hmacSHA.Reset()
		if _, err := hmacSHA.Write(aCurr); err != nil {
			return err
		}
		aCurr = hmacSHA.Sum(nil)
	}

	return nil
}

// MasterSecret computes the 48-byte master secret from a pre-master
// secret and the client/server hello randoms (RFC 5246 §8.1).
func MasterSecret(preMasterSecret, clientRandom, serverRandom []byte, hashFunc func() hash.Hash) ([]byte, error) {
	seed := append(append([]byte(masterSecretLabel), clientRandom...), serverRandom...)
	out := make([]byte, masterSecretLength)
	err := PHash(out, preMasterSecret, seed, hashFunc)
	return out, err
}

// ExtendedMasterSecret computes the master secret per RFC 7627, binding
// it to the full handshake transcript instead of the hello randoms.
func ExtendedMasterSecret(preMasterSecret, sessionHash []byte, hashFunc func() hash.Hash) ([]byte, error) {
	seed := append([]byte("extended master secret"), sessionHash...)
	out := make([]byte, masterSecretLength)
	err := PHash(out, preMasterSecret, seed, hashFunc)
	return out, err
}

// GenerateEncryptionKeys derives every secret used by the record layer
// from the master secret (RFC 5246 §6.3). macLen is 0 for AEAD ciphers,
// which carry no separate MAC key.
func GenerateEncryptionKeys(masterSecret, clientRandom, serverRandom []byte, macLen, keyLen, ivLen int, hashFunc func() hash.Hash) (*EncryptionKeys, error) {
	// key_expansion's seed order is server_random || client_random, the
	// reverse of master_secret's seed order, per RFC 5246 §6.3.
	seed := append([]byte(keyExpansionLabel), serverRandom...)
	seed = append(seed, clientRandom...)

	totalLen := 2*macLen + 2*keyLen + 2*ivLen
	keyMaterial := make([]byte, totalLen)
	if err := PHash(keyMaterial, masterSecret, seed, hashFunc); err != nil {
		return nil, err
	}

	clientMACKey, keyMaterial := keyMaterial[:macLen], keyMaterial[macLen:]
	serverMACKey, keyMaterial := keyMaterial[:macLen], keyMaterial[macLen:]
	clientWriteKey, keyMaterial := keyMaterial[:keyLen], keyMaterial[keyLen:]
	serverWriteKey, keyMaterial := keyMaterial[:keyLen], keyMaterial[keyLen:]
	clientWriteIV, keyMaterial := keyMaterial[:ivLen], keyMaterial[ivLen:]
	serverWriteIV := keyMaterial[:ivLen]

	return &EncryptionKeys{
		MasterSecret:   masterSecret,
		ClientMACKey:   clientMACKey,
		ServerMACKey:   serverMACKey,
		ClientWriteKey: clientWriteKey,
		ServerWriteKey: serverWriteKey,
		ClientWriteIV:  clientWriteIV,
		ServerWriteIV:  serverWriteIV,
	}, nil
}

func verifyData(masterSecret, handshakeBodies []byte, hashFunc func() hash.Hash, label string) ([]byte, error) {
	h := hashFunc()
	if _, err := h.Write(handshakeBodies); err != nil {
		return nil, err
	}

	out := make([]byte, verifyDataLength)
	err := PHash(out, masterSecret, append([]byte(label), h.Sum(nil)...), hashFunc)
	return out, err
}

// VerifyDataClient computes the verify_data a client's Finished message
// must carry (RFC 5246 §7.4.9): PRF(master_secret, "client finished",
// Hash(handshake_messages)).
func VerifyDataClient(masterSecret, handshakeBodies []byte, hashFunc func() hash.Hash) ([]byte, error) {
	return verifyData(masterSecret, handshakeBodies, hashFunc, clientFinishedLabel)
}

// VerifyDataServer computes the verify_data a server's Finished message
// must carry.
func VerifyDataServer(masterSecret, handshakeBodies []byte, hashFunc func() hash.Hash) ([]byte, error) {
	return verifyData(masterSecret, handshakeBodies, hashFunc, serverFinishedLabel)
}
