// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsfsm

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"
)

func newSHA256() hash.Hash { return sha256.New() }
func newSHA384() hash.Hash { return sha512.New384() }

// hashStillRequired reports whether a given transcript hash is still
// needed, evaluated fresh per call against the negotiated version and
// cipher suite's PRF hash (spec §4.2): never cached, because what's
// "still needed" can change as handlers consume transcripts.
type hashKind int

// Transcript hash kinds tracked per connState.
const (
	hashMD5 hashKind = iota
	hashSHA1
	hashMD5SHA1
	hashSHA224
	hashSHA256
	hashSHA384
	hashSHA512
)

func hashStillRequired(s *connState, kind hashKind) bool {
	// No version negotiated yet (a client's own ClientHello): every hash
	// stays live until ServerHello settles the version and PRF hash.
	if s.version.Major == 0 {
		return true
	}
	if s.version.LessOrEqual(protocolVersion1_1) {
		switch kind {
		case hashMD5, hashSHA1, hashMD5SHA1:
			return true
		default:
			return false
		}
	}

	// TLS 1.2: exactly the cipher suite's PRF hash, plus any hash still
	// referenced by a signature algorithm a pending handler needs
	// (CertificateVerify/ServerKeyExchange signing or verification).
	switch kind {
	case hashMD5, hashSHA1, hashMD5SHA1:
		return false
	case hashSHA256:
		return s.prfHash != nil && sameHash(s.prfHash, newSHA256) || s.extraSignatureHashNeeded(hashSHA256)
	case hashSHA384:
		return s.prfHash != nil && sameHash(s.prfHash, newSHA384) || s.extraSignatureHashNeeded(hashSHA384)
	case hashSHA224, hashSHA512:
		return s.extraSignatureHashNeeded(kind)
	default:
		return false
	}
}

// sameHash compares hash constructors by the size of hash they produce;
// this module only ever negotiates one PRF hash per kind so identity by
// output size is sufficient to distinguish SHA-256 from SHA-384.
func sameHash(a, b func() hash.Hash) bool {
	return a().Size() == b().Size()
}

// extraSignatureHashNeeded reports whether a hash besides the PRF hash is
// still needed for a pending signature operation. This module only signs
// and verifies with the PRF hash itself (the common case for the cipher
// suites it negotiates), so there are currently no extra hashes; the hook
// exists so a future signature algorithm with an independent hash has
// somewhere to report through.
func (s *connState) extraSignatureHashNeeded(_ hashKind) bool {
	return false
}

// feedTranscript updates every transcript hash still required by the
// negotiated parameters with the given bytes. Per spec §4.2 the bytes fed
// are always either a full handshake message (header+body) or the
// SSLv2 canonicalization described in §4.4.
func feedTranscript(s *connState, data []byte) {
	if hashStillRequired(s, hashMD5) {
		s.hashes.md5.Write(data) //nolint:errcheck // hash.Hash.Write never errors
	}
	if hashStillRequired(s, hashSHA1) {
		s.hashes.sha1.Write(data) //nolint:errcheck
	}
	if hashStillRequired(s, hashSHA224) {
		s.hashes.sha224.Write(data) //nolint:errcheck
	}
	if hashStillRequired(s, hashSHA256) {
		s.hashes.sha256.Write(data) //nolint:errcheck
	}
	if hashStillRequired(s, hashSHA384) {
		s.hashes.sha384.Write(data) //nolint:errcheck
	}
	if hashStillRequired(s, hashSHA512) {
		s.hashes.sha512.Write(data) //nolint:errcheck
	}
}

// transcriptSum returns the current digest for the hash the negotiated
// PRF uses, concatenated with SHA-1 for TLS <=1.1's MD5+SHA-1 scheme.
func transcriptSum(s *connState) []byte {
	if s.version.LessOrEqual(protocolVersion1_1) {
		sum := append([]byte{}, s.hashes.md5.Sum(nil)...)
		return append(sum, s.hashes.sha1.Sum(nil)...)
	}
	if s.prfHash != nil && sameHash(s.prfHash, newSHA384) {
		return s.hashes.sha384.Sum(nil)
	}
	return s.hashes.sha256.Sum(nil)
}

// transcriptHashFunc returns the hash constructor matching the digest
// transcriptSum currently produces, for the pkg/crypto/prf calls that
// derive the master secret, the record keys and Finished verify_data.
func transcriptHashFunc(s *connState) func() hash.Hash {
	if s.prfHash != nil {
		return s.prfHash
	}
	return newSHA256
}
