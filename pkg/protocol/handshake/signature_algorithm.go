// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

// HashAlgorithm is the one-byte hash identifier of a SignatureAndHashAlgorithm
// pair (RFC 5246 §7.4.1.4.1).
type HashAlgorithm uint8

// Hash algorithms this module negotiates.
const (
	HashAlgorithmMD5    HashAlgorithm = 1
	HashAlgorithmSHA1   HashAlgorithm = 2
	HashAlgorithmSHA224 HashAlgorithm = 3
	HashAlgorithmSHA256 HashAlgorithm = 4
	HashAlgorithmSHA384 HashAlgorithm = 5
	HashAlgorithmSHA512 HashAlgorithm = 6
)

// SignatureAlgorithm is the one-byte signature identifier of a
// SignatureAndHashAlgorithm pair.
type SignatureAlgorithm uint8

// Signature algorithms this module negotiates.
const (
	SignatureAlgorithmRSA   SignatureAlgorithm = 1
	SignatureAlgorithmDSA   SignatureAlgorithm = 2
	SignatureAlgorithmECDSA SignatureAlgorithm = 3
)

// SignatureAndHashAlgorithm names one signing scheme offered in a
// signature_algorithms extension, a CertificateRequest, or used to sign a
// ServerKeyExchange/CertificateVerify.
type SignatureAndHashAlgorithm struct {
	Hash      HashAlgorithm
	Signature SignatureAlgorithm
}

// Marshal encodes a list of SignatureAndHashAlgorithm pairs with its
// 2-byte length prefix.
func MarshalSignatureAndHashAlgorithms(algos []SignatureAndHashAlgorithm) ([]byte, error) {
	if len(algos)*2 > 0xffff {
		return nil, errMalformed
	}
	out := make([]byte, 2+len(algos)*2)
	out[0] = byte(len(algos) * 2 >> 8)
	out[1] = byte(len(algos) * 2)
	for i, a := range algos {
		out[2+i*2] = byte(a.Hash)
		out[2+i*2+1] = byte(a.Signature)
	}
	return out, nil
}

// UnmarshalSignatureAndHashAlgorithms decodes a 2-byte-length-prefixed list
// of SignatureAndHashAlgorithm pairs.
func UnmarshalSignatureAndHashAlgorithms(data []byte) ([]SignatureAndHashAlgorithm, []byte, error) {
	if len(data) < 2 {
		return nil, nil, errBufferTooSmall
	}
	n := int(data[0])<<8 | int(data[1])
	if n%2 != 0 || len(data) < 2+n {
		return nil, nil, errBufferTooSmall
	}
	algos := make([]SignatureAndHashAlgorithm, n/2)
	for i := range algos {
		algos[i] = SignatureAndHashAlgorithm{
			Hash:      HashAlgorithm(data[2+i*2]),
			Signature: SignatureAlgorithm(data[2+i*2+1]),
		}
	}
	return algos, data[2+n:], nil
}
