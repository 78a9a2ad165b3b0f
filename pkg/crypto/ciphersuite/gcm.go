// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package ciphersuite

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/censys-oss/tlsfsm/pkg/protocol"
)

const (
	gcmTagLength   = 16
	gcmNonceLength = 12
	gcmExplicitLen = 8
)

// GCM implements the AES-GCM record protection of RFC 5288, tracking one
// explicit-nonce sequence counter per direction the way the teacher's DTLS
// GCM suite tracks one per epoch.
type GCM struct {
	localGCM, remoteGCM         cipher.AEAD
	localWriteIV, remoteWriteIV []byte
	localSeq, remoteSeq         uint64
}

// NewGCM builds a GCM suite from the keys prf.GenerateEncryptionKeys
// produced for this connection's write/read direction pair.
func NewGCM(localKey, localWriteIV, remoteKey, remoteWriteIV []byte) (*GCM, error) {
	localBlock, err := aes.NewCipher(localKey)
	if err != nil {
		return nil, err
	}
	localGCM, err := cipher.NewGCM(localBlock)
	if err != nil {
		return nil, err
	}

	remoteBlock, err := aes.NewCipher(remoteKey)
	if err != nil {
		return nil, err
	}
	remoteGCM, err := cipher.NewGCM(remoteBlock)
	if err != nil {
		return nil, err
	}

	return &GCM{
		localGCM:      localGCM,
		localWriteIV:  localWriteIV,
		remoteGCM:     remoteGCM,
		remoteWriteIV: remoteWriteIV,
	}, nil
}

func additionalData(seq uint64, contentType protocol.ContentType, version protocol.Version, length int) []byte {
	out := make([]byte, 13)
	binary.BigEndian.PutUint64(out, seq)
	out[8] = byte(contentType)
	out[9] = version.Major
	out[10] = version.Minor
	binary.BigEndian.PutUint16(out[11:], uint16(length))
	return out
}

// Encrypt seals plaintext, prefixing the AEAD's explicit nonce as RFC 5288
// requires.
func (g *GCM) Encrypt(contentType protocol.ContentType, version protocol.Version, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, gcmNonceLength)
	copy(nonce, g.localWriteIV[:4])
	if _, err := rand.Read(nonce[4:]); err != nil {
		return nil, err
	}

	ad := additionalData(g.localSeq, contentType, version, len(plaintext))
	sealed := g.localGCM.Seal(nil, nonce, plaintext, ad)
	g.localSeq++

	out := make([]byte, gcmExplicitLen+len(sealed))
	copy(out, nonce[4:])
	copy(out[gcmExplicitLen:], sealed)
	return out, nil
}

// Decrypt opens a sealed record body.
func (g *GCM) Decrypt(contentType protocol.ContentType, version protocol.Version, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) <= gcmExplicitLen+gcmTagLength {
		return nil, errShortRecord
	}

	nonce := make([]byte, 0, gcmNonceLength)
	nonce = append(append(nonce, g.remoteWriteIV[:4]...), ciphertext[:gcmExplicitLen]...)
	sealed := ciphertext[gcmExplicitLen:]

	ad := additionalData(g.remoteSeq, contentType, version, len(sealed)-gcmTagLength)
	plaintext, err := g.remoteGCM.Open(sealed[:0], nonce, sealed, ad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errDecryptFailed, err) //nolint:errorlint
	}
	g.remoteSeq++
	return plaintext, nil
}
