// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var errTicketMalformed = errors.New("session: malformed ticket")

// TicketProtector encrypts and decrypts opaque session tickets (RFC 5077),
// the concrete operations spec §4.3 step 2 names "attempt decrypt" and
// "key available" against.
type TicketProtector interface {
	// Encrypt produces a fresh ticket for s.
	Encrypt(s State) ([]byte, error)
	// Decrypt recovers the State from a presented ticket. ok is false, with
	// a nil error, for a well-formed but unrecognized/expired ticket;
	// err is non-nil only for infrastructure failures.
	Decrypt(ticket []byte) (State, bool, error)
	// EncryptAvailable reports whether an encryption key is currently
	// available, i.e. whether issuing a new ticket is possible right now.
	EncryptAvailable() bool
}

// AESGCMTicketProtector is the default TicketProtector: tickets are
// AES-256-GCM-sealed JSON, with a random nonce and a uuid-derived key ID
// prefix so rotated keys can be distinguished without decrypting.
type AESGCMTicketProtector struct {
	keyID uuid.UUID
	aead  cipher.AEAD
}

// NewAESGCMTicketProtector derives an AEAD from a 32-byte key and tags
// tickets it issues with a fresh key ID.
func NewAESGCMTicketProtector(key [32]byte) (*AESGCMTicketProtector, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESGCMTicketProtector{keyID: uuid.New(), aead: gcm}, nil
}

type ticketPayload struct {
	MasterSecret  []byte    `json:"master_secret"`
	CipherSuiteID uint16    `json:"cipher_suite_id"`
	Version       [2]uint8  `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
}

// Encrypt implements TicketProtector.
func (p *AESGCMTicketProtector) Encrypt(s State) ([]byte, error) {
	payload := ticketPayload{
		MasterSecret:  s.MasterSecret,
		CipherSuiteID: s.CipherSuiteID,
		Version:       s.Version,
		CreatedAt:     s.CreatedAt,
	}
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, p.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	sealed := p.aead.Seal(nil, nonce, plaintext, p.keyID[:])
	out := make([]byte, 0, 16+len(nonce)+len(sealed))
	out = append(out, p.keyID[:]...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt implements TicketProtector.
func (p *AESGCMTicketProtector) Decrypt(ticket []byte) (State, bool, error) {
	if len(ticket) < 16+p.aead.NonceSize() {
		return State{}, false, nil
	}
	keyID := ticket[:16]
	nonce := ticket[16 : 16+p.aead.NonceSize()]
	sealed := ticket[16+p.aead.NonceSize():]

	if string(keyID) != string(p.keyID[:]) {
		return State{}, false, nil
	}

	plaintext, err := p.aead.Open(nil, nonce, sealed, keyID)
	if err != nil {
		return State{}, false, nil
	}

	var payload ticketPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return State{}, false, errTicketMalformed
	}
	return State{
		MasterSecret:  payload.MasterSecret,
		CipherSuiteID: payload.CipherSuiteID,
		Version:       payload.Version,
		CreatedAt:     payload.CreatedAt,
	}, true, nil
}

// EncryptAvailable implements TicketProtector.
func (p *AESGCMTicketProtector) EncryptAvailable() bool {
	return p.aead != nil
}
