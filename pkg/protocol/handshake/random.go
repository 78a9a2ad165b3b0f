// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// RandomLength is the wire size of the Random structure (RFC 5246 §7.4.1.2).
const RandomLength = 32

// Random is the 32-byte random value carried by ClientHello and
// ServerHello: a 4-byte timestamp followed by 28 bytes of entropy.
type Random struct {
	GMTUnixTime time.Time
	RandomBytes [28]byte
}

// Populate fills Random with the current time, in the whole seconds the
// wire form carries, and fresh entropy.
func (r *Random) Populate() error {
	r.GMTUnixTime = time.Unix(time.Now().Unix(), 0)
	_, err := rand.Read(r.RandomBytes[:])
	return err
}

// MarshalFixed encodes Random into its fixed 32-byte wire form.
func (r *Random) MarshalFixed() [RandomLength]byte {
	var out [RandomLength]byte
	binary.BigEndian.PutUint32(out[:4], uint32(r.GMTUnixTime.Unix()))
	copy(out[4:], r.RandomBytes[:])
	return out
}

// UnmarshalFixed populates Random from its fixed 32-byte wire form.
func (r *Random) UnmarshalFixed(data [RandomLength]byte) {
	r.GMTUnixTime = time.Unix(int64(binary.BigEndian.Uint32(data[:4])), 0)
	copy(r.RandomBytes[:], data[4:])
}
