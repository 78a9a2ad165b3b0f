// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"bytes"
	"testing"
)

func TestHandshakeMessageFinished(t *testing.T) {
	raw := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c}

	m := &MessageFinished{}
	if err := m.Unmarshal(raw); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(m.VerifyData, raw) {
		t.Errorf("got %#v, want %#v", m.VerifyData, raw)
	}

	out, err := m.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, raw) {
		t.Errorf("got %#v, want %#v", out, raw)
	}

	if m.Type() != TypeFinished {
		t.Errorf("got %s, want %s", m.Type(), TypeFinished)
	}

	log := m.MakeLog()
	if !bytes.Equal(log.VerifyData, raw) {
		t.Errorf("MakeLog got %#v, want %#v", log.VerifyData, raw)
	}
}
