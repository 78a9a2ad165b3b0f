// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"reflect"
	"testing"

	"github.com/censys-oss/tlsfsm/pkg/protocol"
)

func roundTrip(t *testing.T, m Message, decoded Message) {
	t.Helper()
	raw, err := m.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := decoded.Unmarshal(raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(m, decoded) {
		t.Errorf("round trip mismatch: got %#v, want %#v", decoded, m)
	}
}

func TestMessageClientHelloRoundTrip(t *testing.T) {
	m := &MessageClientHello{
		Version:            protocol.Version{Major: 3, Minor: 3},
		SessionID:          []byte{0x01, 0x02},
		CipherSuiteIDs:     []uint16{0xc02f, 0xc030},
		CompressionMethods: []protocol.CompressionMethodID{protocol.CompressionMethodNull},
		Extensions: []Extension{
			{Type: ExtensionTypeExtendedMasterSecret},
		},
	}
	if err := m.Random.Populate(); err != nil {
		t.Fatal(err)
	}
	roundTrip(t, m, &MessageClientHello{})
}

func TestMessageCertificateRoundTrip(t *testing.T) {
	m := &MessageCertificate{Certificate: [][]byte{{0x01, 0x02, 0x03}, {0x04}}}
	roundTrip(t, m, &MessageCertificate{})
}

func TestMessageServerHelloDoneRoundTrip(t *testing.T) {
	m := &MessageServerHelloDone{}
	roundTrip(t, m, &MessageServerHelloDone{})
}

func TestMessageCertificateRequestRoundTrip(t *testing.T) {
	m := &MessageCertificateRequest{
		CertificateTypes:           []ClientCertificateType{ClientCertificateTypeRSASign, ClientCertificateTypeECDSASign},
		SignatureAndHashAlgorithms: []SignatureAndHashAlgorithm{{Hash: HashAlgorithmSHA256, Signature: SignatureAlgorithmRSA}},
		CertificateAuthorities:     [][]byte{{0x01, 0x02}},
	}
	roundTrip(t, m, &MessageCertificateRequest{})
}

func TestMessageCertificateVerifyRoundTrip(t *testing.T) {
	m := &MessageCertificateVerify{
		Algorithm: SignatureAndHashAlgorithm{Hash: HashAlgorithmSHA256, Signature: SignatureAlgorithmECDSA},
		Signature: []byte{0xaa, 0xbb, 0xcc},
	}
	roundTrip(t, m, &MessageCertificateVerify{})
}

func TestMessageServerKeyExchangeRoundTrip(t *testing.T) {
	m := &MessageServerKeyExchange{
		Curve:     NamedCurveX25519,
		PublicKey: make([]byte, 32),
		Algorithm: SignatureAndHashAlgorithm{Hash: HashAlgorithmSHA256, Signature: SignatureAlgorithmRSA},
		Signature: []byte{0x01, 0x02, 0x03, 0x04},
	}
	roundTrip(t, m, &MessageServerKeyExchange{})
}

func TestMessageClientKeyExchangeRoundTrip(t *testing.T) {
	m := &MessageClientKeyExchange{EncryptedPreMasterSecret: []byte{0x01, 0x02, 0x03}}
	decoded := &MessageClientKeyExchange{}
	raw, err := m.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if err := decoded.Unmarshal(raw); err != nil {
		t.Fatal(err)
	}
	if string(decoded.EncryptedPreMasterSecret) != string(m.EncryptedPreMasterSecret) {
		t.Errorf("got %#v, want %#v", decoded.EncryptedPreMasterSecret, m.EncryptedPreMasterSecret)
	}
}

func TestMessageNewSessionTicketRoundTrip(t *testing.T) {
	m := &MessageNewSessionTicket{LifetimeHint: 7200, Ticket: []byte{0x01, 0x02, 0x03}}
	roundTrip(t, m, &MessageNewSessionTicket{})
}

func TestMessageCertificateStatusRoundTrip(t *testing.T) {
	m := &MessageCertificateStatus{StatusType: CertificateStatusTypeOCSP, Response: []byte{0xde, 0xad}}
	roundTrip(t, m, &MessageCertificateStatus{})
}

func TestMessageHelloRequestRoundTrip(t *testing.T) {
	m := &MessageHelloRequest{}
	roundTrip(t, m, &MessageHelloRequest{})
}
