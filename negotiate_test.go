// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsfsm

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/censys-oss/tlsfsm/session"
)

func generateTestCertificate(t *testing.T) tls.Certificate {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "tlsfsm-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	require.NoError(t, err)

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}
}

// runHandshake drives both sides of a pipe-connected Conn pair to
// completion concurrently, returning each side's error (nil on success).
func runHandshake(t *testing.T, clientCfg, serverCfg *Config) (client, server *Conn, clientErr, serverErr error) {
	t.Helper()
	c1, c2 := net.Pipe()

	type result struct {
		conn *Conn
		err  error
	}
	clientCh := make(chan result, 1)
	serverCh := make(chan result, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	go func() {
		conn, err := ClientWithContext(ctx, c1, clientCfg)
		clientCh <- result{conn, err}
	}()
	go func() {
		conn, err := ServerWithContext(ctx, c2, serverCfg)
		serverCh <- result{conn, err}
	}()

	cr := <-clientCh
	sr := <-serverCh
	return cr.conn, sr.conn, cr.err, sr.err
}

func TestNegotiateFullHandshakeOverPipe(t *testing.T) {
	cert := generateTestCertificate(t)
	serverCfg := &Config{Certificates: []tls.Certificate{cert}, CipherSuites: []uint16{0x009c}}
	clientCfg := &Config{InsecureSkipVerify: true, CipherSuites: []uint16{0x009c}}

	client, server, clientErr, serverErr := runHandshake(t, clientCfg, serverCfg)
	require.NoError(t, clientErr)
	require.NoError(t, serverErr)

	require.True(t, client.HandshakeType().Has(Negotiated|FullHandshake))
	require.True(t, server.HandshakeType().Has(Negotiated|FullHandshake))
	require.False(t, client.HandshakeType().Has(PerfectForwardSecrecy))

	clientLog := client.GetHandshakeLog()
	serverLog := server.GetHandshakeLog()
	require.Equal(t, uint16(0x009c), clientLog.CipherSuite)
	require.Equal(t, uint16(0x009c), serverLog.CipherSuite)
	require.NotNil(t, clientLog.Finished)
	require.NotNil(t, serverLog.Finished)

	appData := []byte("hello over tlsfsm")
	writeErrCh := make(chan error, 1)
	go func() {
		_, err := client.Write(appData)
		writeErrCh <- err
	}()

	buf := make([]byte, len(appData))
	n, err := server.Read(buf)
	require.NoError(t, err)
	require.Equal(t, appData, buf[:n])
	require.NoError(t, <-writeErrCh)
}

func TestNegotiatePerfectForwardSecrecyCipherSuite(t *testing.T) {
	cert := generateTestCertificate(t)
	serverCfg := &Config{Certificates: []tls.Certificate{cert}, CipherSuites: []uint16{0xc02f}}
	clientCfg := &Config{InsecureSkipVerify: true, CipherSuites: []uint16{0xc02f}}

	client, server, clientErr, serverErr := runHandshake(t, clientCfg, serverCfg)
	require.NoError(t, clientErr)
	require.NoError(t, serverErr)

	require.True(t, client.HandshakeType().Has(PerfectForwardSecrecy))
	require.True(t, server.HandshakeType().Has(PerfectForwardSecrecy))
}

// TestNegotiateSessionIDPopulatesServerCache confirms a completed full
// handshake leaves the server's session cache holding the master secret a
// later abbreviated handshake on the same session ID would need, per
// resolver.go's restoreResumedState.
func TestNegotiateSessionIDPopulatesServerCache(t *testing.T) {
	cert := generateTestCertificate(t)
	store := session.NewMemoryCache(0)
	serverCfg := &Config{Certificates: []tls.Certificate{cert}, CipherSuites: []uint16{0x009c}, SessionStore: store}
	clientCfg := &Config{InsecureSkipVerify: true, CipherSuites: []uint16{0x009c}}

	_, server, clientErr, serverErr := runHandshake(t, clientCfg, serverCfg)
	require.NoError(t, clientErr)
	require.NoError(t, serverErr)
	require.False(t, server.state.resumed)

	sessionID := append([]byte{}, server.state.sessionID...)
	require.NotEmpty(t, sessionID)

	cached, hit, err := store.Get(sessionID)
	require.NoError(t, err)
	require.True(t, hit, "full handshake must populate the session cache for later resumption")
	require.Equal(t, server.state.masterSecret, cached.MasterSecret)
	require.Equal(t, server.state.cipherSuiteID, cached.CipherSuiteID)
}

// TestNegotiateFullPFSOCSPClientAuthRequired is spec §8 scenario S4: a full
// PFS handshake where the server staples OCSP and requires a client
// certificate, and the client presents one. CLIENT_AUTH is set from the
// start (no adaptive upgrade needed) and CVERIFY is exchanged.
func TestNegotiateFullPFSOCSPClientAuthRequired(t *testing.T) {
	serverCert := generateTestCertificate(t)
	serverCert.OCSPStaple = []byte("stapled-ocsp-response")
	clientCert := generateTestCertificate(t)

	serverCfg := &Config{Certificates: []tls.Certificate{serverCert}, CipherSuites: []uint16{0xc02f}, ClientAuth: ClientAuthRequired}
	clientCfg := &Config{InsecureSkipVerify: true, CipherSuites: []uint16{0xc02f}, Certificates: []tls.Certificate{clientCert}, ClientAuth: ClientAuthRequired}

	client, server, clientErr, serverErr := runHandshake(t, clientCfg, serverCfg)
	require.NoError(t, clientErr)
	require.NoError(t, serverErr)

	want := Negotiated | FullHandshake | PerfectForwardSecrecy | OCSPStatus | ClientAuth
	require.Equal(t, want, client.HandshakeType())
	require.Equal(t, want, server.HandshakeType())
	require.False(t, server.HandshakeType().Has(NoClientCert))
	require.Len(t, server.state.peerCertificates, 1, "server must have parsed the client's certificate")
}

// TestNegotiateFullPFSOCSPClientAuthOptionalEmptyCert is spec §8 scenario
// S5: same shape as S4 but auth is optional and the client presents no
// certificate, so CVERIFY must be omitted and NO_CLIENT_CERT set instead
// of the handshake failing with errNoCertificates (the bug review comment
// #2 fixed in setHandshakeNoClientCert).
func TestNegotiateFullPFSOCSPClientAuthOptionalEmptyCert(t *testing.T) {
	serverCert := generateTestCertificate(t)
	serverCert.OCSPStaple = []byte("stapled-ocsp-response")

	serverCfg := &Config{Certificates: []tls.Certificate{serverCert}, CipherSuites: []uint16{0xc02f}, ClientAuth: ClientAuthOptional}
	clientCfg := &Config{InsecureSkipVerify: true, CipherSuites: []uint16{0xc02f}, ClientAuth: ClientAuthOptional}

	client, server, clientErr, serverErr := runHandshake(t, clientCfg, serverCfg)
	require.NoError(t, clientErr)
	require.NoError(t, serverErr)

	want := Negotiated | FullHandshake | PerfectForwardSecrecy | OCSPStatus | ClientAuth | NoClientCert
	require.Equal(t, want, client.HandshakeType())
	require.Equal(t, want, server.HandshakeType())
	require.Empty(t, server.state.peerCertificates)
}

// TestNegotiateAdaptiveOCSPDrop is spec §8 scenario S6: the server
// advertises status_request in its ServerHello (so the client sets
// OCSP_STATUS) but never actually sends CertificateStatus. The client must
// observe ServerKeyExchange where CertificateStatus was expected, clear
// OCSP_STATUS, and complete normally (invariant 6).
//
// The server side is driven manually (outboundStep/reanchorSequence
// instead of Negotiate) to simulate a peer that commits to the
// status_request extension and then changes its mind, since this
// module's own server never does that inconsistently on its own.
func TestNegotiateAdaptiveOCSPDrop(t *testing.T) {
	cert := generateTestCertificate(t)
	cert.OCSPStaple = []byte("stapled-ocsp-response")

	serverCfg := &Config{Certificates: []tls.Certificate{cert}, CipherSuites: []uint16{0xc02f}}
	clientCfg := &Config{InsecureSkipVerify: true, CipherSuites: []uint16{0xc02f}}

	c1, c2 := net.Pipe()

	type clientResult struct {
		conn *Conn
		err  error
	}
	clientCh := make(chan clientResult, 1)
	go func() {
		conn, err := Client(c1, clientCfg)
		clientCh <- clientResult{conn, err}
	}()

	server, err := newConn(c2, RoleServer, serverCfg)
	require.NoError(t, err)

	require.NoError(t, server.inboundStep())  // ClientHello
	require.NoError(t, server.outboundStep()) // ServerHello: advertises status_request
	require.True(t, server.state.handshakeType.Has(OCSPStatus))

	// The server changes its mind before ever building CertificateStatus.
	require.NoError(t, reanchorSequence(server.state, server.state.handshakeType&^OCSPStatus))

	require.NoError(t, server.Handshake(context.Background()))
	cr := <-clientCh
	require.NoError(t, cr.err)

	require.False(t, server.HandshakeType().Has(OCSPStatus))
	require.False(t, cr.conn.HandshakeType().Has(OCSPStatus))
	require.True(t, cr.conn.HandshakeType().Has(Negotiated | FullHandshake | PerfectForwardSecrecy))
}

// runResumingHandshake is runHandshake's counterpart for a client that
// presents a pre-known session ID instead of letting encodeClientHello
// generate one, so a second connection can drive spec §8 scenarios S1/S2
// (session-ID resumption) end to end over a fresh net.Pipe.
func runResumingHandshake(t *testing.T, clientCfg, serverCfg *Config, sessionID []byte) (client, server *Conn, clientErr, serverErr error) {
	t.Helper()
	c1, c2 := net.Pipe()

	client, err := newConn(c1, RoleClient, clientCfg)
	require.NoError(t, err)
	client.state.sessionID = append([]byte{}, sessionID...)

	server, err = newConn(c2, RoleServer, serverCfg)
	require.NoError(t, err)

	type result struct{ err error }
	clientCh := make(chan result, 1)
	serverCh := make(chan result, 1)
	go func() { clientCh <- result{client.Handshake(context.Background())} }()
	go func() { serverCh <- result{server.Handshake(context.Background())} }()

	cr := <-clientCh
	sr := <-serverCh
	return client, server, cr.err, sr.err
}

// TestNegotiateResumptionNoTicket is spec §8 scenario S1: a client presents
// a known session ID and the server resumes without issuing a new ticket.
// The abbreviated sequence (SH, SCCS, SF, CCCS, CF) runs and the final
// bitmask is exactly NEGOTIATED.
func TestNegotiateResumptionNoTicket(t *testing.T) {
	cert := generateTestCertificate(t)
	store := session.NewMemoryCache(0)
	serverCfg := &Config{Certificates: []tls.Certificate{cert}, CipherSuites: []uint16{0x009c}, SessionStore: store}
	clientCfg := &Config{InsecureSkipVerify: true, CipherSuites: []uint16{0x009c}}

	_, first, clientErr, serverErr := runHandshake(t, clientCfg, serverCfg)
	require.NoError(t, clientErr)
	require.NoError(t, serverErr)
	sessionID := append([]byte{}, first.state.sessionID...)
	require.NotEmpty(t, sessionID)

	resumingClientCfg := &Config{InsecureSkipVerify: true, CipherSuites: []uint16{0x009c}, SessionStore: store}
	client, server, clientErr, serverErr := runResumingHandshake(t, resumingClientCfg, serverCfg, sessionID)
	require.NoError(t, clientErr)
	require.NoError(t, serverErr)

	require.Equal(t, Negotiated, client.HandshakeType())
	require.Equal(t, Negotiated, server.HandshakeType())
	require.True(t, server.state.resumed)
	require.True(t, client.state.resumed)
	require.Equal(t, first.state.masterSecret, client.state.masterSecret)
}

// TestNegotiateResumptionWithNewTicket is spec §8 scenario S2: as S1, but
// the server also issues a new session ticket (NST) as part of the
// abbreviated flight, setting WITH_SESSION_TICKET in the final bitmask.
func TestNegotiateResumptionWithNewTicket(t *testing.T) {
	cert := generateTestCertificate(t)
	store := session.NewMemoryCache(0)
	var ticketKey [32]byte
	_, err := rand.Read(ticketKey[:])
	require.NoError(t, err)
	protector, err := session.NewAESGCMTicketProtector(ticketKey)
	require.NoError(t, err)
	serverCfg := &Config{Certificates: []tls.Certificate{cert}, CipherSuites: []uint16{0x009c}, SessionStore: store, TicketProtector: protector}
	clientCfg := &Config{InsecureSkipVerify: true, CipherSuites: []uint16{0x009c}, TicketProtector: protector}

	_, first, clientErr, serverErr := runHandshake(t, clientCfg, serverCfg)
	require.NoError(t, clientErr)
	require.NoError(t, serverErr)
	sessionID := append([]byte{}, first.state.sessionID...)
	require.NotEmpty(t, sessionID)

	resumingClientCfg := &Config{InsecureSkipVerify: true, CipherSuites: []uint16{0x009c}, TicketProtector: protector, SessionStore: store}
	client, server, clientErr, serverErr := runResumingHandshake(t, resumingClientCfg, serverCfg, sessionID)
	require.NoError(t, clientErr)
	require.NoError(t, serverErr)

	want := Negotiated | WithSessionTicket
	require.Equal(t, want, client.HandshakeType())
	require.Equal(t, want, server.HandshakeType())
}
