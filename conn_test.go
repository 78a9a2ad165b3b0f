// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsfsm

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConnRejectsNilTransport(t *testing.T) {
	_, err := newConn(nil, RoleClient, &Config{})
	require.ErrorIs(t, err, errNilNextConn)
}

func TestNewConnRejectsNilConfig(t *testing.T) {
	c1, _ := net.Pipe()
	_, err := newConn(c1, RoleClient, nil)
	require.ErrorIs(t, err, errNoConfigProvided)
}

func TestNewConnRejectsClientAuthWithoutCertificates(t *testing.T) {
	c1, _ := net.Pipe()
	_, err := newConn(c1, RoleServer, &Config{ClientAuth: ClientAuthRequired})
	require.ErrorIs(t, err, errNoCertificates)
}

func TestConnReadWriteBeforeHandshakeFails(t *testing.T) {
	c1, _ := net.Pipe()
	conn, err := newConn(c1, RoleClient, &Config{})
	require.NoError(t, err)

	_, err = conn.Read(make([]byte, 8))
	require.ErrorIs(t, err, errHandshakeInProgress)

	_, err = conn.Write([]byte("hi"))
	require.ErrorIs(t, err, errHandshakeInProgress)
}

func TestHandshakeTypeStartsAtInitial(t *testing.T) {
	c1, _ := net.Pipe()
	conn, err := newConn(c1, RoleClient, &Config{})
	require.NoError(t, err)
	require.Equal(t, Initial, conn.HandshakeType())
}
