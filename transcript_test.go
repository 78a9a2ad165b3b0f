// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsfsm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/censys-oss/tlsfsm/pkg/protocol"
)

func TestHashStillRequiredTLS10UsesLegacyTrio(t *testing.T) {
	s := newConnState(RoleClient)
	s.version = protocol.Version1_0

	require.True(t, hashStillRequired(s, hashMD5))
	require.True(t, hashStillRequired(s, hashSHA1))
	require.True(t, hashStillRequired(s, hashMD5SHA1))
	require.False(t, hashStillRequired(s, hashSHA256))
	require.False(t, hashStillRequired(s, hashSHA384))
}

func TestHashStillRequiredTLS12UsesPRFHashOnly(t *testing.T) {
	s := newConnState(RoleClient)
	s.version = protocol.Version1_2
	s.prfHash = newSHA256

	require.False(t, hashStillRequired(s, hashMD5))
	require.True(t, hashStillRequired(s, hashSHA256))
	require.False(t, hashStillRequired(s, hashSHA384))

	s.prfHash = newSHA384
	require.False(t, hashStillRequired(s, hashSHA256))
	require.True(t, hashStillRequired(s, hashSHA384))
}

func TestFeedTranscriptAndSumAreDeterministic(t *testing.T) {
	a := newConnState(RoleClient)
	a.version = protocol.Version1_2
	a.prfHash = newSHA256
	b := newConnState(RoleServer)
	b.version = protocol.Version1_2
	b.prfHash = newSHA256

	msg := []byte("client-hello-bytes")
	feedTranscript(a, msg)
	feedTranscript(b, msg)

	require.Equal(t, transcriptSum(a), transcriptSum(b))
}

func TestFeedTranscriptOrderSensitive(t *testing.T) {
	a := newConnState(RoleClient)
	a.version = protocol.Version1_2
	a.prfHash = newSHA256
	b := newConnState(RoleServer)
	b.version = protocol.Version1_2
	b.prfHash = newSHA256

	feedTranscript(a, []byte("one"))
	feedTranscript(a, []byte("two"))
	feedTranscript(b, []byte("two"))
	feedTranscript(b, []byte("one"))

	require.NotEqual(t, transcriptSum(a), transcriptSum(b))
}
