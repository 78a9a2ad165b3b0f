// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsfsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequenceTableSize(t *testing.T) {
	require.Len(t, sequenceTable, 27)
}

func TestSequenceTableStartsAndEnds(t *testing.T) {
	for mask, seq := range sequenceTable {
		require.GreaterOrEqualf(t, len(seq), 2, "mask %s", mask.Name())
		require.Equal(t, ClientHello, seq[0], "mask %s", mask.Name())
		require.Equal(t, ServerHello, seq[1], "mask %s", mask.Name())
		if mask == Initial {
			continue
		}
		require.Equal(t, ApplicationData, seq[len(seq)-1], "mask %s", mask.Name())
		require.Equal(t, ServerFinished, seq[len(seq)-2], "mask %s", mask.Name())
	}
}

func TestSequenceForAbbreviatedHandshake(t *testing.T) {
	seq, ok := sequenceFor(Negotiated)
	require.True(t, ok)
	require.Equal(t, []LogicalMessage{
		ClientHello, ServerHello,
		ServerChangeCipherSpec, ServerFinished,
		ClientChangeCipherSpec, ClientFinished,
		ApplicationData,
	}, seq)
}

func TestSequenceForFullHandshakeWithClientAuth(t *testing.T) {
	mask := Negotiated | FullHandshake | PerfectForwardSecrecy | ClientAuth
	seq, ok := sequenceFor(mask)
	require.True(t, ok)
	require.Contains(t, seq, ServerCertReq)
	require.Contains(t, seq, ClientCert)
	require.Contains(t, seq, ClientCertVerify)
	require.Contains(t, seq, ServerKey)
}

func TestSequenceForUnresolvedMaskMissing(t *testing.T) {
	_, ok := sequenceFor(HandshakeType(0xffff))
	require.False(t, ok)
}

func TestLookupActionCoversEveryLogicalMessage(t *testing.T) {
	for m := ClientHello; m <= ApplicationData; m++ {
		_, ok := lookupAction(m)
		require.Truef(t, ok, "missing action for %s", m)
	}
}
