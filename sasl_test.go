// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package rstream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSASLVerifierRoundTrip(t *testing.T) {
	v, err := DeriveSASLVerifier("s3cret")
	require.NoError(t, err)
	require.True(t, v.Verify("s3cret"))
	require.False(t, v.Verify("wrong"))
}

func TestSASLVerifierSaltsDiffer(t *testing.T) {
	a, err := DeriveSASLVerifier("s3cret")
	require.NoError(t, err)
	b, err := DeriveSASLVerifier("s3cret")
	require.NoError(t, err)
	require.NotEqual(t, a.Salt, b.Salt)
	require.NotEqual(t, a.Hash, b.Hash)
}

func TestNewSaslPlainAuthenticateEncodesOpaqueData(t *testing.T) {
	cmd := NewSaslPlainAuthenticate(7, "guest", "guest", 1)
	require.Equal(t, "PLAIN", cmd.Mechanism)
	require.Equal(t, []byte("guest\x00guest\x00guest"), cmd.Data)
}
