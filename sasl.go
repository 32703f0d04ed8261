// SPDX-FileCopyrightText: © 2023 David Stainton
// SPDX-License-Identifier: AGPL-3.0-only

package rstream

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/streamwire/rstream/commands"
)

// saslPlainData encodes the SASL PLAIN mechanism's opaque data field per
// RFC 4616: authzid NUL authcid NUL passwd. The password is carried
// verbatim, so the broker receives it in plaintext; DeriveSASLVerifier is a
// separate, local way to keep only a salted hash at rest, and the plaintext
// secret is passed here only at the moment of the SaslAuthenticate call.
func saslPlainData(username, password string) []byte {
	data := make([]byte, 0, len(username)*2+len(password)+2)
	data = append(data, username...)
	data = append(data, 0)
	data = append(data, username...)
	data = append(data, 0)
	data = append(data, password...)
	return data
}

// NewSaslPlainAuthenticate builds the SaslAuthenticate command for the
// PLAIN mechanism, correlating it with corr.
func NewSaslPlainAuthenticate(corr uint32, username, password string, protocolVer uint16) *commands.SaslAuthenticate {
	return &commands.SaslAuthenticate{
		Correlation: corr,
		Mechanism:   "PLAIN",
		Data:        saslPlainData(username, password),
		ProtocolVer: protocolVer,
	}
}

// SASLVerifier is a salted, irreversible hash of a shared secret, suitable
// for storing alongside a configured endpoint instead of the plaintext
// password. It is not sent on the wire; it lets a long-lived client verify
// a secret it was handed at runtime against the one it was configured with
// before ever dialing a broker.
type SASLVerifier struct {
	Salt []byte
	Hash []byte
}

const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
)

// DeriveSASLVerifier hashes password with a freshly generated salt using
// Argon2id, the password-hashing variant resistant to both GPU cracking and
// side-channel attacks. The result can be persisted in configuration; the
// plaintext password need not be.
func DeriveSASLVerifier(password string) (*SASLVerifier, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("rstream: generating sasl salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return &SASLVerifier{Salt: salt, Hash: hash}, nil
}

// Verify reports whether password hashes to the same value under v's salt,
// using a constant-time comparison to avoid leaking timing information
// about how many leading bytes matched.
func (v *SASLVerifier) Verify(password string) bool {
	got := argon2.IDKey([]byte(password), v.Salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return subtle.ConstantTimeCompare(got, v.Hash) == 1
}
