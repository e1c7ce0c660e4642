// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"sync"
	"testing"

	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
	"golang.org/x/crypto/openpgp/packet"
)

type signingKey struct {
	armored []byte
	binary  []byte
	err     error
}

// RSA key generation is slow; every test in a binary shares one key.
var testKey = sync.OnceValue(func() signingKey {
	entity, err := openpgp.NewEntity("odbcprov test", "test only", "test@odbcprov.invalid", &packet.Config{RSABits: 1024})
	if err != nil {
		return signingKey{err: err}
	}

	var bin bytes.Buffer
	if err := entity.Serialize(&bin); err != nil {
		return signingKey{err: err}
	}

	var arm bytes.Buffer
	w, err := armor.Encode(&arm, openpgp.PublicKeyType, nil)
	if err != nil {
		return signingKey{err: err}
	}
	if _, err := w.Write(bin.Bytes()); err != nil {
		return signingKey{err: err}
	}
	if err := w.Close(); err != nil {
		return signingKey{err: err}
	}
	return signingKey{armored: arm.Bytes(), binary: bin.Bytes()}
})

// ArmoredPublicKey returns an ASCII armored OpenPGP public key, the way a
// vendor publishes its repository signing key.
func ArmoredPublicKey(t testing.TB) []byte {
	t.Helper()
	k := testKey()
	if k.err != nil {
		t.Fatalf("generate test signing key: %v", k.err)
	}
	return bytes.Clone(k.armored)
}

// BinaryPublicKey returns the de-armored form of ArmoredPublicKey, as it
// is stored in an apt keyring.
func BinaryPublicKey(t testing.TB) []byte {
	t.Helper()
	k := testKey()
	if k.err != nil {
		t.Fatalf("generate test signing key: %v", k.err)
	}
	return bytes.Clone(k.binary)
}
