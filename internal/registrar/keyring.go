// SPDX-License-Identifier: MPL-2.0

package registrar

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
)

// ErrMalformedKey is returned when a signing key cannot be parsed.
var ErrMalformedKey = errors.New("malformed signing key")

// KeyInfo identifies the primary key of a keyring.
type KeyInfo struct {
	// Fingerprint is the upper-case hex fingerprint of the primary key.
	Fingerprint string
	// Identities are the user IDs bound to the key, sorted.
	Identities []string
}

// DearmorKey decodes an ASCII armored OpenPGP public key block into the
// binary form apt reads from a keyring file. The block must be a public
// key and its checksum must verify.
func DearmorKey(armored []byte) ([]byte, KeyInfo, error) {
	block, err := armor.Decode(bytes.NewReader(armored))
	if err != nil {
		return nil, KeyInfo{}, fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}
	if block.Type != openpgp.PublicKeyType {
		return nil, KeyInfo{}, fmt.Errorf("%w: armor block is %q, want %q", ErrMalformedKey, block.Type, openpgp.PublicKeyType)
	}

	bin, err := io.ReadAll(block.Body)
	if err != nil {
		return nil, KeyInfo{}, fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}

	info, err := InspectKeyring(bin)
	if err != nil {
		return nil, KeyInfo{}, err
	}
	return bin, info, nil
}

// InspectKeyring parses a binary keyring and describes its first key.
func InspectKeyring(bin []byte) (KeyInfo, error) {
	entities, err := openpgp.ReadKeyRing(bytes.NewReader(bin))
	if err != nil {
		return KeyInfo{}, fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}
	if len(entities) == 0 || entities[0].PrimaryKey == nil {
		return KeyInfo{}, fmt.Errorf("%w: keyring contains no keys", ErrMalformedKey)
	}

	e := entities[0]
	info := KeyInfo{Fingerprint: strings.ToUpper(hex.EncodeToString(e.PrimaryKey.Fingerprint[:]))}
	for name := range e.Identities {
		info.Identities = append(info.Identities, name)
	}
	slices.Sort(info.Identities)
	return info, nil
}

// ValidateKeyring checks that path holds a parseable binary keyring.
func ValidateKeyring(fs afero.Fs, path string) (KeyInfo, error) {
	bin, err := afero.ReadFile(fs, path)
	if err != nil {
		return KeyInfo{}, fmt.Errorf("read keyring: %w", err)
	}
	info, err := InspectKeyring(bin)
	if err != nil {
		return KeyInfo{}, fmt.Errorf("keyring %s: %w", path, err)
	}
	return info, nil
}
