// Package keyfile persists the node's libp2p identity key across restarts.
// The preferred on-disk format is the libp2p protobuf-marshaled private key
// (crypto.MarshalPrivateKey); a raw 32-byte Ed25519 seed, either as binary
// bytes or base64-encoded text, is accepted as a fallback so an operator-provided seed can be dropped in
// without running through libp2p's own key-generation tooling first.
package keyfile

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"os"

	"github.com/libp2p/go-libp2p/core/crypto"
)

// Load reads the identity key at path, generating and persisting a new
// Ed25519 key if the file does not exist.
func Load(path string) (crypto.PrivKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return generateAndPersist(path)
		}
		return nil, err
	}
	return decode(raw)
}

func generateAndPersist(path string) (crypto.PrivKey, error) {
	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, err
	}
	marshaled, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, marshaled, 0o600); err != nil {
		return nil, err
	}
	return priv, nil
}

func decode(raw []byte) (crypto.PrivKey, error) {
	if priv, err := crypto.UnmarshalPrivateKey(raw); err == nil {
		return priv, nil
	}
	// Fall back to a raw binary 32-byte Ed25519 seed.
	if len(raw) == ed25519.SeedSize {
		return crypto.UnmarshalEd25519PrivateKey(ed25519.NewKeyFromSeed(raw))
	}
	// Fall back to a base64-encoded 32-byte Ed25519 seed.
	seed, err := base64.StdEncoding.DecodeString(string(raw))
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, errors.New("keyfile: unrecognized key format")
	}
	stdPriv := ed25519.NewKeyFromSeed(seed)
	return crypto.UnmarshalEd25519PrivateKey(stdPriv)
}
