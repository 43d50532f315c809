// Package swcrypto provides the canonical byte encoding for station
// advertisements and releases, and Ed25519 sign/verify over that encoding.
//
// Canonical format (byte-exact, UTF-8):
//
//	shortwave:advertise:freq={key};station={sid};url={url};at={ts};ttl={ttl}
//	shortwave:release:freq={key};station={sid}
//
// Any deviation in field order, separators, or whitespace invalidates the
// signature, so these functions are the single source of truth for the
// wire bytes — callers must never hand-build the string themselves.
package swcrypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
)

const (
	nsAdvertise = "advertise"
	nsRelease   = "release"
)

// CanonicalizeAd builds the canonical bytes signed by an advertisement.
// advertisedAtRFC3339 must be exactly the string the sender will transmit
// (including its timezone offset) — the signature covers those bytes, not
// a re-serialized timestamp.
func CanonicalizeAd(frequencyKey, stationID, streamURL, advertisedAtRFC3339 string, ttlSeconds uint32) []byte {
	return []byte(fmt.Sprintf("shortwave:%s:freq=%s;station=%s;url=%s;at=%s;ttl=%d",
		nsAdvertise, frequencyKey, stationID, streamURL, advertisedAtRFC3339, ttlSeconds))
}

// CanonicalizeRelease builds the canonical bytes signed by a release.
func CanonicalizeRelease(frequencyKey, stationID string) []byte {
	return []byte(fmt.Sprintf("shortwave:%s:freq=%s;station=%s", nsRelease, frequencyKey, stationID))
}

// Sign produces a base64 (standard alphabet, padded) signature over msg
// using an Ed25519 secret key.
func Sign(secretKey ed25519.PrivateKey, msg []byte) string {
	sig := ed25519.Sign(secretKey, msg)
	return base64.StdEncoding.EncodeToString(sig)
}

// Verify checks a base64 public key and base64 signature against msg.
// Both base64 fields must decode to the exact lengths Ed25519 requires
// (32-byte key, 64-byte signature); anything else is treated as a
// verification failure rather than a panic.
func Verify(publicKeyB64 string, msg []byte, signatureB64 string) bool {
	pub, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}

// EncodePublicKey renders a raw Ed25519 public key as base64 for the wire.
func EncodePublicKey(pub ed25519.PublicKey) string {
	return base64.StdEncoding.EncodeToString(pub)
}

// GenerateKey creates a fresh Ed25519 keypair for an ephemeral node identity
// (used when no owner_secret_key is configured; a restart rotates ownership).
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(nil)
}
