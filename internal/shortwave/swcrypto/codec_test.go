package swcrypto

import (
	"crypto/ed25519"
	"testing"
)

func fixedKey(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return priv.Public().(ed25519.PublicKey), priv
}

func TestRoundTripAd(t *testing.T) {
	pub, priv := fixedKey(t)
	msg := CanonicalizeAd("100.5", "station-1", "https://example.com/stream", "2026-07-31T00:00:00Z", 10)
	sig := Sign(priv, msg)
	pubB64 := EncodePublicKey(pub)
	if !Verify(pubB64, msg, sig) {
		t.Fatalf("expected signature to verify")
	}
}

func TestTamperedFieldFailsVerification(t *testing.T) {
	pub, priv := fixedKey(t)
	msg := CanonicalizeAd("100.5", "station-1", "https://example.com/stream", "2026-07-31T00:00:00Z", 10)
	sig := Sign(priv, msg)
	pubB64 := EncodePublicKey(pub)

	tampered := CanonicalizeAd("100.6", "station-1", "https://example.com/stream", "2026-07-31T00:00:00Z", 10)
	if Verify(pubB64, tampered, sig) {
		t.Fatalf("expected tampered frequency to fail verification")
	}

	tamperedTTL := CanonicalizeAd("100.5", "station-1", "https://example.com/stream", "2026-07-31T00:00:00Z", 11)
	if Verify(pubB64, tamperedTTL, sig) {
		t.Fatalf("expected tampered ttl to fail verification")
	}
}

func TestReleaseRoundTrip(t *testing.T) {
	pub, priv := fixedKey(t)
	msg := CanonicalizeRelease("100.5", "station-1")
	sig := Sign(priv, msg)
	pubB64 := EncodePublicKey(pub)
	if !Verify(pubB64, msg, sig) {
		t.Fatalf("expected release signature to verify")
	}
}

func TestVerifyRejectsMalformedInputs(t *testing.T) {
	pub, priv := fixedKey(t)
	msg := CanonicalizeRelease("100.5", "station-1")
	sig := Sign(priv, msg)
	pubB64 := EncodePublicKey(pub)

	if Verify("not-base64!!", msg, sig) {
		t.Fatalf("expected malformed public key to fail")
	}
	if Verify(pubB64, msg, "not-base64!!") {
		t.Fatalf("expected malformed signature to fail")
	}
	if Verify("AAAA", msg, sig) {
		t.Fatalf("expected short public key to fail")
	}
}

func TestDeterministicSignatures(t *testing.T) {
	_, priv := fixedKey(t)
	msg := CanonicalizeAd("100.5", "station-1", "https://example.com/stream", "2026-07-31T00:00:00Z", 10)
	if Sign(priv, msg) != Sign(priv, msg) {
		t.Fatalf("expected Ed25519 signatures to be deterministic (RFC 8032)")
	}
}
