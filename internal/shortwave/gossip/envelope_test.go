package gossip

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/alxayo/shortwave/internal/shortwave/domain"
)

func TestEncodeDecodeAdvertiseRoundTrip(t *testing.T) {
	ad := domain.StationAdvertisement{
		MessageID:      uuid.New(),
		StationID:      uuid.New(),
		Frequency:      "100.5",
		Name:           "Test",
		StreamURL:      "https://example.com/stream",
		AdvertisedAt:   time.Now().UTC().Truncate(time.Second),
		TTLSeconds:     30,
		OwnerPublicKey: "abc123",
		Signature:      "def456",
	}

	raw, err := encodeAdvertise(ad)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	kind, decodedAd, _, err := decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if kind != kindAdvertise {
		t.Fatalf("expected kindAdvertise, got %v", kind)
	}
	if decodedAd.StationID != ad.StationID || decodedAd.Frequency != ad.Frequency {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decodedAd, ad)
	}
}

func TestEncodeDecodeReleaseRoundTrip(t *testing.T) {
	rel := domain.ReleaseRequest{
		StationID: uuid.New(),
		Frequency: "100.5",
		Signature: "sig",
		Reason:    "shutdown",
	}

	raw, err := encodeRelease(rel)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	kind, _, decodedRel, err := decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if kind != kindRelease {
		t.Fatalf("expected kindRelease, got %v", kind)
	}
	if decodedRel.StationID != rel.StationID || decodedRel.Reason != rel.Reason {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decodedRel, rel)
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	if _, _, _, err := decode([]byte(`{"type":"Bogus","data":{}}`)); err == nil {
		t.Fatalf("expected error for unknown envelope type")
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	if _, _, _, err := decode([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}
