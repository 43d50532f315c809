package blocklist

import (
	"net/netip"
	"testing"
)

func TestContainsEmptyByDefault(t *testing.T) {
	s := New()
	ip := netip.MustParseAddr("10.0.0.1")
	if s.Contains(ip) {
		t.Fatalf("expected empty store to contain nothing")
	}
}

func TestSetReplacesWholeSet(t *testing.T) {
	s := New()
	a := netip.MustParseAddr("10.0.0.1")
	b := netip.MustParseAddr("10.0.0.2")

	s.Set([]netip.Addr{a})
	if !s.Contains(a) || s.Contains(b) {
		t.Fatalf("unexpected membership after first Set")
	}

	s.Set([]netip.Addr{b})
	if s.Contains(a) || !s.Contains(b) {
		t.Fatalf("expected Set to fully replace the prior blocklist")
	}
	if s.Len() != 1 {
		t.Fatalf("expected len 1, got %d", s.Len())
	}
}
