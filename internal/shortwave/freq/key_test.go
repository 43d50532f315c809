package freq

import "testing"

func mustNormalize(t *testing.T, s string) Key {
	t.Helper()
	k, err := NormalizeString(s)
	if err != nil {
		t.Fatalf("NormalizeString(%q): %v", s, err)
	}
	return k
}

func TestNormalizeCollisions(t *testing.T) {
	variants := []string{"100.50", "100.5", "100.500", "+100.5"}
	want := Key("100.5")
	for _, v := range variants {
		if got := mustNormalize(t, v); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", v, got, want)
		}
	}
}

func TestNormalizeIntegers(t *testing.T) {
	cases := map[string]Key{
		"90":    "90",
		"+91":   "91",
		"92.0":  "92",
		"-0":    "0",
		"-0.0":  "0",
		"0":     "0",
		"-12.5": "-12.5",
	}
	for in, want := range cases {
		if got := mustNormalize(t, in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "1e10", "1.2.3"} {
		if _, err := NormalizeString(in); err == nil {
			t.Fatalf("expected error normalizing %q", in)
		}
	}
}

func TestNormalizeRejectsFractionAndScientificForms(t *testing.T) {
	// big.Rat.SetString accepts both of these as exact rationals, but
	// neither is a plain decimal literal; a repeating fraction like "1/3"
	// must never silently collide with a truncated decimal.
	for _, in := range []string{"1/3", "1.5e3", "1.5E3", "1E-10"} {
		if _, err := NormalizeString(in); err == nil {
			t.Fatalf("expected error normalizing %q", in)
		}
	}
}

func TestNormalizeTotalFunction(t *testing.T) {
	// P1: normalize(d1) == normalize(d2) iff d1 and d2 represent the same value.
	same := [][2]string{
		{"1", "1.0"},
		{"1.10", "1.1"},
		{"0.5", "0.50"},
	}
	for _, pair := range same {
		a := mustNormalize(t, pair[0])
		b := mustNormalize(t, pair[1])
		if a != b {
			t.Fatalf("expected %q and %q to normalize equal, got %q vs %q", pair[0], pair[1], a, b)
		}
	}

	different := [][2]string{
		{"1", "2"},
		{"1.1", "1.01"},
		{"-1", "1"},
	}
	for _, pair := range different {
		a := mustNormalize(t, pair[0])
		b := mustNormalize(t, pair[1])
		if a == b {
			t.Fatalf("expected %q and %q to normalize differently, both got %q", pair[0], pair[1], a)
		}
	}
}
