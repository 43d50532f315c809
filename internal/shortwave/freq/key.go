// Package freq normalizes arbitrary-precision decimal frequencies into the
// canonical string form used as the registry key and as the frequency field
// in signed advertisement bytes.
package freq

import (
	"fmt"
	"math/big"
	"strings"
)

// Key is the canonical string form of a Frequency. Two values accepted by
// Parse (plain, terminating decimal literals) collide on the same Key if and
// only if they represent the same rational value.
type Key string

// Parse reads a plain decimal literal (e.g. "100.5", "+100.50", "-0", "91")
// into an exact rational value. big.Rat.SetString also accepts scientific
// notation ("1.5e3") and fraction forms ("1/3"), both of which it would
// parse as exact rationals that Normalize then can't always render as a
// terminating decimal; Parse rejects both up front, since the registry key
// depends on every accepted input normalizing to a unique, exact key.
func Parse(s string) (*big.Rat, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("frequency: empty value")
	}
	if strings.ContainsAny(s, "/eE") {
		return nil, fmt.Errorf("frequency: %q is not a plain decimal literal", s)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("frequency: %q is not a valid decimal", s)
	}
	return r, nil
}

// Normalize produces the canonical registry key for a rational frequency:
// no leading '+', no trailing zeros after a decimal point, no trailing dot,
// and "-0" maps to "0". Purely integral values carry no decimal point.
func Normalize(r *big.Rat) Key {
	if r.Sign() == 0 {
		return "0"
	}

	neg := r.Sign() < 0
	abs := new(big.Rat).Abs(r)

	if abs.IsInt() {
		s := abs.Num().String()
		if neg {
			s = "-" + s
		}
		return Key(s)
	}

	// Render with enough fractional digits to be exact, then trim.
	// abs = num/den in lowest terms; compute digits by long division.
	num := new(big.Int).Set(abs.Num())
	den := abs.Denom()

	intPart := new(big.Int)
	rem := new(big.Int)
	intPart.QuoRem(num, den, rem)

	var frac strings.Builder
	rem.Abs(rem)
	// Long division produces digits until the remainder repeats or hits zero.
	// Stopping on a repeated remainder guarantees termination for repeating
	// fractions (whose digits are then truncated) without ever losing
	// precision for terminating ones.
	seen := make(map[string]struct{})
	for rem.Sign() != 0 {
		key := rem.String()
		if _, ok := seen[key]; ok {
			break // repeating fraction; the value isn't exactly representable as terminating decimal
		}
		seen[key] = struct{}{}
		rem.Mul(rem, big.NewInt(10))
		digit := new(big.Int)
		digit.QuoRem(rem, den, rem)
		frac.WriteString(digit.String())
	}

	fracStr := strings.TrimRight(frac.String(), "0")
	var s string
	if fracStr == "" {
		s = intPart.String()
	} else {
		s = intPart.String() + "." + fracStr
	}
	if neg {
		s = "-" + s
	}
	return Key(s)
}

// NormalizeString parses and normalizes in one step.
func NormalizeString(s string) (Key, error) {
	r, err := Parse(s)
	if err != nil {
		return "", err
	}
	return Normalize(r), nil
}

// String returns the key as a plain string (for logging, JSON, map keys).
func (k Key) String() string { return string(k) }
