package currency

import (
	"math"
	"math/rand"
	"testing"
)

func TestConvert(t *testing.T) {
	// Convert is unrounded, so compare within floating-point tolerance.
	if got := Convert(1000, 0.012); math.Abs(got-12) > 1e-9 {
		t.Fatalf("Convert(1000, 0.012) = %v", got)
	}
	if got := Convert(500, 1); got != 500 {
		t.Fatalf("Convert(500, 1) = %v", got)
	}
	if got := Convert(0, 0.5); got != 0 {
		t.Fatalf("Convert(0, 0.5) = %v", got)
	}
}

// Converting a sum must equal summing conversions within floating-point
// tolerance, otherwise totals would depend on the aggregation site.
func TestConvertDistributesOverSum(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 100; run++ {
		rate := rng.Float64() * 2
		n := 1 + rng.Intn(50)

		var sum, converted float64
		for i := 0; i < n; i++ {
			a := rng.Float64() * 10000
			sum += a
			converted += Convert(a, rate)
		}
		if math.Abs(Convert(sum, rate)-converted) > 1e-6 {
			t.Fatalf("run %d: |%v - %v| > 1e-6", run, Convert(sum, rate), converted)
		}
	}
}

func TestSymbolFor(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"INR", "₹"},
		{"USD", "$"},
		{"EUR", "€"},
		{"GBP", "£"},
		{"XYZ", "$"}, // unknown codes fall back
		{"", "$"},
	}
	for _, tc := range cases {
		if got := SymbolFor(tc.code); got != tc.want {
			t.Fatalf("SymbolFor(%q) = %q; want %q", tc.code, got, tc.want)
		}
	}
}
