package core

import (
	"math"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"1.0", 1, true},
		{"1.23", 1.23, true},
		{"1,23", 1.23, true},
		{"0.01", 0.01, true},
		{"0", 0, true},
		{" 2.50 ", 2.5, true},
		{"1000", 1000, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || math.Abs(got-tc.out) > 1e-9 {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestRoundDisplay(t *testing.T) {
	cases := []struct {
		in  float64
		out float64
	}{
		{12, 12},
		{11.999999, 12},
		{0.005, 0.01},
		{1000 * 0.012, 12},
		{0, 0},
	}
	for _, tc := range cases {
		if got := RoundDisplay(tc.in); got != tc.out {
			t.Fatalf("RoundDisplay(%v) = %v; want %v", tc.in, got, tc.out)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount("$", 12); got != "$12.00" {
		t.Fatalf("got %q", got)
	}
	if got := FormatAmount("₹", 1234.5); got != "₹1234.50" {
		t.Fatalf("got %q", got)
	}
}
