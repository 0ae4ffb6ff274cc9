package httpapi

import (
	"math"
	"testing"
)

func TestFormatValue(t *testing.T) {
	cases := []struct {
		unit  string
		value float64
		want  string
	}{
		{"BRL", 5400.3, "R$ 5.400,30"},
		{"BRL", 4.9512, "R$ 4,95"},
		{"USD", 43120.5, "US$ 43.120,50"},
		{"pts", 127650.4, "127.650"},
		{"pts", 999, "999"},
		{"% a.a.", 10.5, "10,50% a.a."},
		{"", 1234567.891, "1.234.567,89"},
		{"BRL", -1234.5, "R$ -1.234,50"},
	}
	for _, tc := range cases {
		if got := formatValue(tc.unit, tc.value); got != tc.want {
			t.Errorf("formatValue(%q, %v) = %q, want %q", tc.unit, tc.value, got, tc.want)
		}
	}
}

func TestFormatPtBRSpecials(t *testing.T) {
	if got := formatPtBR(math.NaN(), 2); got != "-" {
		t.Fatalf("expected \"-\" for NaN, got %q", got)
	}
	if got := formatPtBR(math.Inf(1), 2); got != "-" {
		t.Fatalf("expected \"-\" for Inf, got %q", got)
	}
	if got := formatPtBR(0, 2); got != "0,00" {
		t.Fatalf("expected \"0,00\", got %q", got)
	}
}
