package service_test

import (
	"testing"

	"github.com/mkraiem/facpark/server/internal/facpark/service"
)

// ── Canonical layouts ────────────────────────────────────────────────────────

func TestNormalizePlate_StoredOrderUnchanged(t *testing.T) {
	got := service.NormalizePlate("176 تونس 7413")
	if got != "176 تونس 7413" {
		t.Errorf("expected canonical form unchanged, got %q", got)
	}
}

func TestNormalizePlate_OCRReadingOrder(t *testing.T) {
	// Cameras read right-to-left plates left-to-right: the marker lands at
	// the end. Both orders must produce the same lookup key.
	a := service.NormalizePlate("176 تونس 7413")
	b := service.NormalizePlate("176 7413 تونس")
	if a != b {
		t.Errorf("expected equal keys, got %q vs %q", a, b)
	}
}

func TestNormalizePlate_SingleSeriesWithMarker(t *testing.T) {
	got := service.NormalizePlate("نت 4521")
	if got != "4521 نت" {
		t.Errorf("expected %q, got %q", "4521 نت", got)
	}
}

func TestNormalizePlate_LatinMarkers(t *testing.T) {
	cases := map[string]string{
		"12 RS 3456":   "12 RS 3456",
		"3456 12 RS":   "3456 RS 12",
		"77 ETAT 1234": "77 ETAT 1234",
	}
	for input, want := range cases {
		if got := service.NormalizePlate(input); got != want {
			t.Errorf("NormalizePlate(%q) = %q, want %q", input, got, want)
		}
	}
}

// ── Whitespace and idempotence ───────────────────────────────────────────────

func TestNormalizePlate_CollapsesWhitespace(t *testing.T) {
	got := service.NormalizePlate("  176   تونس \t 7413 ")
	if got != "176 تونس 7413" {
		t.Errorf("expected collapsed form, got %q", got)
	}
}

func TestNormalizePlate_Idempotent(t *testing.T) {
	inputs := []string{
		"176 تونس 7413",
		"176 7413 تونس",
		"نت 4521",
		"12 RS 3456",
		"AB 1234",
	}
	for _, in := range inputs {
		once := service.NormalizePlate(in)
		twice := service.NormalizePlate(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

// ── Unusable and fallback inputs ─────────────────────────────────────────────

func TestNormalizePlate_TooShort(t *testing.T) {
	for _, in := range []string{"", " ", "a", "ab", "  1 "} {
		if got := service.NormalizePlate(in); got != "" {
			t.Errorf("NormalizePlate(%q) = %q, want empty", in, got)
		}
	}
}

func TestNormalizePlate_NoMarkerReturnsCleanedVerbatim(t *testing.T) {
	// No recognized marker: the cleaned string passes through so the lookup
	// fails closed instead of guessing a layout.
	got := service.NormalizePlate("AB  1234")
	if got != "AB 1234" {
		t.Errorf("expected %q, got %q", "AB 1234", got)
	}
}

func TestNormalizePlate_TooManySeriesReturnsCleanedVerbatim(t *testing.T) {
	got := service.NormalizePlate("1 2 3 تونس")
	if got != "1 2 3 تونس" {
		t.Errorf("expected verbatim passthrough, got %q", got)
	}
}
