package service

import (
	"strings"
	"unicode/utf8"
)

// plateMarkers are the recognized script-marker tokens of Tunisian plates:
// ordinary (تونس), temporary (نت), dealer (RS) and government (ETAT) series.
var plateMarkers = map[string]struct{}{
	"تونس": {},
	"نت":   {},
	"RS":   {},
	"ETAT": {},
}

// NormalizePlate canonicalizes a raw plate string to the lookup layout
// "SERIES <marker> NUMBER". It accepts both the stored-record order
// ("176 تونس 7413") and the OCR reading order ("176 7413 تونس") and maps
// them to the same key. Returns "" for unusable input. Pure and idempotent:
// normalizing an already-canonical string returns it unchanged.
//
// When no marker is recognized, or the token count matches neither known
// layout, the cleaned string is returned verbatim. That key will not match
// canonical storage and the lookup fails closed — intentional, matching the
// deployed behavior audit consumers rely on.
func NormalizePlate(raw string) string {
	cleaned := strings.Join(strings.Fields(raw), " ")
	if utf8.RuneCountInString(cleaned) < 3 {
		return ""
	}

	parts := strings.Fields(cleaned)
	if len(parts) < 2 {
		return cleaned
	}

	var marker string
	series := make([]string, 0, len(parts))
	for _, p := range parts {
		if isPlateMarker(p) {
			marker = p
		} else {
			series = append(series, p)
		}
	}

	switch {
	case marker != "" && len(series) == 2:
		return series[0] + " " + marker + " " + series[1]
	case marker != "" && len(series) == 1:
		return series[0] + " " + marker
	default:
		return cleaned
	}
}

func isPlateMarker(token string) bool {
	if _, ok := plateMarkers[token]; ok {
		return true
	}
	for _, r := range token {
		if r >= 0x0600 && r <= 0x06FF { // Arabic block
			return true
		}
	}
	return false
}
