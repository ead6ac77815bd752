package utils

import (
	"regexp"
	"strings"
)

// platePattern matches the registration format used on monitored
// vehicles: two letters, two digits, two letters, four digits, with
// optional whitespace between groups (e.g. "AB12CD3456", "AB 12 CD 3456").
var platePattern = regexp.MustCompile(`[A-Z]{2}\s?[0-9]{2}\s?[A-Z]{2}\s?[0-9]{4}`)

// ExtractPlate scans recognized text for a plate-formatted substring
// and returns it normalized. OCR output is best-effort and may contain
// surrounding garbage; the first match wins. ok is false when the text
// contains no plate-formatted substring.
func ExtractPlate(text string) (plate string, ok bool) {
	match := platePattern.FindString(strings.ToUpper(text))
	if match == "" {
		return "", false
	}
	return NormalizePlate(match), true
}

// NormalizePlate uppercases a plate and strips everything except
// letters and digits, giving a canonical form for storage and lookup.
func NormalizePlate(plate string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(plate) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
