package utils

import "strings"

// MinPlateLen is the shortest plate the gate cameras act on; shorter OCR
// fragments are treated as noise.
const MinPlateLen = 7

// NormalizePlate uppercases the text and strips everything that is not
// a letter or a digit.
func NormalizePlate(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(raw) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PlausiblePlate reports whether normalized text is long enough to be a
// real plate.
func PlausiblePlate(normalized string) bool {
	return len(normalized) >= MinPlateLen
}
