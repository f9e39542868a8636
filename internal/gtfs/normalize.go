package gtfs

import (
	"math"
	"strconv"
	"strings"
)

// Field normalizers shared by every import pass. All of them are total:
// malformed input yields the zero/absent result, never an error.

// NormalizeText trims surrounding whitespace. Blank values become "".
func NormalizeText(v string) string {
	return strings.TrimSpace(v)
}

// NormalizeOptionalText trims the value and returns nil when nothing is left.
func NormalizeOptionalText(v string) *string {
	s := NormalizeText(v)
	if s == "" {
		return nil
	}
	return &s
}

// NormalizeRouteID trims and uppercases a route identifier, so that "a1" and
// "A1" collapse to the same canonical route.
func NormalizeRouteID(v string) string {
	return strings.ToUpper(NormalizeText(v))
}

// ParseOptionalInt parses an integer field, tolerating floating-point
// formatted values ("3.0" parses as 3, truncating toward zero). The second
// return is false when the field is blank or unparsable.
func ParseOptionalInt(v string) (int, bool) {
	s := NormalizeText(v)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// ParseDirection maps a trip direction field to 0 or 1. "N" means 0 and "S"
// means 1 (MTA feeds encode direction this way); literal 0/1 pass through;
// everything else defaults to 0.
func ParseDirection(v string) int {
	raw := strings.ToUpper(NormalizeText(v))
	if raw == "" {
		return 0
	}
	switch raw {
	case "N":
		return 0
	case "S":
		return 1
	}
	if n, ok := ParseOptionalInt(raw); ok && (n == 0 || n == 1) {
		return n
	}
	return 0
}

// ParseOptionalNumeric validates that the field parses as a float and returns
// the trimmed original text, keeping the source precision intact. The second
// return is false when the field is blank or not numeric.
func ParseOptionalNumeric(v string) (string, bool) {
	s := NormalizeText(v)
	if s == "" {
		return "", false
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return "", false
	}
	return s, true
}
