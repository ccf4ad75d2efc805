package dataset

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumber parses a trimmed decimal value. Non-finite values are rejected
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// LooseEqual compares two metadata values the way the datasets need:
// numeric-looking values compare by value ("1", "01" and "1.0" are equal),
// anything else compares as trimmed strings
func LooseEqual(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == b {
		return true
	}
	fa, okA := ParseNumber(a)
	fb, okB := ParseNumber(b)
	return okA && okB && fa == fb
}

// LooseKey returns a map key under which LooseEqual values collide
func LooseKey(s string) string {
	s = strings.TrimSpace(s)
	f, ok := ParseNumber(s)
	if !ok {
		return s
	}
	if f == 0 {
		f = 0 // -0
	}
	return "\x00" + strconv.FormatFloat(f, 'g', -1, 64)
}

// CompareLoose orders numeric values numerically ahead of non-numeric values,
// which are ordered lexically
func CompareLoose(a, b string) int {
	fa, okA := ParseNumber(a)
	fb, okB := ParseNumber(b)
	switch {
	case okA && okB:
		if fa < fb {
			return -1
		}
		if fa > fb {
			return 1
		}
		return strings.Compare(a, b)
	case okA:
		return -1
	case okB:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
