package form

import (
	"math"
	"strconv"
	"strings"
)

// CoerceNumber turns the text of a numeric field into a number. Empty,
// unparsable, NaN and infinite input all yield 0. Unsigned 0x, 0o and 0b
// integers are read in their base ("0x10" is 16); hex floats ("0x1p4") and
// signed prefixed forms ("-0x10") yield 0, as do prefixed values that
// overflow uint64.
func CoerceNumber(text string) float64 {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0
	}
	if base := radix(s); base != 0 {
		u, err := strconv.ParseUint(s[2:], base, 64)
		if err != nil {
			return 0
		}
		return float64(u)
	}
	if radix(strings.TrimLeft(s, "+-")) != 0 {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func radix(s string) int {
	if len(s) < 2 || s[0] != '0' {
		return 0
	}
	switch s[1] {
	case 'x', 'X':
		return 16
	case 'o', 'O':
		return 8
	case 'b', 'B':
		return 2
	}
	return 0
}

// CoerceInt is CoerceNumber truncated toward zero. Values outside the int64
// range also yield 0.
func CoerceInt(text string) int64 {
	f := CoerceNumber(text)
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0
	}
	return int64(f)
}
