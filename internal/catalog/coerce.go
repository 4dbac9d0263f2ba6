package catalog

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ToFloat coerces loosely typed numeric input to a finite float64. Strings are
// parsed after trimming; anything unparseable, NaN or infinite becomes 0.
func ToFloat(v any) float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return 0
	}
	return Finite(f)
}

// Finite maps NaN and ±Inf to zero.
func Finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// ToPrice extracts a whole-unit price. Strings keep only their digits and
// decimal point, so "UGX 26,900" becomes 26900. The result is truncated.
func ToPrice(v any) float64 {
	switch n := v.(type) {
	case string:
		var b strings.Builder
		for _, r := range n {
			if (r >= '0' && r <= '9') || r == '.' {
				b.WriteRune(r)
			}
		}
		if b.Len() == 0 {
			return 0
		}
		parsed, err := strconv.ParseFloat(b.String(), 64)
		if err != nil {
			return 0
		}
		return math.Trunc(Finite(parsed))
	default:
		return math.Trunc(ToFloat(v))
	}
}
