// Package transform converts raw provider payloads into the fixed, typed
// row shapes the rest of the pipeline works on.
//
// Coercion is exception-free by contract: every helper returns a value plus
// an ok flag and never panics, whatever the input. Missing, nil, and
// malformed values all read as not-ok, which downstream layers store as SQL
// NULL. Lists and mappings never coerce.
package transform

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// timeLayouts are the accepted temporal encodings, most specific first.
// The provider emits RFC3339 with fractional seconds; the remainder cover
// hand-written inputs.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ToFloat coerces v to a float64. Numeric types convert directly, booleans
// read as 0 or 1, strings parse after trimming space. Everything else,
// including NaN-producing parses, is not-ok.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	case float32:
		if math.IsNaN(float64(x)) {
			return 0, false
		}
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// ToInt coerces v to an int64 by way of ToFloat, so "3.0" becomes 3 and
// fractions truncate toward zero. Infinite and out-of-range values are
// not-ok.
func ToInt(v any) (int64, bool) {
	f, ok := ToFloat(v)
	if !ok || math.IsInf(f, 0) {
		return 0, false
	}
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// ToTime coerces v to a timestamp. time.Time values pass through; strings
// try the known layouts in order. No timezone is inferred beyond what the
// input encodes.
func ToTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// Ratio divides num by den after coercing both. It is ok only when both
// operands coerce and den is nonzero; a zero denominator signals
// "undefined", never an error.
func Ratio(num, den any) (float64, bool) {
	n, ok := ToFloat(num)
	if !ok {
		return 0, false
	}
	d, ok := ToFloat(den)
	if !ok || d == 0 {
		return 0, false
	}
	return n / d, true
}
