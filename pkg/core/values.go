package core

import (
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// IsMissing reports whether a cell counts as missing: nil, a NaN float, or
// (for text loaded from files) an empty string.
func IsMissing(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(val)
	case float32:
		return math.IsNaN(float64(val))
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}

// ToFloat coerces a cell to a float64. Missing cells and values that cannot
// be read as numbers return ok=false.
func ToFloat(v any) (float64, bool) {
	if IsMissing(v) {
		return 0, false
	}
	// cast reads booleans as 0/1, which is never a meaningful measurement
	if _, isBool := v.(bool); isBool {
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// slashLayouts are the slash-separated dates exporters write. Month comes
// first, as in pandas.
var slashLayouts = []string{
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2006/1/2",
	"2006/1/2 15:04",
	"2006/1/2 15:04:05",
}

// ToTime coerces a cell to a time.Time. Strings are parsed with the formats
// spf13/cast understands (RFC 3339, ISO dates, common datetime layouts) and
// then slashLayouts; times without a zone are taken as UTC.
func ToTime(v any) (time.Time, bool) {
	if IsMissing(v) {
		return time.Time{}, false
	}
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		val = strings.TrimSpace(val)
		if t, err := cast.ToTimeInDefaultLocationE(val, time.UTC); err == nil {
			return t, true
		}
		for _, layout := range slashLayouts {
			if t, err := time.ParseInLocation(layout, val, time.UTC); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// KeyString renders a cell as a stable string for tuple comparisons.
// Missing cells share one key so that duplicates on missing keys are detected.
func KeyString(v any) string {
	if IsMissing(v) {
		return "\x00null"
	}
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return cast.ToString(v)
}
