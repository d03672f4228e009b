package sqltypes

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// dateTimeLayouts and dateLayouts and timeLayouts enumerate the formats from
// spec.md §4.1, tried in order; the first successful parse wins. Grounded on
// original_source/sqlstream/core/types.py's parse_datetime/parse_date/parse_time,
// reproduced with Go reference-time layouts.
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"20060102150405",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"20060102",
	"02-01-2006",
	"01-02-2006",
}

var timeLayouts = []string{
	"15:04:05.999999",
	"15:04:05",
	"15:04",
	"03:04:05 PM",
	"03:04 PM",
}

var boolTrue = regexp.MustCompile(`(?i)^true$`)
var boolFalse = regexp.MustCompile(`(?i)^false$`)

// InferTypeFromString parses text to the most specific native Value,
// following the first-match-wins order of spec.md §4.1.
func InferTypeFromString(text string) Value {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Null
	}
	if boolTrue.MatchString(trimmed) {
		return BoolValue(true)
	}
	if boolFalse.MatchString(trimmed) {
		return BoolValue(false)
	}
	if looksLikeJSON(trimmed) {
		return JSONValue(trimmed)
	}
	if iv, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return IntValue(iv)
	}
	if strings.Contains(trimmed, ".") {
		if fv, err := strconv.ParseFloat(trimmed, 64); err == nil {
			if significantFractionDigits(trimmed) > 6 {
				if d, err := decimal.NewFromString(trimmed); err == nil {
					return DecimalValue(d)
				}
			}
			return FloatValue(fv)
		}
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return DatetimeValue(t)
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return DateValue(t)
		}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return TimeValue(t)
		}
	}
	return StringValue(trimmed)
}

// looksLikeJSON requires the text begin with { or [ and round-trip through a
// JSON parser to an object or array, per spec.md §4.1.
func looksLikeJSON(s string) bool {
	if len(s) == 0 || (s[0] != '{' && s[0] != '[') {
		return false
	}
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return false
	}
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return true
	default:
		return false
	}
}

func significantFractionDigits(s string) int {
	idx := strings.IndexByte(s, '.')
	if idx < 0 {
		return 0
	}
	frac := strings.TrimRight(s[idx+1:], "0")
	return len(frac)
}

// InferType returns the LogicalType of a previously-parsed Value.
func InferType(v Value) LogicalType {
	return v.Type
}

// InferCommonType folds CoerceTo over InferType of each non-null sample,
// per spec.md §4.1.
func InferCommonType(values []Value) LogicalType {
	result := NULL
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		result = result.CoerceTo(v.Type)
	}
	return result
}
