package sqltypes

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Value is a dynamically-typed cell produced by readers during type
// inference, or passed through from native inputs. Exactly one of the typed
// fields is meaningful, selected by Type.
type Value struct {
	Type    LogicalType
	Int     int64
	Float   float64
	Dec     decimal.Decimal
	Str     string // also holds JSON text verbatim
	Bool    bool
	Time    time.Time
	isNull  bool
}

// Null is the sentinel NULL value.
var Null = Value{Type: NULL, isNull: true}

func (v Value) IsNull() bool { return v.isNull || v.Type == NULL }

func IntValue(i int64) Value      { return Value{Type: INTEGER, Int: i} }
func FloatValue(f float64) Value  { return Value{Type: FLOAT, Float: f} }
func DecimalValue(d decimal.Decimal) Value {
	return Value{Type: DECIMAL, Dec: d}
}
func StringValue(s string) Value  { return Value{Type: STRING, Str: s} }
func JSONValue(text string) Value { return Value{Type: JSON, Str: text} }
func BoolValue(b bool) Value      { return Value{Type: BOOLEAN, Bool: b} }
func DateValue(t time.Time) Value { return Value{Type: DATE, Time: t} }
func TimeValue(t time.Time) Value { return Value{Type: TIME, Time: t} }
func DatetimeValue(t time.Time) Value {
	return Value{Type: DATETIME, Time: t}
}

// String renders the value the way it would be written back out as text,
// used by round-trip CSV writing and by MarshalJSON.
func (v Value) String() string {
	switch v.Type {
	case NULL:
		return ""
	case INTEGER:
		return fmt.Sprintf("%d", v.Int)
	case FLOAT:
		return cast.ToString(v.Float)
	case DECIMAL:
		return v.Dec.String()
	case STRING, JSON:
		return v.Str
	case BOOLEAN:
		if v.Bool {
			return "true"
		}
		return "false"
	case DATE:
		return v.Time.Format("2006-01-02")
	case TIME:
		return v.Time.Format("15:04:05")
	case DATETIME:
		return v.Time.Format("2006-01-02T15:04:05")
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler so a Value round-trips cleanly
// through the facade's JSON-producing collaborators (out of core scope, but
// the facade boundary must support them per SPEC_FULL §3).
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case NULL:
		return []byte("null"), nil
	case INTEGER:
		return json.Marshal(v.Int)
	case FLOAT:
		return json.Marshal(v.Float)
	case DECIMAL:
		return json.Marshal(v.Dec.String())
	case BOOLEAN:
		return json.Marshal(v.Bool)
	case JSON:
		return []byte(v.Str), nil
	default:
		return json.Marshal(v.String())
	}
}

// Native returns the value as a plain Go interface{}, for collaborators
// (formatters, the external bridge) that want an untyped cell.
func (v Value) Native() interface{} {
	switch v.Type {
	case NULL:
		return nil
	case INTEGER:
		return v.Int
	case FLOAT:
		return v.Float
	case DECIMAL:
		return v.Dec
	case BOOLEAN:
		return v.Bool
	case DATE, TIME, DATETIME:
		return v.Time
	default:
		return v.Str
	}
}

// Equal reports value equality across compatible numeric representations
// (INTEGER 3 equals FLOAT 3.0), used by Filter, HashJoin, and HashGroupBy key
// comparisons (spec.md §9: "INTEGER/FLOAT whose values are equal should hash
// equal").
func (v Value) Equal(o Value) bool {
	if v.IsNull() || o.IsNull() {
		return false
	}
	if v.Type.IsNumeric() && o.Type.IsNumeric() {
		return v.numericFloat() == o.numericFloat()
	}
	if v.Type.IsTemporal() && o.Type.IsTemporal() {
		return v.Time.Equal(o.Time)
	}
	if v.Type != o.Type {
		return v.String() == o.String()
	}
	switch v.Type {
	case BOOLEAN:
		return v.Bool == o.Bool
	default:
		return v.Str == o.Str
	}
}

func (v Value) numericFloat() float64 {
	switch v.Type {
	case INTEGER:
		return float64(v.Int)
	case FLOAT:
		return v.Float
	case DECIMAL:
		f, _ := v.Dec.Float64()
		return f
	default:
		return 0
	}
}

// Compare returns -1, 0, 1 comparing v to o, or an error if the two values
// are not comparable (disjoint, non-numeric, non-temporal categories).
func (v Value) Compare(o Value) (int, error) {
	if v.IsNull() || o.IsNull() {
		return 0, fmt.Errorf("cannot compare NULL")
	}
	if !v.Type.IsComparable(o.Type) {
		return 0, fmt.Errorf("types %s and %s are not comparable", v.Type, o.Type)
	}
	if v.Type.IsNumeric() && o.Type.IsNumeric() {
		a, b := v.numericFloat(), o.numericFloat()
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if v.Type.IsTemporal() && o.Type.IsTemporal() {
		switch {
		case v.Time.Before(o.Time):
			return -1, nil
		case v.Time.After(o.Time):
			return 1, nil
		default:
			return 0, nil
		}
	}
	if v.Type == BOOLEAN && o.Type == BOOLEAN {
		switch {
		case v.Bool == o.Bool:
			return 0, nil
		case !v.Bool:
			return -1, nil
		default:
			return 1, nil
		}
	}
	a, b := v.Str, o.Str
	switch {
	case a < b:
		return -1, nil
	case a > b:
		return 1, nil
	default:
		return 0, nil
	}
}
