package rowexec

import (
	"github.com/sqlstreamdb/sqlstream/sqlast"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

// aggregator incrementally folds a stream of Values into one result,
// implementing the COUNT/SUM/AVG/MIN/MAX contracts from spec.md §4.12.
type aggregator interface {
	Add(v sqltypes.Value)
	Result() sqltypes.Value
}

func newAggregator(fn sqlast.AggregateFunc, isStar bool) aggregator {
	switch fn {
	case sqlast.Count:
		return &countAgg{star: isStar}
	case sqlast.Sum:
		return &sumAgg{}
	case sqlast.Avg:
		return &avgAgg{}
	case sqlast.Min:
		return &minMaxAgg{isMax: false}
	case sqlast.Max:
		return &minMaxAgg{isMax: true}
	default:
		return &countAgg{}
	}
}

// countAgg counts all rows (COUNT(*)) or non-null values (COUNT(col)).
type countAgg struct {
	n    int64
	star bool
}

func (a *countAgg) Add(v sqltypes.Value) {
	if a.star || !v.IsNull() {
		a.n++
	}
}

func (a *countAgg) Result() sqltypes.Value { return sqltypes.IntValue(a.n) }

// sumAgg skips NULL and non-numeric values; returns NULL if no numeric
// value was ever seen. An all-integer stream stays integral.
type sumAgg struct {
	intSum  int64
	floatSum float64
	allInt  bool
	any     bool
}

func (a *sumAgg) Add(v sqltypes.Value) {
	if v.IsNull() || !v.Type.IsNumeric() {
		return
	}
	if !a.any {
		a.allInt = true
	}
	if v.Type == sqltypes.INTEGER {
		a.intSum += v.Int
		a.floatSum += float64(v.Int)
	} else {
		a.allInt = false
		a.floatSum += numericFloat(v)
	}
	a.any = true
}

func (a *sumAgg) Result() sqltypes.Value {
	if !a.any {
		return sqltypes.Null
	}
	if a.allInt {
		return sqltypes.IntValue(a.intSum)
	}
	return sqltypes.FloatValue(a.floatSum)
}

// avgAgg is sum/count over numeric values, or NULL when count is zero.
type avgAgg struct {
	sum   float64
	count int64
}

func (a *avgAgg) Add(v sqltypes.Value) {
	if v.IsNull() || !v.Type.IsNumeric() {
		return
	}
	a.sum += numericFloat(v)
	a.count++
}

func (a *avgAgg) Result() sqltypes.Value {
	if a.count == 0 {
		return sqltypes.Null
	}
	return sqltypes.FloatValue(a.sum / float64(a.count))
}

// minMaxAgg uses ordinary comparison on typed values; NULLs and
// incomparable values are skipped.
type minMaxAgg struct {
	val   sqltypes.Value
	has   bool
	isMax bool
}

func (a *minMaxAgg) Add(v sqltypes.Value) {
	if v.IsNull() {
		return
	}
	if !a.has {
		a.val, a.has = v, true
		return
	}
	cmp, err := v.Compare(a.val)
	if err != nil {
		return
	}
	if (a.isMax && cmp > 0) || (!a.isMax && cmp < 0) {
		a.val = v
	}
}

func (a *minMaxAgg) Result() sqltypes.Value {
	if !a.has {
		return sqltypes.Null
	}
	return a.val
}

// numericFloat widens an INTEGER/FLOAT/DECIMAL Value to float64 for
// aggregation arithmetic.
func numericFloat(v sqltypes.Value) float64 {
	switch v.Type {
	case sqltypes.INTEGER:
		return float64(v.Int)
	case sqltypes.FLOAT:
		return v.Float
	case sqltypes.DECIMAL:
		f, _ := v.Dec.Float64()
		return f
	default:
		return 0
	}
}
