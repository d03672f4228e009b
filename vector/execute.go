package vector

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sqlstreamdb/sqlstream/predicate"
	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqlast"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

// Execute evaluates stmt against primary (and right, for a JOIN) using the
// bulk equivalent of the pull plan: boolean-mask filter, key-bucketed
// equi-join standing in for the merge-join step, group/aggregate, stable
// multi-key sort, column selection, and head-limit (spec.md §4.13).
func Execute(stmt *sqlast.SelectStatement, primary *Table, right *Table) []schema.Row {
	rows := primary.Rows()

	if stmt.Join != nil && right != nil {
		rows = joinRows(rows, right.Rows(), stmt.Join)
	}

	if len(stmt.Where) > 0 {
		rows = filterRows(rows, stmt.Where)
	}

	groupByEmitsOutput := len(stmt.GroupBy) > 0 || len(stmt.Aggregates) > 0
	if groupByEmitsOutput {
		rows = groupRows(rows, stmt.GroupBy, stmt.Aggregates)
	}

	if len(stmt.OrderBy) > 0 {
		rows = sortRows(rows, stmt.OrderBy)
	}

	if !groupByEmitsOutput && !stmt.Star {
		projected := make([]schema.Row, len(rows))
		for i, r := range rows {
			projected[i] = projectRow(r, stmt.Columns)
		}
		rows = projected
	}

	if stmt.HasLimit && len(rows) > stmt.Limit {
		rows = rows[:stmt.Limit]
	}
	return rows
}

// filterRows applies a boolean mask over rows via the same simple-condition
// semantics the pull Filter operator uses.
func filterRows(rows []schema.Row, conds []sqlast.Condition) []schema.Row {
	out := make([]schema.Row, 0, len(rows))
	for _, row := range rows {
		if predicate.Match(row, conds) {
			out = append(out, row)
		}
	}
	return out
}

// projectRow restricts row to columns, filling any column absent from row
// with NULL rather than omitting it, so every row leaving Execute's final
// projection stage carries the same key set (spec.md §4.12, §3 Row
// invariant). "*"/empty passes the row through unchanged.
func projectRow(row schema.Row, columns []string) schema.Row {
	if len(columns) == 0 {
		return row
	}
	out := schema.EmptyRow()
	for _, c := range columns {
		if c == "*" {
			return row
		}
		v, ok := row.Get(c)
		if !ok {
			v = sqltypes.Null
		}
		out = out.With(c, v)
	}
	return out
}

// joinRows equi-joins left and right on join.LeftKey/RightKey, bucketing
// right by key value to avoid an O(n*m) scan — the bulk-table equivalent of
// the pull executor's HashJoin build/probe.
func joinRows(left, right []schema.Row, join *sqlast.Join) []schema.Row {
	buckets := map[string][]int{}
	for i, row := range right {
		v, ok := row.Get(join.RightKey)
		if !ok || v.IsNull() {
			continue
		}
		buckets[joinKeyString(v)] = append(buckets[joinKeyString(v)], i)
	}

	matched := make([]bool, len(right))
	var out []schema.Row

	for _, lrow := range left {
		lv, ok := lrow.Get(join.LeftKey)
		var candidates []int
		if ok && !lv.IsNull() {
			candidates = buckets[joinKeyString(lv)]
		}
		if len(candidates) == 0 {
			if join.Type == sqlast.LeftJoin {
				out = append(out, lrow)
			}
			continue
		}
		for _, idx := range candidates {
			matched[idx] = true
			out = append(out, lrow.Merge(right[idx], "right_"))
		}
	}

	if join.Type == sqlast.RightJoin {
		for i, row := range right {
			if !matched[i] {
				out = append(out, row)
			}
		}
	}
	return out
}

// joinKeyString stringifies a join key so equal numerics (INTEGER 3, FLOAT
// 3.0) bucket together, matching Value.Equal's cross-category rule.
func joinKeyString(v sqltypes.Value) string {
	if v.Type.IsNumeric() {
		return "#num:" + strconv.FormatFloat(numericAsFloat(v), 'g', -1, 64)
	}
	return v.Type.String() + ":" + v.String()
}

// groupRows buckets rows by group-column tuple and folds each aggregate
// incrementally, emitting one row per group in first-seen order.
func groupRows(rows []schema.Row, groupCols []string, aggregates []sqlast.Aggregate) []schema.Row {
	order := []string{}
	buckets := map[string]*bucket{}

	for _, row := range rows {
		keyVals := make([]sqltypes.Value, len(groupCols))
		keyParts := make([]string, len(groupCols))
		for i, c := range groupCols {
			v, _ := row.Get(c)
			keyVals[i] = v
			keyParts[i] = v.String()
		}
		key := ""
		for _, p := range keyParts {
			key += p + "\x1f"
		}

		b, ok := buckets[key]
		if !ok {
			b = &bucket{
				keyValues: keyVals,
				counts:    make([]float64, len(aggregates)),
				sums:      make([]float64, len(aggregates)),
				allInt:    make([]bool, len(aggregates)),
				anyVal:    make([]bool, len(aggregates)),
				mins:      make([]sqltypes.Value, len(aggregates)),
				maxs:      make([]sqltypes.Value, len(aggregates)),
				hasMinMax: make([]bool, len(aggregates)),
			}
			for i := range b.allInt {
				b.allInt[i] = true
			}
			buckets[key] = b
			order = append(order, key)
		}

		for i, a := range aggregates {
			applyAggregate(b, i, a, row)
		}
	}

	out := make([]schema.Row, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		row := schema.NewRow(groupCols, b.keyValues)
		for i, a := range aggregates {
			row = row.With(a.OutputName(), aggregateResult(b, i, a))
		}
		out = append(out, row)
	}
	return out
}

type bucket struct {
	keyValues []sqltypes.Value
	counts    []float64
	sums      []float64
	allInt    []bool
	anyVal    []bool
	mins      []sqltypes.Value
	maxs      []sqltypes.Value
	hasMinMax []bool
}

func applyAggregate(b *bucket, i int, a sqlast.Aggregate, row schema.Row) {
	var v sqltypes.Value
	if a.Column == "*" {
		v = sqltypes.IntValue(1)
	} else {
		v, _ = row.Get(a.Column)
	}

	switch a.Func {
	case sqlast.Count:
		if a.Column == "*" || !v.IsNull() {
			b.counts[i]++
		}
	case sqlast.Sum, sqlast.Avg:
		if v.IsNull() || !v.Type.IsNumeric() {
			return
		}
		if v.Type != sqltypes.INTEGER {
			b.allInt[i] = false
		}
		b.sums[i] += numericAsFloat(v)
		b.counts[i]++
		b.anyVal[i] = true
	case sqlast.Min, sqlast.Max:
		if v.IsNull() {
			return
		}
		if !b.hasMinMax[i] {
			b.mins[i], b.maxs[i], b.hasMinMax[i] = v, v, true
			return
		}
		if cmp, err := v.Compare(b.mins[i]); err == nil && cmp < 0 {
			b.mins[i] = v
		}
		if cmp, err := v.Compare(b.maxs[i]); err == nil && cmp > 0 {
			b.maxs[i] = v
		}
	}
}

func aggregateResult(b *bucket, i int, a sqlast.Aggregate) sqltypes.Value {
	switch a.Func {
	case sqlast.Count:
		return sqltypes.IntValue(int64(b.counts[i]))
	case sqlast.Sum:
		if !b.anyVal[i] {
			return sqltypes.Null
		}
		if b.allInt[i] {
			return sqltypes.IntValue(int64(b.sums[i]))
		}
		return sqltypes.FloatValue(b.sums[i])
	case sqlast.Avg:
		if !b.anyVal[i] || b.counts[i] == 0 {
			return sqltypes.Null
		}
		return sqltypes.FloatValue(b.sums[i] / b.counts[i])
	case sqlast.Min:
		if !b.hasMinMax[i] {
			return sqltypes.Null
		}
		return b.mins[i]
	case sqlast.Max:
		if !b.hasMinMax[i] {
			return sqltypes.Null
		}
		return b.maxs[i]
	default:
		return sqltypes.Null
	}
}

// Explain renders the fixed vectorized stage sequence Execute would apply
// to stmt, one stage per line, mirroring the pull executor's one-line-per-
// operator explain format (spec.md §4.15 step 4).
func Explain(stmt *sqlast.SelectStatement) string {
	var lines []string
	lines = append(lines, "Load("+stmt.Source+")")
	if stmt.Join != nil && stmt.Join.RightSource != "" {
		lines = append(lines, "  Join("+stmt.Join.LeftKey+" = "+stmt.Join.RightKey+", "+string(stmt.Join.Type)+")")
	}
	if len(stmt.Where) > 0 {
		lines = append(lines, "  Filter("+strconv.Itoa(len(stmt.Where))+" condition(s))")
	}
	if len(stmt.GroupBy) > 0 || len(stmt.Aggregates) > 0 {
		lines = append(lines, "  GroupAggregate("+strings.Join(stmt.GroupBy, ", ")+")")
	}
	if len(stmt.OrderBy) > 0 {
		lines = append(lines, "  Sort("+strconv.Itoa(len(stmt.OrderBy))+" key(s))")
	}
	if !(len(stmt.GroupBy) > 0 || len(stmt.Aggregates) > 0) && !stmt.Star {
		lines = append(lines, "  Project("+strings.Join(stmt.Columns, ", ")+")")
	}
	if stmt.HasLimit {
		lines = append(lines, "  Head("+strconv.Itoa(stmt.Limit)+")")
	}
	return strings.Join(lines, "\n")
}

// sortRows stable-sorts rows by a composite multi-key, NULLs last
// regardless of direction.
func sortRows(rows []schema.Row, items []sqlast.OrderItem) []schema.Row {
	out := make([]schema.Row, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return lessRow(out[i], out[j], items)
	})
	return out
}

func lessRow(a, b schema.Row, items []sqlast.OrderItem) bool {
	for _, item := range items {
		av, aok := a.Get(item.Column)
		bv, bok := b.Get(item.Column)
		aNull := !aok || av.IsNull()
		bNull := !bok || bv.IsNull()
		switch {
		case aNull && bNull:
			continue
		case aNull:
			return false
		case bNull:
			return true
		}
		cmp, err := av.Compare(bv)
		if err != nil {
			continue
		}
		if item.Direction == sqlast.Desc {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp < 0
		}
	}
	return false
}
