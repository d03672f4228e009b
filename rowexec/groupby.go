package rowexec

import (
	"io"
	"strings"

	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqlast"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

// HashGroupBy materializes groups into a hash table keyed by a tuple of
// group-column values, maintaining one aggregator per aggregate per group.
// The first Next call drains the child fully; Next then emits one row
// per group, in first-seen group order, containing the group columns
// followed by aggregate results named by alias or "{func}_{col}"
// (spec.md §4.12).
type HashGroupBy struct {
	child      Operator
	groupCols  []string
	aggregates []sqlast.Aggregate

	built bool
	rows  []schema.Row
	pos   int
}

func NewHashGroupBy(child Operator, groupCols []string, aggregates []sqlast.Aggregate) *HashGroupBy {
	return &HashGroupBy{child: child, groupCols: groupCols, aggregates: aggregates}
}

// groupBucket holds one group's key-column values and its live aggregators.
type groupBucket struct {
	keyValues []sqltypes.Value
	aggs      []aggregator
}

func (g *HashGroupBy) build() error {
	g.built = true

	var order []uint64
	buckets := map[uint64][]*groupBucket{}

	for {
		row, err := g.child.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		values := groupKeyValues(row, g.groupCols)
		h, herr := hashKey(values)
		if herr != nil {
			h = 0
		}

		var bucket *groupBucket
		for _, cand := range buckets[h] {
			if valuesEqual(cand.keyValues, values) {
				bucket = cand
				break
			}
		}
		if bucket == nil {
			bucket = &groupBucket{keyValues: values, aggs: make([]aggregator, len(g.aggregates))}
			for i, a := range g.aggregates {
				bucket.aggs[i] = newAggregator(a.Func, a.Column == "*")
			}
			buckets[h] = append(buckets[h], bucket)
			order = append(order, h)
		}

		for i, a := range g.aggregates {
			var v sqltypes.Value
			if a.Column == "*" {
				v = sqltypes.IntValue(1) // presence marker; COUNT(*) ignores the value itself
			} else {
				v, _ = row.Get(a.Column)
			}
			bucket.aggs[i].Add(v)
		}
	}

	seen := map[*groupBucket]bool{}
	var out []schema.Row
	for _, h := range order {
		for _, b := range buckets[h] {
			if seen[b] {
				continue
			}
			seen[b] = true
			outRow := schema.NewRow(g.groupCols, b.keyValues)
			for i, a := range g.aggregates {
				outRow = outRow.With(a.OutputName(), b.aggs[i].Result())
			}
			out = append(out, outRow)
		}
	}
	g.rows = out
	return nil
}

func groupKeyValues(row schema.Row, groupCols []string) []sqltypes.Value {
	vals := make([]sqltypes.Value, len(groupCols))
	for i, c := range groupCols {
		v, _ := row.Get(c)
		vals[i] = v
	}
	return vals
}

func (g *HashGroupBy) Next() (schema.Row, error) {
	if !g.built {
		if err := g.build(); err != nil {
			return schema.Row{}, err
		}
	}
	if g.pos >= len(g.rows) {
		return schema.Row{}, io.EOF
	}
	row := g.rows[g.pos]
	g.pos++
	return row, nil
}

func (g *HashGroupBy) Close() error { return g.child.Close() }

func (g *HashGroupBy) Explain() string {
	names := make([]string, len(g.aggregates))
	for i, a := range g.aggregates {
		names[i] = string(a.Func) + "(" + a.Column + ")"
	}
	return "HashGroupBy(" + strings.Join(g.groupCols, ", ") + " | " + strings.Join(names, ", ") + ")"
}

func (g *HashGroupBy) Children() []Operator { return []Operator{g.child} }
