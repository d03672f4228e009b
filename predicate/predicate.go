// Package predicate evaluates simple WHERE conditions against a row, shared
// by inline reader filtering (§4.3, §4.5) and the Filter operator (§4.12) so
// pushed-down and post-hoc evaluation agree exactly (spec.md §8 invariant).
package predicate

import (
	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqlast"
)

// Match reports whether row satisfies every condition in conds (a logical
// AND / conjunction). A NULL-valued column or incompatible comparison
// evaluates that condition to false; an unknown operator defaults to true
// (permissive), matching the Filter operator's contract in spec.md §4.12.
func Match(row schema.Row, conds []sqlast.Condition) bool {
	for _, c := range conds {
		if !matchOne(row, c) {
			return false
		}
	}
	return true
}

func matchOne(row schema.Row, c sqlast.Condition) bool {
	v, ok := row.Get(c.Column)
	if !ok || v.IsNull() {
		return false
	}
	cmp, err := v.Compare(c.Literal)
	if err != nil {
		return false
	}
	switch c.Operator {
	case sqlast.Eq:
		return cmp == 0
	case sqlast.Ne:
		return cmp != 0
	case sqlast.Gt:
		return cmp > 0
	case sqlast.Lt:
		return cmp < 0
	case sqlast.Ge:
		return cmp >= 0
	case sqlast.Le:
		return cmp <= 0
	default:
		return true
	}
}

// Columns returns the set of column names referenced by conds, in
// first-seen order.
func Columns(conds []sqlast.Condition) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range conds {
		if !seen[c.Column] {
			seen[c.Column] = true
			out = append(out, c.Column)
		}
	}
	return out
}

// Partition splits conds into those touching a partition column and the
// rest, per the partition-pruning rule in spec.md §4.11.
func Partition(conds []sqlast.Condition, partitionCols map[string]bool) (partition, rest []sqlast.Condition) {
	for _, c := range conds {
		if partitionCols[c.Column] {
			partition = append(partition, c)
		} else {
			rest = append(rest, c)
		}
	}
	return
}
