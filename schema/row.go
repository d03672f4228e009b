package schema

import "github.com/sqlstreamdb/sqlstream/sqltypes"

// Row is an ordered mapping from column name to Value. Order is preserved so
// SELECT * and explain output are deterministic; lookup is still O(1).
type Row struct {
	names  []string
	values []sqltypes.Value
	index  map[string]int
}

// NewRow builds a Row from parallel name/value slices.
func NewRow(names []string, values []sqltypes.Value) Row {
	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[n] = i
	}
	return Row{names: names, values: values, index: idx}
}

// EmptyRow returns a Row with no columns, used as a builder seed.
func EmptyRow() Row {
	return Row{index: map[string]int{}}
}

func (r Row) Names() []string { return r.names }

// Get returns the value of column name, and whether it is present.
func (r Row) Get(name string) (sqltypes.Value, bool) {
	i, ok := r.index[name]
	if !ok {
		return sqltypes.Null, false
	}
	return r.values[i], true
}

// With returns a new Row with name set to value, appending if not present
// (last-writer-wins for an existing column), matching Row's copy-on-write use
// by Project and the operators that build rows incrementally.
func (r Row) With(name string, value sqltypes.Value) Row {
	if i, ok := r.index[name]; ok {
		names := append([]string(nil), r.names...)
		values := append([]sqltypes.Value(nil), r.values...)
		values[i] = value
		return Row{names: names, values: values, index: r.index}
	}
	names := append(append([]string(nil), r.names...), name)
	values := append(append([]sqltypes.Value(nil), r.values...), value)
	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[n] = i
	}
	return Row{names: names, values: values, index: idx}
}

// Merge concatenates r and other; on column-name collisions r's value wins
// and other's value is re-added with a "right_" prefix, matching HashJoin's
// merge rule in spec.md §4.12.
func (r Row) Merge(other Row, rightPrefix string) Row {
	out := r
	for _, name := range other.names {
		v, _ := other.Get(name)
		if r.index != nil {
			if _, collide := r.index[name]; collide {
				out = out.With(rightPrefix+name, v)
				continue
			}
		}
		out = out.With(name, v)
	}
	return out
}
