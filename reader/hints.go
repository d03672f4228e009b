package reader

import (
	"io"

	"github.com/sqlstreamdb/sqlstream/predicate"
	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqlast"
)

// ApplyHints wraps a pre-materialized row slice with inline filter, column,
// and limit hint application, for readers that load their whole source into
// memory before yielding (JSON, HTML, Markdown, XML). CSV and Parquet apply
// hints during their own streaming scan instead.
func ApplyHints(rows []schema.Row, filter []sqlast.Condition, columns []string, limit int, hasLimit bool) RowIter {
	return &hintIter{rows: rows, filter: filter, columns: columns, limit: limit, hasLimit: hasLimit}
}

type hintIter struct {
	rows     []schema.Row
	pos      int
	filter   []sqlast.Condition
	columns  []string
	limit    int
	hasLimit bool
	yielded  int
}

func (it *hintIter) Next() (schema.Row, error) {
	for {
		if it.hasLimit && it.yielded >= it.limit {
			return schema.Row{}, io.EOF
		}
		if it.pos >= len(it.rows) {
			return schema.Row{}, io.EOF
		}
		row := it.rows[it.pos]
		it.pos++
		if len(it.filter) > 0 && !predicate.Match(row, it.filter) {
			continue
		}
		row = Project(row, it.columns)
		it.yielded++
		return row, nil
	}
}

func (it *hintIter) Close() error { return nil }

// Project returns row restricted to columns (missing columns omitted,
// "*"/empty passes through), the shared projection rule used by every
// in-memory reader's inline column-hint handling.
func Project(row schema.Row, columns []string) schema.Row {
	if len(columns) == 0 {
		return row
	}
	out := schema.EmptyRow()
	for _, c := range columns {
		if c == "*" {
			return row
		}
		if v, ok := row.Get(c); ok {
			out = out.With(c, v)
		}
	}
	return out
}
