package reader

import (
	"io"

	"github.com/sqlstreamdb/sqlstream/schema"
)

// SliceIter adapts a pre-materialized []schema.Row to RowIter, used by
// readers that have already applied their hints (Parquet) and for empty
// results.
type SliceIter struct {
	rows []schema.Row
	pos  int
}

func NewSliceIter(rows []schema.Row) *SliceIter {
	return &SliceIter{rows: rows}
}

func (s *SliceIter) Next() (schema.Row, error) {
	if s.pos >= len(s.rows) {
		return schema.Row{}, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *SliceIter) Close() error { return nil }
