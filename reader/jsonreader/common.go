package jsonreader

import (
	"github.com/sqlstreamdb/sqlstream/reader"
	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqlast"
)

func filteredIter(rows []schema.Row, filter []sqlast.Condition, columns []string, limit int, hasLimit bool) reader.RowIter {
	return reader.ApplyHints(rows, filter, columns, limit, hasLimit)
}
