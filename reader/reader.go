// Package reader defines the common contract every format-specific data
// source satisfies: lazy row iteration plus capability negotiation for
// pushdown (spec.md §4.2).
package reader

import (
	"github.com/sqlstreamdb/sqlstream/sqlast"
	"github.com/sqlstreamdb/sqlstream/schema"
)

// RowIter is a pull-style iterator over Rows: Next returns io.EOF at
// exhaustion, and Close releases any underlying I/O handle.
type RowIter interface {
	Next() (schema.Row, error)
	Close() error
}

// Capabilities reports which pushdown hints a reader can accept.
type Capabilities struct {
	SupportsPushdown         bool
	SupportsColumnSelection  bool
	SupportsLimit            bool
	SupportsPartitionPruning bool
}

// DataFrame is the minimal columnar materialization surface a reader may
// optionally expose for the vectorized executor (spec.md §4.2, §4.13).
type DataFrame interface {
	Columns() []string
	NumRows() int
}

// Reader is the common contract every format-specific data source satisfies.
// Setters are idempotent and last-writer-wins. Local file readers do no I/O
// in them; the HTTP-backed reader (reader/httpfetch) downloads its source on
// the first setter or Capabilities call. ReadLazy is restartable for
// file-backed readers unless documented otherwise.
type Reader interface {
	ReadLazy() (RowIter, error)
	GetSchema() (*schema.Schema, error)
	Capabilities() Capabilities

	SetFilter(conditions []sqlast.Condition)
	SetColumns(columns []string)
	SetLimit(n int)
	SetPartitionFilters(conditions []sqlast.Condition)

	// ToDataFrame optionally materializes the source for the vectorized
	// path; readers without a natural columnar representation return
	// (nil, false).
	ToDataFrame() (DataFrame, bool)
}

// Statistics is the optional row-group/pruning report a reader may expose;
// readers without statistics return the zero value.
type Statistics struct {
	TotalRowGroups   int
	ScannedRowGroups int
	PruningRatio     float64
	PartitionPruned  bool
}

// StatisticsReporter is implemented by readers that can report pruning
// statistics (Parquet).
type StatisticsReporter interface {
	GetStatistics() Statistics
}

// PartitionColumnLister is implemented by readers that expose virtual
// partition columns for planning (Parquet's Hive-style partitions, §4.4),
// letting the optimizer split WHERE into partition and row-level halves
// before any reader is constructed for iteration.
type PartitionColumnLister interface {
	PartitionColumns() []string
}
