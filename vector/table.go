// Package vector implements the alternate vectorized back-end: sources are
// loaded as in-memory columnar tables (via Apache Arrow), and the AST is
// evaluated through boolean-mask filtering, key-bucketed equi-join, group/aggregate,
// stable multi-key sort, column selection, and head-limiting — the same
// semantics as the pull executor, applied in bulk rather than row-at-a-time
// (spec.md §4.13).
package vector

import (
	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"github.com/sqlstreamdb/sqlstream/reader"
	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

// Table is a materialized in-memory column-oriented source load, backed by
// an Arrow record. Alongside the Arrow record (the genuine columnar
// representation) it keeps the originating row slice, since the rest of
// this package's operations (filter/group/join/sort) are expressed over
// schema.Row for parity with the pull executor's row semantics — per
// spec.md §4.13 "differences in floating-point representation are
// tolerated", not differences in row content.
type Table struct {
	record arrow.Record
	rows   []schema.Row
	names  []string
}

var allocator = memory.NewGoAllocator()

// Load drains rdr fully and builds its columnar Table.
func Load(rdr reader.Reader) (*Table, error) {
	it, err := rdr.ReadLazy()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var rows []schema.Row
	for {
		row, err := it.Next()
		if err != nil {
			break
		}
		rows = append(rows, row)
	}
	return buildTable(rows), nil
}

func buildTable(rows []schema.Row) *Table {
	names := columnNames(rows)
	fields := make([]arrow.Field, len(names))
	builders := make([]array.Builder, len(names))

	colType := make([]sqltypes.LogicalType, len(names))
	for i, name := range names {
		t := columnType(rows, name)
		colType[i] = t
		fields[i] = arrow.Field{Name: name, Type: arrowType(t), Nullable: true}
		builders[i] = newBuilder(allocator, t)
	}

	for _, row := range rows {
		for i, name := range names {
			v, ok := row.Get(name)
			appendValue(builders[i], colType[i], v, ok)
		}
	}

	cols := make([]arrow.Array, len(names))
	for i, b := range builders {
		cols[i] = b.NewArray()
		b.Release()
	}

	schemaArrow := arrow.NewSchema(fields, nil)
	rec := array.NewRecord(schemaArrow, cols, int64(len(rows)))
	for _, c := range cols {
		c.Release()
	}

	return &Table{record: rec, rows: rows, names: names}
}

func columnNames(rows []schema.Row) []string {
	seen := map[string]bool{}
	var names []string
	for _, row := range rows {
		for _, n := range row.Names() {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

func columnType(rows []schema.Row, name string) sqltypes.LogicalType {
	t := sqltypes.NULL
	for _, row := range rows {
		v, ok := row.Get(name)
		if !ok || v.IsNull() {
			continue
		}
		t = t.CoerceTo(v.Type)
	}
	return t
}

func arrowType(t sqltypes.LogicalType) arrow.DataType {
	switch t {
	case sqltypes.INTEGER:
		return arrow.PrimitiveTypes.Int64
	case sqltypes.FLOAT, sqltypes.DECIMAL:
		return arrow.PrimitiveTypes.Float64
	case sqltypes.BOOLEAN:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

func newBuilder(mem memory.Allocator, t sqltypes.LogicalType) array.Builder {
	switch t {
	case sqltypes.INTEGER:
		return array.NewInt64Builder(mem)
	case sqltypes.FLOAT, sqltypes.DECIMAL:
		return array.NewFloat64Builder(mem)
	case sqltypes.BOOLEAN:
		return array.NewBooleanBuilder(mem)
	default:
		return array.NewStringBuilder(mem)
	}
}

func appendValue(b array.Builder, t sqltypes.LogicalType, v sqltypes.Value, present bool) {
	if !present || v.IsNull() {
		b.AppendNull()
		return
	}
	switch t {
	case sqltypes.INTEGER:
		b.(*array.Int64Builder).Append(numericAsInt(v))
	case sqltypes.FLOAT, sqltypes.DECIMAL:
		b.(*array.Float64Builder).Append(numericAsFloat(v))
	case sqltypes.BOOLEAN:
		b.(*array.BooleanBuilder).Append(v.Bool)
	default:
		b.(*array.StringBuilder).Append(v.String())
	}
}

func numericAsInt(v sqltypes.Value) int64 {
	if v.Type == sqltypes.INTEGER {
		return v.Int
	}
	return int64(numericAsFloat(v))
}

func numericAsFloat(v sqltypes.Value) float64 {
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

// Columns implements reader.DataFrame.
func (t *Table) Columns() []string { return t.names }

// NumRows implements reader.DataFrame.
func (t *Table) NumRows() int { return len(t.rows) }

// Rows returns the row-oriented view backing this table, for the bulk
// filter/group/join/sort/project/limit pipeline in execute.go.
func (t *Table) Rows() []schema.Row { return t.rows }

// Release frees the Arrow record's underlying buffers.
func (t *Table) Release() {
	if t.record != nil {
		t.record.Release()
	}
}
