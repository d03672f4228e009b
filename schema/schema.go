// Package schema implements the ordered column-name-to-type mapping and the
// row representation flowing between readers and operators.
package schema

import (
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

// Column is one (name, type) pair in a Schema.
type Column struct {
	Name string
	Type sqltypes.LogicalType
}

// Schema is an ordered mapping from column name to LogicalType. Column names
// are unique and order is preserved, matching spec.md §3.
type Schema struct {
	columns []Column
	index   map[string]int
}

// New builds a Schema from an ordered column list.
func New(columns ...Column) *Schema {
	s := &Schema{columns: columns, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		s.index[c.Name] = i
	}
	return s
}

func (s *Schema) Columns() []Column { return s.columns }

func (s *Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// TypeOf returns the LogicalType of a column, and whether it exists.
func (s *Schema) TypeOf(name string) (sqltypes.LogicalType, bool) {
	i, ok := s.index[name]
	if !ok {
		return sqltypes.NULL, false
	}
	return s.columns[i].Type, true
}

// Has reports whether name is a column of this schema.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// FromRows infers a Schema by widening column types via CoerceTo over a
// finite sample of rows, in first-seen column order.
func FromRows(rows []Row) *Schema {
	order := make([]string, 0)
	seen := make(map[string]sqltypes.LogicalType)
	present := make(map[string]bool)
	for _, row := range rows {
		for _, name := range row.Names() {
			if !present[name] {
				present[name] = true
				order = append(order, name)
				seen[name] = sqltypes.NULL
			}
			v, _ := row.Get(name)
			seen[name] = seen[name].CoerceTo(sqltypes.InferType(v))
		}
	}
	cols := make([]Column, len(order))
	for i, name := range order {
		cols[i] = Column{Name: name, Type: seen[name]}
	}
	return New(cols...)
}

// Merge column-wise widens matching column names between s and other,
// preserving s's column order and appending any columns unique to other.
func (s *Schema) Merge(other *Schema) *Schema {
	if other == nil {
		return s
	}
	cols := make([]Column, 0, len(s.columns)+len(other.columns))
	seen := make(map[string]bool)
	for _, c := range s.columns {
		if ot, ok := other.TypeOf(c.Name); ok {
			c.Type = c.Type.CoerceTo(ot)
		}
		cols = append(cols, c)
		seen[c.Name] = true
	}
	for _, c := range other.columns {
		if !seen[c.Name] {
			cols = append(cols, c)
		}
	}
	return New(cols...)
}
