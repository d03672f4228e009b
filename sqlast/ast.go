// Package sqlast defines the value types for the supported SELECT subset:
// WHERE as a conjunction of simple comparisons, JOIN, GROUP BY with
// aggregates, ORDER BY, and LIMIT (spec.md §3, §4.9).
//
// The AST is a value tree: the optimizer may rewrite it (e.g. to remove
// pushed-down partition filters) but must preserve equivalence otherwise.
package sqlast

import "github.com/sqlstreamdb/sqlstream/sqltypes"

// Operator is a comparison operator usable in a Condition.
type Operator string

const (
	Eq  Operator = "="
	Gt  Operator = ">"
	Lt  Operator = "<"
	Ge  Operator = ">="
	Le  Operator = "<="
	Ne  Operator = "!="
)

// Condition is a simple comparison between a column and a literal Value.
// Only Conditions of this shape participate in pushdown (spec.md §3).
type Condition struct {
	Column   string
	Operator Operator
	Literal  sqltypes.Value
}

// AggregateFunc is one of the supported aggregate functions.
type AggregateFunc string

const (
	Count AggregateFunc = "COUNT"
	Sum   AggregateFunc = "SUM"
	Avg   AggregateFunc = "AVG"
	Min   AggregateFunc = "MIN"
	Max   AggregateFunc = "MAX"
)

// Aggregate is one (function, column-or-*, alias) tuple from the select list.
type Aggregate struct {
	Func   AggregateFunc
	Column string // "*" for COUNT(*)
	Alias  string
}

// OutputName returns the alias if present, else "{func}_{col}" per the
// HashGroupBy naming rule in spec.md §4.12.
func (a Aggregate) OutputName() string {
	if a.Alias != "" {
		return a.Alias
	}
	return string(a.Func) + "_" + a.Column
}

// SortDirection is ASC or DESC.
type SortDirection string

const (
	Asc  SortDirection = "ASC"
	Desc SortDirection = "DESC"
)

// OrderItem is one (column, direction) entry in ORDER BY.
type OrderItem struct {
	Column    string
	Direction SortDirection
}

// JoinType is one of INNER, LEFT, RIGHT.
type JoinType string

const (
	InnerJoin JoinType = "INNER"
	LeftJoin  JoinType = "LEFT"
	RightJoin JoinType = "RIGHT"
)

// Join is the optional join clause of a SelectStatement.
type Join struct {
	RightSource string
	Type        JoinType
	LeftKey     string
	RightKey    string
}

// SelectStatement is the full typed representation of a supported SELECT.
type SelectStatement struct {
	// Columns holds select_item identifiers; Star is true for SELECT *.
	Columns []string
	Star    bool

	Source string

	Join *Join

	Where []Condition // conjunction (AND) of simple conditions

	GroupBy    []string
	Aggregates []Aggregate

	OrderBy []OrderItem

	// Limit is the parsed LIMIT value; HasLimit distinguishes "no LIMIT"
	// from "LIMIT 0".
	Limit    int
	HasLimit bool
}

// RequiresFullScan reports whether ORDER BY, GROUP BY, aggregates, or JOIN
// force a full scan of the source, per the limit-pushdown applicability rule
// in spec.md §4.11.
func (s *SelectStatement) RequiresFullScan() bool {
	return len(s.OrderBy) > 0 || len(s.GroupBy) > 0 || len(s.Aggregates) > 0 || s.Join != nil
}

// Clone returns a deep-enough copy for the optimizer to mutate (e.g. to drop
// pushed-down WHERE conditions) without aliasing the caller's AST.
func (s *SelectStatement) Clone() *SelectStatement {
	c := *s
	c.Columns = append([]string(nil), s.Columns...)
	c.Where = append([]Condition(nil), s.Where...)
	c.GroupBy = append([]string(nil), s.GroupBy...)
	c.Aggregates = append([]Aggregate(nil), s.Aggregates...)
	c.OrderBy = append([]OrderItem(nil), s.OrderBy...)
	if s.Join != nil {
		j := *s.Join
		c.Join = &j
	}
	return &c
}
