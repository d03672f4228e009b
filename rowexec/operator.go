// Package rowexec implements the pull-based (Volcano-style) operator tree:
// Scan, Filter, Project, Limit, HashGroupBy, OrderBy, and HashJoin, plus the
// bottom-up plan builder and explain-plan formatter for the pull
// executor (spec.md §4.12).
package rowexec

import (
	"io"
	"strconv"
	"strings"

	"github.com/sqlstreamdb/sqlstream/predicate"
	"github.com/sqlstreamdb/sqlstream/reader"
	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqlast"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

// Operator is the pull-iterator contract every plan node satisfies. Explain
// renders the operator's own description; Children returns zero, one, or two
// children (HashJoin has two, leaves have none, everything else has one).
type Operator interface {
	Next() (schema.Row, error)
	Close() error
	Explain() string
	Children() []Operator
}

// formatPlan renders op and its children, one operator per line, each
// child indented two further spaces than its parent (spec.md §4.12).
func formatPlan(op Operator, depth int) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(op.Explain())
	for _, c := range op.Children() {
		b.WriteString("\n")
		b.WriteString(formatPlan(c, depth+1))
	}
	return b.String()
}

// Explain renders the full plan tree rooted at op.
func Explain(op Operator) string {
	return formatPlan(op, 0)
}

// Scan is the leaf operator: it yields reader.ReadLazy() unchanged.
type Scan struct {
	rdr  reader.Reader
	it   reader.RowIter
	name string
}

// NewScan constructs a Scan leaf over rdr. name is a label for Explain
// (the logical source name, not load-bearing for execution).
func NewScan(rdr reader.Reader, name string) *Scan {
	return &Scan{rdr: rdr, name: name}
}

func (s *Scan) ensure() error {
	if s.it != nil {
		return nil
	}
	it, err := s.rdr.ReadLazy()
	if err != nil {
		return err
	}
	s.it = it
	return nil
}

func (s *Scan) Next() (schema.Row, error) {
	if err := s.ensure(); err != nil {
		return schema.Row{}, err
	}
	return s.it.Next()
}

func (s *Scan) Close() error {
	if s.it == nil {
		return nil
	}
	return s.it.Close()
}

func (s *Scan) Explain() string    { return "Scan(" + s.name + ")" }
func (s *Scan) Children() []Operator { return nil }

// Filter yields each child row iff every condition evaluates true. A NULL
// column or incompatible comparison evaluates that condition to false;
// unknown operators default to true (predicate.Match's contract, shared
// with inline reader pushdown evaluation so both agree exactly).
type Filter struct {
	child Operator
	conds []sqlast.Condition
}

func NewFilter(child Operator, conds []sqlast.Condition) *Filter {
	return &Filter{child: child, conds: conds}
}

func (f *Filter) Next() (schema.Row, error) {
	for {
		row, err := f.child.Next()
		if err != nil {
			return schema.Row{}, err
		}
		if predicate.Match(row, f.conds) {
			return row, nil
		}
	}
}

func (f *Filter) Close() error      { return f.child.Close() }
func (f *Filter) Explain() string   { return "Filter(" + conditionsString(f.conds) + ")" }
func (f *Filter) Children() []Operator { return []Operator{f.child} }

func conditionsString(conds []sqlast.Condition) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.Column + " " + string(c.Operator) + " " + c.Literal.String()
	}
	return strings.Join(parts, " AND ")
}

// Project yields, for each child row, a new row containing each listed
// column (missing → NULL); if columns is empty or ["*"], the row passes
// through unchanged.
type Project struct {
	child   Operator
	columns []string
}

func NewProject(child Operator, columns []string) *Project {
	return &Project{child: child, columns: columns}
}

func (p *Project) Next() (schema.Row, error) {
	row, err := p.child.Next()
	if err != nil {
		return schema.Row{}, err
	}
	return projectRow(row, p.columns), nil
}

func (p *Project) Close() error    { return p.child.Close() }
func (p *Project) Explain() string { return "Project(" + strings.Join(p.columns, ", ") + ")" }
func (p *Project) Children() []Operator { return []Operator{p.child} }

// projectRow restricts row to columns, filling any column absent from row
// with NULL rather than omitting it, so every row leaving Project carries
// the same key set (spec.md §4.12, §3 Row invariant). "*"/empty passes the
// row through unchanged. This differs from reader.Project, whose omission
// of missing columns is an advisory hint for readers that materialize
// their own narrower row, not the operator's output contract.
func projectRow(row schema.Row, columns []string) schema.Row {
	if len(columns) == 0 {
		return row
	}
	out := schema.EmptyRow()
	for _, c := range columns {
		if c == "*" {
			return row
		}
		v, ok := row.Get(c)
		if !ok {
			v = sqltypes.Null
		}
		out = out.With(c, v)
	}
	return out
}

// Limit yields at most n rows, then stops without pulling its child further.
type Limit struct {
	child   Operator
	n       int
	yielded int
}

func NewLimit(child Operator, n int) *Limit {
	return &Limit{child: child, n: n}
}

func (l *Limit) Next() (schema.Row, error) {
	if l.yielded >= l.n {
		return schema.Row{}, io.EOF
	}
	row, err := l.child.Next()
	if err != nil {
		return schema.Row{}, err
	}
	l.yielded++
	return row, nil
}

func (l *Limit) Close() error    { return l.child.Close() }
func (l *Limit) Explain() string { return "Limit(" + strconv.Itoa(l.n) + ")" }
func (l *Limit) Children() []Operator { return []Operator{l.child} }
