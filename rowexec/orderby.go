package rowexec

import (
	"io"
	"sort"
	"strings"

	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqlast"
)

// OrderBy materializes all input and sorts it using a composite key: NULLs
// sort last regardless of direction; otherwise DESC inverts the ordinary
// ascending comparison (spec.md §4.12).
type OrderBy struct {
	child Operator
	items []sqlast.OrderItem

	built bool
	rows  []schema.Row
	pos   int
}

func NewOrderBy(child Operator, items []sqlast.OrderItem) *OrderBy {
	return &OrderBy{child: child, items: items}
}

func (o *OrderBy) build() error {
	o.built = true
	var rows []schema.Row
	for {
		row, err := o.child.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return less(rows[i], rows[j], o.items)
	})
	o.rows = rows
	return nil
}

// less implements the composite ordering: items are compared in sequence,
// the first non-equal comparison decides.
func less(a, b schema.Row, items []sqlast.OrderItem) bool {
	for _, item := range items {
		av, aok := a.Get(item.Column)
		bv, bok := b.Get(item.Column)
		aNull := !aok || av.IsNull()
		bNull := !bok || bv.IsNull()
		switch {
		case aNull && bNull:
			continue
		case aNull:
			return false // NULLs sort last regardless of direction
		case bNull:
			return true
		}
		cmp, err := av.Compare(bv)
		if err != nil {
			continue
		}
		if item.Direction == sqlast.Desc {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp < 0
		}
	}
	return false
}

func (o *OrderBy) Next() (schema.Row, error) {
	if !o.built {
		if err := o.build(); err != nil {
			return schema.Row{}, err
		}
	}
	if o.pos >= len(o.rows) {
		return schema.Row{}, io.EOF
	}
	row := o.rows[o.pos]
	o.pos++
	return row, nil
}

func (o *OrderBy) Close() error { return o.child.Close() }

func (o *OrderBy) Explain() string {
	parts := make([]string, len(o.items))
	for i, it := range o.items {
		parts[i] = it.Column + " " + string(it.Direction)
	}
	return "OrderBy(" + strings.Join(parts, ", ") + ")"
}

func (o *OrderBy) Children() []Operator { return []Operator{o.child} }
