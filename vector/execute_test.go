package vector

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sqlstreamdb/sqlstream/reader"
	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqlast"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

type fakeVecReader struct {
	rows []schema.Row
}

func (f *fakeVecReader) ReadLazy() (reader.RowIter, error)        { return reader.NewSliceIter(f.rows), nil }
func (f *fakeVecReader) GetSchema() (*schema.Schema, error)       { return schema.FromRows(f.rows), nil }
func (f *fakeVecReader) Capabilities() reader.Capabilities        { return reader.Capabilities{} }
func (f *fakeVecReader) SetFilter(c []sqlast.Condition)           {}
func (f *fakeVecReader) SetColumns(c []string)                    {}
func (f *fakeVecReader) SetLimit(n int)                           {}
func (f *fakeVecReader) SetPartitionFilters(c []sqlast.Condition) {}
func (f *fakeVecReader) ToDataFrame() (reader.DataFrame, bool)    { return nil, false }

func vecPeopleRows() []schema.Row {
	return []schema.Row{
		schema.NewRow([]string{"id", "age", "dept"}, []sqltypes.Value{sqltypes.IntValue(1), sqltypes.IntValue(30), sqltypes.StringValue("eng")}),
		schema.NewRow([]string{"id", "age", "dept"}, []sqltypes.Value{sqltypes.IntValue(2), sqltypes.IntValue(15), sqltypes.StringValue("eng")}),
		schema.NewRow([]string{"id", "age", "dept"}, []sqltypes.Value{sqltypes.IntValue(3), sqltypes.IntValue(40), sqltypes.StringValue("sales")}),
	}
}

func TestLoadBuildsTableWithArrowRecordAndRows(t *testing.T) {
	require := require.New(t)

	tbl, err := Load(&fakeVecReader{rows: vecPeopleRows()})
	require.NoError(err)
	defer tbl.Release()

	require.Equal(3, tbl.NumRows())
	require.ElementsMatch([]string{"id", "age", "dept"}, tbl.Columns())
	require.Len(tbl.Rows(), 3)
}

func TestLoadPropagatesReaderError(t *testing.T) {
	require := require.New(t)

	_, err := Load(&errVecReader{})
	require.Error(err)
}

type errVecReader struct{}

func (errVecReader) ReadLazy() (reader.RowIter, error)        { return nil, io.ErrUnexpectedEOF }
func (errVecReader) GetSchema() (*schema.Schema, error)       { return schema.New(), nil }
func (errVecReader) Capabilities() reader.Capabilities        { return reader.Capabilities{} }
func (errVecReader) SetFilter(c []sqlast.Condition)           {}
func (errVecReader) SetColumns(c []string)                    {}
func (errVecReader) SetLimit(n int)                           {}
func (errVecReader) SetPartitionFilters(c []sqlast.Condition) {}
func (errVecReader) ToDataFrame() (reader.DataFrame, bool)    { return nil, false }

func TestExecuteFilterProjectLimit(t *testing.T) {
	require := require.New(t)

	tbl, err := Load(&fakeVecReader{rows: vecPeopleRows()})
	require.NoError(err)
	defer tbl.Release()

	stmt := &sqlast.SelectStatement{
		Columns: []string{"id"},
		Where:   []sqlast.Condition{{Column: "age", Operator: sqlast.Ge, Literal: sqltypes.IntValue(18)}},
		Limit:   1, HasLimit: true,
	}
	out := Execute(stmt, tbl, nil)
	require.Len(out, 1)
	require.Equal([]string{"id"}, out[0].Names())
}

func TestExecuteGroupByAggregates(t *testing.T) {
	require := require.New(t)

	tbl, err := Load(&fakeVecReader{rows: vecPeopleRows()})
	require.NoError(err)
	defer tbl.Release()

	stmt := &sqlast.SelectStatement{
		GroupBy:    []string{"dept"},
		Aggregates: []sqlast.Aggregate{{Func: sqlast.Count, Column: "*", Alias: "n"}, {Func: sqlast.Sum, Column: "age"}},
	}
	out := Execute(stmt, tbl, nil)
	require.Len(out, 2)

	for _, row := range out {
		dept, _ := row.Get("dept")
		n, _ := row.Get("n")
		if dept.Str == "eng" {
			require.Equal(sqltypes.IntValue(2), n)
		}
	}
}

func TestExecuteJoinInner(t *testing.T) {
	require := require.New(t)

	left := []schema.Row{
		schema.NewRow([]string{"id", "name"}, []sqltypes.Value{sqltypes.IntValue(1), sqltypes.StringValue("a")}),
		schema.NewRow([]string{"id", "name"}, []sqltypes.Value{sqltypes.IntValue(2), sqltypes.StringValue("b")}),
	}
	right := []schema.Row{
		schema.NewRow([]string{"id", "val"}, []sqltypes.Value{sqltypes.FloatValue(1.0), sqltypes.StringValue("x")}),
	}

	leftTbl, err := Load(&fakeVecReader{rows: left})
	require.NoError(err)
	rightTbl, err := Load(&fakeVecReader{rows: right})
	require.NoError(err)
	defer leftTbl.Release()
	defer rightTbl.Release()

	stmt := &sqlast.SelectStatement{
		Star: true,
		Join: &sqlast.Join{RightSource: "right.csv", Type: sqlast.InnerJoin, LeftKey: "id", RightKey: "id"},
	}
	out := Execute(stmt, leftTbl, rightTbl)
	require.Len(out, 1)
	v, _ := out[0].Get("val")
	require.Equal(sqltypes.StringValue("x"), v)
}

func TestExecuteLeftJoinProjectFillsMissingColumnWithNull(t *testing.T) {
	require := require.New(t)

	left := []schema.Row{
		schema.NewRow([]string{"id", "name"}, []sqltypes.Value{sqltypes.IntValue(1), sqltypes.StringValue("Alice")}),
		schema.NewRow([]string{"id", "name"}, []sqltypes.Value{sqltypes.IntValue(2), sqltypes.StringValue("Charlie")}),
	}
	right := []schema.Row{
		schema.NewRow([]string{"id", "amount"}, []sqltypes.Value{sqltypes.IntValue(1), sqltypes.FloatValue(9.5)}),
	}

	leftTbl, err := Load(&fakeVecReader{rows: left})
	require.NoError(err)
	rightTbl, err := Load(&fakeVecReader{rows: right})
	require.NoError(err)
	defer leftTbl.Release()
	defer rightTbl.Release()

	stmt := &sqlast.SelectStatement{
		Columns: []string{"name", "amount"},
		Join:    &sqlast.Join{RightSource: "o.csv", Type: sqlast.LeftJoin, LeftKey: "id", RightKey: "id"},
	}
	out := Execute(stmt, leftTbl, rightTbl)
	require.Len(out, 2)

	for _, row := range out {
		require.Equal([]string{"name", "amount"}, row.Names())
	}

	name, ok := out[1].Get("name")
	require.True(ok)
	require.Equal(sqltypes.StringValue("Charlie"), name)
	amount, ok := out[1].Get("amount")
	require.True(ok)
	require.True(amount.IsNull())
}

func TestExecuteOrderByNullsLast(t *testing.T) {
	require := require.New(t)

	rows := []schema.Row{
		schema.NewRow([]string{"age"}, []sqltypes.Value{sqltypes.IntValue(5)}),
		schema.NewRow([]string{"age"}, []sqltypes.Value{sqltypes.Null}),
		schema.NewRow([]string{"age"}, []sqltypes.Value{sqltypes.IntValue(1)}),
	}
	tbl, err := Load(&fakeVecReader{rows: rows})
	require.NoError(err)
	defer tbl.Release()

	stmt := &sqlast.SelectStatement{Star: true, OrderBy: []sqlast.OrderItem{{Column: "age", Direction: sqlast.Asc}}}
	out := Execute(stmt, tbl, nil)
	require.Len(out, 3)

	v0, _ := out[0].Get("age")
	require.Equal(sqltypes.IntValue(1), v0)
	v2, _ := out[2].Get("age")
	require.True(v2.IsNull())
}

func TestExplainRendersStageSequence(t *testing.T) {
	require := require.New(t)

	stmt := &sqlast.SelectStatement{
		Source:  "data.csv",
		Columns: []string{"id"},
		Where:   []sqlast.Condition{{Column: "age", Operator: sqlast.Gt, Literal: sqltypes.IntValue(18)}},
		Limit:   5, HasLimit: true,
	}
	out := Explain(stmt)
	require.Contains(out, "Load(data.csv)")
	require.Contains(out, "Filter(1 condition(s))")
	require.Contains(out, "Project(id)")
	require.Contains(out, "Head(5)")
}
