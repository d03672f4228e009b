package sqlparse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sqlstreamdb/sqlstream/sqlast"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

func TestParseSimpleSelect(t *testing.T) {
	require := require.New(t)

	stmt, err := Parse(`SELECT id, name FROM 'data.csv'`)
	require.NoError(err)
	require.Equal([]string{"id", "name"}, stmt.Columns)
	require.Equal("'data.csv'", stmt.Source)
	require.False(stmt.Star)
}

func TestParseStar(t *testing.T) {
	require := require.New(t)

	stmt, err := Parse(`SELECT * FROM data.csv`)
	require.NoError(err)
	require.True(stmt.Star)
}

func TestParseWhere(t *testing.T) {
	require := require.New(t)

	stmt, err := Parse(`SELECT * FROM data.csv WHERE age > 18 AND name = 'bob'`)
	require.NoError(err)
	require.Len(stmt.Where, 2)
	require.Equal("age", stmt.Where[0].Column)
	require.Equal(sqlast.Gt, stmt.Where[0].Operator)
	require.Equal(sqltypes.IntValue(18), stmt.Where[0].Literal)
	require.Equal("name", stmt.Where[1].Column)
	require.Equal(sqltypes.StringValue("bob"), stmt.Where[1].Literal)
}

func TestParseJoin(t *testing.T) {
	require := require.New(t)

	stmt, err := Parse(`SELECT * FROM a.csv LEFT JOIN b.csv ON a.id = b.id`)
	require.NoError(err)
	require.NotNil(stmt.Join)
	require.Equal(sqlast.LeftJoin, stmt.Join.Type)
	require.Equal("b.csv", stmt.Join.RightSource)
	require.Equal("a.id", stmt.Join.LeftKey)
	require.Equal("b.id", stmt.Join.RightKey)
}

func TestParseGroupByAndAggregate(t *testing.T) {
	require := require.New(t)

	stmt, err := Parse(`SELECT dept, COUNT(*) AS n, AVG(salary) FROM data.csv GROUP BY dept`)
	require.NoError(err)
	require.Equal([]string{"dept"}, stmt.GroupBy)
	require.Len(stmt.Aggregates, 2)
	require.Equal(sqlast.Count, stmt.Aggregates[0].Func)
	require.Equal("n", stmt.Aggregates[0].Alias)
	require.Equal(sqlast.Avg, stmt.Aggregates[1].Func)
	require.Equal("AVG_salary", stmt.Aggregates[1].OutputName())
}

func TestParseOrderByAndLimit(t *testing.T) {
	require := require.New(t)

	stmt, err := Parse(`SELECT * FROM data.csv ORDER BY age DESC, name LIMIT 10`)
	require.NoError(err)
	require.Len(stmt.OrderBy, 2)
	require.Equal(sqlast.Desc, stmt.OrderBy[0].Direction)
	require.Equal(sqlast.Asc, stmt.OrderBy[1].Direction)
	require.True(stmt.HasLimit)
	require.Equal(10, stmt.Limit)
}

func TestParseErrors(t *testing.T) {
	require := require.New(t)

	_, err := Parse(`SELECT * FROM`)
	require.Error(err)

	_, err = Parse(`SELECT * FROM data.csv WHERE age ~ 1`)
	require.Error(err)

	_, err = Parse(`SELECT * FROM data.csv LIMIT -1`)
	require.Error(err)

	_, err = Parse(`SELECT * FROM data.csv extra`)
	require.Error(err)
}

func TestParseQuotedColumnUnquoted(t *testing.T) {
	require := require.New(t)

	stmt, err := Parse(`SELECT "first name" FROM data.csv`)
	require.NoError(err)
	require.Equal([]string{"first name"}, stmt.Columns)
}

func TestTokenizeKeepsQuotedStringIntact(t *testing.T) {
	require := require.New(t)

	toks := tokenize(`SELECT * FROM 'my, file.csv' WHERE a = 1`)
	require.Contains(toks, "'my, file.csv'")
}

func TestStatementCloneIsIndependent(t *testing.T) {
	require := require.New(t)

	stmt, err := Parse(`SELECT * FROM data.csv WHERE a = 1`)
	require.NoError(err)

	clone := stmt.Clone()
	clone.Where = append(clone.Where, sqlast.Condition{Column: "b", Operator: sqlast.Eq, Literal: sqltypes.IntValue(2)})

	require.Len(stmt.Where, 1)
	require.Len(clone.Where, 2)
}

func TestRequiresFullScan(t *testing.T) {
	require := require.New(t)

	stmt, err := Parse(`SELECT * FROM data.csv LIMIT 5`)
	require.NoError(err)
	require.False(stmt.RequiresFullScan())

	stmt, err = Parse(`SELECT * FROM data.csv ORDER BY a LIMIT 5`)
	require.NoError(err)
	require.True(stmt.RequiresFullScan())
}
