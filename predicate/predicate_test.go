package predicate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqlast"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

func row(age int64, name string) schema.Row {
	return schema.NewRow([]string{"age", "name"}, []sqltypes.Value{sqltypes.IntValue(age), sqltypes.StringValue(name)})
}

func TestMatchSingleCondition(t *testing.T) {
	require := require.New(t)

	conds := []sqlast.Condition{{Column: "age", Operator: sqlast.Gt, Literal: sqltypes.IntValue(18)}}
	require.True(Match(row(21, "a"), conds))
	require.False(Match(row(10, "a"), conds))
}

func TestMatchConjunction(t *testing.T) {
	require := require.New(t)

	conds := []sqlast.Condition{
		{Column: "age", Operator: sqlast.Ge, Literal: sqltypes.IntValue(18)},
		{Column: "name", Operator: sqlast.Eq, Literal: sqltypes.StringValue("bob")},
	}
	require.True(Match(row(30, "bob"), conds))
	require.False(Match(row(30, "alice"), conds))
}

func TestMatchMissingColumnIsFalse(t *testing.T) {
	require := require.New(t)

	conds := []sqlast.Condition{{Column: "missing", Operator: sqlast.Eq, Literal: sqltypes.IntValue(1)}}
	require.False(Match(row(30, "bob"), conds))
}

func TestMatchNullColumnIsFalse(t *testing.T) {
	require := require.New(t)

	r := schema.NewRow([]string{"age"}, []sqltypes.Value{sqltypes.Null})
	conds := []sqlast.Condition{{Column: "age", Operator: sqlast.Eq, Literal: sqltypes.IntValue(1)}}
	require.False(Match(r, conds))
}

func TestColumnsExtractsUniqueInOrder(t *testing.T) {
	require := require.New(t)

	conds := []sqlast.Condition{
		{Column: "age", Operator: sqlast.Gt, Literal: sqltypes.IntValue(1)},
		{Column: "name", Operator: sqlast.Eq, Literal: sqltypes.StringValue("x")},
		{Column: "age", Operator: sqlast.Lt, Literal: sqltypes.IntValue(99)},
	}
	require.Equal([]string{"age", "name"}, Columns(conds))
}

func TestPartitionSplitsByColumnSet(t *testing.T) {
	require := require.New(t)

	conds := []sqlast.Condition{
		{Column: "year", Operator: sqlast.Eq, Literal: sqltypes.IntValue(2024)},
		{Column: "amount", Operator: sqlast.Gt, Literal: sqltypes.IntValue(10)},
	}
	partitionCols := map[string]bool{"year": true}

	part, rest := Partition(conds, partitionCols)
	require.Len(part, 1)
	require.Equal("year", part[0].Column)
	require.Len(rest, 1)
	require.Equal("amount", rest[0].Column)
}
