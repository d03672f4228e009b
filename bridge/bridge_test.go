package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

func TestRewriteSQLQuotedReference(t *testing.T) {
	require := require.New(t)

	out := rewriteSQL(`SELECT * FROM 'data/people.csv' WHERE age > 18`, map[string]string{"t0": "data/people.csv"})
	require.Equal(`SELECT * FROM "t0" WHERE age > 18`, out)
}

func TestRewriteSQLBareReference(t *testing.T) {
	require := require.New(t)

	out := rewriteSQL(`SELECT * FROM data/people.csv WHERE age > 18`, map[string]string{"t0": "data/people.csv"})
	require.Equal(`SELECT * FROM "t0" WHERE age > 18`, out)
}

func TestRewriteSQLLongestRefFirstAvoidsPartialRewrite(t *testing.T) {
	require := require.New(t)

	sources := map[string]string{
		"t0": "data.csv",
		"t1": "data.csv.bak",
	}
	out := rewriteSQL(`SELECT * FROM data.csv.bak JOIN data.csv ON 1=1`, sources)
	require.Contains(out, `"t1"`)
	require.Contains(out, `"t0"`)
	require.NotContains(out, "data.csv.bak")
}

func TestRewriteSQLDoesNotTouchUnrelatedIdentifiers(t *testing.T) {
	require := require.New(t)

	out := rewriteSQL(`SELECT data_value FROM data.csv`, map[string]string{"t0": "data.csv"})
	require.Contains(out, "data_value")
	require.Contains(out, `"t0"`)
}

func TestDuckdbTypeWidensAcrossRows(t *testing.T) {
	require := require.New(t)

	rows := []schema.Row{
		schema.NewRow([]string{"age"}, []sqltypes.Value{sqltypes.IntValue(1)}),
		schema.NewRow([]string{"age"}, []sqltypes.Value{sqltypes.FloatValue(2.5)}),
	}
	require.Equal("DOUBLE", duckdbType(rows, "age"))
}

func TestDuckdbTypeAllInt(t *testing.T) {
	require := require.New(t)

	rows := []schema.Row{
		schema.NewRow([]string{"age"}, []sqltypes.Value{sqltypes.IntValue(1)}),
		schema.NewRow([]string{"age"}, []sqltypes.Value{sqltypes.IntValue(2)}),
	}
	require.Equal("BIGINT", duckdbType(rows, "age"))
}

func TestDuckdbTypeStringFallback(t *testing.T) {
	require := require.New(t)

	rows := []schema.Row{
		schema.NewRow([]string{"name"}, []sqltypes.Value{sqltypes.StringValue("a")}),
	}
	require.Equal("VARCHAR", duckdbType(rows, "name"))
}

func TestUnionColumnsDefaultsToValue(t *testing.T) {
	require := require.New(t)

	require.Equal([]string{"value"}, unionColumns(nil))
}

func TestUnionColumnsCollectsUnionInFirstSeenOrder(t *testing.T) {
	require := require.New(t)

	rows := []schema.Row{
		schema.NewRow([]string{"a", "b"}, []sqltypes.Value{sqltypes.IntValue(1), sqltypes.IntValue(2)}),
		schema.NewRow([]string{"b", "c"}, []sqltypes.Value{sqltypes.IntValue(3), sqltypes.IntValue(4)}),
	}
	require.Equal([]string{"a", "b", "c"}, unionColumns(rows))
}

func TestNativeToValueMapsDriverTypes(t *testing.T) {
	require := require.New(t)

	require.True(nativeToValue(nil).IsNull())
	require.Equal(sqltypes.BoolValue(true), nativeToValue(true))
	require.Equal(sqltypes.IntValue(42), nativeToValue(int64(42)))
	require.Equal(sqltypes.IntValue(42), nativeToValue(int32(42)))
	require.Equal(sqltypes.IntValue(42), nativeToValue(42))
	require.Equal(sqltypes.FloatValue(1.5), nativeToValue(float64(1.5)))
	require.Equal(sqltypes.StringValue("hi"), nativeToValue([]byte("hi")))
	require.Equal(sqltypes.StringValue("hi"), nativeToValue("hi"))

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	v := nativeToValue(now)
	require.Equal(sqltypes.DATETIME, v.Type)
	require.True(v.Time.Equal(now))
}
