package csv

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sqlstreamdb/sqlstream/sqlast"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestReadLazyYieldsTypedRows(t *testing.T) {
	require := require.New(t)

	path := writeFile(t, "id,age\n1,30\n2,15\n")
	r := New(path)
	it, err := r.ReadLazy()
	require.NoError(err)
	defer it.Close()

	row1, err := it.Next()
	require.NoError(err)
	v, ok := row1.Get("age")
	require.True(ok)
	require.Equal(sqltypes.IntValue(30), v)

	_, err = it.Next()
	require.NoError(err)
	_, err = it.Next()
	require.Equal(io.EOF, err)
}

func TestReadLazySkipsMalformedRows(t *testing.T) {
	require := require.New(t)

	path := writeFile(t, "id,age\n1,30\n2\n3,40\n")
	r := New(path)
	it, err := r.ReadLazy()
	require.NoError(err)
	defer it.Close()

	var rows []string
	for {
		row, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(err)
		v, _ := row.Get("id")
		rows = append(rows, v.String())
	}
	require.Equal([]string{"1", "3"}, rows)
}

func TestReadLazyAppliesFilterColumnsAndLimit(t *testing.T) {
	require := require.New(t)

	path := writeFile(t, "id,age\n1,30\n2,15\n3,40\n")
	r := New(path)
	r.SetFilter([]sqlast.Condition{{Column: "age", Operator: sqlast.Ge, Literal: sqltypes.IntValue(18)}})
	r.SetColumns([]string{"id"})
	r.SetLimit(1)

	it, err := r.ReadLazy()
	require.NoError(err)
	defer it.Close()

	row, err := it.Next()
	require.NoError(err)
	require.Equal([]string{"id"}, row.Names())
	v, _ := row.Get("id")
	require.Equal(sqltypes.IntValue(1), v)

	_, err = it.Next()
	require.Equal(io.EOF, err)
}

func TestGetSchemaInfersWidenedTypes(t *testing.T) {
	require := require.New(t)

	path := writeFile(t, "id,age\n1,30\n2,15.5\n")
	r := New(path)
	sch, err := r.GetSchema()
	require.NoError(err)

	typ, ok := sch.TypeOf("age")
	require.True(ok)
	require.Equal(sqltypes.FLOAT, typ)
}

func TestGetSchemaEmptySourceReturnsNilSchema(t *testing.T) {
	require := require.New(t)

	path := writeFile(t, "id,age\n")
	r := New(path)
	sch, err := r.GetSchema()
	require.NoError(err)
	require.Nil(sch)
}

func TestReadLazyMissingFileErrors(t *testing.T) {
	require := require.New(t)

	r := New("/nonexistent/file.csv")
	_, err := r.ReadLazy()
	require.Error(err)
}

func TestCapabilities(t *testing.T) {
	require := require.New(t)

	r := New("whatever.csv")
	caps := r.Capabilities()
	require.True(caps.SupportsPushdown)
	require.True(caps.SupportsColumnSelection)
	require.True(caps.SupportsLimit)
	require.False(caps.SupportsPartitionPruning)
}
