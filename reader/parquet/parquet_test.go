package parquet

import (
	"os"
	"path/filepath"
	"testing"

	segparquet "github.com/segmentio/parquet-go"
	"github.com/stretchr/testify/require"

	"github.com/sqlstreamdb/sqlstream/sqlast"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

type personRecord struct {
	ID  int64  `parquet:"id"`
	Age int64  `parquet:"age"`
	Dept string `parquet:"dept"`
}

func writeParquet(t *testing.T, dir, name string, records []personRecord) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, segparquet.Write(f, records))
	return path
}

func TestParseHivePartitionsExtractsTypedValues(t *testing.T) {
	require := require.New(t)

	parts := parseHivePartitions("/data/year=2024/month=03/part.parquet")
	require.Equal(sqltypes.IntValue(2024), parts["year"])
	require.Equal(sqltypes.IntValue(3), parts["month"])
}

func TestParseHivePartitionsNoMatchYieldsEmptyMap(t *testing.T) {
	require := require.New(t)

	parts := parseHivePartitions("/data/plain/part.parquet")
	require.Empty(parts)
}

func TestReaderCapabilitiesReflectPartitionDetection(t *testing.T) {
	require := require.New(t)

	r := New("/data/year=2024/part.parquet")
	require.True(r.Capabilities().SupportsPartitionPruning)
	require.ElementsMatch([]string{"year"}, r.PartitionColumns())

	r2 := New("/data/flat/part.parquet")
	require.False(r2.Capabilities().SupportsPartitionPruning)
}

func TestReaderReadLazyYieldsRowsWithPartitionColumn(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	path := writeParquet(t, dir, "part.parquet", []personRecord{
		{ID: 1, Age: 30, Dept: "eng"},
		{ID: 2, Age: 15, Dept: "eng"},
	})

	r := New(path)
	it, err := r.ReadLazy()
	require.NoError(err)
	defer it.Close()

	row, err := it.Next()
	require.NoError(err)
	v, ok := row.Get("id")
	require.True(ok)
	require.Equal(sqltypes.IntValue(1), v)
}

func TestReaderPartitionedPathAddsVirtualColumn(t *testing.T) {
	require := require.New(t)

	base := t.TempDir()
	partDir := filepath.Join(base, "year=2024")
	require.NoError(t, os.MkdirAll(partDir, 0o755))
	path := writeParquet(t, partDir, "part.parquet", []personRecord{{ID: 1, Age: 30, Dept: "eng"}})

	r := New(path)
	it, err := r.ReadLazy()
	require.NoError(err)
	defer it.Close()

	row, err := it.Next()
	require.NoError(err)
	year, ok := row.Get("year")
	require.True(ok)
	require.Equal(sqltypes.IntValue(2024), year)
}

func TestReaderPartitionPruningSkipsNonMatchingFile(t *testing.T) {
	require := require.New(t)

	base := t.TempDir()
	partDir := filepath.Join(base, "year=2023")
	require.NoError(t, os.MkdirAll(partDir, 0o755))
	path := writeParquet(t, partDir, "part.parquet", []personRecord{{ID: 1, Age: 30, Dept: "eng"}})

	r := New(path)
	r.SetPartitionFilters([]sqlast.Condition{{Column: "year", Operator: sqlast.Eq, Literal: sqltypes.IntValue(2024)}})

	it, err := r.ReadLazy()
	require.NoError(err)
	defer it.Close()

	_, err = it.Next()
	require.Error(err)
	require.True(r.GetStatistics().PartitionPruned)
}

func TestReaderMissingFileErrors(t *testing.T) {
	require := require.New(t)

	r := New("/nonexistent/data.parquet")
	_, err := r.ReadLazy()
	require.Error(err)
}
