package reader

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

func TestSliceIterDrainsInOrder(t *testing.T) {
	require := require.New(t)

	rows := []schema.Row{
		schema.NewRow([]string{"a"}, []sqltypes.Value{sqltypes.IntValue(1)}),
		schema.NewRow([]string{"a"}, []sqltypes.Value{sqltypes.IntValue(2)}),
	}
	it := NewSliceIter(rows)

	r1, err := it.Next()
	require.NoError(err)
	v, _ := r1.Get("a")
	require.Equal(sqltypes.IntValue(1), v)

	r2, err := it.Next()
	require.NoError(err)
	v, _ = r2.Get("a")
	require.Equal(sqltypes.IntValue(2), v)

	_, err = it.Next()
	require.Equal(io.EOF, err)
	require.NoError(it.Close())
}

func TestSliceIterEmpty(t *testing.T) {
	require := require.New(t)

	it := NewSliceIter(nil)
	_, err := it.Next()
	require.Equal(io.EOF, err)
}
