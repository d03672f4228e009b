package reader

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sqlstreamdb/sqlstream/schema"
)

func TestNewParallelPreservesOrder(t *testing.T) {
	require := require.New(t)

	src := NewSliceIter(sampleRows())
	par := NewParallel(src, 2)
	defer par.Close()

	var ids []int64
	for {
		row, err := par.Next()
		if err == io.EOF {
			break
		}
		require.NoError(err)
		v, _ := row.Get("id")
		ids = append(ids, v.Int)
	}
	require.Equal([]int64{1, 2, 3}, ids)
}

type errIter struct{ called bool }

func (e *errIter) Next() (schema.Row, error) {
	if e.called {
		return schema.Row{}, io.EOF
	}
	e.called = true
	return schema.Row{}, errors.New("boom")
}
func (e *errIter) Close() error { return nil }

func TestNewParallelPropagatesError(t *testing.T) {
	require := require.New(t)

	par := NewParallel(&errIter{}, 1)
	_, err := par.Next()
	require.Error(err)
	require.Equal("boom", err.Error())
	require.NoError(par.Close())
}

func TestNewParallelZeroBufferDefaultsToOne(t *testing.T) {
	require := require.New(t)

	par := NewParallel(NewSliceIter(nil), 0)
	_, err := par.Next()
	require.Equal(io.EOF, err)
}
