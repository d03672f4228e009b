package fragment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNoFragment(t *testing.T) {
	require := require.New(t)

	p, err := Parse("data.csv")
	require.NoError(err)
	require.Equal("data.csv", p.Path)
	require.Equal(Format(""), p.Format)
	require.Equal("", p.Selector)
}

func TestParseFormatOnly(t *testing.T) {
	require := require.New(t)

	p, err := Parse("data.txt#csv")
	require.NoError(err)
	require.Equal("data.txt", p.Path)
	require.Equal(CSV, p.Format)
	require.Equal("", p.Selector)
}

func TestParseSelectorOnly(t *testing.T) {
	require := require.New(t)

	p, err := Parse("page.html#:2")
	require.NoError(err)
	require.Equal("page.html", p.Path)
	require.Equal(Format(""), p.Format)
	require.Equal("2", p.Selector)
	require.True(p.HasSelectorInt)
	require.Equal(2, p.SelectorInt)
}

func TestParseFormatAndSelector(t *testing.T) {
	require := require.New(t)

	p, err := Parse("data.bin#json:items[].name")
	require.NoError(err)
	require.Equal("data.bin", p.Path)
	require.Equal(JSON, p.Format)
	require.Equal("items[].name", p.Selector)
	require.False(p.HasSelectorInt)
}

func TestParseTrailingBareHash(t *testing.T) {
	require := require.New(t)

	p, err := Parse("data.csv#")
	require.NoError(err)
	require.Equal("data.csv", p.Path)
}

func TestParseUnknownFormat(t *testing.T) {
	require := require.New(t)

	_, err := Parse("data.txt#yaml")
	require.Error(err)
}

func TestParseCaseInsensitiveFormat(t *testing.T) {
	require := require.New(t)

	p, err := Parse("data.txt#CSV")
	require.NoError(err)
	require.Equal(CSV, p.Format)
}
