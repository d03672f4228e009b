package jsonreader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePathBareKeys(t *testing.T) {
	require := require.New(t)

	segs, err := parsePath("result.items")
	require.NoError(err)
	require.Len(segs, 2)
	require.Equal("result", segs[0].key)
	require.Equal("items", segs[1].key)
}

func TestParsePathWithIndex(t *testing.T) {
	require := require.New(t)

	segs, err := parsePath("items[2]")
	require.NoError(err)
	require.Len(segs, 1)
	require.Equal("items", segs[0].key)
	require.True(segs[0].hasIndex)
	require.Equal(2, segs[0].index)
}

func TestParsePathWithFlatten(t *testing.T) {
	require := require.New(t)

	segs, err := parsePath("groups[].items")
	require.NoError(err)
	require.Len(segs, 2)
	require.True(segs[0].flatten)
}

func TestParsePathRejectsMultipleFlatten(t *testing.T) {
	require := require.New(t)

	_, err := parsePath("a[].b[].c")
	require.Error(err)
}

func TestParsePathRejectsMalformedBracket(t *testing.T) {
	require := require.New(t)

	_, err := parsePath("items[2")
	require.Error(err)
}

func TestParsePathEmptyReturnsNil(t *testing.T) {
	require := require.New(t)

	segs, err := parsePath("")
	require.NoError(err)
	require.Nil(segs)
}

func TestResolveIndexedAccess(t *testing.T) {
	require := require.New(t)

	doc := map[string]interface{}{
		"items": []interface{}{
			map[string]interface{}{"id": 1.0},
			map[string]interface{}{"id": 2.0},
		},
	}
	segs, err := parsePath("items[1]")
	require.NoError(err)

	out, err := resolve(doc, segs)
	require.NoError(err)
	require.Len(out, 1)

	m := out[0].(map[string]interface{})
	require.Equal(2.0, m["id"])
}

func TestResolveFlattenCollectsAllElements(t *testing.T) {
	require := require.New(t)

	doc := map[string]interface{}{
		"groups": []interface{}{
			map[string]interface{}{"items": []interface{}{"a", "b"}},
			map[string]interface{}{"items": []interface{}{"c"}},
		},
	}
	segs, err := parsePath("groups[].items")
	require.NoError(err)

	out, err := resolve(doc, segs)
	require.NoError(err)
	require.Len(out, 2)
}

func TestResolveOutOfRangeIndexErrors(t *testing.T) {
	require := require.New(t)

	doc := map[string]interface{}{"items": []interface{}{"a"}}
	segs, err := parsePath("items[5]")
	require.NoError(err)

	_, err = resolve(doc, segs)
	require.Error(err)
}

func TestLocateRecordsAutoDetectTopLevelArray(t *testing.T) {
	require := require.New(t)

	out, err := locateRecords([]interface{}{"a", "b"}, "")
	require.NoError(err)
	require.Len(out, 2)
}

func TestLocateRecordsAutoDetectWellKnownKey(t *testing.T) {
	require := require.New(t)

	doc := map[string]interface{}{"records": []interface{}{"a"}}
	out, err := locateRecords(doc, "")
	require.NoError(err)
	require.Len(out, 1)
}

func TestLocateRecordsSingleObjectFallback(t *testing.T) {
	require := require.New(t)

	doc := map[string]interface{}{"id": 1.0}
	out, err := locateRecords(doc, "")
	require.NoError(err)
	require.Len(out, 1)
}
