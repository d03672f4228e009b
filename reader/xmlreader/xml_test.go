package xmlreader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

func writeXML(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.xml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

const peopleXML = `<root>
<person id="1"><name>alice</name><age>30</age></person>
<person id="2"><name>bob</name><age>15</age></person>
</root>`

func TestXMLReaderAutoDetectsRepeatingElement(t *testing.T) {
	require := require.New(t)

	path := writeXML(t, peopleXML)
	r := New(path, "")
	rows, err := r.load()
	require.NoError(err)
	require.Len(rows, 2)

	name, ok := rows[0].Get("name")
	require.True(ok)
	require.Equal(sqltypes.StringValue("alice"), name)

	attr, ok := rows[0].Get("@id")
	require.True(ok)
	require.Equal(sqltypes.IntValue(1), attr)
}

func TestXMLReaderExplicitSelector(t *testing.T) {
	require := require.New(t)

	path := writeXML(t, peopleXML)
	r := New(path, "root.person")
	rows, err := r.load()
	require.NoError(err)
	require.Len(rows, 2)
}

func TestXMLReaderMissingSelectorErrors(t *testing.T) {
	require := require.New(t)

	path := writeXML(t, peopleXML)
	r := New(path, "root.nonexistent")
	_, err := r.load()
	require.Error(err)
}

func TestXMLReaderNoRepeatingElementErrors(t *testing.T) {
	require := require.New(t)

	path := writeXML(t, `<root><single>only one</single></root>`)
	r := New(path, "")
	_, err := r.load()
	require.Error(err)
}

func TestXMLReaderMissingFileErrors(t *testing.T) {
	require := require.New(t)

	r := New("/nonexistent/data.xml", "")
	_, err := r.load()
	require.Error(err)
}
