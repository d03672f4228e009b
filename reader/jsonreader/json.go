// Package jsonreader implements the JSON and JSON-Lines readers
// (spec.md §4.5). JSON parsing uses goccy/go-json, a drop-in faster
// encoding/json replacement already present in the pack's dependency graph
// (hugr-lab-airport-go).
package jsonreader

import (
	"os"

	"github.com/goccy/go-json"

	"github.com/sqlstreamdb/sqlstream/internal/herr"
	"github.com/sqlstreamdb/sqlstream/reader"
	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqlast"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

// Reader loads a full JSON document and locates the record list via a path
// expression from the source fragment (spec.md §4.5).
type Reader struct {
	path       string
	recordsKey string

	filter   []sqlast.Condition
	columns  []string
	limit    int
	hasLimit bool
}

// New constructs a JSON reader over path, with an optional records-key path
// expression (empty triggers auto-detection).
func New(path, recordsKey string) *Reader {
	return &Reader{path: path, recordsKey: recordsKey}
}

func (r *Reader) Capabilities() reader.Capabilities {
	return reader.Capabilities{SupportsColumnSelection: true, SupportsLimit: true}
}

func (r *Reader) SetFilter(c []sqlast.Condition)            { r.filter = c }
func (r *Reader) SetColumns(c []string)                     { r.columns = c }
func (r *Reader) SetLimit(n int)                            { r.limit, r.hasLimit = n, true }
func (r *Reader) SetPartitionFilters(c []sqlast.Condition) {}
func (r *Reader) ToDataFrame() (reader.DataFrame, bool)     { return nil, false }

func (r *Reader) load() ([]schema.Row, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, herr.Wrap(herr.NotFound, err, "opening json source %q", r.path)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, herr.Wrap(herr.ParseError, err, "parsing json document %q", r.path)
	}
	records, err := locateRecords(doc, r.recordsKey)
	if err != nil {
		return nil, err
	}

	var rows []schema.Row
	for _, rec := range records {
		m, ok := rec.(map[string]interface{})
		if !ok {
			continue
		}
		rows = append(rows, recordToRow(m))
	}
	return rows, nil
}

func recordToRow(m map[string]interface{}) schema.Row {
	row := schema.EmptyRow()
	for k, v := range m {
		row = row.With(k, nativeToValue(v))
	}
	return row
}

func nativeToValue(v interface{}) sqltypes.Value {
	switch t := v.(type) {
	case nil:
		return sqltypes.Null
	case string:
		return sqltypes.InferTypeFromString(t)
	case bool:
		return sqltypes.BoolValue(t)
	case float64:
		if t == float64(int64(t)) {
			return sqltypes.IntValue(int64(t))
		}
		return sqltypes.FloatValue(t)
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(t)
		if err != nil {
			return sqltypes.StringValue("")
		}
		return sqltypes.JSONValue(string(b))
	default:
		return sqltypes.StringValue("")
	}
}

func (r *Reader) GetSchema() (*schema.Schema, error) {
	rows, err := r.load()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	sample := rows
	if len(sample) > 100 {
		sample = sample[:100]
	}
	return schema.FromRows(sample), nil
}

func (r *Reader) ReadLazy() (reader.RowIter, error) {
	rows, err := r.load()
	if err != nil {
		return nil, err
	}
	return filteredIter(rows, r.filter, r.columns, r.limit, r.hasLimit), nil
}
