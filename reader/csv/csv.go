// Package csv implements the CSV reader: delimiter-tokenized, type-inferred,
// with inline filter/column/limit pushdown honored during the scan
// (spec.md §4.3).
package csv

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sqlstreamdb/sqlstream/internal/herr"
	"github.com/sqlstreamdb/sqlstream/predicate"
	"github.com/sqlstreamdb/sqlstream/reader"
	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqlast"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

var log = logrus.WithField("reader", "csv")

const defaultSampleSize = 100

// Reader is a restartable CSV data source. encoding/csv is used directly:
// no pack example ships a CSV library, and the std decoder already exposes
// the per-row field-count validation the malformed-row diagnostic in
// spec.md §4.3 needs, so wrapping a third-party tokenizer would buy nothing.
type Reader struct {
	path      string
	delimiter rune
	sampleSize int

	filter  []sqlast.Condition
	columns []string
	limit   int
	hasLimit bool
}

// New constructs a CSV reader over a local path. Delimiter defaults to ','.
func New(path string) *Reader {
	return &Reader{path: path, delimiter: ',', sampleSize: defaultSampleSize}
}

func (r *Reader) WithDelimiter(d rune) *Reader {
	r.delimiter = d
	return r
}

func (r *Reader) Capabilities() reader.Capabilities {
	return reader.Capabilities{SupportsPushdown: true, SupportsColumnSelection: true, SupportsLimit: true}
}

func (r *Reader) SetFilter(c []sqlast.Condition)            { r.filter = c }
func (r *Reader) SetColumns(c []string)                     { r.columns = c }
func (r *Reader) SetLimit(n int)                            { r.limit, r.hasLimit = n, true }
func (r *Reader) SetPartitionFilters(c []sqlast.Condition) {}

func (r *Reader) openCSV() (*os.File, *csv.Reader, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, nil, herr.Wrap(herr.NotFound, err, "opening csv source %q", r.path)
	}
	cr := csv.NewReader(f)
	cr.Comma = r.delimiter
	cr.FieldsPerRecord = -1 // validated manually so malformed rows are diagnostics, not fatal
	return f, cr, nil
}

func (r *Reader) GetSchema() (*schema.Schema, error) {
	f, cr, err := r.openCSV()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil // empty source: no schema
		}
		return nil, herr.Wrap(herr.IOError, err, "reading csv header %q", r.path)
	}

	var sample []schema.Row
	for i := 0; i < r.sampleSize; i++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if len(rec) != len(header) {
			log.WithFields(logrus.Fields{"path": r.path, "want": len(header), "got": len(rec)}).Warn("skipping malformed csv row")
			continue
		}
		sample = append(sample, buildRow(header, rec))
	}
	if len(sample) == 0 {
		return nil, nil
	}
	return schema.FromRows(sample), nil
}

func buildRow(header, rec []string) schema.Row {
	values := make([]sqltypes.Value, len(rec))
	for i, cell := range rec {
		values[i] = sqltypes.InferTypeFromString(cell)
	}
	return schema.NewRow(header, values)
}

func (r *Reader) ToDataFrame() (reader.DataFrame, bool) { return nil, false }

func (r *Reader) ReadLazy() (reader.RowIter, error) {
	f, cr, err := r.openCSV()
	if err != nil {
		return nil, err
	}
	header, err := cr.Read()
	if err != nil {
		f.Close()
		if err == io.EOF {
			return reader.NewSliceIter(nil), nil
		}
		return nil, herr.Wrap(herr.IOError, err, "reading csv header %q", r.path)
	}
	return &rowIter{f: f, cr: cr, header: header, parent: r}, nil
}

type rowIter struct {
	f      *os.File
	cr     *csv.Reader
	header []string
	parent *Reader
	yielded int
}

func (it *rowIter) Next() (schema.Row, error) {
	for {
		if it.parent.hasLimit && it.yielded >= it.parent.limit {
			return schema.Row{}, io.EOF
		}
		rec, err := it.cr.Read()
		if err != nil {
			return schema.Row{}, err
		}
		if len(rec) != len(it.header) {
			log.WithFields(logrus.Fields{"path": it.parent.path}).Warn("skipping malformed csv row: field count mismatch")
			continue
		}
		row := buildRow(it.header, rec)
		if len(it.parent.filter) > 0 && !predicate.Match(row, it.parent.filter) {
			continue
		}
		row = reader.Project(row, it.parent.columns)
		it.yielded++
		return row, nil
	}
}

func (it *rowIter) Close() error { return it.f.Close() }
