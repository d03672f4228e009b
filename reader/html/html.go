// Package html implements the HTML table reader: a library-provided table
// extractor (goquery, already in the pack via nonomal-WeKnora and
// ternarybob-quaero) selected by a 0-based table index (spec.md §4.6).
package html

import (
	"os"

	"github.com/PuerkitoBio/goquery"

	"github.com/sqlstreamdb/sqlstream/internal/herr"
	"github.com/sqlstreamdb/sqlstream/reader"
	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqlast"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

type Reader struct {
	path       string
	tableIndex int

	filter   []sqlast.Condition
	columns  []string
	limit    int
	hasLimit bool
}

func New(path string, tableIndex int) *Reader {
	return &Reader{path: path, tableIndex: tableIndex}
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
	f, err := os.Open(r.path)
	if err != nil {
		return nil, herr.Wrap(herr.NotFound, err, "opening html source %q", r.path)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, herr.Wrap(herr.ParseError, err, "parsing html %q", r.path)
	}

	tables := doc.Find("table")
	idx := r.tableIndex
	if idx < 0 {
		idx = tables.Length() + idx
	}
	if idx < 0 || idx >= tables.Length() {
		return nil, herr.New(herr.NotFound, "table index %d out of range (found %d tables) in %q", r.tableIndex, tables.Length(), r.path)
	}
	table := tables.Eq(idx)

	var header []string
	table.Find("thead tr").First().Find("th,td").Each(func(_ int, s *goquery.Selection) {
		header = append(header, s.Text())
	})

	bodyRows := table.Find("tbody tr")
	if bodyRows.Length() == 0 {
		bodyRows = table.Find("tr")
	}
	if len(header) == 0 && bodyRows.Length() > 0 {
		bodyRows.First().Find("th,td").Each(func(_ int, s *goquery.Selection) {
			header = append(header, s.Text())
		})
		bodyRows = bodyRows.Slice(1, bodyRows.Length())
	}

	var rows []schema.Row
	bodyRows.Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td,th").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, td.Text())
		})
		if len(cells) == 0 {
			return
		}
		names := header
		if len(names) == 0 || len(names) != len(cells) {
			names = make([]string, len(cells))
			for i := range cells {
				names[i] = columnName(i)
			}
		}
		values := make([]sqltypes.Value, len(cells))
		for i, c := range cells {
			values[i] = sqltypes.InferTypeFromString(c)
		}
		rows = append(rows, schema.NewRow(names, values))
	})

	return rows, nil
}

func columnName(i int) string {
	return "col_" + itoa(i)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return string(digits)
}

func (r *Reader) GetSchema() (*schema.Schema, error) {
	rows, err := r.load()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return schema.FromRows(rows), nil
}

func (r *Reader) ReadLazy() (reader.RowIter, error) {
	rows, err := r.load()
	if err != nil {
		return nil, err
	}
	return reader.ApplyHints(rows, r.filter, r.columns, r.limit, r.hasLimit), nil
}
