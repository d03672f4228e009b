package jsonreader

import (
	"bufio"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/sqlstreamdb/sqlstream/internal/herr"
	"github.com/sqlstreamdb/sqlstream/reader"
	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqlast"
)

var linesLog = logrus.WithField("reader", "jsonl")

// LinesReader implements the JSON-Lines reader: one record per line,
// invalid lines emit a diagnostic and are skipped (spec.md §4.5).
type LinesReader struct {
	path string

	filter   []sqlast.Condition
	columns  []string
	limit    int
	hasLimit bool
}

func NewLines(path string) *LinesReader {
	return &LinesReader{path: path}
}

func (r *LinesReader) Capabilities() reader.Capabilities {
	return reader.Capabilities{SupportsColumnSelection: true, SupportsLimit: true}
}

func (r *LinesReader) SetFilter(c []sqlast.Condition)            { r.filter = c }
func (r *LinesReader) SetColumns(c []string)                     { r.columns = c }
func (r *LinesReader) SetLimit(n int)                            { r.limit, r.hasLimit = n, true }
func (r *LinesReader) SetPartitionFilters(c []sqlast.Condition) {}
func (r *LinesReader) ToDataFrame() (reader.DataFrame, bool)     { return nil, false }

func (r *LinesReader) load() ([]schema.Row, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, herr.Wrap(herr.NotFound, err, "opening jsonl source %q", r.path)
	}
	defer f.Close()

	var rows []schema.Row
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			linesLog.WithFields(logrus.Fields{"path": r.path, "line": lineNo}).Warn("skipping invalid jsonl line")
			continue
		}
		rows = append(rows, recordToRow(m))
	}
	if err := sc.Err(); err != nil {
		return nil, herr.Wrap(herr.IOError, err, "reading jsonl source %q", r.path)
	}
	return rows, nil
}

func (r *LinesReader) GetSchema() (*schema.Schema, error) {
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

func (r *LinesReader) ReadLazy() (reader.RowIter, error) {
	rows, err := r.load()
	if err != nil {
		return nil, err
	}
	return filteredIter(rows, r.filter, r.columns, r.limit, r.hasLimit), nil
}
