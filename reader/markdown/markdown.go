// Package markdown implements the Markdown table reader: a bespoke
// line-scanner for GFM-style table blocks (no pack example carries a
// Markdown table parser general enough for this grammar, and goldmark's
// table AST doesn't expose the escaped-pipe/NULL-literal handling spec.md
// §4.6 requires without fighting its block-parser abstraction), selected
// by a 0-based block index.
package markdown

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"github.com/sqlstreamdb/sqlstream/internal/herr"
	"github.com/sqlstreamdb/sqlstream/reader"
	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqlast"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

var separatorRe = regexp.MustCompile(`^\|?(\s*:?-+:?\s*\|)+\s*:?-*:?\s*\|?$`)

type Reader struct {
	path       string
	blockIndex int

	filter   []sqlast.Condition
	columns  []string
	limit    int
	hasLimit bool
}

func New(path string, blockIndex int) *Reader {
	return &Reader{path: path, blockIndex: blockIndex}
}

func (r *Reader) Capabilities() reader.Capabilities {
	return reader.Capabilities{SupportsColumnSelection: true, SupportsLimit: true}
}

func (r *Reader) SetFilter(c []sqlast.Condition)            { r.filter = c }
func (r *Reader) SetColumns(c []string)                     { r.columns = c }
func (r *Reader) SetLimit(n int)                            { r.limit, r.hasLimit = n, true }
func (r *Reader) SetPartitionFilters(c []sqlast.Condition) {}
func (r *Reader) ToDataFrame() (reader.DataFrame, bool)     { return nil, false }

// tableBlock is one scanned GFM table: header cells plus raw data rows.
type tableBlock struct {
	header []string
	data   [][]string
}

// scanBlocks walks the file line-by-line looking for header+separator+data
// runs, per spec.md §4.6.
func scanBlocks(path string) ([]tableBlock, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, herr.Wrap(herr.NotFound, err, "opening markdown source %q", path)
	}
	defer f.Close()

	var blocks []tableBlock
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, herr.Wrap(herr.IOError, err, "reading markdown source %q", path)
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if !strings.Contains(line, "|") {
			continue
		}
		if i+1 >= len(lines) || !separatorRe.MatchString(strings.TrimSpace(lines[i+1])) {
			continue
		}
		header := splitRow(line)
		j := i + 2
		var data [][]string
		for j < len(lines) {
			dl := strings.TrimSpace(lines[j])
			if dl == "" || !strings.Contains(dl, "|") {
				break
			}
			data = append(data, splitRow(dl))
			j++
		}
		blocks = append(blocks, tableBlock{header: header, data: data})
		i = j - 1
	}
	return blocks, nil
}

// splitRow splits a pipe-delimited row, trimming a leading/trailing bare
// pipe and preserving escaped pipes (`\|`).
func splitRow(line string) []string {
	const sentinel = "\x00ESCAPED_PIPE\x00"
	escaped := strings.ReplaceAll(line, `\|`, sentinel)
	escaped = strings.TrimSpace(escaped)
	escaped = strings.TrimPrefix(escaped, "|")
	escaped = strings.TrimSuffix(escaped, "|")

	parts := strings.Split(escaped, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.ReplaceAll(strings.TrimSpace(p), sentinel, "|")
	}
	return cells
}

var nullLiterals = map[string]bool{
	"null": true, "none": true, "n/a": true, "-": true, "": true,
}

func cellValue(s string) sqltypes.Value {
	if nullLiterals[strings.ToLower(strings.TrimSpace(s))] {
		return sqltypes.Null
	}
	return sqltypes.InferTypeFromString(s)
}

func (r *Reader) load() ([]schema.Row, error) {
	blocks, err := scanBlocks(r.path)
	if err != nil {
		return nil, err
	}

	idx := r.blockIndex
	if idx < 0 {
		idx = len(blocks) + idx
	}
	if idx < 0 || idx >= len(blocks) {
		return nil, herr.New(herr.NotFound, "table block index %d out of range (found %d blocks) in %q", r.blockIndex, len(blocks), r.path)
	}
	block := blocks[idx]

	rows := make([]schema.Row, 0, len(block.data))
	for _, cells := range block.data {
		names := block.header
		if len(names) == 0 || len(names) != len(cells) {
			names = make([]string, len(cells))
			for i := range cells {
				names[i] = columnName(i)
			}
		}
		values := make([]sqltypes.Value, len(cells))
		for i, c := range cells {
			values[i] = cellValue(c)
		}
		rows = append(rows, schema.NewRow(names, values))
	}
	return rows, nil
}

func columnName(i int) string {
	digits := []byte{}
	if i == 0 {
		digits = []byte{'0'}
	}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	return "col_" + string(digits)
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
