// Package bridge implements the external fallback for queries the in-subset
// parser rejects: an ephemeral DuckDB engine, with each discovered source
// registered as a table and the raw SQL rewritten to reference it
// (spec.md §4.14). This is the only package that names the external engine;
// everything else talks to it through execute_raw/explain.
package bridge

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/sirupsen/logrus"

	"github.com/sqlstreamdb/sqlstream/internal/herr"
	"github.com/sqlstreamdb/sqlstream/reader"
	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

var log = logrus.WithField("subsystem", "bridge")

// SourceFactory builds a reader.Reader for a raw source reference, the same
// construction the in-subset path uses (reader/factory.New), so the bridge
// shares format inference, HTTP caching, and selector handling rather than
// reimplementing them.
type SourceFactory func(ref string) (reader.Reader, error)

// Bridge owns one ephemeral in-memory DuckDB connection. It is not safe for
// concurrent queries; callers serialize access the way a single-threaded
// pull executor would.
type Bridge struct {
	db      *sql.DB
	factory SourceFactory
}

// Open starts an in-memory DuckDB engine. factory is used to materialize
// each discovered source via the engine's own reader stack before handing
// rows to DuckDB, per spec.md §4.14 step 3's "registers a materialized
// table" strategy.
func Open(factory SourceFactory) (*Bridge, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, herr.Wrap(herr.DependencyMissing, err, "opening external engine")
	}
	return &Bridge{db: db, factory: factory}, nil
}

// Close releases the underlying DuckDB connection.
func (b *Bridge) Close() error {
	return b.db.Close()
}

// Available reports whether the external engine could be opened; the
// facade's auto backend-selection consults this as a capability flag.
func Available(factory SourceFactory) bool {
	b, err := Open(factory)
	if err != nil {
		return false
	}
	_ = b.Close()
	return true
}

// ExecuteRaw runs sql against the engine, registering each entry of sources
// (logical name -> reference string) before rewriting sql to use the
// logical names, per spec.md §4.14 steps 2-5.
func (b *Bridge) ExecuteRaw(ctx context.Context, rawSQL string, sources map[string]string) (reader.RowIter, error) {
	if err := b.registerSources(ctx, sources); err != nil {
		return nil, err
	}
	rewritten := rewriteSQL(rawSQL, sources)

	rows, err := b.db.QueryContext(ctx, rewritten)
	if err != nil {
		return nil, herr.Wrap(herr.IOError, err, "executing external query")
	}
	return newRowIter(rows)
}

// Explain returns the engine's own plan text for rawSQL, after the same
// source registration and rewriting ExecuteRaw performs.
func (b *Bridge) Explain(ctx context.Context, rawSQL string, sources map[string]string) (string, error) {
	if err := b.registerSources(ctx, sources); err != nil {
		return "", err
	}
	rewritten := rewriteSQL(rawSQL, sources)

	rows, err := b.db.QueryContext(ctx, "EXPLAIN "+rewritten)
	if err != nil {
		return "", herr.Wrap(herr.IOError, err, "explaining external query")
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var a, b string
		// DuckDB's EXPLAIN yields (explain_key, explain_value) pairs.
		if err := rows.Scan(&a, &b); err != nil {
			var single string
			if err2 := rows.Scan(&single); err2 == nil {
				lines = append(lines, single)
				continue
			}
			return "", herr.Wrap(herr.IOError, err, "reading explain output")
		}
		lines = append(lines, a+": "+b)
	}
	return strings.Join(lines, "\n"), rows.Err()
}

// registerSources materializes each source through the engine's reader
// stack and registers the result as a DuckDB table. A source that cannot
// be resolved or opened stops registration and its error is returned.
func (b *Bridge) registerSources(ctx context.Context, sources map[string]string) error {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ref := sources[name]
		rdr, err := b.factory(ref)
		if err != nil {
			return herr.Wrap(herr.NotFound, err, "resolving source %q for external execution", ref)
		}
		rows, err := drain(rdr)
		if err != nil {
			return herr.Wrap(herr.IOError, err, "reading source %q for external execution", ref)
		}
		if err := b.registerTable(ctx, name, rows); err != nil {
			return err
		}
	}
	return nil
}

func drain(rdr reader.Reader) ([]schema.Row, error) {
	it, err := rdr.ReadLazy()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var rows []schema.Row
	for {
		row, err := it.Next()
		if err != nil {
			break
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// registerTable creates (or replaces) a DuckDB table named name and bulk
// inserts rows, column set taken as the union of all row column names.
func (b *Bridge) registerTable(ctx context.Context, name string, rows []schema.Row) error {
	cols := unionColumns(rows)

	quoted := make([]string, len(cols))
	defs := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = `"` + c + `"`
		defs[i] = `"` + c + `" ` + duckdbType(rows, c)
	}

	if _, err := b.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, name)); err != nil {
		return herr.Wrap(herr.IOError, err, "dropping stale external table %q", name)
	}
	createSQL := fmt.Sprintf(`CREATE TABLE "%s" (%s)`, name, strings.Join(defs, ", "))
	if _, err := b.db.ExecContext(ctx, createSQL); err != nil {
		return herr.Wrap(herr.IOError, err, "creating external table %q", name)
	}
	if len(rows) == 0 {
		return nil
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (%s)`, name, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	stmt, err := b.db.PrepareContext(ctx, insertSQL)
	if err != nil {
		return herr.Wrap(herr.IOError, err, "preparing insert into external table %q", name)
	}
	defer stmt.Close()

	for _, row := range rows {
		args := make([]interface{}, len(cols))
		for i, c := range cols {
			v, _ := row.Get(c)
			args[i] = v.Native()
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return herr.Wrap(herr.IOError, err, "inserting row into external table %q", name)
		}
	}
	log.WithFields(logrus.Fields{"table": name, "rows": len(rows)}).Debug("registered external source")
	return nil
}

func unionColumns(rows []schema.Row) []string {
	seen := map[string]bool{}
	var cols []string
	for _, row := range rows {
		for _, n := range row.Names() {
			if !seen[n] {
				seen[n] = true
				cols = append(cols, n)
			}
		}
	}
	if len(cols) == 0 {
		return []string{"value"}
	}
	return cols
}

// duckdbType widens a column's observed values into a DuckDB column type,
// the same coercion lattice the rest of the engine uses for type inference.
func duckdbType(rows []schema.Row, col string) string {
	t := sqltypes.NULL
	for _, row := range rows {
		v, ok := row.Get(col)
		if !ok || v.IsNull() {
			continue
		}
		t = t.CoerceTo(v.Type)
	}
	switch t {
	case sqltypes.INTEGER:
		return "BIGINT"
	case sqltypes.FLOAT, sqltypes.DECIMAL:
		return "DOUBLE"
	case sqltypes.BOOLEAN:
		return "BOOLEAN"
	default:
		return "VARCHAR"
	}
}

// rewriteSQL replaces each quoted or bare-path occurrence of a reference
// with its double-quoted logical name. Substitution is greedy by longest
// reference first, so one reference being a substring of another never
// causes a partial rewrite (spec.md §4.14 step 4).
func rewriteSQL(rawSQL string, sources map[string]string) string {
	type pair struct{ name, ref string }
	pairs := make([]pair, 0, len(sources))
	for name, ref := range sources {
		pairs = append(pairs, pair{name, ref})
	}
	sort.Slice(pairs, func(i, j int) bool { return len(pairs[i].ref) > len(pairs[j].ref) })

	out := rawSQL
	for _, p := range pairs {
		quotedName := `"` + p.name + `"`

		if strings.Contains(out, `'`+p.ref+`'`) {
			out = strings.ReplaceAll(out, `'`+p.ref+`'`, quotedName)
		}
		if strings.Contains(out, `"`+p.ref+`"`) {
			out = strings.ReplaceAll(out, `"`+p.ref+`"`, quotedName)
		}
		if strings.Contains(out, p.ref) {
			// Go's RE2 engine has no lookbehind/lookaround, so the boundary
			// characters are captured and reinserted rather than asserted.
			pattern := `(^|[^\w/.])` + regexp.QuoteMeta(p.ref) + `($|[^\w/.])`
			re := regexp.MustCompile(pattern)
			out = re.ReplaceAllString(out, "${1}"+quotedName+"${2}")
		}
	}
	return out
}
