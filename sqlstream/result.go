package sqlstream

import (
	"context"
	"io"
	"strings"

	"github.com/sqlstreamdb/sqlstream/bridge"
	"github.com/sqlstreamdb/sqlstream/discovery"
	"github.com/sqlstreamdb/sqlstream/internal/herr"
	"github.com/sqlstreamdb/sqlstream/optimizer"
	"github.com/sqlstreamdb/sqlstream/reader"
	"github.com/sqlstreamdb/sqlstream/rowexec"
	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqlast"
	"github.com/sqlstreamdb/sqlstream/sqlparse"
	"github.com/sqlstreamdb/sqlstream/vector"
)

// Backend selects which of the three alternate execution paths runs a
// query (spec.md §4.15 step 2): Pull is the row-at-a-time Volcano
// executor, Vectorized is the Arrow-backed columnar executor, External
// hands the raw SQL to the DuckDB bridge.
type Backend string

const (
	Auto       Backend = "auto"
	Pull       Backend = "pull"
	Vectorized Backend = "vectorized"
	External   Backend = "external"
)

// QueryResult is the lazily-iterating outcome of Query.SQL: rows are
// pulled from whichever backend was selected, behind one Next/ToList/Close
// surface.
type QueryResult struct {
	backend     Backend
	schema      *schema.Schema
	explainText string

	iter       reader.RowIter // Pull (rowexec.Operator) and External share this shape
	bridgeConn *bridge.Bridge
}

type operatorCloser struct{ op rowexec.Operator }

func (c operatorCloser) Next() (schema.Row, error) { return c.op.Next() }
func (c operatorCloser) Close() error              { return c.op.Close() }

// SQL parses and executes text against backend, constructing any reader
// the query's FROM/JOIN clauses need via the same reader-selection rules
// the in-subset path always uses (spec.md §4.16).
func (q *Query) SQL(text string, backend Backend) (*QueryResult, error) {
	inSubset := sqlparse.IsInSubset(text)
	var stmt *sqlast.SelectStatement
	if inSubset {
		parsed, err := sqlparse.Parse(text)
		if err != nil {
			inSubset = false
		} else {
			stmt = parsed
		}
	}

	switch backend {
	case External:
		return q.runExternal(text)
	case Vectorized:
		if !inSubset {
			return nil, herr.New(herr.UnsupportedFeature, "query is out-of-subset; vectorized backend requires an in-subset query")
		}
		return q.runVectorized(stmt)
	case Pull:
		if !inSubset {
			return nil, herr.New(herr.UnsupportedFeature, "query is out-of-subset; pull backend requires an in-subset query")
		}
		return q.runPull(stmt)
	case Auto, "":
		return q.runAuto(text, stmt, inSubset)
	default:
		return nil, herr.New(herr.ParseError, "unknown backend %q", backend)
	}
}

func (q *Query) runAuto(text string, stmt *sqlast.SelectStatement, inSubset bool) (*QueryResult, error) {
	if inSubset && q.cfg.PreferVectorized {
		if res, err := q.runVectorized(stmt); err == nil {
			return res, nil
		}
		log.WithField("backend", Vectorized).Warn("auto backend: vectorized attempt failed, falling back")
	}
	if inSubset {
		log.WithField("backend", Pull).Debug("auto backend: selected")
		return q.runPull(stmt)
	}
	if q.cfg.ExternalDSN != "" {
		log.WithField("backend", External).Debug("auto backend: query out-of-subset, routing to external bridge")
		return q.runExternal(text)
	}
	return nil, herr.New(herr.UnsupportedFeature,
		"query is out-of-subset and no external bridge is configured; set Config.ExternalDSN to enable one")
}

// primaryAndRight builds and optimizer-hints the primary reader, and
// builds (unhinted) the JOIN right-side reader when stmt has one.
func (q *Query) primaryAndRight(stmt *sqlast.SelectStatement) (reader.Reader, reader.Reader, optimizer.Plan, error) {
	primary, err := buildReader(stmt.Source, q.cfg)
	if err != nil {
		return nil, nil, optimizer.Plan{}, err
	}

	plan := optimizer.Optimize(stmt, primary)
	applyHints(primary, plan.Config)

	var right reader.Reader
	if stmt.Join != nil {
		right, err = buildReader(stmt.Join.RightSource, q.cfg)
		if err != nil {
			return nil, nil, optimizer.Plan{}, err
		}
	}
	return primary, right, plan, nil
}

func applyHints(rdr reader.Reader, cfg optimizer.ReaderConfig) {
	if len(cfg.Filter) > 0 {
		rdr.SetFilter(cfg.Filter)
	}
	if len(cfg.Columns) > 0 {
		rdr.SetColumns(cfg.Columns)
	}
	if cfg.HasLimit {
		rdr.SetLimit(cfg.Limit)
	}
	if len(cfg.PartitionFilters) > 0 {
		rdr.SetPartitionFilters(cfg.PartitionFilters)
	}
}

func (q *Query) runPull(stmt *sqlast.SelectStatement) (*QueryResult, error) {
	primary, right, plan, err := q.primaryAndRight(stmt)
	if err != nil {
		return nil, err
	}

	left := rowexec.NewScan(primary, stmt.Source)
	var rightOp rowexec.Operator
	if right != nil {
		rightOp = rowexec.NewScan(right, stmt.Join.RightSource)
	}
	op := rowexec.Build(plan.Statement, left, rightOp)

	sch, err := primary.GetSchema()
	if err != nil {
		return nil, err
	}

	return &QueryResult{
		backend:     Pull,
		schema:      sch,
		explainText: rowexec.Explain(op) + "\n" + plan.Summary(),
		iter:        operatorCloser{op: op},
	}, nil
}

func (q *Query) runVectorized(stmt *sqlast.SelectStatement) (*QueryResult, error) {
	primary, right, plan, err := q.primaryAndRight(stmt)
	if err != nil {
		return nil, err
	}

	primaryTable, err := vector.Load(primary)
	if err != nil {
		return nil, err
	}
	defer primaryTable.Release()

	var rightTable *vector.Table
	if right != nil {
		rightTable, err = vector.Load(right)
		if err != nil {
			return nil, err
		}
		defer rightTable.Release()
	}

	rows := vector.Execute(plan.Statement, primaryTable, rightTable)

	sch, err := primary.GetSchema()
	if err != nil {
		return nil, err
	}

	return &QueryResult{
		backend:     Vectorized,
		schema:      sch,
		explainText: vector.Explain(plan.Statement) + "\n" + plan.Summary(),
		iter:        reader.NewSliceIter(rows),
	}, nil
}

func (q *Query) runExternal(text string) (*QueryResult, error) {
	if q.cfg.ExternalDSN == "" {
		return nil, herr.New(herr.UnsupportedFeature, "external backend requested but Config.ExternalDSN is empty")
	}

	sourceFactory := func(ref string) (reader.Reader, error) { return buildReader(ref, q.cfg) }
	conn, err := bridge.Open(sourceFactory)
	if err != nil {
		return nil, err
	}

	discovered := discovery.Discover(text)
	ctx := context.Background()

	explainText, err := conn.Explain(ctx, text, discovered.Refs)
	if err != nil {
		conn.Close()
		return nil, err
	}

	it, err := conn.ExecuteRaw(ctx, text, discovered.Refs)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &QueryResult{
		backend:     External,
		explainText: explainText,
		iter:        it,
		bridgeConn:  conn,
	}, nil
}

// Next returns the next row, or io.EOF when exhausted.
func (r *QueryResult) Next() (schema.Row, error) {
	return r.iter.Next()
}

// ToList drains every remaining row.
func (r *QueryResult) ToList() ([]schema.Row, error) {
	var out []schema.Row
	for {
		row, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, row)
	}
}

// Explain returns a human-readable plan: the operator tree for pull and
// vectorized, the external engine's own EXPLAIN text for external.
func (r *QueryResult) Explain() string { return r.explainText }

// Schema returns the primary source reader's schema (nil for external,
// which has no single typed reader boundary).
func (r *QueryResult) Schema() *schema.Schema { return r.schema }

// Backend reports which executor produced this result.
func (r *QueryResult) Backend() Backend { return r.backend }

func (r *QueryResult) Close() error {
	var errs []string
	if r.iter != nil {
		if err := r.iter.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if r.bridgeConn != nil {
		if err := r.bridgeConn.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return herr.New(herr.IOError, "closing query result: %s", strings.Join(errs, "; "))
}
