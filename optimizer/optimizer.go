// Package optimizer implements the fixed-order pushdown pipeline: predicate
// pushdown, column pruning, limit pushdown, partition pruning, plus disabled
// placeholder rules for projection pushdown, join reordering, and cost-based
// optimization (spec.md §4.11). Each rule is a no-op when its applicability
// conditions aren't met, and records a one-line summary of what it did.
package optimizer

import (
	"strconv"
	"strings"

	"github.com/sqlstreamdb/sqlstream/predicate"
	"github.com/sqlstreamdb/sqlstream/reader"
	"github.com/sqlstreamdb/sqlstream/sqlast"
)

// ReaderConfig is the record of reader hints the optimizer produces; the
// rules do not call a reader's setters themselves. The facade applies it
// through the primary reader's setters before iteration begins.
type ReaderConfig struct {
	Filter           []sqlast.Condition
	Columns          []string
	Limit            int
	HasLimit         bool
	PartitionFilters []sqlast.Condition
}

// Rule is one optimizer pass, given the primary reader so it can consult
// capabilities and, where relevant, reader-specific planning hooks (e.g.
// PartitionColumnLister) without any reader having started iteration.
type Rule struct {
	Name        string
	CanOptimize func(stmt *sqlast.SelectStatement, rdr reader.Reader) bool
	Apply       func(stmt *sqlast.SelectStatement, rdr reader.Reader, cfg ReaderConfig) (*sqlast.SelectStatement, ReaderConfig, string)
}

// Plan is the result of running the full pipeline: the (possibly rewritten)
// statement, the resulting reader config, and the per-rule summary lines
// that applied.
type Plan struct {
	Statement *sqlast.SelectStatement
	Config    ReaderConfig
	Applied   []string
}

// Summary joins the applied-rule descriptions into the single explain
// string spec.md §4.11 requires ("the planner exposes a summary string
// listing which rules applied and their descriptions").
func (p Plan) Summary() string {
	if len(p.Applied) == 0 {
		return "optimizer: no rules applied"
	}
	return "optimizer: " + strings.Join(p.Applied, "; ")
}

// Rules is the fixed-order pipeline spec.md §4.11 names.
var Rules = []Rule{
	predicatePushdownRule,
	columnPruningRule,
	limitPushdownRule,
	partitionPruningRule,
	projectionPushdownPlaceholder,
	joinReorderingPlaceholder,
	costBasedPlaceholder,
}

// Optimize runs the fixed-order pipeline over stmt against the primary
// reader, returning the resulting Plan. stmt is never mutated in place;
// rules that rewrite the AST (partition pruning) operate on and return a
// clone.
func Optimize(stmt *sqlast.SelectStatement, rdr reader.Reader) Plan {
	cur := stmt
	cfg := ReaderConfig{}
	var applied []string
	for _, rule := range Rules {
		if !rule.CanOptimize(cur, rdr) {
			continue
		}
		next, nextCfg, summary := rule.Apply(cur, rdr, cfg)
		cur, cfg = next, nextCfg
		if summary != "" {
			applied = append(applied, rule.Name+": "+summary)
		}
	}
	return Plan{Statement: cur, Config: cfg, Applied: applied}
}

// predicatePushdownRule pushes simple WHERE conditions to the reader.
// Applicable iff WHERE exists, the reader supports pushdown, and the query
// has no JOIN (cross-table predicate analysis is out of scope).
var predicatePushdownRule = Rule{
	Name: "predicate_pushdown",
	CanOptimize: func(stmt *sqlast.SelectStatement, rdr reader.Reader) bool {
		return len(stmt.Where) > 0 && rdr.Capabilities().SupportsPushdown && stmt.Join == nil
	},
	Apply: func(stmt *sqlast.SelectStatement, rdr reader.Reader, cfg ReaderConfig) (*sqlast.SelectStatement, ReaderConfig, string) {
		cfg.Filter = stmt.Where
		return stmt, cfg, strconv.Itoa(len(stmt.Where)) + " condition(s)"
	},
}

// columnPruningRule computes the required-column set (select + where + group
// by + order by + aggregate args + left join key) and pushes it down.
// Applicable iff the reader supports column selection and SELECT isn't *.
var columnPruningRule = Rule{
	Name: "column_pruning",
	CanOptimize: func(stmt *sqlast.SelectStatement, rdr reader.Reader) bool {
		return rdr.Capabilities().SupportsColumnSelection && !stmt.Star
	},
	Apply: func(stmt *sqlast.SelectStatement, rdr reader.Reader, cfg ReaderConfig) (*sqlast.SelectStatement, ReaderConfig, string) {
		cols := requiredColumns(stmt)
		cfg.Columns = cols
		return stmt, cfg, strconv.Itoa(len(cols)) + " column(s) selected"
	},
}

func requiredColumns(stmt *sqlast.SelectStatement) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(c string) {
		if c == "" || c == "*" || seen[c] {
			return
		}
		seen[c] = true
		out = append(out, c)
	}
	for _, c := range stmt.Columns {
		add(c)
	}
	for _, c := range predicate.Columns(stmt.Where) {
		add(c)
	}
	for _, c := range stmt.GroupBy {
		add(c)
	}
	for _, o := range stmt.OrderBy {
		add(o.Column)
	}
	for _, a := range stmt.Aggregates {
		if a.Column != "*" {
			add(a.Column)
		}
	}
	if stmt.Join != nil {
		add(stmt.Join.LeftKey)
	}
	return out
}

// limitPushdownRule pushes LIMIT to the reader. Applicable iff LIMIT exists,
// the reader supports it, and no ORDER BY/GROUP BY/aggregates/JOIN force a
// full scan.
var limitPushdownRule = Rule{
	Name: "limit_pushdown",
	CanOptimize: func(stmt *sqlast.SelectStatement, rdr reader.Reader) bool {
		return stmt.HasLimit && rdr.Capabilities().SupportsLimit && !stmt.RequiresFullScan()
	},
	Apply: func(stmt *sqlast.SelectStatement, rdr reader.Reader, cfg ReaderConfig) (*sqlast.SelectStatement, ReaderConfig, string) {
		cfg.Limit = stmt.Limit
		cfg.HasLimit = true
		return stmt, cfg, "limit " + strconv.Itoa(stmt.Limit)
	},
}

// partitionPruningRule splits WHERE into partition and non-partition halves
// using the reader's own partition column set, pushes the partition half,
// and rewrites the AST to drop the pushed conditions (partition columns are
// virtual and absent until after row read).
var partitionPruningRule = Rule{
	Name: "partition_pruning",
	CanOptimize: func(stmt *sqlast.SelectStatement, rdr reader.Reader) bool {
		if !rdr.Capabilities().SupportsPartitionPruning || len(stmt.Where) == 0 {
			return false
		}
		_, touches := partitionSplit(stmt.Where, rdr)
		return touches
	},
	Apply: func(stmt *sqlast.SelectStatement, rdr reader.Reader, cfg ReaderConfig) (*sqlast.SelectStatement, ReaderConfig, string) {
		partitionConds, _ := partitionSplit(stmt.Where, rdr)
		cols := partitionColumnSet(rdr)
		_, rest := predicate.Partition(stmt.Where, cols)

		next := stmt.Clone()
		next.Where = rest
		cfg.PartitionFilters = partitionConds
		return next, cfg, strconv.Itoa(len(partitionConds)) + " partition filter(s)"
	},
}

func partitionColumnSet(rdr reader.Reader) map[string]bool {
	lister, ok := rdr.(reader.PartitionColumnLister)
	if !ok {
		return nil
	}
	cols := make(map[string]bool)
	for _, c := range lister.PartitionColumns() {
		cols[c] = true
	}
	return cols
}

func partitionSplit(where []sqlast.Condition, rdr reader.Reader) (partition []sqlast.Condition, touches bool) {
	cols := partitionColumnSet(rdr)
	if len(cols) == 0 {
		return nil, false
	}
	partition, _ = predicate.Partition(where, cols)
	return partition, len(partition) > 0
}

// projectionPushdownPlaceholder is reserved for future work: pushing
// computed/derived projections (not just column selection) to readers that
// support expression evaluation. No reader currently does.
var projectionPushdownPlaceholder = Rule{
	Name:        "projection_pushdown",
	CanOptimize: func(*sqlast.SelectStatement, reader.Reader) bool { return false },
	Apply: func(stmt *sqlast.SelectStatement, rdr reader.Reader, cfg ReaderConfig) (*sqlast.SelectStatement, ReaderConfig, string) {
		return stmt, cfg, ""
	},
}

// joinReorderingPlaceholder is reserved for future work: choosing which side
// of a JOIN builds vs. probes based on cardinality. Requires statistics
// propagation this core doesn't collect yet.
var joinReorderingPlaceholder = Rule{
	Name:        "join_reordering",
	CanOptimize: func(*sqlast.SelectStatement, reader.Reader) bool { return false },
	Apply: func(stmt *sqlast.SelectStatement, rdr reader.Reader, cfg ReaderConfig) (*sqlast.SelectStatement, ReaderConfig, string) {
		return stmt, cfg, ""
	},
}

// costBasedPlaceholder is reserved for future work: choosing among
// equivalent plans using TableStatistics/ColumnStatistics. No cost model
// exists yet.
var costBasedPlaceholder = Rule{
	Name:        "cost_based",
	CanOptimize: func(*sqlast.SelectStatement, reader.Reader) bool { return false },
	Apply: func(stmt *sqlast.SelectStatement, rdr reader.Reader, cfg ReaderConfig) (*sqlast.SelectStatement, ReaderConfig, string) {
		return stmt, cfg, ""
	},
}
