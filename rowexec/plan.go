package rowexec

import "github.com/sqlstreamdb/sqlstream/sqlast"

// Build constructs the operator tree bottom-up, per spec.md §4.12: Scan →
// (HashJoin with right-branch Scan if JOIN) → Filter (WHERE) → HashGroupBy
// (if GROUP BY) → OrderBy (if ORDER BY) → Project (unless GROUP BY already
// emitted the target columns) → Limit.
//
// left is the already-constructed primary Scan (or any pre-built subtree);
// right is the JOIN's right-branch Scan, nil when stmt has no JOIN.
func Build(stmt *sqlast.SelectStatement, left Operator, right Operator) Operator {
	node := left

	if stmt.Join != nil && right != nil {
		node = NewHashJoin(node, right, stmt.Join.Type, stmt.Join.LeftKey, stmt.Join.RightKey)
	}

	if len(stmt.Where) > 0 {
		node = NewFilter(node, stmt.Where)
	}

	groupByEmitsOutput := len(stmt.GroupBy) > 0 || len(stmt.Aggregates) > 0
	if groupByEmitsOutput {
		node = NewHashGroupBy(node, stmt.GroupBy, stmt.Aggregates)
	}

	if len(stmt.OrderBy) > 0 {
		node = NewOrderBy(node, stmt.OrderBy)
	}

	if !groupByEmitsOutput && !stmt.Star {
		node = NewProject(node, stmt.Columns)
	}

	if stmt.HasLimit {
		node = NewLimit(node, stmt.Limit)
	}

	return node
}
