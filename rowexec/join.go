package rowexec

import (
	"io"

	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqlast"
	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

// HashJoin implements INNER/LEFT/RIGHT join: the build phase scans right
// and buckets its rows by join key (skipping NULL keys); the probe phase
// scans left, emitting the cross-product of matches, plus unmatched-left
// rows for LEFT and unmatched-right rows (appended after the probe, in
// right-scan order) for RIGHT. Collisions on a shared column are resolved
// by keeping the left value and prefixing the right with "right_"
// (spec.md §4.12).
type HashJoin struct {
	left, right        Operator
	joinType           sqlast.JoinType
	leftKey, rightKey  string
	rightPrefix        string

	built bool
	rows  []schema.Row
	pos   int
}

const defaultRightPrefix = "right_"

func NewHashJoin(left, right Operator, joinType sqlast.JoinType, leftKey, rightKey string) *HashJoin {
	return &HashJoin{left: left, right: right, joinType: joinType, leftKey: leftKey, rightKey: rightKey, rightPrefix: defaultRightPrefix}
}

func (j *HashJoin) build() error {
	j.built = true

	var rightRows []schema.Row
	for {
		row, err := j.right.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		rightRows = append(rightRows, row)
	}

	buckets := map[uint64][]int{}
	for i, row := range rightRows {
		v, ok := row.Get(j.rightKey)
		if !ok || v.IsNull() {
			continue
		}
		h, err := hashKey([]sqltypes.Value{v})
		if err != nil {
			continue
		}
		buckets[h] = append(buckets[h], i)
	}

	matched := make([]bool, len(rightRows))
	var out []schema.Row

	for {
		leftRow, err := j.left.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		var candidates []int
		if lv, ok := leftRow.Get(j.leftKey); ok && !lv.IsNull() {
			h, herr := hashKey([]sqltypes.Value{lv})
			if herr == nil {
				for _, idx := range buckets[h] {
					rv, _ := rightRows[idx].Get(j.rightKey)
					if lv.Equal(rv) {
						candidates = append(candidates, idx)
					}
				}
			}
		}

		if len(candidates) == 0 {
			if j.joinType == sqlast.LeftJoin {
				out = append(out, leftRow)
			}
			continue
		}
		for _, idx := range candidates {
			matched[idx] = true
			out = append(out, leftRow.Merge(rightRows[idx], j.rightPrefix))
		}
	}

	if j.joinType == sqlast.RightJoin {
		for i, row := range rightRows {
			if !matched[i] {
				out = append(out, row)
			}
		}
	}

	j.rows = out
	return nil
}

func (j *HashJoin) Next() (schema.Row, error) {
	if !j.built {
		if err := j.build(); err != nil {
			return schema.Row{}, err
		}
	}
	if j.pos >= len(j.rows) {
		return schema.Row{}, io.EOF
	}
	row := j.rows[j.pos]
	j.pos++
	return row, nil
}

func (j *HashJoin) Close() error {
	if err := j.left.Close(); err != nil {
		return err
	}
	return j.right.Close()
}

func (j *HashJoin) Explain() string {
	return string(j.joinType) + "HashJoin(" + j.leftKey + " = " + j.rightKey + ")"
}

func (j *HashJoin) Children() []Operator { return []Operator{j.left, j.right} }
