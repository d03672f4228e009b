package rowexec

import (
	"github.com/mitchellh/hashstructure"

	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

// hashKey hashes a tuple of Values for HashGroupBy/HashJoin bucket lookup.
// Values are normalized first (numeric categories to float64, temporal to
// time.Time, everything else to its native Go form) so an INTEGER and an
// equal-valued FLOAT hash identically, so hash tables over heterogeneous
// keys treat equal numerics as equal keys. A hash collision across genuinely unequal tuples is still possible;
// callers re-check equality with valuesEqual before treating two tuples as
// the same group/join key.
func hashKey(values []sqltypes.Value) (uint64, error) {
	norm := make([]interface{}, len(values))
	for i, v := range values {
		norm[i] = normalizeForHash(v)
	}
	return hashstructure.Hash(norm, nil)
}

func normalizeForHash(v sqltypes.Value) interface{} {
	if v.IsNull() {
		return nil
	}
	switch {
	case v.Type.IsNumeric():
		return numericFloat(v)
	case v.Type.IsTemporal():
		return v.Time
	case v.Type == sqltypes.BOOLEAN:
		return v.Bool
	default:
		return v.Str
	}
}

// valuesEqual reports whether two same-length tuples are element-wise equal
// via Value.Equal, used to resolve hash-bucket collisions.
func valuesEqual(a, b []sqltypes.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
