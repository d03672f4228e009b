package parquet

import (
	"regexp"
	"strings"

	"github.com/sqlstreamdb/sqlstream/sqltypes"
)

// hivePartitionRe matches one "name=value" path segment, per the Hive-style
// partitioning convention in spec.md §4.4.
var hivePartitionRe = regexp.MustCompile(`^([^=/]+)=([^/]*)$`)

// parseHivePartitions scans every path segment for name=value pairs, typing
// each value via sqltypes inference.
func parseHivePartitions(path string) map[string]sqltypes.Value {
	parts := strings.Split(path, "/")
	out := make(map[string]sqltypes.Value)
	for _, part := range parts {
		if m := hivePartitionRe.FindStringSubmatch(part); m != nil {
			out[m[1]] = sqltypes.InferTypeFromString(m[2])
		}
	}
	return out
}
