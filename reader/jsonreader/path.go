package jsonreader

import (
	"strconv"
	"strings"

	"github.com/sqlstreamdb/sqlstream/internal/herr"
)

// pathSegment is one "." separated segment of a JSON path: a bare key, a
// key[i] array index, or a key[] flatten operator. At most one "[]" per
// path (spec.md §4.5).
type pathSegment struct {
	key     string
	index   int
	hasIndex bool
	flatten bool
}

func parsePath(path string) ([]pathSegment, error) {
	if path == "" {
		return nil, nil
	}
	parts := strings.Split(path, ".")
	segs := make([]pathSegment, 0, len(parts))
	flattenSeen := false
	for _, part := range parts {
		seg := pathSegment{}
		if idx := strings.IndexByte(part, '['); idx >= 0 {
			if !strings.HasSuffix(part, "]") {
				return nil, herr.New(herr.ParseError, "malformed json path segment %q", part)
			}
			seg.key = part[:idx]
			inner := part[idx+1 : len(part)-1]
			if inner == "" {
				if flattenSeen {
					return nil, herr.New(herr.ParseError, "at most one [] operator allowed per json path %q", path)
				}
				flattenSeen = true
				seg.flatten = true
			} else {
				n, err := strconv.Atoi(inner)
				if err != nil {
					return nil, herr.New(herr.ParseError, "non-numeric array index in json path segment %q", part)
				}
				seg.index = n
				seg.hasIndex = true
			}
		} else {
			seg.key = part
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

// autoDetectKeys is the fallback key order tried when records_key is absent.
var autoDetectKeys = []string{"data", "records", "items", "rows", "results"}

// resolve walks doc according to segs, returning the located value(s). A
// plain path (no flatten) returns exactly one node; a path containing [] -
// returns one node per flattened element (the continuation path, if any,
// applied to each).
func resolve(doc interface{}, segs []pathSegment) ([]interface{}, error) {
	cur := doc
	for i, seg := range segs {
		if seg.key != "" {
			m, ok := cur.(map[string]interface{})
			if !ok {
				return nil, herr.New(herr.ParseError, "cannot index non-object at segment %q", seg.key)
			}
			v, ok := m[seg.key]
			if !ok {
				return nil, herr.New(herr.NotFound, "key %q not found in json document", seg.key)
			}
			cur = v
		}
		if seg.hasIndex {
			arr, ok := cur.([]interface{})
			if !ok {
				return nil, herr.New(herr.ParseError, "cannot index non-list at segment [%d]", seg.index)
			}
			if seg.index < 0 || seg.index >= len(arr) {
				return nil, herr.New(herr.NotFound, "array index %d out of range (len %d)", seg.index, len(arr))
			}
			cur = arr[seg.index]
		}
		if seg.flatten {
			arr, ok := cur.([]interface{})
			if !ok {
				return nil, herr.New(herr.ParseError, "cannot flatten non-list with []")
			}
			rest := segs[i+1:]
			var out []interface{}
			for _, elem := range arr {
				if len(rest) == 0 {
					out = append(out, elem)
					continue
				}
				sub, err := resolve(elem, rest)
				if err != nil {
					return nil, err
				}
				out = append(out, sub...)
			}
			return out, nil
		}
	}
	return []interface{}{cur}, nil
}

// locateRecords finds the record list per spec.md §4.5: explicit path if
// recordsKey is set; else auto-detect a top-level list, then the first
// list-valued key among the well-known names, then the first list-valued
// key at all, then treat a single object as a one-row table.
func locateRecords(doc interface{}, recordsKey string) ([]interface{}, error) {
	if recordsKey != "" {
		segs, err := parsePath(recordsKey)
		if err != nil {
			return nil, err
		}
		nodes, err := resolve(doc, segs)
		if err != nil {
			return nil, err
		}
		// A plain path resolves to one node; when that node is a list, its
		// elements are the records.
		flatten := false
		for _, s := range segs {
			flatten = flatten || s.flatten
		}
		if len(nodes) == 1 && !flatten {
			if arr, ok := nodes[0].([]interface{}); ok {
				return arr, nil
			}
		}
		return nodes, nil
	}

	if arr, ok := doc.([]interface{}); ok {
		return arr, nil
	}

	m, ok := doc.(map[string]interface{})
	if !ok {
		return nil, herr.New(herr.ParseError, "json document is neither an object nor a list")
	}

	for _, key := range autoDetectKeys {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]interface{}); ok {
				return arr, nil
			}
		}
	}

	// Go decodes JSON objects into an unordered map, so "first list-valued
	// key" here is best-effort rather than textual-order; acceptable per
	// the auto-detection heuristic's documented best-effort contract.
	for _, v := range m {
		if arr, ok := v.([]interface{}); ok {
			return arr, nil
		}
	}

	return []interface{}{m}, nil
}
