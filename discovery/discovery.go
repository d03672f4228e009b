// Package discovery extracts table-reference file paths from raw SQL text,
// quoted or bare, assigning each a sanitized logical table name
// (spec.md §4.10).
package discovery

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var quotedRefRe = regexp.MustCompile(`(?i)(?:FROM|JOIN)\s+(['"])(.+?)\1`)

// barePathRe mirrors spec.md §4.10's rule 2: capture a bare token after
// FROM/JOIN up to (but not including) the next SQL keyword, comma, or
// closing paren.
var barePathRe = regexp.MustCompile(`(?i)(?:FROM|JOIN)\s+([/\w.#:\-]+?)(?:\s+(?:ON|WHERE|GROUP|ORDER|LIMIT|INNER|LEFT|RIGHT|JOIN|AND)\b|\s*[,)]|$)`)

var sqlKeywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "JOIN": true, "ON": true,
	"GROUP": true, "BY": true, "ORDER": true, "LIMIT": true, "AND": true,
	"INNER": true, "LEFT": true, "RIGHT": true, "ASC": true, "DESC": true,
}

// Discovered is the insertion-ordered, deduplicated result of source
// discovery: logical name -> original reference string.
type Discovered struct {
	Order []string
	Refs  map[string]string
}

func newDiscovered() *Discovered {
	return &Discovered{Refs: make(map[string]string)}
}

func (d *Discovered) add(name, ref string) {
	if _, exists := d.Refs[name]; exists {
		return
	}
	d.Order = append(d.Order, name)
	d.Refs[name] = ref
}

// Discover extracts every table reference from raw SQL.
func Discover(sql string) *Discovered {
	d := newDiscovered()

	for _, m := range quotedRefRe.FindAllStringSubmatch(sql, -1) {
		ref := m[2]
		if _, exists := refAlreadyFound(d, ref); exists {
			continue
		}
		d.add(uniqueLogicalName(d, ref), ref)
	}

	for _, m := range barePathRe.FindAllStringSubmatch(sql, -1) {
		candidate := strings.TrimSpace(m[1])
		upper := strings.ToUpper(candidate)
		if sqlKeywords[upper] {
			continue
		}
		if !looksLikePath(candidate) {
			continue
		}
		if _, exists := refAlreadyFound(d, candidate); exists {
			continue
		}
		d.add(uniqueLogicalName(d, candidate), candidate)
	}

	return d
}

func refAlreadyFound(d *Discovered, ref string) (string, bool) {
	for name, r := range d.Refs {
		if r == ref {
			return name, true
		}
	}
	return "", false
}

// looksLikePath discards bare tokens that contain none of '/', '.', '#' —
// i.e. tokens that don't look like a path reference at all.
func looksLikePath(s string) bool {
	return strings.ContainsAny(s, "/.#")
}

var nonAlnumRe = regexp.MustCompile(`[^A-Za-z0-9]+`)

// sanitize derives a logical name from a reference: basename without
// extension, non-alphanumeric runs replaced by '_'. A fragment carrying a
// non-default selector is appended to the name.
func sanitize(ref string) string {
	path := ref
	selector := ""
	if idx := strings.IndexByte(ref, '#'); idx >= 0 {
		path = ref[:idx]
		frag := ref[idx+1:]
		if colon := strings.IndexByte(frag, ':'); colon >= 0 {
			selector = frag[colon+1:]
		}
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	base = strings.TrimSuffix(base, ext)
	name := nonAlnumRe.ReplaceAllString(base, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "source"
	}
	if selector != "" {
		if n, err := strconv.Atoi(selector); err != nil || n != 0 {
			name = name + "_" + nonAlnumRe.ReplaceAllString(selector, "_")
		}
	}
	return name
}

func uniqueLogicalName(d *Discovered, ref string) string {
	base := sanitize(ref)
	name := base
	counter := 1
	for {
		if _, exists := d.Refs[name]; !exists {
			return name
		}
		counter++
		name = base + "_" + strconv.Itoa(counter)
	}
}
