// Package fragment parses the source-reference extension syntax
// "source#format:selector" used to override reader format and table
// selector (spec.md §4.8).
package fragment

import (
	"strconv"
	"strings"

	"github.com/sqlstreamdb/sqlstream/internal/herr"
)

// Format is a reader format hint, taken from the fragment or inferred from
// the path extension.
type Format string

const (
	CSV      Format = "csv"
	Parquet  Format = "parquet"
	JSON     Format = "json"
	JSONLines Format = "jsonl"
	HTML     Format = "html"
	Markdown Format = "markdown"
	XML      Format = "xml"
)

var knownFormats = map[Format]bool{
	CSV: true, Parquet: true, JSON: true, JSONLines: true,
	HTML: true, Markdown: true, XML: true,
}

// Parsed is the result of splitting a source reference into its path and an
// optional format/selector override.
type Parsed struct {
	Path     string
	Format   Format // empty if not specified in the fragment
	Selector string // raw selector text, empty if not specified

	// SelectorInt and HasSelectorInt report whether the selector parses as
	// an integer (the common case for HTML/Markdown table indices); when
	// false, Selector is passed through as a string path (JSON/XML).
	SelectorInt    int
	HasSelectorInt bool
}

// Parse splits "source[#[format][:selector]]". An empty fragment (a bare
// trailing '#') is equivalent to no fragment. "#format" sets format only.
// "#:selector" sets selector only.
func Parse(ref string) (Parsed, error) {
	hashIdx := strings.IndexByte(ref, '#')
	if hashIdx < 0 {
		return Parsed{Path: ref}, nil
	}
	path := ref[:hashIdx]
	frag := ref[hashIdx+1:]
	if frag == "" {
		return Parsed{Path: path}, nil
	}

	var formatPart, selectorPart string
	if colonIdx := strings.IndexByte(frag, ':'); colonIdx >= 0 {
		formatPart = frag[:colonIdx]
		selectorPart = frag[colonIdx+1:]
	} else {
		formatPart = frag
	}

	p := Parsed{Path: path}
	if formatPart != "" {
		f := Format(strings.ToLower(formatPart))
		if !knownFormats[f] {
			return Parsed{}, herr.New(herr.ParseError, "unknown format %q in fragment %q", formatPart, ref)
		}
		p.Format = f
	}
	if selectorPart != "" {
		p.Selector = selectorPart
		if n, err := strconv.Atoi(selectorPart); err == nil {
			p.SelectorInt = n
			p.HasSelectorInt = true
		}
	}
	return p, nil
}
