// Package sqlstream is the root facade: Query/QueryResult wire together the
// parser, optimizer, pull executor, vectorized executor, and external
// bridge behind the single programmatic surface described in spec.md §6
// and §4.15.
package sqlstream

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sqlstreamdb/sqlstream/internal/herr"
	"github.com/sqlstreamdb/sqlstream/reader"
	"github.com/sqlstreamdb/sqlstream/reader/factory"
	"github.com/sqlstreamdb/sqlstream/schema"
)

var log = logrus.WithField("subsystem", "facade")

// Config configures a Query: one flat struct of tunables passed to the
// constructor rather than a chain of functional options.
type Config struct {
	// SampleSize is not passed to the readers: the CSV reader infers column
	// types from a fixed sample of 100 rows whatever this holds.
	SampleSize int

	// HTTPCacheDir is the local directory HTTP-backed sources are cached
	// under, keyed by MD5 of the URL (spec.md §4.7).
	HTTPCacheDir string

	// HTTPTimeout bounds each HTTP request the caching reader issues.
	HTTPTimeout time.Duration

	// PreferVectorized makes the auto backend prefer the Arrow-backed
	// executor over the pull executor when both are available and the
	// query is in-subset.
	PreferVectorized bool

	// ExternalDSN enables the external fallback bridge when non-empty.
	// Empty disables the external backend entirely. The bridge always runs
	// an in-memory DuckDB engine; the value is not passed to it.
	ExternalDSN string
}

func (c Config) factoryConfig() factory.Config {
	return factory.Config{CacheDir: c.HTTPCacheDir, HTTPTimeout: c.HTTPTimeout}
}

// Query is the entry point: an optional default source reference plus the
// config used to construct readers for every source a query touches.
type Query struct {
	cfg    Config
	source string
	rdr    reader.Reader
}

// NewQuery builds a Query. source is optional ("" for none); when given,
// its reader is constructed eagerly so a missing file or bad fragment
// surfaces immediately rather than on first iteration (spec.md §4.15).
func NewQuery(cfg Config, source string) (*Query, error) {
	q := &Query{cfg: cfg, source: source}
	if source != "" {
		rdr, err := buildReader(source, cfg)
		if err != nil {
			return nil, err
		}
		q.rdr = rdr
	}
	return q, nil
}

// Schema returns the default source's schema. It is an error to call this
// on a Query built without a default source.
func (q *Query) Schema() (*schema.Schema, error) {
	if q.rdr == nil {
		return nil, herr.New(herr.NotFound, "query has no default source")
	}
	return q.rdr.GetSchema()
}

// buildReader resolves a raw source reference (possibly still quoted, as
// emitted by the tokenizer for a quoted FROM/JOIN target) into a reader.
func buildReader(ref string, cfg Config) (reader.Reader, error) {
	return factory.New(unquote(ref), cfg.factoryConfig())
}

// unquote strips a single layer of matching single or double quotes, the
// shape discovery and the parser both leave on a quoted source token.
func unquote(ref string) string {
	if len(ref) >= 2 {
		if (ref[0] == '\'' && ref[len(ref)-1] == '\'') || (ref[0] == '"' && ref[len(ref)-1] == '"') {
			return strings.TrimSuffix(strings.TrimPrefix(ref, ref[:1]), ref[len(ref)-1:])
		}
	}
	return ref
}
