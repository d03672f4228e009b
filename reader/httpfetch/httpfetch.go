// Package httpfetch wraps any format-specific reader behind an HTTP(S)
// download-and-cache step: the URL is hashed to a stable cache path,
// fetched once with retries via hashicorp/go-retryablehttp, and the
// delegate reader is then pointed at the local cache file (spec.md §4.7).
package httpfetch

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/sqlstreamdb/sqlstream/fragment"
	"github.com/sqlstreamdb/sqlstream/internal/herr"
	"github.com/sqlstreamdb/sqlstream/reader"
	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqlast"
)

var log = logrus.WithField("reader", "http")

// DelegateFactory constructs the format-specific reader for a downloaded
// local file, given the format resolved from the fragment or URL
// extension and the raw selector string.
type DelegateFactory func(localPath string, format fragment.Format, selector string) (reader.Reader, error)

// Reader fetches a URL to a local cache directory and delegates everything
// else to the inner format reader it constructs once the download lands.
type Reader struct {
	url           string
	format        fragment.Format
	selector      string
	cacheDir      string
	forceDownload bool
	factory       DelegateFactory
	client        *retryablehttp.Client

	delegate reader.Reader
}

// Option configures New.
type Option func(*Reader)

func WithForceDownload(force bool) Option {
	return func(r *Reader) { r.forceDownload = force }
}

// WithTimeout bounds the underlying HTTP client's per-request timeout; zero
// leaves go-cleanhttp's default in place.
func WithTimeout(d time.Duration) Option {
	return func(r *Reader) {
		if d > 0 {
			r.client.HTTPClient.Timeout = d
		}
	}
}

func New(url string, format fragment.Format, selector, cacheDir string, factory DelegateFactory, opts ...Option) *Reader {
	client := retryablehttp.NewClient()
	client.HTTPClient = cleanhttp.DefaultClient()
	client.Logger = nil

	r := &Reader{
		url:      url,
		format:   format,
		selector: selector,
		cacheDir: cacheDir,
		factory:  factory,
		client:   client,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// cachePath derives a stable local path for url within cacheDir, keyed by
// its MD5 hash per spec.md §4.7.
func (r *Reader) cachePath() string {
	sum := md5.Sum([]byte(r.url))
	return filepath.Join(r.cacheDir, hex.EncodeToString(sum[:])+filepath.Ext(r.url))
}

// ensureCached downloads r.url to its cache path unless it already exists
// and forceDownload is false, streaming to a ".tmp" sibling and renaming
// atomically on completion.
func (r *Reader) ensureCached() (string, error) {
	dest := r.cachePath()
	if !r.forceDownload {
		if _, err := os.Stat(dest); err == nil {
			return dest, nil
		}
	}
	if err := os.MkdirAll(r.cacheDir, 0o755); err != nil {
		return "", herr.Wrap(herr.IOError, err, "creating cache dir %q", r.cacheDir)
	}

	resp, err := r.client.Get(r.url)
	if err != nil {
		return "", herr.Wrap(herr.IOError, err, "fetching %q", r.url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", herr.New(herr.IOError, "fetching %q: status %d", r.url, resp.StatusCode)
	}

	tmpName := filepath.Join(r.cacheDir, uuid.NewV4().String()+".tmp") // satori/go.uuid v1.2.0: NewV4 returns UUID directly, no error
	tmp, err := os.Create(tmpName)
	if err != nil {
		return "", herr.Wrap(herr.IOError, err, "creating temp file for %q", r.url)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", herr.Wrap(herr.IOError, err, "downloading %q", r.url)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", herr.Wrap(herr.IOError, err, "closing temp file for %q", r.url)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return "", herr.Wrap(herr.IOError, err, "renaming cached file for %q", r.url)
	}
	log.WithFields(logrus.Fields{"url": r.url, "cache_path": dest}).Info("downloaded and cached remote source")
	return dest, nil
}

func (r *Reader) ensureDelegate() (reader.Reader, error) {
	if r.delegate != nil {
		return r.delegate, nil
	}
	localPath, err := r.ensureCached()
	if err != nil {
		return nil, err
	}
	delegate, err := r.factory(localPath, r.format, r.selector)
	if err != nil {
		return nil, err
	}
	r.delegate = delegate
	return delegate, nil
}

func (r *Reader) Capabilities() reader.Capabilities {
	d, err := r.ensureDelegate()
	if err != nil {
		return reader.Capabilities{}
	}
	return d.Capabilities()
}

func (r *Reader) SetFilter(c []sqlast.Condition) {
	if d, err := r.ensureDelegate(); err == nil {
		d.SetFilter(c)
	}
}

func (r *Reader) SetColumns(c []string) {
	if d, err := r.ensureDelegate(); err == nil {
		d.SetColumns(c)
	}
}

func (r *Reader) SetLimit(n int) {
	if d, err := r.ensureDelegate(); err == nil {
		d.SetLimit(n)
	}
}

func (r *Reader) SetPartitionFilters(c []sqlast.Condition) {
	if d, err := r.ensureDelegate(); err == nil {
		d.SetPartitionFilters(c)
	}
}

func (r *Reader) ToDataFrame() (reader.DataFrame, bool) {
	d, err := r.ensureDelegate()
	if err != nil {
		return nil, false
	}
	return d.ToDataFrame()
}

func (r *Reader) GetSchema() (*schema.Schema, error) {
	d, err := r.ensureDelegate()
	if err != nil {
		return nil, err
	}
	return d.GetSchema()
}

func (r *Reader) ReadLazy() (reader.RowIter, error) {
	d, err := r.ensureDelegate()
	if err != nil {
		return nil, err
	}
	return d.ReadLazy()
}
