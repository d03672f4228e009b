package httpfetch

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sqlstreamdb/sqlstream/fragment"
	"github.com/sqlstreamdb/sqlstream/reader"
	"github.com/sqlstreamdb/sqlstream/schema"
	"github.com/sqlstreamdb/sqlstream/sqlast"
)

type fakeDelegate struct {
	localPath string
}

func (f *fakeDelegate) ReadLazy() (reader.RowIter, error)        { return reader.NewSliceIter(nil), nil }
func (f *fakeDelegate) GetSchema() (*schema.Schema, error)       { return schema.New(), nil }
func (f *fakeDelegate) Capabilities() reader.Capabilities        { return reader.Capabilities{SupportsLimit: true} }
func (f *fakeDelegate) SetFilter(c []sqlast.Condition)           {}
func (f *fakeDelegate) SetColumns(c []string)                    {}
func (f *fakeDelegate) SetLimit(n int)                           {}
func (f *fakeDelegate) SetPartitionFilters(c []sqlast.Condition) {}
func (f *fakeDelegate) ToDataFrame() (reader.DataFrame, bool)    { return nil, false }

func fakeFactory(calls *[]string) DelegateFactory {
	return func(localPath string, format fragment.Format, selector string) (reader.Reader, error) {
		*calls = append(*calls, localPath)
		return &fakeDelegate{localPath: localPath}, nil
	}
}

func TestEnsureCachedDownloadsAndReusesCacheFile(t *testing.T) {
	require := require.New(t)

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("id,age\n1,30\n"))
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	var calls []string
	r := New(srv.URL+"/data.csv", fragment.CSV, "", cacheDir, fakeFactory(&calls))

	_, err := r.GetSchema()
	require.NoError(err)
	require.Equal(1, hits)

	// A second reader over the same URL must hit the cache, not the server.
	var calls2 []string
	r2 := New(srv.URL+"/data.csv", fragment.CSV, "", cacheDir, fakeFactory(&calls2))
	_, err = r2.GetSchema()
	require.NoError(err)
	require.Equal(1, hits)
}

func TestEnsureCachedForceDownloadBypassesCache(t *testing.T) {
	require := require.New(t)

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("id\n1\n"))
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	var calls []string
	r := New(srv.URL+"/data.csv", fragment.CSV, "", cacheDir, fakeFactory(&calls), WithForceDownload(true))
	_, err := r.GetSchema()
	require.NoError(err)
	require.Equal(1, hits)

	r2 := New(srv.URL+"/data.csv", fragment.CSV, "", cacheDir, fakeFactory(&calls), WithForceDownload(true))
	_, err = r2.GetSchema()
	require.NoError(err)
	require.Equal(2, hits)
}

func TestEnsureCachedNonOKStatusErrors(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	var calls []string
	r := New(srv.URL+"/missing.csv", fragment.CSV, "", cacheDir, fakeFactory(&calls))
	_, err := r.GetSchema()
	require.Error(err)
}

func TestCachePathIsStableMD5KeyedWithExtension(t *testing.T) {
	require := require.New(t)

	cacheDir := t.TempDir()
	r := New("https://example.com/data.csv", fragment.CSV, "", cacheDir, nil)
	p1 := r.cachePath()
	p2 := r.cachePath()
	require.Equal(p1, p2)
	require.Equal(".csv", filepath.Ext(p1))
}

func TestCapabilitiesDelegatesAfterDownload(t *testing.T) {
	require := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("id\n1\n"))
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	var calls []string
	r := New(srv.URL+"/data.csv", fragment.CSV, "", cacheDir, fakeFactory(&calls))
	caps := r.Capabilities()
	require.True(caps.SupportsLimit)
}
