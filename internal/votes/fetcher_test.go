package votes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixtureServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(datasetFixture))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetcher_DownloadAndCache(t *testing.T) {
	var hits atomic.Int32
	srv := newFixtureServer(t, &hits)
	dir := t.TempDir()

	f := NewFetcher(dir, WithDatasetURL(srv.URL), WithRateLimit(1000))

	ds, err := f.Fetch(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, ds.Votes, 3)
	assert.Equal(t, int32(1), hits.Load())

	// Second fetch answers from the fresh cache.
	ds, err = f.Fetch(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, ds.Votes, 3)
	assert.Equal(t, int32(1), hits.Load())

	_, err = os.Stat(f.cachePath())
	assert.NoError(t, err)
	_, err = os.Stat(f.metaPath())
	assert.NoError(t, err)
}

func TestFetcher_ForceRefresh(t *testing.T) {
	var hits atomic.Int32
	srv := newFixtureServer(t, &hits)

	f := NewFetcher(t.TempDir(), WithDatasetURL(srv.URL), WithRateLimit(1000))

	_, err := f.Fetch(context.Background(), false)
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetcher_RefreshesExpiredCache(t *testing.T) {
	var hits atomic.Int32
	srv := newFixtureServer(t, &hits)

	f := NewFetcher(t.TempDir(), WithDatasetURL(srv.URL), WithRateLimit(1000), WithMaxAge(time.Hour))
	_, err := f.Fetch(context.Background(), false)
	require.NoError(t, err)

	// Move the clock past the cache age.
	f.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = f.Fetch(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetcher_StaleFallback(t *testing.T) {
	var hits atomic.Int32
	srv := newFixtureServer(t, &hits)

	f := NewFetcher(t.TempDir(), WithDatasetURL(srv.URL), WithRateLimit(1000))
	_, err := f.Fetch(context.Background(), false)
	require.NoError(t, err)

	// Upstream goes away; an expired cache still serves.
	srv.Close()
	f.now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }

	ds, err := f.Fetch(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, ds.Votes, 3)
}

func TestFetcher_ErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(t.TempDir(), WithDatasetURL(srv.URL), WithRateLimit(1000))
	_, err := f.Fetch(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
