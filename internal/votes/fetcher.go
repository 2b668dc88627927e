package votes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultDatasetURL = "https://swissvotes.ch/page/dataset/swissvotes_dataset.csv"

// Fetcher downloads the swissvotes dataset with a disk cache. The cache is
// refreshed once it exceeds MaxAge; a failed refresh falls back to the
// stale copy.
type Fetcher struct {
	url        string
	dataDir    string
	maxAge     time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithDatasetURL overrides the dataset download URL.
func WithDatasetURL(url string) FetcherOption {
	return func(f *Fetcher) { f.url = url }
}

// WithMaxAge sets the cache refresh age.
func WithMaxAge(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.maxAge = d }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) FetcherOption {
	return func(f *Fetcher) { f.httpClient = hc }
}

// WithRateLimit sets the requests-per-second limit for swissvotes.ch.
func WithRateLimit(rps float64) FetcherOption {
	return func(f *Fetcher) { f.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// NewFetcher creates a Fetcher caching under dataDir. The default refresh
// age is seven days; swissvotes.ch is polled at most once per second.
func NewFetcher(dataDir string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		url:        defaultDatasetURL,
		dataDir:    dataDir,
		maxAge:     7 * 24 * time.Hour,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) cachePath() string { return filepath.Join(f.dataDir, "swissvotes_cache.csv") }
func (f *Fetcher) metaPath() string  { return filepath.Join(f.dataDir, "swissvotes_cache_meta.json") }

type cacheMeta struct {
	CachedAt time.Time `json:"cached_at"`
}

// cacheAge returns the cache age, or false if no valid cache exists.
func (f *Fetcher) cacheAge() (time.Duration, bool) {
	data, err := os.ReadFile(f.metaPath())
	if err != nil {
		return 0, false
	}
	var meta cacheMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return 0, false
	}
	if _, err := os.Stat(f.cachePath()); err != nil {
		return 0, false
	}
	return f.now().Sub(meta.CachedAt), true
}

// Fetch returns the parsed dataset, refreshing the cache when it is older
// than the configured age. forceRefresh bypasses the cache check.
func (f *Fetcher) Fetch(ctx context.Context, forceRefresh bool) (*Dataset, error) {
	log := zap.L().With(zap.String("component", "votes"))

	if age, ok := f.cacheAge(); ok && !forceRefresh && age < f.maxAge {
		raw, err := os.ReadFile(f.cachePath())
		if err == nil {
			log.Debug("votes: using cached dataset", zap.Duration("age", age))
			return ParseDataset(raw)
		}
		log.Warn("votes: cache read failed, refreshing", zap.Error(err))
	}

	raw, err := f.download(ctx)
	if err != nil {
		// Stale fallback keeps the service answering through upstream
		// outages.
		if stale, rerr := os.ReadFile(f.cachePath()); rerr == nil {
			log.Warn("votes: refresh failed, serving stale cache", zap.Error(err))
			return ParseDataset(stale)
		}
		return nil, err
	}

	if err := f.writeCache(raw); err != nil {
		log.Warn("votes: cache write failed", zap.Error(err))
	}
	return ParseDataset(raw)
}

func (f *Fetcher) download(ctx context.Context) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "votes: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "votes: build request")
	}

	zap.L().Info("votes: fetching dataset", zap.String("url", f.url))
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "votes: fetch dataset")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.New(fmt.Sprintf("votes: fetch dataset: status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "votes: read dataset body")
	}
	return raw, nil
}

func (f *Fetcher) writeCache(raw []byte) error {
	if err := os.MkdirAll(f.dataDir, 0o755); err != nil {
		return eris.Wrap(err, "votes: create data dir")
	}
	if err := os.WriteFile(f.cachePath(), raw, 0o644); err != nil {
		return eris.Wrap(err, "votes: write cache")
	}
	meta, err := json.Marshal(cacheMeta{CachedAt: f.now()})
	if err != nil {
		return eris.Wrap(err, "votes: marshal cache meta")
	}
	return eris.Wrap(os.WriteFile(f.metaPath(), meta, 0o644), "votes: write cache meta")
}
