package votes

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DocumentKinds lists the official documents published per vote.
var DocumentKinds = map[string]string{
	"abstimmungstext": "Abstimmungstext (Gesetzestext)",
	"botschaft":       "Botschaft des Bundesrats",
	"vorpruefung":     "Vorprüfung",
	"zustandekommen":  "Zustandekommen",
}

// documentLanguages lists the languages the documents are published in.
var documentLanguages = map[string]bool{"de": true, "fr": true}

// PDFCache downloads vote documents from swissvotes.ch and keeps them on
// disk, keyed by vote number, document kind, and language.
type PDFCache struct {
	baseURL    string
	dir        string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// PDFOption configures a PDFCache.
type PDFOption func(*PDFCache)

// WithPDFBaseURL overrides the document host.
func WithPDFBaseURL(url string) PDFOption {
	return func(c *PDFCache) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithPDFHTTPClient sets a custom HTTP client.
func WithPDFHTTPClient(hc *http.Client) PDFOption {
	return func(c *PDFCache) { c.httpClient = hc }
}

// NewPDFCache creates a document cache under dir.
func NewPDFCache(dir string, opts ...PDFOption) *PDFCache {
	c := &PDFCache{
		baseURL:    "https://swissvotes.ch",
		dir:        dir,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ErrDocumentNotFound reports a document kind the proposal does not have.
var ErrDocumentNotFound = eris.New("votes: document not found")

func (c *PDFCache) cachePath(anr, kind, lang string) string {
	safe := strings.ReplaceAll(anr, ".", "_")
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s_%s.pdf", safe, kind, lang))
}

// Document returns the PDF bytes for a vote document, downloading and
// caching on first access. Unknown kinds and languages are rejected before
// any network call.
func (c *PDFCache) Document(ctx context.Context, anr, kind, lang string) ([]byte, error) {
	if _, ok := DocumentKinds[kind]; !ok {
		return nil, eris.Errorf("votes: unknown document kind %q", kind)
	}
	if !documentLanguages[lang] {
		return nil, eris.Errorf("votes: unsupported document language %q", lang)
	}

	path := c.cachePath(anr, kind, lang)
	if data, err := os.ReadFile(path); err == nil {
		return data, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "votes: rate limit wait")
	}

	url := fmt.Sprintf("%s/vote/%s/%s-%s.pdf", c.baseURL, anr, kind, lang)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "votes: build document request")
	}

	zap.L().Info("votes: downloading document",
		zap.String("anr", anr), zap.String("kind", kind), zap.String("lang", lang))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "votes: fetch document")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrDocumentNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("votes: fetch document: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "votes: read document body")
	}
	// Swissvotes answers some missing documents with an HTML page.
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return nil, ErrDocumentNotFound
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "votes: create pdf cache dir")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, eris.Wrap(err, "votes: write pdf cache")
	}
	return data, nil
}
