package votes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	var hits atomic.Int32
	upstream := newFixtureServer(t, &hits)
	dir := t.TempDir()

	fetcher := NewFetcher(dir, WithDatasetURL(upstream.URL), WithRateLimit(1000))
	fetcher.now = func() time.Time { return time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC) }

	pdfUpstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "botschaft") {
			w.Write([]byte("%PDF-1.4 fixture"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(pdfUpstream.Close)

	pdfs := NewPDFCache(dir, WithPDFBaseURL(pdfUpstream.URL))

	api := httptest.NewServer(NewServer(fetcher, pdfs).Router())
	t.Cleanup(api.Close)
	return api
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestServer_Health(t *testing.T) {
	api := newTestServer(t)

	var body map[string]string
	resp := getJSON(t, api.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestServer_Upcoming(t *testing.T) {
	api := newTestServer(t)

	var votes []voteResponse
	resp := getJSON(t, api.URL+"/votes/upcoming", &votes)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, votes, 2)
	assert.Equal(t, "682", votes[0].ID)
	assert.Equal(t, "Umweltverantwortungsinitiative", votes[0].Title)
}

func TestServer_UpcomingFrenchTitles(t *testing.T) {
	api := newTestServer(t)

	var votes []voteResponse
	getJSON(t, api.URL+"/votes/upcoming?lang=fr", &votes)
	require.NotEmpty(t, votes)
	assert.Equal(t, "Initiative pour la responsabilité environnementale", votes[0].Title)
}

func TestServer_Search(t *testing.T) {
	api := newTestServer(t)

	var votes []voteResponse
	resp := getJSON(t, api.URL+"/votes/search?q=umwelt", &votes)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, votes, 2)

	resp = getJSON(t, api.URL+"/votes/search?q=umwelt&historical=false", &votes)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, votes, 1)

	resp = getJSON(t, api.URL+"/votes/search", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_ByID(t *testing.T) {
	api := newTestServer(t)

	var vote voteResponse
	resp := getJSON(t, api.URL+"/votes/677", &vote)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "677.00", vote.ANR)
	assert.Equal(t, "CO2-Gesetz", vote.Title)

	resp = getJSON(t, api.URL+"/votes/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Document(t *testing.T) {
	api := newTestServer(t)

	resp, err := http.Get(api.URL + "/votes/677/documents/botschaft")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	// Unavailable document kind on the upstream.
	resp2, err := http.Get(api.URL + "/votes/677/documents/vorpruefung")
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)

	// Unknown kind is rejected before any network call.
	resp3, err := http.Get(api.URL + "/votes/677/documents/unknown")
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp3.StatusCode)
}

func TestServer_CORSHeaders(t *testing.T) {
	api := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, api.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://study.example.org")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
