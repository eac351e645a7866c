package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-news-client/internal/cache/tiered"
	"go-news-client/internal/config"
	"go-news-client/internal/coordinator"
	"go-news-client/internal/models"
	"go-news-client/internal/netquality"
	"go-news-client/internal/news"
	"go-news-client/internal/normalize"
	"go-news-client/internal/storage/noop"
)

const upstreamPosts = `[
  {
    "id": 301,
    "date": "2024-06-10T12:00:00",
    "slug": "hello",
    "link": "https://news.example.com/hello",
    "title": {"rendered": "Hello"},
    "content": {"rendered": "<p>Body.</p>"},
    "excerpt": {"rendered": "<p>Body.</p>"},
    "categories": []
  }
]`

func newTestServer(t *testing.T) *Server {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-WP-TotalPages", "1")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(upstreamPosts))
	}))
	t.Cleanup(upstream.Close)

	cfg := config.Default()
	cfg.API.BaseURL = upstream.URL

	logger := zap.NewNop()
	cache := tiered.New(tiered.Caps{}, time.Minute, noop.New(), logger)
	estimator := netquality.New(logger)
	service := news.New(cfg, coordinator.New(estimator, logger), cache,
		normalize.New(cache, logger), estimator, logger)

	return NewServer(service, logger)
}

func doRequest(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.createRouter().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	rec := doRequest(t, newTestServer(t), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestHandleLatest(t *testing.T) {
	rec := doRequest(t, newTestServer(t), "/news/latest")

	assert.Equal(t, http.StatusOK, rec.Code)

	var page models.PostPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Posts, 1)
	assert.Equal(t, 301, page.Posts[0].ID)
	assert.Equal(t, 1, page.TotalPages)
}

func TestHandleLatest_InvalidPage(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/news/latest?page=0", "/news/latest?page=abc", "/news/latest?page=-2"} {
		rec := doRequest(t, s, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, false, body["success"])
	}
}

func TestHandleFeatured(t *testing.T) {
	rec := doRequest(t, newTestServer(t), "/news/featured")

	assert.Equal(t, http.StatusOK, rec.Code)

	var posts []models.NormalizedPost
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "Top Stories", posts[0].Source)
}

func TestHandleCategory(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, "/news/category/1")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Non-numeric ids never reach the handler.
	rec = doRequest(t, s, "/news/category/abc")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleSearch_ShortQuery(t *testing.T) {
	rec := doRequest(t, newTestServer(t), "/news/search?q=ab")

	assert.Equal(t, http.StatusOK, rec.Code)

	var page models.PostPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Empty(t, page.Posts)
	assert.Equal(t, 0, page.TotalPages)
}

func TestHandleDiagnostics(t *testing.T) {
	s := newTestServer(t)

	doRequest(t, s, "/news/latest")
	rec := doRequest(t, s, "/diagnostics")

	assert.Equal(t, http.StatusOK, rec.Code)

	var snap news.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.Requests)
	assert.NotEmpty(t, snap.ConnectionQuality)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := doRequest(t, newTestServer(t), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
