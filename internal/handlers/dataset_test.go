package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"parkinsight/internal/services"
	"parkinsight/pkg/cache"
	"parkinsight/pkg/cahcd"
	"parkinsight/pkg/config"
	"parkinsight/pkg/logger"
	"parkinsight/pkg/mhvillage"
	"parkinsight/pkg/rivco"
	"parkinsight/pkg/webclient"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.InitLogger(io.Discard, "ERROR")
	os.Exit(m.Run())
}

func newTestRouter(t *testing.T, upstream http.Handler) *gin.Engine {
	return newTestRouterWithStore(t, upstream, cache.NewMemoryStore())
}

func newTestRouterWithStore(t *testing.T, upstream http.Handler, store cache.Store) *gin.Engine {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("config error: %v", err)
	}
	web := webclient.NewClient()
	web.SetRetryWait(0)
	svc := services.NewDatasetService(
		cfg,
		store,
		cahcd.NewClient(srv.URL, web),
		rivco.NewClient(srv.URL, 2, web),
		mhvillage.NewClient(srv.URL, 2, 2, web),
	)
	h := NewDatasetHandler(svc)

	r := gin.New()
	r.GET("/api/datasets", h.ListDatasets)
	r.GET("/api/datasets/:name", h.GetDataset)
	r.POST("/api/datasets/:name/refresh", h.RefreshDataset)
	r.GET("/health", h.HealthCheck)
	return r
}

const parkEnvelope = `{"actions": [{"returnValue": {"returnValue": {"queryResults": [
	{"Park Name": "Sunset MHP", "Total_Number_Lots": "40"}
]}}}]}`

func TestListDatasets(t *testing.T) {
	router := newTestRouter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	var body struct {
		Datasets []string `json:"datasets"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(body.Datasets) != 3 {
		t.Fatalf("want 3 sources, got %v", body.Datasets)
	}
}

func TestGetDataset(t *testing.T) {
	router := newTestRouter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(parkEnvelope))
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/datasets/ca_hcd", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, `"cache_hit":false`) {
		t.Fatalf("first read must be a cache miss: %s", body)
	}
	if !strings.Contains(body, "Sunset MHP") {
		t.Fatalf("table rows missing: %s", body)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/datasets/ca_hcd", nil))
	if !strings.Contains(w.Body.String(), `"cache_hit":true`) {
		t.Fatalf("second read must hit the cache: %s", w.Body.String())
	}
}

func TestGetDatasetUnknown(t *testing.T) {
	router := newTestRouter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/datasets/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", w.Code)
	}
}

func TestGetDatasetBadLimit(t *testing.T) {
	router := newTestRouter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/datasets/ca_hcd?limit=abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", w.Code)
	}
}

func TestRefreshDataset(t *testing.T) {
	router := newTestRouter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(parkEnvelope))
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/datasets/ca_hcd/refresh", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"records":1`) {
		t.Fatalf("refresh must report the record count: %s", w.Body.String())
	}
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"cache":"ok"`) {
		t.Fatalf("health must report cache status: %s", w.Body.String())
	}
}

type downStore struct {
	cache.Store
}

func (downStore) Ping(ctx context.Context) error {
	return errors.New("connection refused")
}

func TestHealthCheckCacheDown(t *testing.T) {
	router := newTestRouterWithStore(t,
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
		downStore{cache.NewMemoryStore()},
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"cache":"unavailable"`) {
		t.Fatalf("health must report the cache outage: %s", w.Body.String())
	}
}
