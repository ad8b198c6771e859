package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/vault-tracker/internal/config"
	"github.com/codyseavey/vault-tracker/internal/services"
)

func newTestRouter(t *testing.T, cfg config.ServerConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	lego := services.NewLegoService(nil, nil, nil)
	items := services.NewItemService(nil, lego, services.Credentials{})
	worker := services.NewPriceAlertWorker(nil, lego, services.Credentials{}, time.Hour)
	images := services.NewImageStorageService(t.TempDir())
	snapshots := services.NewSnapshotService(nil, 23)

	return SetupRouter(cfg, lego, services.Credentials{}, items, worker, images, snapshots)
}

func serve(router *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAPIRequiresUserHeader(t *testing.T) {
	router := newTestRouter(t, config.ServerConfig{})

	w := serve(router, http.MethodGet, "/api/prices/status", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"missing X-User-ID header"}`, w.Body.String())

	w = serve(router, http.MethodGet, "/api/prices/status", map[string]string{"X-User-ID": "  "})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(router, http.MethodGet, "/api/prices/status", map[string]string{"X-User-ID": "user-1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t, config.ServerConfig{})

	w := serve(router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = serve(router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "vault_http_requests_total")
}

func TestCORSAllowsUserHeader(t *testing.T) {
	router := newTestRouter(t, config.ServerConfig{CORSOrigins: []string{"https://vault.example.com"}})

	w := serve(router, http.MethodOptions, "/api/collections", map[string]string{
		"Origin":                         "https://vault.example.com",
		"Access-Control-Request-Method":  "GET",
		"Access-Control-Request-Headers": "X-User-ID",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://vault.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestFrontendFallback(t *testing.T) {
	dist := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dist, "index.html"), []byte("<html>vault</html>"), 0644))
	router := newTestRouter(t, config.ServerConfig{FrontendDistPath: dist})

	w := serve(router, http.MethodGet, "/collections/abc", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "vault")

	w = serve(router, http.MethodGet, "/api/unknown", map[string]string{"X-User-ID": "user-1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
