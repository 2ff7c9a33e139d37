package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/ai-declaration-api/internal/handler"
	"github.com/noah-isme/ai-declaration-api/internal/service"
	"github.com/noah-isme/ai-declaration-api/internal/web"
	"github.com/noah-isme/ai-declaration-api/pkg/config"
	"github.com/noah-isme/ai-declaration-api/pkg/storage"
)

func testRouter(t *testing.T, env string) http.Handler {
	t.Helper()
	cfg := &config.Config{
		Env:       env,
		APIPrefix: "/api",
		Uploads:   config.UploadConfig{PublicPath: "/uploads", MaxFileSizeBytes: 5 << 20},
	}
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	metrics := service.NewMetricsService()
	r, err := newRouter(cfg, zap.NewNop(), routerDeps{
		declarations: handler.NewDeclarationHandler(nil, nil),
		uploads:      handler.NewUploadHandler(store),
		metrics:      handler.NewMetricsHandler(metrics, nil),
		pages:        web.NewPages(nil, nil, web.Options{}),
		metricsSvc:   metrics,
	})
	require.NoError(t, err)
	return r
}

func TestRouterHealth(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter(t, config.EnvDevelopment).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"Server is running"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouterUnknownRoute(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter(t, config.EnvDevelopment).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Route not found"}`, w.Body.String())
}

func TestRouterDocsHiddenInProduction(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter(t, config.EnvDevelopment).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/doc.json", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	testRouter(t, config.EnvProduction).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/doc.json", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterMetricsEndpoint(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter(t, config.EnvDevelopment).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "goroutines_total")
}
