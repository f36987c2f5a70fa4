package http

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewServer(t *testing.T) {
	server := NewServer(nil, "localhost", 8080, testLogger())

	assert.NotNil(t, server)
	assert.NotNil(t, server.GetHandler())
}

func TestServer_HealthHandler(t *testing.T) {
	server := NewServer(nil, "localhost", 8080, testLogger())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	server.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestServer_ReadinessHandler_NoDatabase(t *testing.T) {
	server := NewServer(nil, "localhost", 8080, testLogger())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	server.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"not_ready","components":{"database":"error"}}`, w.Body.String())
}

func TestServer_RequestIDHeader(t *testing.T) {
	server := NewServer(nil, "localhost", 8080, testLogger())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	server.GetHandler().ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestServer_UnknownRoute(t *testing.T) {
	server := NewServer(nil, "localhost", 8080, testLogger())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	server.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_SkipsNilMiddleware(t *testing.T) {
	// CORSMiddleware returns nil when disabled; NewServer must tolerate it.
	server := NewServer(nil, "localhost", 8080, testLogger(), CORSMiddleware(false, "", testLogger()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	server.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
