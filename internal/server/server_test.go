package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/carmemo/internal/handlers"
	"github.com/ukydev/carmemo/internal/maintenance"
	"github.com/zoobzio/clockz"
)

func newTestServer(rateLimit int) *Server {
	mapper := maintenance.NewCategoryMapper(false)
	resolver := maintenance.NewScheduleResolver(nil, nil)
	return New(Deps{
		Categories:      handlers.NewCategoryHandler(mapper),
		Lookup:          handlers.NewLookupHandler(nil, nil),
		Notifications:   handlers.NewNotificationHandler(nil, "BPubKey"),
		Metrics:         resolver.Metrics(),
		CORSOrigins:     []string{"http://localhost:4200"},
		RateLimit:       rateLimit,
		RateLimitWindow: time.Minute,
		Clock:           clockz.NewFakeClock(),
	})
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(0)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("Content-Type"))
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(0)

	tests := []struct {
		method   string
		path     string
		body     string
		expected int
	}{
		{"GET", "/api/categories", "", http.StatusOK},
		{"POST", "/api/categories/map", `{"category":"oil"}`, http.StatusOK},
		{"GET", "/api/notifications/public-key", "", http.StatusOK},
		{"GET", "/api/vin/1HGCM82633A004352", "", http.StatusServiceUnavailable},
		{"GET", "/api/recalls?make=Kia", "", http.StatusServiceUnavailable},
		{"GET", "/api/metrics", "", http.StatusOK},
		// vehicle routes are not mounted without a handler
		{"GET", "/api/vehicles", "", http.StatusNotFound},
		{"DELETE", "/api/categories", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body)))
			assert.Equal(t, tt.expected, w.Code)
		})
	}
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(0)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/api/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]float64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Contains(t, got, "resolver.fallbacks.total")
	assert.Len(t, got, 4)
}

func TestServer_CORSPreflight(t *testing.T) {
	srv := newTestServer(0)
	req := httptest.NewRequest("OPTIONS", "/api/categories", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:4200", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_RateLimit(t *testing.T) {
	srv := newTestServer(2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/api/categories", nil)
		req.RemoteAddr = "10.0.0.7:5000"
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// health is outside the limited group
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	req.RemoteAddr = "10.0.0.7:5000"
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
