package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/mindsage/analyzer/cmd/gateway/internal/handlers"
)

func TestCORSMiddleware(t *testing.T) {
	called := false
	h := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	}), "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/analyze", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, called)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	h = corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	}), "https://app.example.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/analyze", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.True(t, called)
	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterMoodAliases(t *testing.T) {
	logger := zaptest.NewLogger(t)
	mux := newRouter(
		handlers.NewJournalHandler(nil, nil, logger),
		handlers.NewMoodHandler(nil, logger),
		handlers.NewHealthHandler(nil, logger),
		func(h http.HandlerFunc) http.Handler { return h },
		func(h http.Handler) http.Handler { return h },
	)

	tests := []struct {
		method string
		path   string
		code   int
	}{
		// An empty body fails validation inside AddMood, so a 400 proves the route.
		{http.MethodPost, "/add-mood", http.StatusBadRequest},
		{http.MethodPost, "/api/add-mood-entry", http.StatusBadRequest},
		{http.MethodGet, "/add-mood", http.StatusMethodNotAllowed},
		{http.MethodPost, "/add-moods", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{}`)))
			assert.Equal(t, tt.code, rr.Code)
		})
	}
}
