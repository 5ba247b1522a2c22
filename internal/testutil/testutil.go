package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// RouteRecorder records request paths in arrival order.
type RouteRecorder struct {
	mu    sync.Mutex
	paths []string
}

// Record appends a request path.
func (r *RouteRecorder) Record(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

// Paths returns a copy of the recorded request paths.
func (r *RouteRecorder) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// NewJSONServer creates a test server that serves canned JSON documents by
// exact request path and records every request. Unrouted paths answer 404.
// The server is closed automatically when the test finishes.
func NewJSONServer(t *testing.T, routes map[string]any) (*httptest.Server, *RouteRecorder) {
	t.Helper()

	recorder := &RouteRecorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder.Record(r.URL.Path)

		doc, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		WriteJSON(w, doc)
	}))
	t.Cleanup(server.Close)

	return server, recorder
}

// NewChallengeServer creates a test server that answers every request with
// 401 and the given WWW-Authenticate header. An empty header value yields a
// plain 200 instead, modeling a resource that requires no authentication.
func NewChallengeServer(t *testing.T, wwwAuthenticate string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wwwAuthenticate == "" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("WWW-Authenticate", wwwAuthenticate)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	return server
}

// WriteJSON encodes v to the response writer with a JSON content type.
func WriteJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
