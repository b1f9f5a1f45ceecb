// Package testutil provides testing utilities for the Canvas client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCanvas is a configurable mock Canvas server for testing.
type MockCanvas struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	queries           map[string][]url.Values
}

// NewMockCanvas creates a new mock Canvas server.
func NewMockCanvas() *MockCanvas {
	mock := &MockCanvas{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		queries:  make(map[string][]url.Values),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.queries[r.URL.Path] = append(mock.queries[r.URL.Path], r.URL.Query())
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors":[{"message":"The specified resource does not exist."}]}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCanvas) URL() string {
	return m.server.URL
}

// Client returns an HTTP client wired to the mock server.
func (m *MockCanvas) Client() *http.Client {
	return m.server.Client()
}

// Close shuts down the mock server.
func (m *MockCanvas) Close() {
	m.server.Close()
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCanvas) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockCanvas) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetJSON serves v as a single 200 page.
func (m *MockCanvas) SetJSON(path string, v any) {
	m.SetPages(path, v)
}

// SetPages serves each argument as one page of a paginated listing. Page n
// links to page n+1 with a Link header; the last page carries no next link.
// Pages are selected by the "page" query parameter (default 1).
func (m *MockCanvas) SetPages(path string, pages ...any) {
	bodies := make([][]byte, len(pages))
	for i, page := range pages {
		data, err := json.Marshal(page)
		if err != nil {
			panic(fmt.Sprintf("marshal page %d: %v", i+1, err))
		}
		bodies[i] = data
	}

	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
			page = p
		}
		if page > len(bodies) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte("[]"))
			return
		}

		links := fmt.Sprintf(`<%s%s?page=1&per_page=100>; rel="first"`, m.server.URL, path)
		if page < len(bodies) {
			links = fmt.Sprintf(`<%s%s?page=%d&per_page=100>; rel="next", `, m.server.URL, path, page+1) + links
		}
		w.Header().Set("Link", links)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(bodies[page-1])
	})
}

// SetStatus serves a fixed error status for a path.
func (m *MockCanvas) SetStatus(path string, status int, body string) {
	m.SetResponse(path, MockResponse{
		StatusCode: status,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "application/json"},
	})
}

// SetSelf configures the /users/self identity probe.
func (m *MockCanvas) SetSelf(id int64, name string) {
	m.SetResponse("/api/v1/users/self", MockResponse{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf(`{"id": %d, "name": %q}`, id, name),
		Headers:    map[string]string{"Content-Type": "application/json"},
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCanvas) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockCanvas) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

// Queries returns the query parameters seen for path, in request order.
func (m *MockCanvas) Queries(path string) []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]url.Values, len(m.queries[path]))
	copy(out, m.queries[path])
	return out
}

// CoursePath returns the API path for a course sub-resource.
func CoursePath(courseID int64, resource string) string {
	return fmt.Sprintf("/api/v1/courses/%d/%s", courseID, resource)
}
