package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/recapi/pkg/recapi"
)

// fakeServer is a records backend that counts requests per path and keeps
// the headers and query of every request.
type fakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	hits     map[string]int
	headers  []http.Header
	queries  []string
	handlers map[string]func(w http.ResponseWriter, r *http.Request, hit int)
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	s := &fakeServer{
		hits:     make(map[string]int),
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request, hit int)),
	}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		hit := s.hits[r.URL.Path]
		s.headers = append(s.headers, r.Header.Clone())
		s.queries = append(s.queries, r.URL.RawQuery)
		handler, ok := s.handlers[r.URL.Path]
		s.mu.Unlock()

		if !ok {
			writeError(w, http.StatusNotFound, "not found")

			return
		}

		handler(w, r, hit)
	}))
	t.Cleanup(s.Close)

	return s
}

// handle registers fn for path. hit is the 1-based count of requests to path.
func (s *fakeServer) handle(path string, fn func(w http.ResponseWriter, r *http.Request, hit int)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[path] = fn
}

func (s *fakeServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hits[path]
}

func (s *fakeServer) Headers() []http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]http.Header(nil), s.headers...)
}

func (s *fakeServer) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.queries...)
}

// newTestClient builds a client against server with fast retries and no
// background sweeper.
func newTestClient(t *testing.T, serverURL string, mutate ...func(cfg *recapi.Config)) *Client {
	t.Helper()

	cfg := recapi.DefaultConfig()
	cfg.BaseAddress = serverURL
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = 5 * time.Millisecond
	cfg.CacheSweepInterval = 0

	for _, fn := range mutate {
		fn(cfg)
	}

	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

// memoryCache returns the client's cache with a settable clock.
func memoryCache(t *testing.T, c *Client) *recapi.MemoryCache {
	t.Helper()

	cache, ok := c.engine.cache.(*recapi.MemoryCache)
	require.True(t, ok, "client cache is %T", c.engine.cache)

	return cache
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeEnvelope(w, status, map[string]interface{}{
		"success":   true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"data":      data,
	})
}

func writePage(w http.ResponseWriter, items interface{}, pagination recapi.Pagination) {
	writeEnvelope(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"data":       items,
		"pagination": pagination,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

func writeEnvelope(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func recordJSON(id, title string, status recapi.RecordStatus) map[string]interface{} {
	return map[string]interface{}{
		"id":        id,
		"title":     title,
		"status":    status,
		"createdAt": "2026-01-01T00:00:00Z",
		"updatedAt": "2026-01-02T00:00:00Z",
	}
}

func jobJSON(id string, state recapi.JobState, errs ...string) map[string]interface{} {
	return map[string]interface{}{
		"id":        id,
		"name":      "reindex",
		"state":     state,
		"progress":  0,
		"errors":    errs,
		"createdAt": "2026-01-01T00:00:00Z",
	}
}

// recordingSink keeps every published call event.
type recordingSink struct {
	mu     sync.Mutex
	events []recapi.CallEvent
	closed bool
}

func (s *recordingSink) Publish(_ context.Context, event recapi.CallEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)

	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

func (s *recordingSink) Events() []recapi.CallEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]recapi.CallEvent(nil), s.events...)
}

func (s *recordingSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// last returns the most recent event for operation.
func (s *recordingSink) last(t *testing.T, operation string) recapi.CallEvent {
	t.Helper()

	events := s.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Operation == operation {
			return events[i]
		}
	}

	require.Failf(t, "no event", "operation %s was never settled", operation)

	return recapi.CallEvent{}
}
