package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recapihttp "github.com/fivetwenty-io/recapi/internal/http"
	"github.com/fivetwenty-io/recapi/pkg/recapi"
)

// MockLogger for testing.
type MockLogger struct {
	mu   sync.Mutex
	logs []map[string]interface{}
}

func (l *MockLogger) add(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logs = append(l.logs, map[string]interface{}{"level": level, "msg": msg, "fields": fields})
}

func (l *MockLogger) Debug(msg string, fields map[string]interface{}) { l.add("debug", msg, fields) }
func (l *MockLogger) Info(msg string, fields map[string]interface{})  { l.add("info", msg, fields) }
func (l *MockLogger) Warn(msg string, fields map[string]interface{})  { l.add("warn", msg, fields) }
func (l *MockLogger) Error(msg string, fields map[string]interface{}) { l.add("error", msg, fields) }

func (l *MockLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	msgs := make([]string, 0, len(l.logs))
	for _, entry := range l.logs {
		msgs = append(msgs, entry["msg"].(string))
	}

	return msgs
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"success":   true,
		"timestamp": "2026-01-01T00:00:00Z",
		"data":      data,
	}
}

func get(ctx context.Context, client *recapihttp.Client, path string, query url.Values) (*recapihttp.Response, error) {
	return client.Do(ctx, &recapihttp.Request{Method: http.MethodGet, Path: path, Query: query})
}

func newChain(store recapi.CredentialStore) *recapi.InterceptorChain {
	chain := recapi.NewInterceptorChain()
	chain.AddRequestInterceptor(recapi.AuthenticationInterceptor(store))
	chain.AddResponseInterceptor(recapi.EnvelopeInterceptor())

	return chain
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Do(t *testing.T) {
	t.Parallel()

	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/api/records/rec-1", request.URL.Path)
			assert.Equal(t, "GET", request.Method)
			assert.Equal(t, "Bearer test-token", request.Header.Get("Authorization"))
			assert.Equal(t, "application/json", request.Header.Get("Accept"))
			assert.Equal(t, "recapi-client/1.0", request.Header.Get("User-Agent"))

			_ = json.NewEncoder(writer).Encode(envelope(map[string]string{"id": "rec-1"}))
		}))
		defer server.Close()

		client := recapihttp.NewClient(server.URL, recapihttp.WithInterceptors(newChain(recapi.NewMemoryCredentialStore("test-token"))))

		resp, err := client.Do(context.Background(), &recapihttp.Request{
			Method: "GET",
			Path:   "/api/records/rec-1",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotNil(t, resp.Envelope)
		assert.True(t, resp.Envelope.Success)
		assert.JSONEq(t, `{"id":"rec-1"}`, string(resp.Envelope.Data))
	})

	t.Run("request with JSON body and headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "POST", request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))
			assert.Equal(t, "key-1", request.Header.Get("Idempotency-Key"))

			var body map[string]string
			assert.NoError(t, json.NewDecoder(request.Body).Decode(&body))
			assert.Equal(t, "reindex", body["name"])

			writer.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(writer).Encode(envelope(map[string]string{"id": "job-1"}))
		}))
		defer server.Close()

		client := recapihttp.NewClient(server.URL)

		resp, err := client.Do(context.Background(), &recapihttp.Request{
			Method:  "POST",
			Path:    "/api/jobs",
			Body:    map[string]string{"name": "reindex"},
			Headers: map[string]string{"Idempotency-Key": "key-1"},
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Nil(t, resp.Envelope, "no envelope interceptor installed")
	})

	t.Run("raw body keeps content type", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "multipart/form-data; boundary=x", request.Header.Get("Content-Type"))

			data, _ := io.ReadAll(request.Body)
			assert.Equal(t, "raw-bytes", string(data))

			_ = json.NewEncoder(writer).Encode(envelope(nil))
		}))
		defer server.Close()

		client := recapihttp.NewClient(server.URL + "/")

		_, err := client.Do(context.Background(), &recapihttp.Request{
			Method:      http.MethodPost,
			Path:        "/api/imports",
			Body:        []byte("raw-bytes"),
			ContentType: "multipart/form-data; boundary=x",
		})
		require.NoError(t, err)
	})

	t.Run("error response", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			_, _ = writer.Write([]byte(`{"success":false,"message":"record not found"}`))
		}))
		defer server.Close()

		client := recapihttp.NewClient(server.URL, recapihttp.WithInterceptors(newChain(recapi.NewMemoryCredentialStore(""))))

		resp, err := get(context.Background(), client, "/api/records/missing", nil)
		require.Error(t, err)
		require.NotNil(t, resp)

		var httpErr *recapi.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusNotFound, httpErr.Status)
		assert.Equal(t, "record not found", httpErr.Message)
		assert.Equal(t, "GET", httpErr.Method)
		assert.Equal(t, "/api/records/missing", httpErr.Path)
	})

	t.Run("non-envelope error body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusBadGateway)
			_, _ = writer.Write([]byte(`<html>bad gateway</html>`))
		}))
		defer server.Close()

		client := recapihttp.NewClient(server.URL, recapihttp.WithInterceptors(newChain(recapi.NewMemoryCredentialStore(""))))

		_, err := get(context.Background(), client, "/api/health", nil)

		var httpErr *recapi.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, "<html>bad gateway</html>", httpErr.Message)
		assert.True(t, recapi.IsRetryable(err))
	})

	t.Run("query parameters", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "inv", request.URL.Query().Get("q"))
			assert.Equal(t, "10", request.URL.Query().Get("limit"))

			_ = json.NewEncoder(writer).Encode(envelope([]string{}))
		}))
		defer server.Close()

		client := recapihttp.NewClient(server.URL)

		_, err := get(context.Background(), client, "/api/records/search", url.Values{"q": {"inv"}, "limit": {"10"}})
		require.NoError(t, err)
	})
}

func TestClient_Methods(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		methods []string
	)

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		mu.Lock()
		methods = append(methods, request.Method)
		mu.Unlock()

		_ = json.NewEncoder(writer).Encode(envelope(nil))
	}))
	defer server.Close()

	client := recapihttp.NewClient(server.URL)
	ctx := context.Background()

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		_, err := client.Do(ctx, &recapihttp.Request{Method: method, Path: "/api/jobs/1", Body: map[string]string{"name": "a"}})
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"GET", "POST", "PUT", "PATCH", "DELETE"}, methods)
}

func TestClient_SingleAttempt(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		calls int
	)

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()

		writer.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := recapihttp.NewClient(server.URL)

	_, err := get(context.Background(), client, "/api/health", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, recapi.StatusCode(err))
	assert.Equal(t, 1, calls, "the transport never retries on its own")
}

func TestClient_TransportFailures(t *testing.T) {
	t.Parallel()

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			select {
			case <-release:
			case <-request.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		client := recapihttp.NewClient(server.URL, recapihttp.WithTimeout(20*time.Millisecond))

		_, err := get(context.Background(), client, "/api/health", nil)
		require.ErrorIs(t, err, recapi.ErrTimeout)

		var transportErr *recapi.TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, "/api/health", transportErr.Path)
	})

	t.Run("cancelled caller", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			select {
			case <-release:
			case <-request.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		client := recapihttp.NewClient(server.URL)

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)

		_, err := get(ctx, client, "/api/health", nil)
		require.ErrorIs(t, err, recapi.ErrCancelled)
	})

	t.Run("network", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		address := server.URL
		server.Close()

		logger := &MockLogger{}
		chain := recapi.NewInterceptorChain()
		chain.AddResponseInterceptor(recapi.LoggingResponseInterceptor(logger))

		client := recapihttp.NewClient(address, recapihttp.WithInterceptors(chain))

		_, err := get(context.Background(), client, "/api/health", nil)
		require.ErrorIs(t, err, recapi.ErrNetwork)
		assert.True(t, recapi.IsRetryable(err))
		assert.Contains(t, logger.messages(), "API Response Error", "interceptors see transport failures")
	})
}

func TestClient_Debug(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_ = json.NewEncoder(writer).Encode(envelope(nil))
	}))
	defer server.Close()

	logger := &MockLogger{}
	client := recapihttp.NewClient(server.URL,
		recapihttp.WithLogger(logger),
		recapihttp.WithDebug(true),
		recapihttp.WithUserAgent("records-cli/2.0"),
		recapihttp.WithHTTPClient(&http.Client{}),
	)

	_, err := get(context.Background(), client, "/api/health", nil)
	require.NoError(t, err)

	messages := logger.messages()
	assert.Contains(t, messages, "HTTP Request")
	assert.Contains(t, messages, "HTTP Response")
}

func TestClient_RequestInterceptorError(t *testing.T) {
	t.Parallel()

	chain := recapi.NewInterceptorChain()
	chain.AddRequestInterceptor(func(ctx context.Context, req *recapi.Request) error {
		return recapi.ErrClientClosed
	})

	client := recapihttp.NewClient("http://127.0.0.1:1", recapihttp.WithInterceptors(chain))

	_, err := get(context.Background(), client, "/api/health", nil)
	require.ErrorIs(t, err, recapi.ErrClientClosed)
	assert.True(t, recapi.IsValidation(err))
	assert.False(t, recapi.IsRetryable(err))
}

func TestClient_UnencodableBody(t *testing.T) {
	t.Parallel()

	client := recapihttp.NewClient("http://127.0.0.1:1")

	_, err := client.Do(context.Background(), &recapihttp.Request{
		Method: http.MethodPost,
		Path:   "/api/jobs",
		Body:   map[string]interface{}{"bad": make(chan int)},
	})
	require.Error(t, err)

	var validationErr *recapi.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.True(t, validationErr.Outgoing)
	assert.Equal(t, "body", validationErr.Violations[0].Field)

	kind, ok := recapi.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, recapi.KindValidation, kind)
}
