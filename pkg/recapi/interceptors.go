package recapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fivetwenty-io/recapi/internal/constants"
)

// Request represents an HTTP request that can be intercepted.
type Request struct {
	Method   string
	Path     string
	Headers  http.Header
	Body     []byte
	Metadata map[string]interface{}
}

// Response represents an HTTP response that can be intercepted.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	// Envelope is set by EnvelopeInterceptor when the body is an envelope.
	Envelope *Envelope
	Error    error
}

// RequestInterceptor is called before a request is sent.
type RequestInterceptor func(ctx context.Context, req *Request) error

// ResponseInterceptor is called after a response is received. On transport
// failures resp carries only Error.
type ResponseInterceptor func(ctx context.Context, req *Request, resp *Response) error

// InterceptorChain manages a chain of interceptors. The chain is assembled
// before the client is used and is read-only afterwards.
type InterceptorChain struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewInterceptorChain creates a new interceptor chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{
		requestInterceptors:  make([]RequestInterceptor, 0),
		responseInterceptors: make([]ResponseInterceptor, 0),
	}
}

// AddRequestInterceptor adds a request interceptor to the chain.
func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) {
	c.requestInterceptors = append(c.requestInterceptors, interceptor)
}

// AddResponseInterceptor adds a response interceptor to the chain.
func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) {
	c.responseInterceptors = append(c.responseInterceptors, interceptor)
}

// ExecuteRequestInterceptors runs all request interceptors.
func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, req *Request) error {
	for _, interceptor := range c.requestInterceptors {
		err := interceptor(ctx, req)
		if err != nil {
			return fmt.Errorf("request interceptor failed: %w", err)
		}
	}

	return nil
}

// ExecuteResponseInterceptors runs all response interceptors.
func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, req *Request, resp *Response) error {
	for _, interceptor := range c.responseInterceptors {
		err := interceptor(ctx, req, resp)
		if err != nil {
			return fmt.Errorf("response interceptor failed: %w", err)
		}
	}

	return nil
}

// Common Interceptors

// LoggingInterceptor logs requests.
func LoggingInterceptor(logger Logger) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		logger.Debug("API Request", map[string]interface{}{
			"method": req.Method,
			"path":   req.Path,
		})

		return nil
	}
}

// LoggingResponseInterceptor logs responses.
func LoggingResponseInterceptor(logger Logger) ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		fields := map[string]interface{}{
			"method":      req.Method,
			"path":        req.Path,
			"status_code": resp.StatusCode,
		}

		if started, ok := req.Metadata["start_time"].(time.Time); ok {
			fields["duration_ms"] = time.Since(started).Milliseconds()
		}

		switch {
		case resp.Error != nil:
			fields["error"] = resp.Error.Error()
			logger.Error("API Response Error", fields)
		case resp.StatusCode >= http.StatusBadRequest:
			logger.Warn("API Response", fields)
		default:
			logger.Debug("API Response", fields)
		}

		return nil
	}
}

// AuthenticationInterceptor attaches the stored bearer token. Requests go out
// unauthenticated while the store is empty.
func AuthenticationInterceptor(store CredentialStore) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		token, ok := store.Token()
		if !ok {
			req.Headers.Del(constants.HeaderAuthorization)

			return nil
		}

		req.Headers.Set(constants.HeaderAuthorization, "Bearer "+token)

		return nil
	}
}

// UnauthorizedInterceptor clears the store when the server answers 401, so
// later calls go out without the rejected token.
func UnauthorizedInterceptor(store CredentialStore, logger Logger) ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		if resp.StatusCode != http.StatusUnauthorized {
			return nil
		}

		if _, ok := store.Token(); !ok {
			return nil
		}

		err := store.Clear()
		if err != nil {
			logger.Warn("failed to clear credentials after 401", map[string]interface{}{
				"path":  req.Path,
				"error": err.Error(),
			})

			return nil
		}

		logger.Info("credentials cleared after 401", map[string]interface{}{
			"path": req.Path,
		})

		return nil
	}
}

// EnvelopeInterceptor decodes response bodies into resp.Envelope. Bodies that
// are not envelopes leave it nil.
func EnvelopeInterceptor() ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		if resp.Error != nil || len(resp.Body) == 0 {
			return nil
		}

		env, err := ParseEnvelope(resp.Body)
		if err != nil {
			resp.Envelope = nil

			return nil
		}

		resp.Envelope = env

		return nil
	}
}

// HeaderInterceptor adds custom headers to requests.
func HeaderInterceptor(headers map[string]string) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		for key, value := range headers {
			req.Headers.Set(key, value)
		}

		return nil
	}
}

// MetricsRequestInterceptor records request start time.
func MetricsRequestInterceptor() RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		req.Metadata["start_time"] = time.Now()

		return nil
	}
}

// MetricsResponseInterceptor records completed exchanges on collector.
func MetricsResponseInterceptor(collector *MetricsCollector) ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		if resp.Error != nil {
			return nil
		}

		var latency time.Duration
		if started, ok := req.Metadata["start_time"].(time.Time); ok {
			latency = time.Since(started)
		}

		collector.RecordRequest(req.Method, resp.StatusCode, latency)

		return nil
	}
}
