// Package http is the single-attempt HTTP transport. Retries, caching and
// cancellation live above it; every call here is exactly one exchange.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/recapi/internal/constants"
	"github.com/fivetwenty-io/recapi/pkg/recapi"
)

// Request is one exchange.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	// Body is JSON encoded unless it is a []byte, which is sent as-is.
	Body        interface{}
	ContentType string
}

// Response is a completed exchange.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	// Envelope is the decoded body when it was an envelope.
	Envelope *recapi.Envelope
}

// Client performs exchanges against one base URL.
type Client struct {
	baseURL      string
	httpClient   *retryablehttp.Client
	interceptors *recapi.InterceptorChain
	logger       recapi.Logger
	timeout      time.Duration
	userAgent    string
	debug        bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger recapi.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDebug logs every exchange and routes go-retryablehttp's own logs to
// the logger.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithTimeout bounds every exchange.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithInterceptors installs an interceptor chain.
func WithInterceptors(chain *recapi.InterceptorChain) Option {
	return func(c *Client) {
		if chain != nil {
			c.interceptors = chain
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient.HTTPClient = httpClient
		}
	}
}

// NewClient creates a transport for baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.CheckRetry = func(context.Context, *http.Response, error) (bool, error) {
		return false, nil
	}
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil

	client := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   retryClient,
		interceptors: recapi.NewInterceptorChain(),
		logger:       recapi.NopLogger{},
		timeout:      constants.DefaultHTTPTimeout,
		userAgent:    constants.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.debug {
		retryClient.Logger = &leveledLogger{logger: client.logger}
	}

	return client
}

// Do performs one exchange. A non-2xx status returns the response together
// with a *recapi.HTTPError; a failed exchange returns a *recapi.TransportError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	body, contentType, err := encodeBody(req.Body, req.ContentType)
	if err != nil {
		return nil, recapi.NewRequestError("body", err)
	}

	interceptReq := &recapi.Request{
		Method:   req.Method,
		Path:     req.Path,
		Headers:  make(http.Header),
		Body:     body,
		Metadata: make(map[string]interface{}),
	}

	interceptReq.Headers.Set(constants.HeaderAccept, constants.ContentTypeJSON)
	interceptReq.Headers.Set(constants.HeaderUserAgent, c.userAgent)

	if contentType != "" {
		interceptReq.Headers.Set(constants.HeaderContentType, contentType)
	}

	for key, value := range req.Headers {
		interceptReq.Headers.Set(key, value)
	}

	err = c.interceptors.ExecuteRequestInterceptors(ctx, interceptReq)
	if err != nil {
		return nil, recapi.NewRequestError("interceptor", err)
	}

	attemptCtx := ctx

	if c.timeout > 0 {
		var cancel context.CancelFunc

		attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var rawBody interface{}
	if interceptReq.Body != nil {
		rawBody = interceptReq.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(attemptCtx, interceptReq.Method, c.buildURL(interceptReq.Path, req.Query), rawBody)
	if err != nil {
		return nil, recapi.NewRequestError("url", err)
	}

	httpReq.Header = interceptReq.Headers

	if c.debug {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": interceptReq.Method,
			"url":    httpReq.URL.String(),
		})
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportFailure(ctx, attemptCtx, interceptReq, err)
	}

	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.transportFailure(ctx, attemptCtx, interceptReq, err)
	}

	interceptResp := &recapi.Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       data,
	}

	if c.debug {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status": httpResp.StatusCode,
			"size":   len(data),
		})
	}

	err = c.interceptors.ExecuteResponseInterceptors(ctx, interceptReq, interceptResp)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		StatusCode: interceptResp.StatusCode,
		Headers:    interceptResp.Headers,
		Body:       interceptResp.Body,
		Envelope:   interceptResp.Envelope,
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return resp, &recapi.HTTPError{
			Status:    resp.StatusCode,
			Message:   recapi.ErrorMessage(resp.Envelope, resp.Body, constants.MaxErrorBodyLength),
			Body:      resp.Body,
			Method:    req.Method,
			Path:      req.Path,
			Timestamp: time.Now(),
		}
	}

	return resp, nil
}

// transportFailure classifies err and lets the response interceptors see it.
func (c *Client) transportFailure(ctx, attemptCtx context.Context, req *recapi.Request, err error) error {
	transportErr := classify(ctx, attemptCtx, err)
	transportErr.Method = req.Method
	transportErr.Path = req.Path

	_ = c.interceptors.ExecuteResponseInterceptors(ctx, req, &recapi.Response{Error: transportErr})

	return transportErr
}

// classify maps a failed exchange to a transport error. A finished caller
// context wins over the per-exchange deadline.
func classify(ctx, attemptCtx context.Context, err error) *recapi.TransportError {
	if ctx.Err() != nil {
		return recapi.ContextError(ctx)
	}

	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return recapi.NewTransportError(recapi.TransportTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return recapi.NewTransportError(recapi.TransportTimeout, err)
	}

	return recapi.NewTransportError(recapi.TransportNetwork, err)
}

func (c *Client) buildURL(path string, query url.Values) string {
	var target string
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		target = path
	} else {
		target = c.baseURL + "/" + strings.TrimPrefix(path, "/")
	}

	if len(query) > 0 {
		separator := "?"
		if strings.Contains(target, "?") {
			separator = "&"
		}

		target += separator + query.Encode()
	}

	return target
}

func encodeBody(body interface{}, contentType string) ([]byte, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		return v, contentType, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}

		if contentType == "" {
			contentType = constants.ContentTypeJSON
		}

		return data, contentType, nil
	}
}

// leveledLogger routes go-retryablehttp's logs to a recapi.Logger.
type leveledLogger struct {
	logger recapi.Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fieldsOf(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, fieldsOf(keysAndValues))
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fieldsOf(keysAndValues))
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fieldsOf(keysAndValues))
}

func fieldsOf(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return fields
}
