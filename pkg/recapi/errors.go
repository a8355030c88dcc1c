package recapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorKind discriminates the failures a call can settle with.
type ErrorKind string

const (
	// KindHTTP is a completed exchange with a non-2xx status.
	KindHTTP ErrorKind = "http"
	// KindValidation is a 2xx response whose payload did not match its schema.
	KindValidation ErrorKind = "validation"
	// KindTransport is a failure where no trustworthy response exists.
	KindTransport ErrorKind = "transport"
)

// TransportCode classifies transport failures.
type TransportCode string

const (
	TransportTimeout   TransportCode = "timeout"
	TransportNetwork   TransportCode = "network"
	TransportCancelled TransportCode = "cancelled"
)

// Sentinels matched by TransportError through errors.Is.
var (
	ErrTimeout   = errors.New("request timed out")
	ErrNetwork   = errors.New("network failure")
	ErrCancelled = errors.New("request cancelled")
)

// Common static errors that can be wrapped with context.
var (
	ErrConfigRequired       = errors.New("config is required")
	ErrBaseAddressRequired  = errors.New("base address is required")
	ErrInvalidTimeout       = errors.New("timeout must be positive")
	ErrInvalidRetryAttempts = errors.New("retry attempts must not be negative")
	ErrInvalidRetryStrategy = errors.New("unknown retry strategy")
	ErrInvalidCacheTTL      = errors.New("cache TTL must be positive when caching is enabled")
	ErrUnsupportedCacheType = errors.New("unsupported cache type")
	ErrIDRequired           = errors.New("id is required")
	ErrFileNameRequired     = errors.New("file name is required")
	ErrEmptyUpload          = errors.New("upload content is empty")
	ErrSchemaRequired       = errors.New("call has no schema")
	ErrUnexpectedResult     = errors.New("unexpected result type for call")
	ErrUnsupportedBatchOp   = errors.New("unsupported batch operation")
	ErrClientClosed         = errors.New("client is closed")
)

// Error is implemented by every error a call settles with.
type Error interface {
	error
	Kind() ErrorKind
}

// HTTPError is a completed exchange with a non-2xx status.
type HTTPError struct {
	Status    int       `json:"status"              yaml:"status"`
	Message   string    `json:"message,omitempty"   yaml:"message,omitempty"`
	Body      []byte    `json:"-"                   yaml:"-"`
	Method    string    `json:"method,omitempty"    yaml:"method,omitempty"`
	Path      string    `json:"path,omitempty"      yaml:"path,omitempty"`
	CacheKey  string    `json:"cache_key,omitempty" yaml:"cache_key,omitempty"`
	Timestamp time.Time `json:"timestamp"           yaml:"timestamp"`
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}

	if e.Method != "" {
		return fmt.Sprintf("%s %s: http %d: %s", e.Method, e.Path, e.Status, msg)
	}

	return fmt.Sprintf("http %d: %s", e.Status, msg)
}

// Kind implements Error.
func (e *HTTPError) Kind() ErrorKind { return KindHTTP }

// Violation is one schema failure.
type Violation struct {
	Field   string `json:"field"   yaml:"field"`
	Rule    string `json:"rule"    yaml:"rule"`
	Message string `json:"message" yaml:"message"`
}

func (v Violation) String() string {
	if v.Field == "" {
		return v.Message
	}

	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationError is a 2xx response whose payload did not match its schema,
// or an outgoing request that could not be built. Neither is retried.
type ValidationError struct {
	Violations []Violation `json:"violations"          yaml:"violations"`
	Outgoing   bool        `json:"outgoing,omitempty"  yaml:"outgoing,omitempty"`
	Method     string      `json:"method,omitempty"    yaml:"method,omitempty"`
	Path       string      `json:"path,omitempty"      yaml:"path,omitempty"`
	CacheKey   string      `json:"cache_key,omitempty" yaml:"cache_key,omitempty"`
	Timestamp  time.Time   `json:"timestamp"           yaml:"timestamp"`
	Cause      error       `json:"-"                   yaml:"-"`
}

// NewValidationError builds a ValidationError stamped with the current time.
func NewValidationError(violations ...Violation) *ValidationError {
	return &ValidationError{Violations: violations, Timestamp: time.Now()}
}

// NewRequestError reports a request rejected before dispatch. An error that
// already has a Kind is returned unchanged.
func NewRequestError(field string, err error) error {
	if _, ok := KindOf(err); ok {
		return err
	}

	validationErr := NewValidationError(Violation{Field: field, Rule: "request", Message: err.Error()})
	validationErr.Outgoing = true
	validationErr.Cause = err

	return validationErr
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}

	prefix := "response validation failed"
	if e.Outgoing {
		prefix = "request rejected"
	}
	if e.Method != "" {
		prefix = fmt.Sprintf("%s %s: %s", e.Method, e.Path, prefix)
	}

	if len(parts) == 0 {
		return prefix
	}

	return fmt.Sprintf("%s: %s", prefix, strings.Join(parts, "; "))
}

// Kind implements Error.
func (e *ValidationError) Kind() ErrorKind { return KindValidation }

// Unwrap returns the error that kept an outgoing request from being built.
func (e *ValidationError) Unwrap() error { return e.Cause }

// TransportError is a failure where no trustworthy response exists.
type TransportError struct {
	Code      TransportCode `json:"code"                yaml:"code"`
	Cause     error         `json:"-"                   yaml:"-"`
	Method    string        `json:"method,omitempty"    yaml:"method,omitempty"`
	Path      string        `json:"path,omitempty"      yaml:"path,omitempty"`
	CacheKey  string        `json:"cache_key,omitempty" yaml:"cache_key,omitempty"`
	Timestamp time.Time     `json:"timestamp"           yaml:"timestamp"`
}

// NewTransportError builds a TransportError stamped with the current time.
func NewTransportError(code TransportCode, cause error) *TransportError {
	return &TransportError{Code: code, Cause: cause, Timestamp: time.Now()}
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	msg := "transport " + string(e.Code)
	if e.Method != "" {
		msg = fmt.Sprintf("%s %s: %s", e.Method, e.Path, msg)
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}

	return msg
}

// Kind implements Error.
func (e *TransportError) Kind() ErrorKind { return KindTransport }

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error { return e.Cause }

// Is matches the transport sentinels.
func (e *TransportError) Is(target error) bool {
	switch {
	case errors.Is(target, ErrTimeout):
		return e.Code == TransportTimeout
	case errors.Is(target, ErrNetwork):
		return e.Code == TransportNetwork
	case errors.Is(target, ErrCancelled):
		return e.Code == TransportCancelled
	default:
		return false
	}
}

// ContextError maps a finished context to a transport error: an expired
// deadline is a timeout, anything else is a cancellation.
func ContextError(ctx context.Context) *TransportError {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewTransportError(TransportTimeout, cause)
	}

	return NewTransportError(TransportCancelled, cause)
}

// Annotate fills the request diagnostics of a call error that has none yet.
// Errors outside the taxonomy are returned unchanged.
func Annotate(err error, method, path, cacheKey string) error {
	var (
		httpErr      *HTTPError
		validation   *ValidationError
		transportErr *TransportError
	)

	switch {
	case errors.As(err, &httpErr):
		if httpErr.Method == "" {
			httpErr.Method, httpErr.Path = method, path
		}

		if httpErr.CacheKey == "" {
			httpErr.CacheKey = cacheKey
		}
	case errors.As(err, &validation):
		if validation.Method == "" {
			validation.Method, validation.Path = method, path
		}

		if validation.CacheKey == "" {
			validation.CacheKey = cacheKey
		}
	case errors.As(err, &transportErr):
		if transportErr.Method == "" {
			transportErr.Method, transportErr.Path = method, path
		}

		if transportErr.CacheKey == "" {
			transportErr.CacheKey = cacheKey
		}
	}

	return err
}

// KindOf reports the kind of a call error.
func KindOf(err error) (ErrorKind, bool) {
	var kinded Error
	if errors.As(err, &kinded) {
		return kinded.Kind(), true
	}

	return "", false
}

// IsRetryable reports whether a failed attempt may be repeated: network
// failures, timeouts, and 5xx responses. Cancellation, 4xx responses and
// validation failures are final.
func IsRetryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status >= http.StatusInternalServerError
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Code == TransportTimeout || transportErr.Code == TransportNetwork
	}

	return false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}

	return 0
}

// IsNotFound checks if the error is a 404 response.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsUnauthorized checks if the error is a 401 response.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsForbidden checks if the error is a 403 response.
func IsForbidden(err error) bool {
	return StatusCode(err) == http.StatusForbidden
}

// IsValidation checks if the error is a schema failure.
func IsValidation(err error) bool {
	var validation *ValidationError

	return errors.As(err, &validation)
}

// IsCancelled checks if the call was cancelled.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsTimeout checks if the call timed out.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
