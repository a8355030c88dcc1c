package recapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fivetwenty-io/recapi/internal/constants"
)

// BackoffStrategy selects the delay schedule between retries.
type BackoffStrategy string

const (
	// StrategyLinear waits BaseDelay*(attempt+1).
	StrategyLinear BackoffStrategy = "linear"
	// StrategyExponential doubles from BaseDelay up to MaxDelay.
	StrategyExponential BackoffStrategy = "exponential"
	// StrategyLinearJitter is linear with a random factor between BaseDelay and MaxDelay.
	StrategyLinearJitter BackoffStrategy = "linear-jitter"
)

// Valid reports whether the strategy is known. The empty strategy means linear.
func (s BackoffStrategy) Valid() bool {
	switch s {
	case "", StrategyLinear, StrategyExponential, StrategyLinearJitter:
		return true
	default:
		return false
	}
}

// RetryPolicy bounds the attempts of one call.
type RetryPolicy struct {
	// MaxAttempts is the number of retries after the first attempt.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Strategy    BackoffStrategy
}

// NoRetry is a policy with a single attempt.
func NoRetry() RetryPolicy {
	return RetryPolicy{}
}

// RequestDescriptor is the full description of one logical call.
type RequestDescriptor struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON encoded unless it is a []byte, which is sent as-is with ContentType.
	Body        interface{}
	ContentType string
	Headers     map[string]string

	// Cacheable marks a read whose validated result may be stored.
	Cacheable bool
	// CacheKey overrides the fingerprint as the cache key.
	CacheKey string
	// CacheTTL overrides the configured default TTL.
	CacheTTL time.Duration
	// CacheTags are attached to the stored entry.
	CacheTags []string
	// Invalidates lists the tags dropped when this call completes with a 2xx.
	Invalidates []string

	Retry RetryPolicy

	// CoalesceWindow, when positive, debounces calls sharing CoalesceKey.
	CoalesceWindow time.Duration
	CoalesceKey    string

	// CancelKey overrides the cache key as the cancellation key.
	CancelKey string

	// IdempotencyKey is sent as the Idempotency-Key header.
	IdempotencyKey string
}

// IsRead reports whether the method is a read.
func (d *RequestDescriptor) IsRead() bool {
	return d.Method == http.MethodGet || d.Method == http.MethodHead
}

// IsIdempotent reports whether repeating the call is safe without an idempotency key.
func (d *RequestDescriptor) IsIdempotent() bool {
	switch d.Method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	default:
		return false
	}
}

// ShouldCache reports whether the result of this call may be stored. Only
// reads are ever cached.
func (d *RequestDescriptor) ShouldCache() bool {
	return d.Cacheable && d.IsRead()
}

// Fingerprint identifies the call by method, path, canonical query, and body.
func (d *RequestDescriptor) Fingerprint() string {
	var b strings.Builder

	b.WriteString(strings.ToUpper(d.Method))
	b.WriteByte(' ')
	b.WriteString(d.Path)

	if len(d.Query) > 0 {
		b.WriteByte('?')
		b.WriteString(d.Query.Encode())
	}

	if digest := bodyDigest(d.Body); digest != "" {
		b.WriteByte('#')
		b.WriteString(digest)
	}

	return b.String()
}

// Key returns the cache key of the call.
func (d *RequestDescriptor) Key() string {
	if d.CacheKey != "" {
		return d.CacheKey
	}

	return d.Fingerprint()
}

// EffectiveCancelKey returns the key the call registers for cancellation.
func (d *RequestDescriptor) EffectiveCancelKey() string {
	if d.CancelKey != "" {
		return d.CancelKey
	}

	return d.Key()
}

// EffectiveCoalesceKey returns the key of the coalescing slot.
func (d *RequestDescriptor) EffectiveCoalesceKey() string {
	if d.CoalesceKey != "" {
		return d.CoalesceKey
	}

	return strings.ToUpper(d.Method) + " " + d.Path
}

func bodyDigest(body interface{}) string {
	var raw []byte

	switch v := body.(type) {
	case nil:
		return ""
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}

		raw = encoded
	}

	sum := sha256.Sum256(raw)

	return hex.EncodeToString(sum[:8])
}

// Call pairs a descriptor with the schema its response must satisfy.
type Call[T any] struct {
	// Operation names the call in logs, metrics and events, e.g. "records.get".
	Operation  string
	Descriptor RequestDescriptor
	Schema     Schema[T]
}

// SearchKey names search-as-you-type calls, both while they wait in the
// debounce window and once the request is in flight.
const SearchKey = constants.SearchCoalesceKey

// UploadCancelKey is the cancellation key of the upload of fileName.
func UploadCancelKey(fileName string) string {
	return constants.ImportCancelKeyPrefix + fileName
}

// RecordKey is the cache and cancellation key of reading record id.
func RecordKey(id string) string {
	return readKey(constants.APIPathRecords + "/" + id)
}

// JobKey is the cache and cancellation key of reading job id.
func JobKey(id string) string {
	return readKey(constants.APIPathJobs + "/" + id)
}

func readKey(path string) string {
	desc := RequestDescriptor{Method: http.MethodGet, Path: path}

	return desc.Key()
}
