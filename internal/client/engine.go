package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/fivetwenty-io/recapi/internal/cancel"
	"github.com/fivetwenty-io/recapi/internal/coalesce"
	"github.com/fivetwenty-io/recapi/internal/constants"
	recapihttp "github.com/fivetwenty-io/recapi/internal/http"
	"github.com/fivetwenty-io/recapi/internal/retry"
	"github.com/fivetwenty-io/recapi/pkg/recapi"
)

// engine owns the machinery every call goes through: cache, coalescer,
// in-flight de-duplication, cancellation registry, and retry executor.
type engine struct {
	config    *recapi.Config
	transport *recapihttp.Client
	cache     recapi.Cache
	coalescer *coalesce.Coalescer
	flights   singleflight.Group
	sharedMu  sync.Mutex
	active    map[string]*sharedFlight
	flightSeq uint64
	registry  *cancel.Registry
	executor  *retry.Executor
	metrics   *recapi.MetricsCollector
	events    recapi.EventSink
	logger    recapi.Logger
}

// callInfo identifies a call in logs, metrics and events.
type callInfo struct {
	operation string
	method    string
	path      string
	key       string
}

// sharedFlight is one run of an identical-read group. Its context is
// detached from every caller and cancelled once all of them have left.
type sharedFlight struct {
	group   string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// flightResult is what one flight hands to every caller sharing it.
type flightResult[T any] struct {
	value    T
	attempts int
}

// Execute runs call through the pipeline:
//
//	CACHE_CHECK -> [COALESCING] -> IN_FLIGHT <-> RETRY_WAIT -> VALIDATE -> CACHE_STORE -> DONE
//
// A cache hit settles immediately. Calls with a coalescing window wait in
// their slot; the last caller's call is the one performed. Identical
// cacheable reads share one flight.
func Execute[T any](ctx context.Context, e *engine, call *recapi.Call[T]) (T, error) {
	var zero T

	if call.Schema == nil {
		return zero, recapi.ErrSchemaRequired
	}

	start := time.Now()
	desc := &call.Descriptor
	key := desc.Key()
	cacheable := e.config.CachingEnabled && desc.ShouldCache()
	info := callInfo{operation: call.Operation, method: desc.Method, path: desc.Path, key: key}

	e.trace(call.Operation, key, recapi.StateCacheCheck)

	if cacheable {
		if cached, ok := e.cache.Get(key); ok {
			if value, ok := cached.(T); ok {
				e.metrics.RecordCacheHit(call.Operation)
				e.settle(ctx, info, start, 0, true, nil)

				return value, nil
			}
		}

		e.metrics.RecordCacheMiss(call.Operation)
	}

	run := func(runCtx context.Context) (interface{}, error) {
		if cacheable {
			return e.shared(runCtx, call.Operation, key, func(flightCtx context.Context) (interface{}, error) {
				return flight(flightCtx, e, call, cacheable)
			})
		}

		return flight(runCtx, e, call, cacheable)
	}

	var (
		raw interface{}
		err error
	)

	if desc.CoalesceWindow > 0 {
		e.trace(call.Operation, key, recapi.StateCoalescing)
		raw, err = e.coalescer.Do(ctx, desc.EffectiveCoalesceKey(), desc.CoalesceWindow, run)
	} else {
		raw, err = run(ctx)
	}

	result, ok := raw.(flightResult[T])
	if raw != nil && !ok && err == nil {
		err = fmt.Errorf("%w: %s", recapi.ErrUnexpectedResult, call.Operation)
	}

	if err != nil {
		err = recapi.Annotate(err, desc.Method, desc.Path, key)
		e.settle(ctx, info, start, result.attempts, false, err)

		return zero, err
	}

	e.settle(ctx, info, start, result.attempts, false, nil)

	return result.value, nil
}

// shared joins the in-flight request for key or starts it. The flight runs
// with the starting caller's context values but none of the callers'
// cancellation; a caller whose ctx ends stops waiting, and the flight is
// cancelled when the last caller has left.
func (e *engine) shared(ctx context.Context, operation, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	e.sharedMu.Lock()

	f, ok := e.active[key]
	if !ok {
		e.flightSeq++
		flightCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &sharedFlight{
			group:  key + "#" + strconv.FormatUint(e.flightSeq, 10),
			ctx:    flightCtx,
			cancel: cancel,
		}
		e.active[key] = f
	}

	f.waiters++

	// DoChan only starts the goroutine, and the flight leaves e.active under
	// sharedMu before it returns, so every joiner reaches the running call.
	ch := e.flights.DoChan(f.group, func() (interface{}, error) {
		defer e.endFlight(key, f)

		return fn(f.ctx)
	})

	e.sharedMu.Unlock()

	select {
	case res := <-ch:
		if res.Shared {
			e.metrics.RecordDeduplicated(operation)
		}

		return res.Val, res.Err
	case <-ctx.Done():
		e.leaveFlight(key, f)

		return nil, recapi.ContextError(ctx)
	}
}

func (e *engine) endFlight(key string, f *sharedFlight) {
	e.sharedMu.Lock()
	defer e.sharedMu.Unlock()

	if e.active[key] == f {
		delete(e.active, key)
	}

	f.cancel()
}

func (e *engine) leaveFlight(key string, f *sharedFlight) {
	e.sharedMu.Lock()
	defer e.sharedMu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}

	if e.active[key] == f {
		delete(e.active, key)
	}

	f.cancel()
}

// flight performs one logical call: acquire a cancellation handle, retry the
// exchange, validate, and store the result unless the handle was aborted.
func flight[T any](ctx context.Context, e *engine, call *recapi.Call[T], cacheable bool) (flightResult[T], error) {
	var result flightResult[T]

	desc := &call.Descriptor
	key := desc.Key()

	handle := e.registry.Acquire(ctx, desc.EffectiveCancelKey())
	defer handle.Release()

	request := buildRequest(desc)
	policy := e.policy(call.Operation, key, desc.Retry)

	e.trace(call.Operation, key, recapi.StateInFlight)

	resp, attempts, err := retry.Do(handle.Context(), e.executor, policy, handle.Aborted,
		func(attemptCtx context.Context, _ int) (*recapihttp.Response, error) {
			return e.transport.Do(attemptCtx, request)
		})

	result.attempts = attempts

	if err != nil {
		return result, recapi.Annotate(err, desc.Method, desc.Path, key)
	}

	// The mutation reached the server; views that embed it are stale
	// whatever happens next.
	if len(desc.Invalidates) > 0 {
		dropped := e.cache.InvalidateTags(desc.Invalidates...)
		e.logger.Debug("cache tags invalidated", map[string]interface{}{
			"operation": call.Operation,
			"tags":      desc.Invalidates,
			"dropped":   dropped,
		})
		e.metrics.RecordCacheSize(e.cache.Len())
	}

	e.trace(call.Operation, key, recapi.StateValidate)

	payload, err := recapi.PayloadFromEnvelope(resp.Envelope)
	if err != nil {
		return result, recapi.Annotate(err, desc.Method, desc.Path, key)
	}

	value, err := call.Schema.Validate(payload)
	if err != nil {
		return result, recapi.Annotate(err, desc.Method, desc.Path, key)
	}

	committed := handle.Commit(func() {
		if !cacheable {
			return
		}

		e.trace(call.Operation, key, recapi.StateCacheStore)

		ttl := desc.CacheTTL
		if ttl <= 0 {
			ttl = e.config.CacheTTL
		}

		e.cache.Set(key, value, ttl, desc.CacheTags...)
		e.metrics.RecordCacheSize(e.cache.Len())
	})
	if !committed {
		return result, recapi.Annotate(recapi.ContextError(handle.Context()), desc.Method, desc.Path, key)
	}

	result.value = value

	return result, nil
}

// policy converts a descriptor policy into an executor policy with logging
// and metrics hooks.
func (e *engine) policy(operation, key string, p recapi.RetryPolicy) retry.Policy {
	backoff := retry.Linear

	switch p.Strategy {
	case recapi.StrategyExponential:
		backoff = retry.Exponential
	case recapi.StrategyLinearJitter:
		backoff = retry.LinearJitter
	case "", recapi.StrategyLinear:
	}

	return retry.Policy{
		MaxAttempts: p.MaxAttempts,
		BaseDelay:   p.BaseDelay,
		MaxDelay:    p.MaxDelay,
		Backoff:     backoff,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			e.trace(operation, key, recapi.StateRetryWait)
			e.metrics.RecordRetry(operation, attempt)
			e.logger.Warn("retrying request", map[string]interface{}{
				"operation": operation,
				"key":       key,
				"attempt":   attempt,
				"delay_ms":  delay.Milliseconds(),
				"error":     err.Error(),
			})
		},
	}
}

// settle records the terminal state of a call.
func (e *engine) settle(ctx context.Context, info callInfo, start time.Time, attempts int, cacheHit bool, err error) {
	duration := time.Since(start)

	state := recapi.StateDone
	event := recapi.CallEvent{
		Operation: info.operation,
		Method:    info.method,
		Path:      info.path,
		Key:       info.key,
		CacheHit:  cacheHit,
		Attempts:  attempts,
		Duration:  duration,
		Timestamp: time.Now(),
	}

	if err != nil {
		state = recapi.StateFailed
		if recapi.IsCancelled(err) {
			state = recapi.StateCancelled
		}

		if kind, ok := recapi.KindOf(err); ok {
			event.ErrorKind = kind
			e.metrics.RecordError(info.operation, kind)
		}

		event.Status = recapi.StatusCode(err)
		event.Error = err.Error()
	}

	event.State = state

	e.metrics.RecordCall(info.operation, state, duration)

	fields := map[string]interface{}{
		"operation":   info.operation,
		"key":         info.key,
		"state":       string(state),
		"attempts":    attempts,
		"cache_hit":   cacheHit,
		"duration_ms": duration.Milliseconds(),
	}

	switch state {
	case recapi.StateFailed:
		fields["error"] = event.Error
		e.logger.Warn("call failed", fields)
	case recapi.StateCancelled:
		e.logger.Debug("call cancelled", fields)
	default:
		e.logger.Debug("call done", fields)
	}

	if e.events == nil {
		return
	}

	publishErr := e.events.Publish(context.WithoutCancel(ctx), event)
	if publishErr != nil {
		e.logger.Warn("failed to publish call event", map[string]interface{}{
			"operation": info.operation,
			"error":     publishErr.Error(),
		})
	}
}

func (e *engine) trace(operation, key string, state recapi.CallState) {
	e.logger.Debug("call state", map[string]interface{}{
		"operation": operation,
		"key":       key,
		"state":     string(state),
	})
}

// read describes a cacheable GET.
func (e *engine) read(path string, query url.Values, tags ...string) recapi.RequestDescriptor {
	return recapi.RequestDescriptor{
		Method:    http.MethodGet,
		Path:      path,
		Query:     query,
		Cacheable: true,
		CacheTags: tags,
		Retry:     e.config.DefaultRetryPolicy(),
	}
}

// write describes a mutation. Non-idempotent writes that may be retried get
// an idempotency key shared by all their attempts.
func (e *engine) write(method, path string, body interface{}, invalidates ...string) recapi.RequestDescriptor {
	desc := recapi.RequestDescriptor{
		Method:      method,
		Path:        path,
		Body:        body,
		Invalidates: invalidates,
		Retry:       e.config.DefaultRetryPolicy(),
	}

	if !desc.IsIdempotent() && desc.Retry.MaxAttempts > 0 {
		desc.IdempotencyKey = uuid.NewString()
	}

	return desc
}

func buildRequest(desc *recapi.RequestDescriptor) *recapihttp.Request {
	headers := make(map[string]string, len(desc.Headers)+1)
	for k, v := range desc.Headers {
		headers[k] = v
	}

	if desc.IdempotencyKey != "" {
		headers[constants.HeaderIdempotencyKey] = desc.IdempotencyKey
	}

	return &recapihttp.Request{
		Method:      desc.Method,
		Path:        desc.Path,
		Query:       desc.Query,
		Headers:     headers,
		Body:        desc.Body,
		ContentType: desc.ContentType,
	}
}
