package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/fivetwenty-io/recapi/internal/cancel"
	"github.com/fivetwenty-io/recapi/internal/coalesce"
	"github.com/fivetwenty-io/recapi/internal/http"
	"github.com/fivetwenty-io/recapi/internal/retry"
	"github.com/fivetwenty-io/recapi/pkg/recapi"
)

// Client implements the recapi.Client interface.
type Client struct {
	engine *engine

	jobs       *JobsClient
	records    *RecordsClient
	imports    *ImportsClient
	monitoring *MonitoringClient

	stopOnDone func() bool
	closeOnce  sync.Once
	closeErr   error
}

// createInterceptorChain assembles the request and response interceptors.
func createInterceptorChain(config *recapi.Config, logger recapi.Logger) *recapi.InterceptorChain {
	chain := recapi.NewInterceptorChain()

	chain.AddRequestInterceptor(recapi.MetricsRequestInterceptor())
	chain.AddRequestInterceptor(recapi.AuthenticationInterceptor(config.Credentials))

	if len(config.Headers) > 0 {
		chain.AddRequestInterceptor(recapi.HeaderInterceptor(config.Headers))
	}

	if config.LoggingEnabled {
		chain.AddRequestInterceptor(recapi.LoggingInterceptor(logger))
	}

	chain.AddResponseInterceptor(recapi.EnvelopeInterceptor())
	chain.AddResponseInterceptor(recapi.UnauthorizedInterceptor(config.Credentials, logger))
	chain.AddResponseInterceptor(recapi.MetricsResponseInterceptor(config.Metrics))

	if config.LoggingEnabled {
		chain.AddResponseInterceptor(recapi.LoggingResponseInterceptor(logger))
	}

	return chain
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *recapi.Config, logger recapi.Logger) []http.Option {
	return []http.Option{
		http.WithLogger(logger),
		http.WithDebug(config.LoggingEnabled),
		http.WithTimeout(config.Timeout),
		http.WithUserAgent(config.UserAgent),
		http.WithHTTPClient(config.HTTPClient),
		http.WithInterceptors(createInterceptorChain(config, logger)),
	}
}

// New creates a client. The client is closed when ctx ends or Close is called.
func New(ctx context.Context, config *recapi.Config) (*Client, error) {
	err := config.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = recapi.NopLogger{}
	}

	if config.Credentials == nil {
		config.Credentials = recapi.NewMemoryCredentialStore("")
	}

	cacheType := recapi.CacheTypeNone
	if config.CachingEnabled {
		cacheType = recapi.CacheTypeMemory
	}

	cache, err := recapi.NewCacheBuilder().
		WithType(cacheType).
		WithMaxSize(config.CacheMaxSize).
		WithSweepInterval(config.CacheSweepInterval).
		Build()
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	interrupted := func(ctx context.Context) error { return recapi.ContextError(ctx) }
	cancelled := func() error { return recapi.NewTransportError(recapi.TransportCancelled, recapi.ErrCancelled) }

	eng := &engine{
		config:    config,
		transport: http.NewClient(config.BaseAddress, createHTTPClientOptions(config, logger)...),
		cache:     cache,
		registry:  cancel.NewRegistry(),
		active:    make(map[string]*sharedFlight),
		executor:  retry.NewExecutor(recapi.IsRetryable, interrupted),
		metrics:   config.Metrics,
		events:    config.Events,
		logger:    logger,
	}

	eng.coalescer = coalesce.New(interrupted, cancelled, coalesce.WithJoinHook(func(key string) {
		eng.metrics.RecordCoalesced(key)
	}))

	client := &Client{
		engine:     eng,
		jobs:       NewJobsClient(eng),
		records:    NewRecordsClient(eng),
		imports:    NewImportsClient(eng),
		monitoring: NewMonitoringClient(eng),
	}

	client.stopOnDone = context.AfterFunc(ctx, func() { _ = client.Close() })

	logger.Debug("client created", map[string]interface{}{
		"base_address":    config.BaseAddress,
		"caching_enabled": config.CachingEnabled,
		"retry_attempts":  config.RetryAttempts,
	})

	return client, nil
}

// Jobs implements recapi.Client.Jobs.
func (c *Client) Jobs() recapi.JobsClient {
	return c.jobs
}

// Records implements recapi.Client.Records.
func (c *Client) Records() recapi.RecordsClient {
	return c.records
}

// Imports implements recapi.Client.Imports.
func (c *Client) Imports() recapi.ImportsClient {
	return c.imports
}

// Monitoring implements recapi.Client.Monitoring.
func (c *Client) Monitoring() recapi.MonitoringClient {
	return c.monitoring
}

// Cancel implements recapi.Client.Cancel.
func (c *Client) Cancel(key string) bool {
	active := c.engine.registry.Cancel(key)
	pending := c.engine.coalescer.Cancel(key)

	if active || pending {
		c.engine.metrics.RecordCancellation()
		c.engine.logger.Debug("call cancelled by key", map[string]interface{}{"key": key})
	}

	return active || pending
}

// CancelAll implements recapi.Client.CancelAll.
func (c *Client) CancelAll() int {
	n := c.engine.registry.CancelAll() + c.engine.coalescer.CancelAll()

	for range n {
		c.engine.metrics.RecordCancellation()
	}

	return n
}

// InvalidateCache implements recapi.Client.InvalidateCache.
func (c *Client) InvalidateCache(prefix string) int {
	n := c.engine.cache.Clear(prefix)
	c.engine.metrics.RecordCacheSize(c.engine.cache.Len())

	return n
}

// InvalidateTags implements recapi.Client.InvalidateTags.
func (c *Client) InvalidateTags(tags ...string) int {
	n := c.engine.cache.InvalidateTags(tags...)
	c.engine.metrics.RecordCacheSize(c.engine.cache.Len())

	return n
}

// Close cancels every call, stops the cache sweeper, and closes the event sink.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.stopOnDone != nil {
			c.stopOnDone()
		}

		c.engine.registry.CancelAll()
		c.engine.coalescer.CancelAll()

		err := c.engine.cache.Close()
		if err != nil {
			c.closeErr = fmt.Errorf("closing cache: %w", err)

			return
		}

		if c.engine.events != nil {
			err = c.engine.events.Close()
			if err != nil {
				c.closeErr = fmt.Errorf("closing event sink: %w", err)
			}
		}
	})

	return c.closeErr
}
