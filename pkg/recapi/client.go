package recapi

import (
	"context"
)

// JobsClient defines operations for processing jobs.
type JobsClient interface {
	List(ctx context.Context, params *QueryParams) (*Page[Job], error)
	Get(ctx context.Context, id string) (*Job, error)
	Trigger(ctx context.Context, request *JobTriggerRequest) (*Job, error)
	Cancel(ctx context.Context, id string) (*Job, error)
	PollUntilComplete(ctx context.Context, id string) (*Job, error)
}

// RecordsClient defines operations for data records.
type RecordsClient interface {
	Get(ctx context.Context, id string) (*Record, error)
	Search(ctx context.Context, params *SearchParams) (*Page[Record], error)
	// SearchAsYouType coalesces bursts of searches into one request carrying
	// the most recent parameters. Every caller in the burst receives its result.
	SearchAsYouType(ctx context.Context, params *SearchParams) (*Page[Record], error)
	UpdateStatus(ctx context.Context, id string, request *StatusUpdateRequest) (*Record, error)
}

// ImportsClient defines operations for file imports.
type ImportsClient interface {
	Upload(ctx context.Context, request *ImportRequest) (*ImportResult, error)
	Get(ctx context.Context, id string) (*ImportResult, error)
}

// MonitoringClient defines operations for health and metrics.
type MonitoringClient interface {
	Health(ctx context.Context) (*Health, error)
	Metrics(ctx context.Context) (*SystemMetrics, error)
}

// ResourceClients provides access to the domain clients.
type ResourceClients interface {
	Jobs() JobsClient
	Records() RecordsClient
	Imports() ImportsClient
	Monitoring() MonitoringClient
}

// CallControl exposes the shared call machinery.
type CallControl interface {
	// Cancel aborts the active call and any pending coalesced calls under key.
	Cancel(key string) bool
	// CancelAll aborts every active and pending call.
	CancelAll() int
	// InvalidateCache drops cached responses whose key starts with prefix;
	// an empty prefix clears everything.
	InvalidateCache(prefix string) int
	// InvalidateTags drops cached responses carrying any of tags.
	InvalidateTags(tags ...string) int
}

// Client is the facade over the shared call machinery.
type Client interface {
	ResourceClients
	CallControl
	Close() error
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, map[string]interface{}) {}
func (NopLogger) Info(string, map[string]interface{})  {}
func (NopLogger) Warn(string, map[string]interface{})  {}
func (NopLogger) Error(string, map[string]interface{}) {}
