package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/recapi/internal/constants"
	"github.com/fivetwenty-io/recapi/pkg/recapi"
)

// MonitoringClient implements recapi.MonitoringClient.
type MonitoringClient struct {
	engine *engine
}

// NewMonitoringClient creates a new monitoring client.
func NewMonitoringClient(e *engine) *MonitoringClient {
	return &MonitoringClient{engine: e}
}

// Health implements recapi.MonitoringClient.Health. Health is never cached.
func (c *MonitoringClient) Health(ctx context.Context) (*recapi.Health, error) {
	desc := c.engine.read(constants.APIPathHealth, nil)
	desc.Cacheable = false

	call := &recapi.Call[*recapi.Health]{
		Operation:  "monitoring.health",
		Descriptor: desc,
		Schema:     recapi.ObjectSchema[recapi.Health](),
	}

	health, err := Execute(ctx, c.engine, call)
	if err != nil {
		return nil, fmt.Errorf("getting health: %w", err)
	}

	return health, nil
}

// Metrics implements recapi.MonitoringClient.Metrics.
func (c *MonitoringClient) Metrics(ctx context.Context) (*recapi.SystemMetrics, error) {
	desc := c.engine.read(constants.APIPathMetrics, nil, constants.TagMetrics)
	desc.CacheTTL = constants.MetricsCacheTTL

	call := &recapi.Call[*recapi.SystemMetrics]{
		Operation:  "monitoring.metrics",
		Descriptor: desc,
		Schema:     recapi.ObjectSchema[recapi.SystemMetrics](),
	}

	metrics, err := Execute(ctx, c.engine, call)
	if err != nil {
		return nil, fmt.Errorf("getting metrics: %w", err)
	}

	return metrics, nil
}
