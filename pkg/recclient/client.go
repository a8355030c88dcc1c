// Package recclient provides the main entry point for creating records API clients.
package recclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/recapi/internal/client"
	"github.com/fivetwenty-io/recapi/pkg/natsevents"
	"github.com/fivetwenty-io/recapi/pkg/recapi"
	"github.com/fivetwenty-io/recapi/pkg/zaplog"
)

// New creates a new records API client.
func New(ctx context.Context, config *recapi.Config) (recapi.Client, error) {
	if config == nil {
		return nil, recapi.ErrConfigRequired
	}

	if config.BaseAddress == "" {
		return nil, recapi.ErrBaseAddressRequired
	}

	config.BaseAddress = normalizeBaseAddress(config.BaseAddress)

	if config.LoggingEnabled && config.Logger == nil {
		logger, err := zaplog.NewDevelopment(true)
		if err != nil {
			return nil, err
		}

		config.Logger = logger
	}

	if config.Events == nil && config.EventsNATSURL != "" {
		sink, err := natsevents.Connect(config.EventsNATSURL, config.EventsSubject)
		if err != nil {
			return nil, fmt.Errorf("creating event sink: %w", err)
		}

		config.Events = sink
	}

	c, err := client.New(ctx, config)
	if err != nil {
		if config.Events != nil {
			_ = config.Events.Close()
		}

		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewWithEndpoint creates a client with default settings for baseAddress.
func NewWithEndpoint(ctx context.Context, baseAddress string) (recapi.Client, error) {
	config := recapi.DefaultConfig()
	config.BaseAddress = baseAddress

	return New(ctx, config)
}

// NewWithToken creates a client that authenticates with a bearer token.
func NewWithToken(ctx context.Context, baseAddress, token string) (recapi.Client, error) {
	config := recapi.DefaultConfig()
	config.BaseAddress = baseAddress
	config.Credentials = recapi.NewMemoryCredentialStore(token)

	return New(ctx, config)
}

// normalizeBaseAddress trims a trailing slash and defaults the scheme to https.
func normalizeBaseAddress(address string) string {
	address = strings.TrimSuffix(address, "/")
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "https://" + address
	}

	return address
}
