package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/recapi/internal/auth"
	"github.com/fivetwenty-io/recapi/internal/constants"
	"github.com/fivetwenty-io/recapi/pkg/recapi"
	"github.com/fivetwenty-io/recapi/pkg/recclient"
	"github.com/fivetwenty-io/recapi/pkg/zaplog"
)

// credentialsPathKey lets tests and users point the CLI at another credentials file.
const credentialsPathKey = "credentials_path"

// credentialStore returns the file-backed store the CLI keeps its token in.
func credentialStore() (*auth.FileStore, error) {
	path := viper.GetString(credentialsPathKey)
	if path == "" {
		var err error

		path, err = auth.DefaultCredentialsPath()
		if err != nil {
			return nil, err
		}
	}

	return auth.NewFileStore(path), nil
}

// loadClientConfig builds the client configuration from file, environment and flags.
func loadClientConfig() (*recapi.Config, error) {
	config, err := recapi.LoadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	if config.BaseAddress == "" {
		return nil, constants.ErrNoAPIConfigured
	}

	store, err := credentialStore()
	if err != nil {
		return nil, err
	}

	config.Credentials = store

	if viper.GetBool("verbose") {
		config.LoggingEnabled = true

		logger, err := zaplog.NewDevelopment(true)
		if err != nil {
			return nil, err
		}

		config.Logger = logger
	}

	return config, nil
}

// CreateClient creates a records API client for the current configuration.
func CreateClient(ctx context.Context) (recapi.Client, error) {
	config, err := loadClientConfig()
	if err != nil {
		return nil, err
	}

	client, err := recclient.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

// commandContext returns the command's context, falling back to Background.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
