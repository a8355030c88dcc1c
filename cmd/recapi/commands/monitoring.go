package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/recapi/pkg/recapi"
)

// NewHealthCommand creates the health command.
func NewHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show backend health",
		Long:  "Display the health report of the records API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			health, err := client.Monitoring().Health(ctx)
			if err != nil {
				return fmt.Errorf("failed to get health: %w", err)
			}

			return render(cmd.OutOrStdout(), health, func(table *tablewriter.Table) {
				table.Header("Property", "Value")

				_ = table.Append("Status", health.Status)
				_ = table.Append("Version", health.Version)
				_ = table.Append("Uptime", (time.Duration(health.UptimeSeconds) * time.Second).String())

				for _, name := range sortedKeys(health.Checks) {
					_ = table.Append("Check "+name, health.Checks[name])
				}
			})
		},
	}
}

// NewMetricsCommand creates the metrics command.
func NewMetricsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show backend metrics",
		Long:  "Display aggregate record, job, and import counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			metrics, err := client.Monitoring().Metrics(ctx)
			if err != nil {
				return fmt.Errorf("failed to get metrics: %w", err)
			}

			return render(cmd.OutOrStdout(), metrics, func(table *tablewriter.Table) {
				table.Header("Metric", "Value")
				appendMetrics(table, metrics)
			})
		},
	}
}

func appendMetrics(table *tablewriter.Table, metrics *recapi.SystemMetrics) {
	rows := []struct {
		name  string
		value int
	}{
		{"Records total", metrics.Records.Total},
		{"Records pending", metrics.Records.Pending},
		{"Records active", metrics.Records.Active},
		{"Records archived", metrics.Records.Archived},
		{"Jobs total", metrics.Jobs.Total},
		{"Jobs running", metrics.Jobs.Running},
		{"Jobs completed", metrics.Jobs.Completed},
		{"Jobs failed", metrics.Jobs.Failed},
		{"Imports total", metrics.Imports.Total},
		{"Rows imported", metrics.Imports.RowsImported},
	}

	for _, row := range rows {
		_ = table.Append(row.name, strconv.Itoa(row.value))
	}

	_ = table.Append("Generated", formatTime(metrics.GeneratedAt))
}
