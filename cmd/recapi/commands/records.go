package commands

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/recapi/internal/constants"
	"github.com/fivetwenty-io/recapi/pkg/recapi"
)

// NewRecordsCommand creates the records command group.
func NewRecordsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"record", "rec"},
		Short:   "Manage data records",
		Long:    "Look up, search, and update the status of data records",
	}

	cmd.AddCommand(newRecordsGetCommand())
	cmd.AddCommand(newRecordsSearchCommand())
	cmd.AddCommand(newRecordsSetStatusCommand())

	return cmd
}

func newRecordsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get RECORD_ID",
		Short: "Get record details",
		Long:  "Display detailed information about a specific record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			record, err := client.Records().Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get record: %w", err)
			}

			return renderRecord(cmd, record)
		},
	}
}

func newRecordsSearchCommand() *cobra.Command {
	var (
		status string
		source string
		page   int
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "search TERM",
		Short: "Search records",
		Long:  "Search records by free text, optionally filtered by status and source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			result, err := client.Records().Search(ctx, &recapi.SearchParams{
				Term:   args[0],
				Status: recapi.RecordStatus(status),
				Source: source,
				Page:   page,
				Limit:  limit,
			})
			if err != nil {
				return fmt.Errorf("failed to search records: %w", err)
			}

			err = render(cmd.OutOrStdout(), result, func(table *tablewriter.Table) {
				table.Header("ID", "Title", "Status", "Source", "Updated")

				for _, record := range result.Items {
					_ = table.Append(
						record.ID,
						TruncateString(record.Title, constants.StringTruncationLength),
						string(record.Status),
						record.Source,
						formatTime(record.UpdatedAt),
					)
				}
			})
			if err != nil {
				return err
			}

			printPageSummary(cmd, result.Pagination)

			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, active, archived, rejected)")
	cmd.Flags().StringVar(&source, "source", "", "filter by source")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", constants.DefaultPageSize, "results per page")

	return cmd
}

func newRecordsSetStatusCommand() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "set-status RECORD_ID STATUS",
		Short: "Update record status",
		Long:  "Change the status of a record to pending, active, archived, or rejected",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			record, err := client.Records().UpdateStatus(ctx, args[0], &recapi.StatusUpdateRequest{
				Status: recapi.RecordStatus(strings.ToLower(args[1])),
				Reason: reason,
			})
			if err != nil {
				return fmt.Errorf("failed to update record status: %w", err)
			}

			return renderRecord(cmd, record)
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "reason for the change")

	return cmd
}

func renderRecord(cmd *cobra.Command, record *recapi.Record) error {
	return render(cmd.OutOrStdout(), record, func(table *tablewriter.Table) {
		table.Header("Property", "Value")

		_ = table.Append("ID", record.ID)
		_ = table.Append("Title", TruncateString(record.Title, constants.StringTruncationLength))
		_ = table.Append("Status", string(record.Status))
		_ = table.Append("Source", record.Source)

		if len(record.Tags) > 0 {
			_ = table.Append("Tags", strings.Join(record.Tags, ", "))
		}

		if len(record.Attributes) > 0 {
			_ = table.Append("Attributes", TruncateString(formatMap(record.Attributes), constants.StringTruncationLength))
		}

		_ = table.Append("Created", formatTime(record.CreatedAt))
		_ = table.Append("Updated", formatTime(record.UpdatedAt))
	})
}
