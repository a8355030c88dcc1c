package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/recapi/internal/constants"
	"github.com/fivetwenty-io/recapi/pkg/recapi"
)

// NewImportsCommand creates the imports command group.
func NewImportsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "imports",
		Aliases: []string{"import"},
		Short:   "Manage file imports",
		Long:    "Upload record files and inspect the outcome of imports",
	}

	cmd.AddCommand(newImportsUploadCommand())
	cmd.AddCommand(newImportsGetCommand())

	return cmd
}

func newImportsUploadCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a file for import",
		Long:  "Upload a CSV or JSON file of records. Ctrl-C aborts the transfer.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			content, err := os.ReadFile(path) //nolint:gosec
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			if len(content) == 0 {
				return fmt.Errorf("%w: %s", constants.ErrImportFileEmpty, path)
			}

			if format == "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
			}

			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			fileName := filepath.Base(path)

			stop := cancelOnInterrupt(client, recapi.UploadCancelKey(fileName))
			defer stop()

			result, err := client.Imports().Upload(ctx, &recapi.ImportRequest{
				FileName: fileName,
				Content:  content,
				Format:   format,
			})
			if err != nil {
				if recapi.IsCancelled(err) {
					return fmt.Errorf("upload of %s cancelled: %w", fileName, err)
				}

				return fmt.Errorf("failed to upload %s: %w", fileName, err)
			}

			return renderImport(cmd, result)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "file format (csv, json); defaults to the file extension")

	return cmd
}

func newImportsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get IMPORT_ID",
		Short: "Get import details",
		Long:  "Display the outcome of a file import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			result, err := client.Imports().Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get import: %w", err)
			}

			return renderImport(cmd, result)
		},
	}
}

// cancelOnInterrupt cancels the call registered under key when the process
// receives SIGINT or SIGTERM. The returned func stops listening.
func cancelOnInterrupt(client recapi.CallControl, key string) func() {
	signals := make(chan os.Signal, 1)
	done := make(chan struct{})

	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-signals:
			client.Cancel(key)
		case <-done:
		}
	}()

	return func() {
		signal.Stop(signals)
		close(done)
	}
}

func renderImport(cmd *cobra.Command, result *recapi.ImportResult) error {
	return render(cmd.OutOrStdout(), result, func(table *tablewriter.Table) {
		table.Header("Property", "Value")

		_ = table.Append("ID", result.ID)
		_ = table.Append("File", result.FileName)
		_ = table.Append("Status", result.Status)
		_ = table.Append("Imported", strconv.Itoa(result.Imported))
		_ = table.Append("Skipped", strconv.Itoa(result.Skipped))
		_ = table.Append("Failed", strconv.Itoa(result.Failed))

		if result.JobID != "" {
			_ = table.Append("Job", result.JobID)
		}

		_ = table.Append("Created", formatTime(result.CreatedAt))

		for _, rowErr := range result.Errors {
			_ = table.Append("Row "+strconv.Itoa(rowErr.Row), TruncateString(rowErr.Message, constants.StringTruncationLength))
		}
	})
}
