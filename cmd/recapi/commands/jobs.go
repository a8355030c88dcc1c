package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/recapi/internal/constants"
	"github.com/fivetwenty-io/recapi/pkg/recapi"
)

// NewJobsCommand creates the jobs command group.
func NewJobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "jobs",
		Aliases: []string{"job"},
		Short:   "Manage processing jobs",
		Long:    "List, trigger, monitor, and cancel server-side processing jobs",
	}

	cmd.AddCommand(newJobsListCommand())
	cmd.AddCommand(newJobsGetCommand())
	cmd.AddCommand(newJobsTriggerCommand())
	cmd.AddCommand(newJobsCancelCommand())
	cmd.AddCommand(newJobsWaitCommand())

	return cmd
}

func newJobsListCommand() *cobra.Command {
	var (
		page    int
		limit   int
		sort    string
		states  []string
		allJobs bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		Long:  "List processing jobs, newest first unless --sort says otherwise",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			params := recapi.NewQueryParams().WithPage(page).WithLimit(limit)
			if sort != "" {
				params.WithSort(sort)
			}

			if len(states) > 0 {
				params.WithFilter("state", states...)
			}

			var (
				jobs       []recapi.Job
				pagination recapi.Pagination
			)

			if allJobs {
				jobs, err = recapi.FetchAllPages[recapi.Job](ctx, func(ctx context.Context, page int) (*recapi.Page[recapi.Job], error) {
					return client.Jobs().List(ctx, params.WithPage(page))
				}, constants.DefaultMaxPages)
				if err != nil {
					return fmt.Errorf("failed to list jobs: %w", err)
				}

				pagination = recapi.Pagination{Page: 1, Pages: 1, Limit: len(jobs), Total: len(jobs)}
			} else {
				result, err := client.Jobs().List(ctx, params)
				if err != nil {
					return fmt.Errorf("failed to list jobs: %w", err)
				}

				jobs, pagination = result.Items, result.Pagination
			}

			err = render(cmd.OutOrStdout(), jobs, func(table *tablewriter.Table) {
				table.Header("ID", "Name", "State", "Progress", "Records", "Created")

				for _, job := range jobs {
					_ = table.Append(
						job.ID,
						job.Name,
						string(job.State),
						strconv.Itoa(job.Progress)+"%",
						strconv.Itoa(job.RecordsProcessed),
						formatTime(job.CreatedAt),
					)
				}
			})
			if err != nil {
				return err
			}

			printPageSummary(cmd, pagination)

			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", constants.DefaultPageSize, "results per page")
	cmd.Flags().StringVar(&sort, "sort", "", "sort order, e.g. -createdAt")
	cmd.Flags().StringSliceVar(&states, "state", nil, "filter by state")
	cmd.Flags().BoolVar(&allJobs, "all", false, "fetch every page")

	return cmd
}

func newJobsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get JOB_ID",
		Short: "Get job details",
		Long:  "Display detailed information about a specific job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			job, err := client.Jobs().Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get job: %w", err)
			}

			return renderJob(cmd, job)
		},
	}
}

func newJobsTriggerCommand() *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "trigger NAME",
		Short: "Trigger a job",
		Long:  "Start a new processing job, passing parameters as key=value pairs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parameters, err := parseParameters(params)
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			job, err := client.Jobs().Trigger(ctx, &recapi.JobTriggerRequest{
				Name:       args[0],
				Parameters: parameters,
			})
			if err != nil {
				return fmt.Errorf("failed to trigger job: %w", err)
			}

			return renderJob(cmd, job)
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "job parameter as key=value (repeatable)")

	return cmd
}

func newJobsCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel JOB_ID",
		Short: "Cancel a job",
		Long:  "Ask the server to stop a queued or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			job, err := client.Jobs().Cancel(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to cancel job: %w", err)
			}

			return renderJob(cmd, job)
		},
	}
}

func newJobsWaitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "wait JOB_ID",
		Short: "Wait for a job to finish",
		Long:  "Poll a job until it completes, fails, or is cancelled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			job, err := client.Jobs().PollUntilComplete(ctx, args[0])
			if job != nil {
				renderErr := renderJob(cmd, job)
				if renderErr != nil {
					return renderErr
				}
			}

			if err != nil {
				return fmt.Errorf("failed to wait for job: %w", err)
			}

			return nil
		},
	}
}

func renderJob(cmd *cobra.Command, job *recapi.Job) error {
	return render(cmd.OutOrStdout(), job, func(table *tablewriter.Table) {
		table.Header("Property", "Value")

		_ = table.Append("ID", job.ID)
		_ = table.Append("Name", job.Name)
		_ = table.Append("State", string(job.State))
		_ = table.Append("Progress", strconv.Itoa(job.Progress)+"%")
		_ = table.Append("Records Processed", strconv.Itoa(job.RecordsProcessed))

		if len(job.Parameters) > 0 {
			_ = table.Append("Parameters", formatMap(job.Parameters))
		}

		_ = table.Append("Created", formatTime(job.CreatedAt))
		_ = table.Append("Started", formatTimePtr(job.StartedAt))
		_ = table.Append("Finished", formatTimePtr(job.FinishedAt))

		if len(job.Errors) > 0 {
			_ = table.Append("Errors", strings.Join(job.Errors, "\n"))
		}
	})
}

// parseParameters turns key=value pairs into a map.
func parseParameters(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil //nolint:nilnil
	}

	params := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidParameter, pair)
		}

		params[key] = value
	}

	return params, nil
}
