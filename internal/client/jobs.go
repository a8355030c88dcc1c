package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fivetwenty-io/recapi/internal/constants"
	"github.com/fivetwenty-io/recapi/pkg/recapi"
)

// Static errors for err113 compliance.
var (
	ErrJobFailed    = errors.New("job failed")
	ErrJobCancelled = errors.New("job cancelled")
)

// JobsClient implements recapi.JobsClient.
type JobsClient struct {
	engine       *engine
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// NewJobsClient creates a new jobs client.
func NewJobsClient(e *engine) *JobsClient {
	return &JobsClient{
		engine:       e,
		pollInterval: constants.DefaultPollInterval,
		pollTimeout:  constants.DefaultJobPollTimeout,
	}
}

// SetPollInterval changes the period between status polls.
func (c *JobsClient) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		c.pollInterval = interval
	}
}

// List implements recapi.JobsClient.List.
func (c *JobsClient) List(ctx context.Context, params *recapi.QueryParams) (*recapi.Page[recapi.Job], error) {
	call := &recapi.Call[*recapi.Page[recapi.Job]]{
		Operation:  "jobs.list",
		Descriptor: c.engine.read(constants.APIPathJobs, params.ToValues(), constants.TagJobs),
		Schema:     recapi.PageSchema[recapi.Job](),
	}

	page, err := Execute(ctx, c.engine, call)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}

	return page, nil
}

// Get implements recapi.JobsClient.Get.
func (c *JobsClient) Get(ctx context.Context, id string) (*recapi.Job, error) {
	if id == "" {
		return nil, recapi.ErrIDRequired
	}

	job, err := Execute(ctx, c.engine, c.getCall(id, true))
	if err != nil {
		return nil, fmt.Errorf("getting job: %w", err)
	}

	return job, nil
}

// Trigger implements recapi.JobsClient.Trigger.
func (c *JobsClient) Trigger(ctx context.Context, request *recapi.JobTriggerRequest) (*recapi.Job, error) {
	call := &recapi.Call[*recapi.Job]{
		Operation:  "jobs.trigger",
		Descriptor: c.engine.write(http.MethodPost, constants.APIPathJobs, request, constants.TagJobs),
		Schema:     recapi.ObjectSchema[recapi.Job](),
	}

	job, err := Execute(ctx, c.engine, call)
	if err != nil {
		return nil, fmt.Errorf("triggering job: %w", err)
	}

	return job, nil
}

// Cancel implements recapi.JobsClient.Cancel.
func (c *JobsClient) Cancel(ctx context.Context, id string) (*recapi.Job, error) {
	if id == "" {
		return nil, recapi.ErrIDRequired
	}

	path := jobPath(id) + "/cancel"

	call := &recapi.Call[*recapi.Job]{
		Operation:  "jobs.cancel",
		Descriptor: c.engine.write(http.MethodPost, path, nil, constants.TagJobs, constants.TagJobPrefix+id),
		Schema:     recapi.ObjectSchema[recapi.Job](),
	}

	job, err := Execute(ctx, c.engine, call)
	if err != nil {
		return nil, fmt.Errorf("cancelling job: %w", err)
	}

	return job, nil
}

// PollUntilComplete implements recapi.JobsClient.PollUntilComplete.
// It polls the job, bypassing the cache, until it reaches a terminal state.
func (c *JobsClient) PollUntilComplete(ctx context.Context, id string) (*recapi.Job, error) {
	if id == "" {
		return nil, recapi.ErrIDRequired
	}

	pollCtx := ctx

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc

		pollCtx, cancel = context.WithTimeout(ctx, c.pollTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		job, err := Execute(pollCtx, c.engine, c.getCall(id, false))
		if err != nil {
			return nil, fmt.Errorf("getting job status: %w", err)
		}

		if job.State.Terminal() {
			return job, jobOutcome(job)
		}

		select {
		case <-pollCtx.Done():
			return job, fmt.Errorf("waiting for job to complete: %w", recapi.ContextError(pollCtx))
		case <-ticker.C:
		}
	}
}

func (c *JobsClient) getCall(id string, cacheable bool) *recapi.Call[*recapi.Job] {
	desc := c.engine.read(jobPath(id), nil, constants.TagJobs, constants.TagJobPrefix+id)
	desc.Cacheable = cacheable

	return &recapi.Call[*recapi.Job]{
		Operation:  "jobs.get",
		Descriptor: desc,
		Schema:     recapi.ObjectSchema[recapi.Job](),
	}
}

func jobPath(id string) string {
	return constants.APIPathJobs + "/" + id
}

// jobOutcome converts a terminal job state into an error.
func jobOutcome(job *recapi.Job) error {
	switch job.State {
	case recapi.JobStateFailed:
		return fmt.Errorf("%w: %s", ErrJobFailed, formatJobErrors(job))
	case recapi.JobStateCancelled:
		return fmt.Errorf("%w: %s", ErrJobCancelled, job.ID)
	default:
		return nil
	}
}

// formatJobErrors formats job errors for display.
func formatJobErrors(job *recapi.Job) string {
	switch len(job.Errors) {
	case 0:
		return "no error details available"
	case 1:
		return job.Errors[0]
	}

	var b strings.Builder

	b.WriteString("multiple errors:")

	for i, detail := range job.Errors {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, detail)
	}

	return b.String()
}
