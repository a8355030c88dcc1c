package recapi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/recapi/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrUnsupportedResourceType  = errors.New("unsupported resource type")
	ErrUnsupportedOperationType = errors.New("unsupported operation type")
	ErrInvalidDataTypeRecord    = errors.New("invalid data type for record operation")
	ErrInvalidDataTypeJob       = errors.New("invalid data type for job operation")
)

// Batch resources and operation types.
const (
	BatchResourceRecord = "record"
	BatchResourceJob    = "job"

	BatchOpGet          = "get"
	BatchOpUpdateStatus = "update_status"
	BatchOpTrigger      = "trigger"
	BatchOpCancel       = "cancel"
)

// StatusUpdate pairs a record ID with its status change.
type StatusUpdate struct {
	ID      string
	Request *StatusUpdateRequest
}

// BatchOperation represents a single operation in a batch.
type BatchOperation struct {
	ID       string
	Type     string // "get", "update_status", "trigger", "cancel"
	Resource string // "record", "job"
	Data     interface{}
	Callback func(result *BatchResult)
}

// BatchResult represents the result of a batch operation.
type BatchResult struct {
	ID       string
	Success  bool
	Data     interface{}
	Error    error
	Duration time.Duration
}

// BatchExecutor executes batch operations.
type BatchExecutor struct {
	client      ResourceClients
	concurrency int
	timeout     time.Duration
}

// NewBatchExecutor creates a new batch executor.
func NewBatchExecutor(client ResourceClients, concurrency int) *BatchExecutor {
	if concurrency <= 0 {
		concurrency = constants.DefaultConcurrencyLimit
	}

	return &BatchExecutor{
		client:      client,
		concurrency: concurrency,
		timeout:     constants.DefaultBatchTimeout,
	}
}

// SetTimeout sets the timeout for batch operations.
func (b *BatchExecutor) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// Execute runs a batch of operations. Results are in operation order; a
// failed operation does not stop the others.
func (b *BatchExecutor) Execute(ctx context.Context, operations []BatchOperation) ([]BatchResult, error) {
	results := make([]BatchResult, len(operations))

	var waitGroup sync.WaitGroup

	semaphore := make(chan struct{}, b.concurrency)

	for index, operation := range operations {
		waitGroup.Add(1)

		go func(index int, operation BatchOperation) {
			defer waitGroup.Done()

			// Acquire semaphore
			semaphore <- struct{}{}

			defer func() { <-semaphore }()

			opCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()

			start := time.Now()
			result := b.executeOperation(opCtx, operation)
			result.Duration = time.Since(start)
			results[index] = *result

			if operation.Callback != nil {
				operation.Callback(result)
			}
		}(index, operation)
	}

	waitGroup.Wait()

	return results, nil
}

func (b *BatchExecutor) executeOperation(ctx context.Context, operation BatchOperation) *BatchResult {
	result := &BatchResult{ID: operation.ID}

	var (
		data interface{}
		err  error
	)

	switch operation.Resource {
	case BatchResourceRecord:
		data, err = b.executeRecordOperation(ctx, operation)
	case BatchResourceJob:
		data, err = b.executeJobOperation(ctx, operation)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedResourceType, operation.Resource)
	}

	result.Success = err == nil
	result.Data = data
	result.Error = err

	return result
}

func (b *BatchExecutor) executeRecordOperation(ctx context.Context, operation BatchOperation) (interface{}, error) {
	records := b.client.Records()

	switch operation.Type {
	case BatchOpGet:
		id, ok := operation.Data.(string)
		if !ok {
			return nil, fmt.Errorf("%w get", ErrInvalidDataTypeRecord)
		}

		return records.Get(ctx, id)
	case BatchOpUpdateStatus:
		update, ok := operation.Data.(*StatusUpdate)
		if !ok {
			return nil, fmt.Errorf("%w update_status", ErrInvalidDataTypeRecord)
		}

		return records.UpdateStatus(ctx, update.ID, update.Request)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperationType, operation.Type)
	}
}

func (b *BatchExecutor) executeJobOperation(ctx context.Context, operation BatchOperation) (interface{}, error) {
	jobs := b.client.Jobs()

	switch operation.Type {
	case BatchOpGet:
		id, ok := operation.Data.(string)
		if !ok {
			return nil, fmt.Errorf("%w get", ErrInvalidDataTypeJob)
		}

		return jobs.Get(ctx, id)
	case BatchOpTrigger:
		request, ok := operation.Data.(*JobTriggerRequest)
		if !ok {
			return nil, fmt.Errorf("%w trigger", ErrInvalidDataTypeJob)
		}

		return jobs.Trigger(ctx, request)
	case BatchOpCancel:
		id, ok := operation.Data.(string)
		if !ok {
			return nil, fmt.Errorf("%w cancel", ErrInvalidDataTypeJob)
		}

		return jobs.Cancel(ctx, id)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperationType, operation.Type)
	}
}

// BatchUpdateStatus builds update operations for a set of records.
func BatchUpdateStatus(updates []StatusUpdate) []BatchOperation {
	operations := make([]BatchOperation, 0, len(updates))
	for i := range updates {
		operations = append(operations, BatchOperation{
			ID:       updates[i].ID,
			Type:     BatchOpUpdateStatus,
			Resource: BatchResourceRecord,
			Data:     &updates[i],
		})
	}

	return operations
}
