package recapi_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/recapi/pkg/recapi"
)

// MockResourceClients implements recapi.ResourceClients for testing.
type MockResourceClients struct {
	mock.Mock
}

func (m *MockResourceClients) Jobs() recapi.JobsClient {
	args := m.Called()

	return args.Get(0).(recapi.JobsClient)
}

func (m *MockResourceClients) Records() recapi.RecordsClient {
	args := m.Called()

	return args.Get(0).(recapi.RecordsClient)
}

func (m *MockResourceClients) Imports() recapi.ImportsClient {
	args := m.Called()

	return args.Get(0).(recapi.ImportsClient)
}

func (m *MockResourceClients) Monitoring() recapi.MonitoringClient {
	args := m.Called()

	return args.Get(0).(recapi.MonitoringClient)
}

// MockRecordsClient implements recapi.RecordsClient for testing.
type MockRecordsClient struct {
	mock.Mock
}

func (m *MockRecordsClient) Get(ctx context.Context, id string) (*recapi.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*recapi.Record), args.Error(1)
}

func (m *MockRecordsClient) Search(ctx context.Context, params *recapi.SearchParams) (*recapi.Page[recapi.Record], error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*recapi.Page[recapi.Record]), args.Error(1)
}

func (m *MockRecordsClient) SearchAsYouType(ctx context.Context, params *recapi.SearchParams) (*recapi.Page[recapi.Record], error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*recapi.Page[recapi.Record]), args.Error(1)
}

func (m *MockRecordsClient) UpdateStatus(ctx context.Context, id string, request *recapi.StatusUpdateRequest) (*recapi.Record, error) {
	args := m.Called(ctx, id, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*recapi.Record), args.Error(1)
}

// MockJobsClient implements recapi.JobsClient for testing.
type MockJobsClient struct {
	mock.Mock
}

func (m *MockJobsClient) List(ctx context.Context, params *recapi.QueryParams) (*recapi.Page[recapi.Job], error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*recapi.Page[recapi.Job]), args.Error(1)
}

func (m *MockJobsClient) Get(ctx context.Context, id string) (*recapi.Job, error) {
	return m.job(m.Called(ctx, id))
}

func (m *MockJobsClient) Trigger(ctx context.Context, request *recapi.JobTriggerRequest) (*recapi.Job, error) {
	return m.job(m.Called(ctx, request))
}

func (m *MockJobsClient) Cancel(ctx context.Context, id string) (*recapi.Job, error) {
	return m.job(m.Called(ctx, id))
}

func (m *MockJobsClient) PollUntilComplete(ctx context.Context, id string) (*recapi.Job, error) {
	return m.job(m.Called(ctx, id))
}

func (m *MockJobsClient) job(args mock.Arguments) (*recapi.Job, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*recapi.Job), args.Error(1)
}

func TestBatchExecutor_Execute(t *testing.T) {
	t.Parallel()

	mockClient := &MockResourceClients{}
	mockRecords := &MockRecordsClient{}
	mockJobs := &MockJobsClient{}
	mockClient.On("Records").Return(mockRecords)
	mockClient.On("Jobs").Return(mockJobs)

	executor := recapi.NewBatchExecutor(mockClient, 2)

	mockRecords.On("Get", mock.Anything, "rec-1").Return(&recapi.Record{ID: "rec-1"}, nil)
	mockJobs.On("Trigger", mock.Anything, &recapi.JobTriggerRequest{Name: "reindex"}).
		Return(&recapi.Job{ID: "job-1", State: recapi.JobStateQueued}, nil)
	mockJobs.On("Cancel", mock.Anything, "job-2").Return(&recapi.Job{ID: "job-2", State: recapi.JobStateCancelled}, nil)

	operations := []recapi.BatchOperation{
		{ID: "op1", Type: recapi.BatchOpGet, Resource: recapi.BatchResourceRecord, Data: "rec-1"},
		{ID: "op2", Type: recapi.BatchOpTrigger, Resource: recapi.BatchResourceJob, Data: &recapi.JobTriggerRequest{Name: "reindex"}},
		{ID: "op3", Type: recapi.BatchOpCancel, Resource: recapi.BatchResourceJob, Data: "job-2"},
	}

	results, err := executor.Execute(context.Background(), operations)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, result := range results {
		assert.Equal(t, operations[i].ID, result.ID, "results keep operation order")
		assert.True(t, result.Success)
		require.NoError(t, result.Error)
		assert.NotNil(t, result.Data)
	}

	mockClient.AssertExpectations(t)
	mockRecords.AssertExpectations(t)
	mockJobs.AssertExpectations(t)
}

func TestBatchExecutor_WithCallback(t *testing.T) {
	t.Parallel()

	mockClient := &MockResourceClients{}
	mockJobs := &MockJobsClient{}
	mockClient.On("Jobs").Return(mockJobs)
	mockJobs.On("Get", mock.Anything, "job-1").Return(&recapi.Job{ID: "job-1"}, nil)

	executor := recapi.NewBatchExecutor(mockClient, 1)

	var (
		mu        sync.Mutex
		callbacks []string
	)

	operations := []recapi.BatchOperation{{
		ID:       "op1",
		Type:     recapi.BatchOpGet,
		Resource: recapi.BatchResourceJob,
		Data:     "job-1",
		Callback: func(result *recapi.BatchResult) {
			mu.Lock()
			defer mu.Unlock()

			callbacks = append(callbacks, result.ID)
		},
	}}

	_, err := executor.Execute(context.Background(), operations)
	require.NoError(t, err)
	assert.Equal(t, []string{"op1"}, callbacks)
}

func TestBatchExecutor_WithError(t *testing.T) {
	t.Parallel()

	mockClient := &MockResourceClients{}
	mockRecords := &MockRecordsClient{}
	mockClient.On("Records").Return(mockRecords)
	mockRecords.On("Get", mock.Anything, "missing").Return(nil, &recapi.HTTPError{Status: http.StatusNotFound})
	mockRecords.On("Get", mock.Anything, "rec-1").Return(&recapi.Record{ID: "rec-1"}, nil)

	executor := recapi.NewBatchExecutor(mockClient, 0)

	results, err := executor.Execute(context.Background(), []recapi.BatchOperation{
		{ID: "missing", Type: recapi.BatchOpGet, Resource: recapi.BatchResourceRecord, Data: "missing"},
		{ID: "ok", Type: recapi.BatchOpGet, Resource: recapi.BatchResourceRecord, Data: "rec-1"},
		{ID: "bad-data", Type: recapi.BatchOpGet, Resource: recapi.BatchResourceRecord, Data: 42},
		{ID: "bad-resource", Type: recapi.BatchOpGet, Resource: "import", Data: "x"},
		{ID: "bad-type", Type: "delete", Resource: recapi.BatchResourceJob, Data: "x"},
	})
	require.NoError(t, err)

	assert.False(t, results[0].Success)
	assert.True(t, recapi.IsNotFound(results[0].Error))
	assert.True(t, results[1].Success, "one failure does not stop the others")
	require.ErrorIs(t, results[2].Error, recapi.ErrInvalidDataTypeRecord)
	require.ErrorIs(t, results[3].Error, recapi.ErrUnsupportedResourceType)
	require.ErrorIs(t, results[4].Error, recapi.ErrUnsupportedOperationType)
}

func TestBatchExecutor_Timeout(t *testing.T) {
	t.Parallel()

	mockClient := &MockResourceClients{}
	mockJobs := &MockJobsClient{}
	mockClient.On("Jobs").Return(mockJobs)
	mockJobs.On("Get", mock.Anything, "slow").Run(func(args mock.Arguments) {
		ctx, _ := args.Get(0).(context.Context)
		<-ctx.Done()
	}).Return(nil, recapi.NewTransportError(recapi.TransportTimeout, context.DeadlineExceeded))

	executor := recapi.NewBatchExecutor(mockClient, 1)
	executor.SetTimeout(10 * time.Millisecond)

	results, err := executor.Execute(context.Background(), []recapi.BatchOperation{
		{ID: "slow", Type: recapi.BatchOpGet, Resource: recapi.BatchResourceJob, Data: "slow"},
	})
	require.NoError(t, err)
	assert.False(t, results[0].Success)
	assert.True(t, recapi.IsTimeout(results[0].Error))
}

func TestBatchUpdateStatus(t *testing.T) {
	t.Parallel()

	updates := []recapi.StatusUpdate{
		{ID: "rec-1", Request: &recapi.StatusUpdateRequest{Status: recapi.RecordStatusArchived}},
		{ID: "rec-2", Request: &recapi.StatusUpdateRequest{Status: recapi.RecordStatusRejected, Reason: "duplicate"}},
	}

	operations := recapi.BatchUpdateStatus(updates)
	require.Len(t, operations, 2)

	for i, op := range operations {
		assert.Equal(t, updates[i].ID, op.ID)
		assert.Equal(t, recapi.BatchOpUpdateStatus, op.Type)
		assert.Equal(t, recapi.BatchResourceRecord, op.Resource)
		assert.Same(t, &updates[i], op.Data)
	}
}
