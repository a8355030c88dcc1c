package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/recapi/internal/constants"
	"github.com/fivetwenty-io/recapi/pkg/recapi"
)

// RecordsClient implements recapi.RecordsClient.
type RecordsClient struct {
	engine *engine
}

// NewRecordsClient creates a new records client.
func NewRecordsClient(e *engine) *RecordsClient {
	return &RecordsClient{engine: e}
}

// Get implements recapi.RecordsClient.Get.
func (c *RecordsClient) Get(ctx context.Context, id string) (*recapi.Record, error) {
	if id == "" {
		return nil, recapi.ErrIDRequired
	}

	call := &recapi.Call[*recapi.Record]{
		Operation:  "records.get",
		Descriptor: c.engine.read(recordPath(id), nil, constants.TagRecords, constants.TagRecordPrefix+id),
		Schema:     recapi.ObjectSchema[recapi.Record](),
	}

	record, err := Execute(ctx, c.engine, call)
	if err != nil {
		return nil, fmt.Errorf("getting record: %w", err)
	}

	return record, nil
}

// Search implements recapi.RecordsClient.Search.
func (c *RecordsClient) Search(ctx context.Context, params *recapi.SearchParams) (*recapi.Page[recapi.Record], error) {
	page, err := Execute(ctx, c.engine, c.searchCall("records.search", params))
	if err != nil {
		return nil, fmt.Errorf("searching records: %w", err)
	}

	return page, nil
}

// SearchAsYouType implements recapi.RecordsClient.SearchAsYouType.
func (c *RecordsClient) SearchAsYouType(ctx context.Context, params *recapi.SearchParams) (*recapi.Page[recapi.Record], error) {
	call := c.searchCall("records.search_as_you_type", params)
	call.Descriptor.CoalesceKey = recapi.SearchKey
	call.Descriptor.CancelKey = recapi.SearchKey
	call.Descriptor.CoalesceWindow = c.engine.config.SearchDebounce

	page, err := Execute(ctx, c.engine, call)
	if err != nil {
		return nil, fmt.Errorf("searching records: %w", err)
	}

	return page, nil
}

// UpdateStatus implements recapi.RecordsClient.UpdateStatus.
func (c *RecordsClient) UpdateStatus(ctx context.Context, id string, request *recapi.StatusUpdateRequest) (*recapi.Record, error) {
	if id == "" {
		return nil, recapi.ErrIDRequired
	}

	path := recordPath(id) + "/status"

	call := &recapi.Call[*recapi.Record]{
		Operation:  "records.update_status",
		Descriptor: c.engine.write(http.MethodPatch, path, request, constants.TagRecords, constants.TagRecordPrefix+id),
		Schema:     recapi.ObjectSchema[recapi.Record](),
	}

	record, err := Execute(ctx, c.engine, call)
	if err != nil {
		return nil, fmt.Errorf("updating record status: %w", err)
	}

	return record, nil
}

func (c *RecordsClient) searchCall(operation string, params *recapi.SearchParams) *recapi.Call[*recapi.Page[recapi.Record]] {
	return &recapi.Call[*recapi.Page[recapi.Record]]{
		Operation:  operation,
		Descriptor: c.engine.read(constants.APIPathRecordsSearch, params.ToValues(), constants.TagRecords),
		Schema:     recapi.PageSchema[recapi.Record](),
	}
}

func recordPath(id string) string {
	return constants.APIPathRecords + "/" + id
}
