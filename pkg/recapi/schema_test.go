package recapi_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/recapi/pkg/recapi"
)

func violationFields(t *testing.T, err error) []string {
	t.Helper()

	var validation *recapi.ValidationError
	require.ErrorAs(t, err, &validation)

	fields := make([]string, 0, len(validation.Violations))
	for _, v := range validation.Violations {
		fields = append(fields, v.Field)
	}

	return fields
}

func TestObjectSchema_Valid(t *testing.T) {
	t.Parallel()

	payload := &recapi.Payload{
		Data: json.RawMessage(`{"id":"rec-1","title":"Invoice","status":"active","createdAt":"2026-01-01T00:00:00Z"}`),
	}

	record, err := recapi.ObjectSchema[recapi.Record]().Validate(payload)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", record.ID)
	assert.Equal(t, recapi.RecordStatusActive, record.Status)
}

func TestObjectSchema_Violations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		data   string
		fields []string
	}{
		{
			name:   "missing data",
			data:   "",
			fields: []string{"data"},
		},
		{
			name:   "null data",
			data:   "null",
			fields: []string{"data"},
		},
		{
			name:   "missing required fields",
			data:   `{"status":"active"}`,
			fields: []string{"id", "title"},
		},
		{
			name:   "bad enum",
			data:   `{"id":"1","title":"t","status":"deleted"}`,
			fields: []string{"status"},
		},
		{
			name:   "wrong type",
			data:   `{"id":1,"title":"t","status":"active"}`,
			fields: []string{"data.id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := recapi.ObjectSchema[recapi.Record]().Validate(&recapi.Payload{Data: json.RawMessage(tt.data)})
			require.Error(t, err)
			assert.Equal(t, tt.fields, violationFields(t, err))
		})
	}
}

func TestObjectSchema_NilPayload(t *testing.T) {
	t.Parallel()

	_, err := recapi.ObjectSchema[recapi.Job]().Validate(nil)
	require.Error(t, err)
	assert.True(t, recapi.IsValidation(err))
}

func TestObjectSchema_RuleMessages(t *testing.T) {
	t.Parallel()

	payload := &recapi.Payload{Data: json.RawMessage(`{"id":"j","name":"n","state":"running","progress":150}`)}

	_, err := recapi.ObjectSchema[recapi.Job]().Validate(payload)

	var validation *recapi.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Len(t, validation.Violations, 1)
	assert.Equal(t, "progress", validation.Violations[0].Field)
	assert.Equal(t, "lte", validation.Violations[0].Rule)
	assert.Equal(t, "must be at most 100", validation.Violations[0].Message)
}

func TestPageSchema_Valid(t *testing.T) {
	t.Parallel()

	payload := &recapi.Payload{
		Data:       json.RawMessage(`[{"id":"j1","name":"reindex","state":"queued"}]`),
		Pagination: &recapi.Pagination{Page: 1, Limit: 20, Total: 1, Pages: 1},
	}

	page, err := recapi.PageSchema[recapi.Job]().Validate(payload)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "j1", page.Items[0].ID)
	assert.Equal(t, 1, page.Pagination.Total)
	assert.False(t, page.Pagination.HasNext())
}

func TestPageSchema_EmptyListIsNotNil(t *testing.T) {
	t.Parallel()

	payload := &recapi.Payload{
		Data:       json.RawMessage(`[]`),
		Pagination: &recapi.Pagination{Page: 1, Limit: 20},
	}

	page, err := recapi.PageSchema[recapi.Record]().Validate(payload)
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}

func TestPageSchema_Violations(t *testing.T) {
	t.Parallel()

	payload := &recapi.Payload{
		Data: json.RawMessage(`[{"id":"j1","name":"ok","state":"queued"},{"id":"j2","state":"bogus"}]`),
	}

	_, err := recapi.PageSchema[recapi.Job]().Validate(payload)
	require.Error(t, err)
	assert.Equal(t, []string{"pagination", "data[1].name", "data[1].state"}, violationFields(t, err))
}

func TestPageSchema_NotAList(t *testing.T) {
	t.Parallel()

	payload := &recapi.Payload{
		Data:       json.RawMessage(`{"id":"j1"}`),
		Pagination: &recapi.Pagination{Page: 1, Limit: 20},
	}

	_, err := recapi.PageSchema[recapi.Job]().Validate(payload)
	require.Error(t, err)
	assert.True(t, recapi.IsValidation(err))
}

func TestValidateStruct_NonStructPasses(t *testing.T) {
	t.Parallel()

	assert.Empty(t, recapi.ValidateStruct("", "plain string"))
	assert.Empty(t, recapi.ValidateStruct("", 42))
}

func TestSchemaFunc(t *testing.T) {
	t.Parallel()

	schema := recapi.SchemaFunc[string](func(payload *recapi.Payload) (string, error) {
		return payload.Message, nil
	})

	got, err := schema.Validate(&recapi.Payload{Message: "done"})
	require.NoError(t, err)
	assert.Equal(t, "done", got)
}
