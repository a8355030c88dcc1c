package client

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/fivetwenty-io/recapi/internal/constants"
	"github.com/fivetwenty-io/recapi/pkg/recapi"
)

// ImportsClient implements recapi.ImportsClient.
type ImportsClient struct {
	engine *engine
}

// NewImportsClient creates a new imports client.
func NewImportsClient(e *engine) *ImportsClient {
	return &ImportsClient{engine: e}
}

// Upload implements recapi.ImportsClient.Upload.
// The upload is never retried and can be cancelled with
// Cancel(recapi.UploadCancelKey(fileName)).
func (c *ImportsClient) Upload(ctx context.Context, request *recapi.ImportRequest) (*recapi.ImportResult, error) {
	if request == nil || request.FileName == "" {
		return nil, recapi.ErrFileNameRequired
	}

	if len(request.Content) == 0 {
		return nil, recapi.ErrEmptyUpload
	}

	body, contentType, err := encodeUpload(request)
	if err != nil {
		return nil, fmt.Errorf("encoding upload: %w", err)
	}

	desc := c.engine.write(http.MethodPost, constants.APIPathImports, body, constants.TagRecords, constants.TagImports)
	desc.ContentType = contentType
	desc.Retry = recapi.NoRetry()
	desc.IdempotencyKey = ""
	desc.CancelKey = recapi.UploadCancelKey(request.FileName)

	call := &recapi.Call[*recapi.ImportResult]{
		Operation:  "imports.upload",
		Descriptor: desc,
		Schema:     recapi.ObjectSchema[recapi.ImportResult](),
	}

	result, err := Execute(ctx, c.engine, call)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", request.FileName, err)
	}

	return result, nil
}

// Get implements recapi.ImportsClient.Get.
func (c *ImportsClient) Get(ctx context.Context, id string) (*recapi.ImportResult, error) {
	if id == "" {
		return nil, recapi.ErrIDRequired
	}

	call := &recapi.Call[*recapi.ImportResult]{
		Operation:  "imports.get",
		Descriptor: c.engine.read(constants.APIPathImports+"/"+id, nil, constants.TagImports),
		Schema:     recapi.ObjectSchema[recapi.ImportResult](),
	}

	result, err := Execute(ctx, c.engine, call)
	if err != nil {
		return nil, fmt.Errorf("getting import: %w", err)
	}

	return result, nil
}

// encodeUpload builds the multipart body carrying the file and its format.
func encodeUpload(request *recapi.ImportRequest) ([]byte, string, error) {
	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile(constants.ImportFormField, request.FileName)
	if err != nil {
		return nil, "", fmt.Errorf("creating form file: %w", err)
	}

	_, err = part.Write(request.Content)
	if err != nil {
		return nil, "", fmt.Errorf("writing file content: %w", err)
	}

	if request.Format != "" {
		err = writer.WriteField("format", request.Format)
		if err != nil {
			return nil, "", fmt.Errorf("writing format field: %w", err)
		}
	}

	err = writer.Close()
	if err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}
